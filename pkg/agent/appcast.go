package agent

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/quartzbrowser/updatekit/pkg/log"
)

// MinCheckInterval is the floor the agent enforces on automatic checks.
const MinCheckInterval = time.Minute

// Config holds the configuration for the embedded appcast agent.
type Config struct {
	// FeedURL is the update feed endpoint.
	FeedURL string

	// PublicKey is the base64 ed25519 key used to verify packages.
	PublicKey string

	// CurrentVersion is the running build's version.
	CurrentVersion string

	// CheckInterval is the automatic check period. Values below
	// MinCheckInterval are raised to it.
	CheckInterval time.Duration

	// DownloadDir is the staging directory for downloaded packages
	// and the agent's state file.
	DownloadDir string

	// HTTPClient is used for feed and package requests.
	// Defaults to an http.Client with a 30s timeout.
	HTTPClient HTTPClient

	// Logger receives agent diagnostics. Defaults to a no-op logger.
	Logger log.Logger
}

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.CheckInterval < MinCheckInterval {
		c.CheckInterval = MinCheckInterval
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = log.NewNoopLogger()
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("feed url is required")
	}
	if c.PublicKey == "" {
		return fmt.Errorf("public key is required")
	}
	if c.CurrentVersion == "" {
		return fmt.Errorf("current version is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download dir is required")
	}
	return nil
}

// Appcast is the embedded reference agent. It polls a JSON feed on its
// own goroutine, downloads and verifies newer builds, and reports
// through Callbacks. It satisfies Agent.
type Appcast struct {
	cfg     Config
	cb      Callbacks
	pubKey  ed25519.PublicKey
	current *goversion.Version
	state   *stateFile
	logger  log.Logger

	checkCh chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	staged State
}

// NewAppcast creates an appcast agent. Start arms it.
func NewAppcast(cfg Config) *Appcast {
	cfg.SetDefaults()
	return &Appcast{
		cfg:     cfg,
		logger:  cfg.Logger,
		state:   newStateFile(cfg.DownloadDir),
		checkCh: make(chan struct{}, 1),
	}
}

// Start validates configuration, restores persisted state, and begins
// periodic checking on a background goroutine.
func (a *Appcast) Start(cb Callbacks) error {
	if a.cancel != nil {
		return ErrAlreadyStarted
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	key, err := parsePublicKey(a.cfg.PublicKey)
	if err != nil {
		return err
	}
	current, err := goversion.NewVersion(a.cfg.CurrentVersion)
	if err != nil {
		// Dev builds carry versions like "dev"; treat them as older
		// than anything the feed offers.
		a.logger.Warn("unparsable current version, assuming 0.0.0",
			log.String("version", a.cfg.CurrentVersion))
		current, _ = goversion.NewVersion("0.0.0")
	}

	st, err := a.state.Load()
	if err != nil {
		a.logger.Warn("failed to load agent state", log.Err(err))
		st = State{}
	}

	a.cb = cb
	a.pubKey = key
	a.current = current
	a.mu.Lock()
	a.staged = st
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go a.loop(ctx)

	a.logger.Info("appcast agent started",
		log.String("feed", a.cfg.FeedURL),
		log.Duration("interval", a.cfg.CheckInterval),
	)
	return nil
}

// Stop disarms periodic checking and waits for the poll goroutine.
// A download already in flight is abandoned mid-transfer.
func (a *Appcast) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.wg.Wait()
	a.cancel = nil
	a.cb = Callbacks{}
}

// CheckNow requests an immediate check. Non-blocking; coalesced if a
// request is already pending.
func (a *Appcast) CheckNow() {
	if a.cancel == nil {
		a.logger.Warn("check requested before agent start")
		return
	}
	select {
	case a.checkCh <- struct{}{}:
	default:
	}
}

// Install runs the shutdown handshake for a staged update: queries the
// host's closeability, then requests termination so the staged package
// can be applied. Returns ErrNoStagedUpdate if nothing is staged and
// ErrHostNotCloseable if the host declines.
func (a *Appcast) Install() error {
	if a.cancel == nil {
		return ErrNotStarted
	}

	a.mu.Lock()
	staged := a.staged
	a.mu.Unlock()
	if staged.StagedPath == "" {
		return ErrNoStagedUpdate
	}

	if !a.cb.canShutdown() {
		return ErrHostNotCloseable
	}

	a.logger.Info("requesting host shutdown for install",
		log.String("version", staged.StagedVersion))
	a.cb.shutdownRequested()
	return nil
}

// StagedVersion returns the version staged for install, if any.
func (a *Appcast) StagedVersion() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.staged.StagedVersion
}

func (a *Appcast) loop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.check(ctx)
		case <-a.checkCh:
			a.check(ctx)
		}
	}
}

// check runs one full check-download-verify cycle, reporting each step
// through the callbacks. All failures degrade to the Error callback;
// nothing escapes as a panic or a returned error.
func (a *Appcast) check(ctx context.Context) {
	a.cb.checkStarted()

	item, err := fetchFeed(ctx, a.cfg.HTTPClient, a.cfg.FeedURL)
	if err != nil {
		a.fail(ctx, "update check failed", err)
		return
	}

	remote, err := goversion.NewVersion(item.Version)
	if err != nil {
		a.fail(ctx, "update check failed", fmt.Errorf("parse feed version: %w", err))
		return
	}

	a.saveState(func(st *State) { st.LastCheck = time.Now().UTC() })

	if !remote.GreaterThan(a.current) {
		a.logger.Debug("no update available",
			log.String("current", a.current.String()),
			log.String("latest", remote.String()),
		)
		a.cb.noUpdateFound()
		return
	}

	a.logger.Info("update found", log.String("version", item.Version))
	a.cb.updateFound()

	staged, err := a.download(ctx, item)
	if err != nil {
		a.fail(ctx, "update download failed", err)
		return
	}

	if err := verifyFile(staged, item.Signature, a.pubKey); err != nil {
		a.fail(ctx, "update verification failed", err)
		return
	}

	a.saveState(func(st *State) {
		st.StagedVersion = item.Version
		st.StagedPath = staged
	})

	a.logger.Info("update staged",
		log.String("version", item.Version),
		log.String("path", staged),
	)
	a.cb.downloadComplete(item.Version)
}

// fail reports a failed cycle. A context cancellation means the agent
// is being stopped or the user abandoned the operation; that surfaces
// as a cancellation, not an error.
func (a *Appcast) fail(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		a.logger.Debug("check cancelled", log.Err(err))
		a.cb.cancelled()
		return
	}
	a.logger.Error(msg, log.Err(err))
	a.cb.error(fmt.Sprintf("%s: %v", msg, err))
}

func (a *Appcast) saveState(mutate func(*State)) {
	a.mu.Lock()
	mutate(&a.staged)
	st := a.staged
	a.mu.Unlock()

	if err := a.state.Save(st); err != nil {
		a.logger.Warn("failed to save agent state", log.Err(err))
	}
}
