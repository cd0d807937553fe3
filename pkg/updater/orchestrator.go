package updater

import (
	"time"

	"github.com/quartzbrowser/updatekit/pkg/agent"
	"github.com/quartzbrowser/updatekit/pkg/host"
	"github.com/quartzbrowser/updatekit/pkg/log"
	"github.com/quartzbrowser/updatekit/pkg/runloop"
	"github.com/quartzbrowser/updatekit/pkg/status"
)

// Orchestrator bridges the update agent's foreign-goroutine callbacks
// to the host's run loop. It owns the status model and the observer
// registry, wires the shutdown handshake, and exposes the lifecycle
// the host drives.
//
// Unless documented otherwise, methods must be called on the run loop.
// The agent's callbacks arrive on arbitrary goroutines and are
// re-posted to the loop before any state is touched, in arrival order,
// so observers always see a consistent transition sequence.
type Orchestrator struct {
	loop   *runloop.Loop
	logger log.Logger
	host   host.Host
	cfg    Config
	opts   options

	initialized bool
	agent       agent.Agent
	st          status.Status
	updateReady bool

	// gen invalidates bridged callbacks from a previous
	// initialize/cleanup cycle; a stale agent goroutine may still be
	// winding down when the orchestrator re-initializes.
	gen uint64

	// readyNotified is the version the host's update-ready indicator
	// was last told about, so duplicate download-complete callbacks
	// notify it once.
	readyNotified string

	observers  observerList
	forceTimer *time.Timer
}

// New creates an orchestrator bound to the given run loop. The
// orchestrator does nothing until Initialize.
func New(loop *runloop.Loop, cfg Config, opts ...Option) *Orchestrator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Orchestrator{
		loop:   loop,
		logger: o.logger,
		host:   o.host,
		cfg:    cfg,
		opts:   o,
		st:     status.Status{State: status.StateIdle},
	}
}

// Initialize resolves configuration, starts the agent with all
// callbacks registered, and arms automatic periodic checking.
// Idempotent: a second call without an intervening Cleanup is a no-op.
//
// If no usable agent is available the orchestrator reports an Error
// status and stays disabled; it never fails hard.
func (o *Orchestrator) Initialize() {
	if o.initialized {
		o.logger.Debug("updater already initialized")
		return
	}

	cfg := o.cfg
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		o.logger.Error("updater configuration invalid", log.Err(err))
		o.setStatus(status.StateError, "update agent unavailable: "+err.Error())
		return
	}

	ag := o.opts.agent
	if ag == nil {
		ag = agent.NewAppcast(agent.Config{
			FeedURL:        cfg.FeedURL,
			PublicKey:      cfg.PublicKey,
			CurrentVersion: cfg.CurrentVersion,
			CheckInterval:  cfg.CheckInterval,
			DownloadDir:    cfg.DownloadDir,
			Logger:         o.logger,
		})
	}

	if err := ag.Start(o.callbacks()); err != nil {
		o.logger.Error("update agent unavailable", log.Err(err))
		o.setStatus(status.StateError, "update agent unavailable: "+err.Error())
		return
	}

	o.agent = ag
	o.initialized = true
	o.st = status.Status{State: status.StateIdle}
	o.updateReady = false
	o.readyNotified = ""

	o.logger.Info("updater initialized",
		log.String("feed", cfg.FeedURL),
		log.Duration("interval", cfg.CheckInterval),
	)

	if cfg.ForceCheck {
		o.logger.Info("force check requested", log.Duration("delay", cfg.ForceCheckDelay))
		o.forceTimer = o.loop.PostDelayed(cfg.ForceCheckDelay, o.CheckForUpdates)
	}
}

// Cleanup detaches from the agent and resets the status model.
// Idempotent: a no-op without a prior successful Initialize. Safe to
// call while a check is mid-flight; the agent's in-flight native
// operation is not interrupted, only the orchestrator's view of it is
// detached, and Cleanup never blocks on the agent's goroutines.
func (o *Orchestrator) Cleanup() {
	if !o.initialized {
		o.logger.Debug("updater cleanup without initialize")
		return
	}

	if o.forceTimer != nil {
		o.forceTimer.Stop()
		o.forceTimer = nil
	}

	o.agent.Stop()
	o.agent = nil
	o.initialized = false
	o.gen++

	o.st = status.Status{State: status.StateIdle}
	o.updateReady = false
	o.readyNotified = ""

	o.logger.Info("updater cleanup complete")
}

// IsEnabled reports whether the orchestrator is initialized. Hosts use
// this to decide whether to offer update UI at all.
func (o *Orchestrator) IsEnabled() bool {
	return o.initialized
}

// GetStatus returns a snapshot of the current status.
func (o *Orchestrator) GetStatus() status.Status {
	return o.st
}

// IsUpdateReady reports whether a verified update is staged.
func (o *Orchestrator) IsUpdateReady() bool {
	return o.updateReady
}

// CheckForUpdates starts a user-initiated check. The Checking
// transition is published synchronously to observers; the agent
// invocation itself is deferred by one loop tick because the agent's
// check entry point may block (native window creation) in calling
// contexts where that is disallowed.
//
// A no-op while uninitialized, and coalesced while already checking.
func (o *Orchestrator) CheckForUpdates() {
	if !o.initialized {
		o.logger.Warn("cannot check for updates: not initialized")
		return
	}
	if o.st.State == status.StateChecking {
		o.logger.Debug("check already in progress, coalescing")
		return
	}

	o.logger.Info("checking for updates")
	o.setStatus(status.StateChecking, "")

	gen := o.gen
	o.loop.Post(func() {
		if o.initialized && o.gen == gen {
			o.agent.CheckNow()
		}
	})
}

// AddObserver registers update hooks and returns a handle for removal.
func (o *Orchestrator) AddObserver(h Hooks) Handle {
	return o.observers.add(h)
}

// RemoveObserver deregisters a previously added observer. Safe to call
// from within a notification.
func (o *Orchestrator) RemoveObserver(id Handle) {
	o.observers.remove(id)
}

// callbacks builds the bridge: every agent callback is re-posted to
// the run loop before any state mutation, except the synchronous
// shutdown-permission query, which answers from host state that is
// safe to read from any goroutine.
func (o *Orchestrator) callbacks() agent.Callbacks {
	gen := o.gen

	return agent.Callbacks{
		CheckStarted: func() {
			o.bridge(gen, o.handleCheckStarted)
		},
		UpdateFound: func() {
			o.logger.Info("update found")
			o.bridge(gen, func() { o.setStatus(status.StateUpdateAvailable, "") })
		},
		NoUpdateFound: func() {
			o.logger.Info("no update available (up to date)")
			o.bridge(gen, func() { o.setStatus(status.StateUpToDate, "") })
		},
		Cancelled: func() {
			o.logger.Info("update cancelled by user")
			o.bridge(gen, func() { o.setStatus(status.StateIdle, "") })
		},
		DownloadProgress: func(percent int) {
			// High-frequency; logged fine-grained, not per transition.
			o.logger.Debug("download progress", log.Int("percent", percent))
			o.bridge(gen, func() { o.handleProgress(percent) })
		},
		DownloadComplete: func(version string) {
			o.logger.Info("update downloaded", log.String("version", version))
			o.bridge(gen, func() { o.handleDownloadComplete(version) })
		},
		Error: func(message string) {
			o.logger.Error("update error", log.String("message", message))
			o.bridge(gen, func() { o.setStatus(status.StateError, message) })
		},
		CanShutdown: func() bool {
			return o.host.CanCloseAllWindows()
		},
		ShutdownRequested: func() {
			o.logger.Info("shutdown requested for update installation")
			o.loop.Post(o.host.CloseAllAndQuit)
		},
	}
}

// bridge posts apply to the run loop, dropping it there if the
// orchestrator was cleaned up (or re-initialized) since the callback
// was issued. Agent failures never cross the hop as panics.
func (o *Orchestrator) bridge(gen uint64, apply func()) {
	o.loop.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("panic in update callback", log.Any("panic", r))
			}
		}()

		if !o.initialized || o.gen != gen {
			o.logger.Debug("dropping stale agent callback")
			return
		}
		apply()
	})
}

// handleCheckStarted coalesces the agent's check-started callback with
// a Checking state already entered eagerly by CheckForUpdates.
func (o *Orchestrator) handleCheckStarted() {
	if o.st.State == status.StateChecking {
		o.logger.Debug("check started while already checking")
		return
	}
	o.setStatus(status.StateChecking, "")
}

// handleProgress applies a download progress tick. The only transition
// carrying a numeric payload; observers get the dedicated percentage
// call in addition to the general status notification.
func (o *Orchestrator) handleProgress(percent int) {
	o.st.State = status.StateDownloading
	o.st.Progress = percent

	st := o.st
	o.observers.each(func(h Hooks) {
		if h.StatusChanged != nil {
			h.StatusChanged(st)
		}
		if h.Progress != nil {
			h.Progress(percent)
		}
	})
}

// handleDownloadComplete marks the update staged and activates the
// host's update-ready affordance, exactly once per version.
func (o *Orchestrator) handleDownloadComplete(version string) {
	o.updateReady = true
	o.st.PendingVersion = version
	o.setStatus(status.StateReadyToInstall, "")

	if o.readyNotified != version {
		o.readyNotified = version
		o.host.SetUpdateReady(version)
	}
}

// setStatus is the sole writer of the status model's state field.
// Runs on the loop; publishes the transition to all observers, plus the
// dedicated error call when a message is present.
func (o *Orchestrator) setStatus(state status.State, errMsg string) {
	o.st.State = state
	if errMsg != "" {
		o.st.LastError = errMsg
	}

	o.logger.Info("update status changed", log.String("status", state.String()))

	st := o.st
	o.observers.each(func(h Hooks) {
		if h.StatusChanged != nil {
			h.StatusChanged(st)
		}
		if errMsg != "" && h.Error != nil {
			h.Error(errMsg)
		}
	})
}
