package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quartzbrowser/updatekit/pkg/log"
)

// checkRequestName is the file a Spool writes to ask the external
// helper for an immediate check.
const checkRequestName = "check.request"

// spoolEvent is one JSON event drop written by the external helper.
type spoolEvent struct {
	Event   string `json:"event"`
	Percent int    `json:"percent,omitempty"`
	Version string `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// Spool adapts an out-of-process updater to the Agent interface. The
// helper process drops JSON event files into a spool directory; the
// Spool watches the directory, dispatches each event through the
// callbacks, and removes consumed files. Files are consumed in name
// order, so a sequencing prefix on the helper side preserves callback
// order.
type Spool struct {
	dir           string
	debounceDelay time.Duration
	logger        log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	cb       Callbacks
	running  bool
	debounce *time.Timer

	// scanMu serializes scans. The debounce timer fires on its own
	// goroutine outside wg, so Stop uses this to wait out a scan that
	// is already past the timer.
	scanMu sync.Mutex
}

// NewSpool creates a spool agent watching dir.
func NewSpool(dir string, logger log.Logger) *Spool {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Spool{
		dir:           dir,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger,
	}
}

// Start begins watching the spool directory. Events already on disk
// are consumed immediately.
func (s *Spool) Start(cb Callbacks) error {
	if s.cancel != nil {
		return ErrAlreadyStarted
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	s.mu.Lock()
	s.cb = cb
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.watchLoop(ctx)

	s.logger.Info("spool agent started", log.String("dir", s.dir))
	return nil
}

// Stop stops watching. Unconsumed event files stay on disk for the
// next Start.
func (s *Spool) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil

	s.mu.Lock()
	s.running = false
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()

	// A debounce timer that fired before Stop may still be mid-scan;
	// let it finish dispatching into the still-valid callbacks.
	s.scanMu.Lock()
	s.scanMu.Unlock()

	s.mu.Lock()
	s.cb = Callbacks{}
	s.mu.Unlock()
}

// CheckNow asks the external helper for an immediate check by writing
// a request marker into the spool directory. Best-effort.
func (s *Spool) CheckNow() {
	if s.cancel == nil {
		s.logger.Warn("check requested before agent start")
		return
	}
	path := filepath.Join(s.dir, checkRequestName)
	if err := os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o600); err != nil {
		s.logger.Warn("failed to write check request", log.Err(err))
	}
}

// watchLoop watches for event file drops.
func (s *Spool) watchLoop(ctx context.Context) {
	defer s.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("spool: failed to create watcher", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		s.logger.Error("spool: failed to watch directory", log.Err(err))
		return
	}

	// Consume anything dropped before we started watching.
	s.scan()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.debounceScan()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("spool: watcher error", log.Err(err))
		}
	}
}

// debounceScan coalesces a burst of file events into one scan. The
// delay also gives the helper time to finish a partial write.
func (s *Spool) debounceScan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.debounceDelay, s.scan)
}

// scan consumes all event files currently in the spool, in name order.
// Scans are serialized: a watcher-driven scan and a debounce-timer scan
// must not interleave over the same files.
func (s *Spool) scan() {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	s.mu.Lock()
	cb := s.cb
	running := s.running
	s.mu.Unlock()
	if !running {
		// Stopped after the timer fired; leave the files for the
		// next Start.
		return
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("spool: read dir failed", log.Err(err))
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(s.dir, name)
		if s.consume(path, cb) {
			if err := os.Remove(path); err != nil {
				s.logger.Warn("spool: failed to remove event file", log.Err(err))
			}
		}
	}
}

// consume dispatches one event file. Returns false if the file should
// stay in place for a retry.
func (s *Spool) consume(path string, cb Callbacks) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("spool: failed to read event file", log.Err(err))
		return false
	}

	var ev spoolEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// Likely a partial write; the next event or scan retries it.
		s.logger.Debug("spool: skipping unparsable event file",
			log.String("path", path), log.Err(err))
		return false
	}

	s.logger.Debug("spool event", log.String("event", ev.Event))

	switch ev.Event {
	case "check-started":
		cb.checkStarted()
	case "update-found":
		cb.updateFound()
	case "no-update":
		cb.noUpdateFound()
	case "cancelled":
		cb.cancelled()
	case "progress":
		cb.downloadProgress(ev.Percent)
	case "downloaded":
		cb.downloadComplete(ev.Version)
	case "error":
		cb.error(ev.Message)
	case "shutdown-request":
		if !cb.canShutdown() {
			// Host is busy; leave the request for the next scan.
			s.logger.Info("spool: host declined shutdown, deferring")
			return false
		}
		cb.shutdownRequested()
	default:
		s.logger.Warn("spool: unknown event", log.String("event", ev.Event))
	}
	return true
}
