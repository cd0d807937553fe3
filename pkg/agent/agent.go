package agent

import (
	"errors"
	"net/http"
)

// Common agent errors.
var (
	ErrNotStarted       = errors.New("agent not started")
	ErrAlreadyStarted   = errors.New("agent already started")
	ErrNoStagedUpdate   = errors.New("no staged update")
	ErrHostNotCloseable = errors.New("host declined shutdown")
)

// Callbacks is the set of entry points an agent invokes while working
// through a check. All of them except CanShutdown are fire-and-forget
// notifications invoked on the agent's own goroutines; the receiver is
// responsible for hopping onto its own loop before touching state.
//
// CanShutdown is special: the agent expects a synchronous answer on its
// calling goroutine. Implementations must answer from state that is
// safe to read from any goroutine and must not block.
//
// Nil slots are skipped; a nil CanShutdown answers false.
type Callbacks struct {
	CheckStarted      func()
	UpdateFound       func()
	NoUpdateFound     func()
	Cancelled         func()
	DownloadProgress  func(percent int)
	DownloadComplete  func(version string)
	Error             func(message string)
	CanShutdown       func() bool
	ShutdownRequested func()
}

// Agent is the update-checking component the orchestrator wraps. It
// owns feed polling, download, signature verification, and install
// mechanics; the orchestrator only sees the Callbacks surface.
type Agent interface {
	// Start registers the callbacks and arms automatic periodic
	// checking. Callbacks may fire from other goroutines any time
	// after Start returns and until Stop.
	Start(cb Callbacks) error

	// Stop disarms periodic checking and releases resources. It does
	// not interrupt a native operation already in flight; it only
	// stops new callbacks from being delivered.
	Stop()

	// CheckNow requests an immediate check. Never blocks; a request
	// arriving while a check is already running is coalesced.
	CheckNow()
}

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func (c Callbacks) checkStarted() {
	if c.CheckStarted != nil {
		c.CheckStarted()
	}
}

func (c Callbacks) updateFound() {
	if c.UpdateFound != nil {
		c.UpdateFound()
	}
}

func (c Callbacks) noUpdateFound() {
	if c.NoUpdateFound != nil {
		c.NoUpdateFound()
	}
}

func (c Callbacks) cancelled() {
	if c.Cancelled != nil {
		c.Cancelled()
	}
}

func (c Callbacks) downloadProgress(percent int) {
	if c.DownloadProgress != nil {
		c.DownloadProgress(percent)
	}
}

func (c Callbacks) downloadComplete(version string) {
	if c.DownloadComplete != nil {
		c.DownloadComplete(version)
	}
}

func (c Callbacks) error(message string) {
	if c.Error != nil {
		c.Error(message)
	}
}

func (c Callbacks) canShutdown() bool {
	if c.CanShutdown == nil {
		return false
	}
	return c.CanShutdown()
}

func (c Callbacks) shutdownRequested() {
	if c.ShutdownRequested != nil {
		c.ShutdownRequested()
	}
}
