// Package updatekit provides auto-update orchestration for a
// long-running desktop application.
//
// Example usage:
//
//	loop := runloop.New()
//	orch := updatekit.New(loop, updatekit.Config{CurrentVersion: appVersion},
//	    updatekit.WithHost(myHost),
//	)
//	loop.Post(orch.Initialize)
//	if err := loop.Run(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
package updatekit

import (
	"github.com/quartzbrowser/updatekit/pkg/runloop"
	"github.com/quartzbrowser/updatekit/pkg/status"
	"github.com/quartzbrowser/updatekit/pkg/updater"
)

// Config holds the orchestrator configuration.
// Zero fields resolve to the compiled-in defaults at Initialize.
type Config = updater.Config

// Option configures optional orchestrator behavior.
type Option = updater.Option

// Hooks is the capability-style observer interface.
type Hooks = updater.Hooks

// Status is a snapshot of the update pipeline.
type Status = status.Status

// Orchestrator bridges the update agent to the host's run loop.
type Orchestrator = updater.Orchestrator

// New creates an orchestrator bound to the given run loop.
func New(loop *runloop.Loop, cfg Config, opts ...Option) *Orchestrator {
	return updater.New(loop, cfg, opts...)
}

// Re-exported options.
var (
	WithLogger = updater.WithLogger
	WithHost   = updater.WithHost
	WithAgent  = updater.WithAgent
)

// DefaultFeedURL is the compiled-in update feed endpoint.
const DefaultFeedURL = updater.DefaultFeedURL
