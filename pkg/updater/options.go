package updater

import (
	"github.com/quartzbrowser/updatekit/pkg/agent"
	"github.com/quartzbrowser/updatekit/pkg/host"
	"github.com/quartzbrowser/updatekit/pkg/log"
)

// Option configures optional behavior of the Orchestrator.
type Option func(*options)

// options holds the optional configuration for an Orchestrator.
type options struct {
	logger log.Logger
	host   host.Host
	agent  agent.Agent
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		host:   host.Funcs{},
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHost sets the host adapter queried during the shutdown handshake
// and notified when an update is staged. If not provided, a permissive
// no-op host is used.
func WithHost(h host.Host) Option {
	return func(o *options) {
		if h != nil {
			o.host = h
		}
	}
}

// WithAgent injects a specific update agent. If not provided, an
// embedded appcast agent is built from the Config at Initialize.
func WithAgent(a agent.Agent) Option {
	return func(o *options) {
		o.agent = a
	}
}
