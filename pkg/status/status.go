package status

// State represents the current position of the update pipeline.
type State int

const (
	// StateIdle means no check is in progress and no result is pending.
	StateIdle State = iota

	// StateChecking means a check against the update feed is in flight.
	StateChecking

	// StateUpdateAvailable means the agent found a newer build.
	StateUpdateAvailable

	// StateDownloading means the agent is downloading the update package.
	StateDownloading

	// StateReadyToInstall means a verified update package is staged locally.
	StateReadyToInstall

	// StateInstalling is reserved for forward compatibility. No agent
	// callback currently produces it; the agent installs after the
	// shutdown handshake, outside the orchestrator's visibility.
	StateInstalling

	// StateUpToDate means the last check found no newer build.
	StateUpToDate

	// StateError means the last check or download failed.
	StateError
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateChecking:
		return "Checking"
	case StateUpdateAvailable:
		return "UpdateAvailable"
	case StateDownloading:
		return "Downloading"
	case StateReadyToInstall:
		return "ReadyToInstall"
	case StateInstalling:
		return "Installing"
	case StateUpToDate:
		return "UpToDate"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is the single source of truth about the update pipeline.
// It is owned by the orchestrator and mutated only on its run loop.
type Status struct {
	// State is the current pipeline state.
	State State

	// Progress is the download completion percentage (0-100).
	// Meaningful only while State is StateDownloading; it keeps its
	// last-known value afterwards.
	Progress int

	// PendingVersion is the version of a staged update, set once State
	// reaches StateReadyToInstall.
	PendingVersion string

	// LastError is a human-readable failure description, set when State
	// is StateError.
	LastError string
}

// Terminal reports whether the state is a rest state that only a new
// check can leave.
func (s State) Terminal() bool {
	return s == StateUpToDate || s == StateError || s == StateReadyToInstall
}
