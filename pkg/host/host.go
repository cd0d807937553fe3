package host

// Host is the surface the orchestrator consumes from the embedding
// application. The application implements it; updatekit never renders
// UI or terminates the process itself.
type Host interface {
	// CanCloseAllWindows reports whether every top-level window could be
	// closed right now (no modal dialogs, unsaved work prompts, etc.).
	// It is queried synchronously from the agent's own goroutines and
	// must be safe to call from any goroutine without blocking.
	CanCloseAllWindows() bool

	// CloseAllAndQuit closes every window and terminates the
	// application so the agent can install a staged update.
	// Invoked only on the run loop.
	CloseAllAndQuit()

	// SetUpdateReady activates the application's "a restart will apply
	// an update" affordance (menu badge, tray hint, ...).
	// Invoked only on the run loop, at most once per staged version.
	SetUpdateReady(version string)
}

// Funcs implements Host with optional function slots. Nil slots are
// no-ops, except CanCloseAllWindows which defaults to true.
type Funcs struct {
	CanCloseAllWindowsFunc func() bool
	CloseAllAndQuitFunc    func()
	SetUpdateReadyFunc     func(version string)
}

// CanCloseAllWindows calls the slot, defaulting to true.
func (f Funcs) CanCloseAllWindows() bool {
	if f.CanCloseAllWindowsFunc == nil {
		return true
	}
	return f.CanCloseAllWindowsFunc()
}

// CloseAllAndQuit calls the slot if set.
func (f Funcs) CloseAllAndQuit() {
	if f.CloseAllAndQuitFunc != nil {
		f.CloseAllAndQuitFunc()
	}
}

// SetUpdateReady calls the slot if set.
func (f Funcs) SetUpdateReady(version string) {
	if f.SetUpdateReadyFunc != nil {
		f.SetUpdateReadyFunc(version)
	}
}
