package status

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateChecking, "Checking"},
		{StateUpdateAvailable, "UpdateAvailable"},
		{StateDownloading, "Downloading"},
		{StateReadyToInstall, "ReadyToInstall"},
		{StateInstalling, "Installing"},
		{StateUpToDate, "UpToDate"},
		{StateError, "Error"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestState_Terminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateIdle, false},
		{StateChecking, false},
		{StateUpdateAvailable, false},
		{StateDownloading, false},
		{StateReadyToInstall, true},
		{StateInstalling, false},
		{StateUpToDate, true},
		{StateError, true},
	}

	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%v.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestStatus_ZeroValue(t *testing.T) {
	var s Status
	if s.State != StateIdle {
		t.Errorf("zero Status state = %v, want StateIdle", s.State)
	}
	if s.Progress != 0 || s.PendingVersion != "" || s.LastError != "" {
		t.Errorf("zero Status carries payload: %+v", s)
	}
}
