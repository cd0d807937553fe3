package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const stateFileName = "agent.json"

// State is the agent's own persisted bookkeeping: when it last checked
// and what package, if any, is staged for install. It is owned by the
// agent, not the orchestrator.
type State struct {
	LastCheck     time.Time `json:"last_check"`
	StagedVersion string    `json:"staged_version,omitempty"`
	StagedPath    string    `json:"staged_path,omitempty"`
}

// stateFile persists State as a JSON file in a directory.
type stateFile struct {
	dir string
}

func newStateFile(dir string) *stateFile {
	return &stateFile{dir: dir}
}

// Load retrieves the last saved state from disk.
// Returns an empty state and nil error if no state file exists.
func (r *stateFile) Load() (State, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Save persists the current state atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *stateFile) Save(st State) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the state file.
func (r *stateFile) Path() string {
	return filepath.Join(r.dir, stateFileName)
}
