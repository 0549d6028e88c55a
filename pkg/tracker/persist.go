package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// StateFileName is the default name of the state file inside the log directory
const StateFileName = "diskcheck-state.json"

// stateFile is the on-disk layout
type stateFile struct {
	RunID   string  `json:"runId,omitempty"`
	Volumes []Entry `json:"volumes"`
}

// FileStore persists the tracked set as JSON so that volumes left unmounted by a
// run that could not clean up (SIGKILL, power loss) are reported by the next run.
type FileStore struct {
	path  string
	runID string
}

// NewFileStore creates a store at path, tagging saved state with runID
func NewFileStore(path, runID string) *FileStore {
	return &FileStore{path: path, runID: runID}
}

// Path returns the state file location
func (s *FileStore) Path() string {
	return s.path
}

// Save implements Persister. The file is replaced atomically.
func (s *FileStore) Save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(stateFile{RunID: s.runID, Volumes: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".diskcheck-state-*")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load returns the entries left by a previous run. A missing file is no entries.
func (s *FileStore) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", s.path, err)
	}
	klog.V(4).Infof("Loaded %d stale entries from run %q", len(state.Volumes), state.RunID)
	return state.Volumes, nil
}

// Reset removes the state file. A missing file is not an error.
func (s *FileStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to reset state file: %w", err)
	}
	return nil
}
