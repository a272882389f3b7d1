package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/nhle/canvas-todo/internal/model"
)

// stateFile is the on-disk layout of the side-car state.
type stateFile struct {
	Assignments   []model.CompletedAssignment `json:"assignments"`
	WeeklyResetOn string                      `json:"weekly_reset_on,omitempty"`
}

// JSONStore implements Store with a single JSON file.
type JSONStore struct {
	fs     afero.Fs
	path   string
	logger *log.Logger
}

// NewJSONStore returns a store backed by the JSON file at path.
func NewJSONStore(fs afero.Fs, path string, logger *log.Logger) *JSONStore {
	if logger == nil {
		logger = log.Default()
	}
	return &JSONStore{fs: fs, path: path, logger: logger}
}

// Path returns the state file location.
func (s *JSONStore) Path() string {
	return s.path
}

// LoadCompleted reads the state file. Corrupt or unreadable content is
// logged and treated as an empty set.
func (s *JSONStore) LoadCompleted() *CompletedSet {
	set := NewCompletedSet()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("reading completed state %s: %v; starting empty", s.path, err)
		}
		return set
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return set
	}

	state, err := decodeState(data)
	if err != nil {
		s.logger.Printf("completed state %s is corrupt: %v; starting empty", s.path, err)
		return set
	}

	for _, rec := range state.Assignments {
		set.Add(rec)
	}
	set.WeeklyResetOn = state.WeeklyResetOn
	return set
}

// decodeState accepts the current object layout and the older bare list
// of records.
func decodeState(data []byte) (stateFile, error) {
	var state stateFile
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &state.Assignments); err != nil {
			return stateFile{}, err
		}
		return state, nil
	}
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return stateFile{}, err
	}
	return state, nil
}

// SaveCompleted overwrites the state file with set, entries sorted by URL.
func (s *JSONStore) SaveCompleted(set *CompletedSet) error {
	state := stateFile{
		Assignments:   set.Entries(),
		WeeklyResetOn: set.WeeklyResetOn,
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling completed state: %w", err)
	}
	data = append(data, '\n')

	if err := WriteFileAtomic(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("saving completed state: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, creating the parent directory if needed.
func WriteFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := afero.WriteFile(fs, tmpPath, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
