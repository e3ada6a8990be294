package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PersistentState is the queue state written to disk. Loop and shuffle
// modes are process-lifetime only and never stored.
type PersistentState struct {
	Folder string   `json:"folder,omitempty"`
	Paths  []string `json:"paths"`
	Index  int      `json:"index"`
}

// Snapshot captures the persistable state of q
func (q *Queue) Snapshot(folder string) PersistentState {
	return PersistentState{
		Folder: folder,
		Paths:  q.Paths(),
		Index:  q.index,
	}
}

// Store handles queue persistence to disk
type Store struct {
	mu       sync.Mutex
	filePath string
}

// NewStore creates a new queue store
func NewStore(configDir string) *Store {
	return &Store{
		filePath: filepath.Join(configDir, "queue.json"),
	}
}

// Load reads the saved state. A missing file yields an empty state.
func (s *Store) Load() (PersistentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return PersistentState{Index: -1}, nil
		}
		return PersistentState{}, fmt.Errorf("failed to read queue file: %w", err)
	}

	var state PersistentState
	if err := json.Unmarshal(data, &state); err != nil {
		return PersistentState{}, fmt.Errorf("failed to parse queue file: %w", err)
	}

	if len(state.Paths) == 0 {
		state.Index = -1
	} else if state.Index < 0 || state.Index >= len(state.Paths) {
		state.Index = 0
	}

	return state, nil
}

// Save writes state to disk
func (s *Store) Save(state PersistentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal queue state: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create queue directory: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}

	return nil
}

// GetFilePath returns the path to the queue file
func (s *Store) GetFilePath() string {
	return s.filePath
}
