package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yarlson/autodev/internal/session"
)

// FileStore implements Store using one JSON file per session under a
// checkpoints directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a FileStore rooted at dataRoot/checkpoints.
// The directory is created if it does not exist.
func NewFileStore(dataRoot string) (*FileStore, error) {
	dir := filepath.Join(dataRoot, "checkpoints")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// recordPath returns the file path for a session's checkpoint.
func (s *FileStore) recordPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Save atomically persists the record under its session ID.
func (s *FileStore) Save(record *Record) error {
	if record.State == nil || record.State.SessionID == "" {
		return fmt.Errorf("%w: checkpoint record has no session id", session.ErrState)
	}

	record.Version = RecordVersion
	record.SavedAt = time.Now().Truncate(time.Second)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordPath(record.State.SessionID)

	// Atomic write: write to temp file, then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename checkpoint: %w", err)
	}

	return nil
}

// Load retrieves the record for a session.
func (s *FileStore) Load(sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadUnlocked(sessionID)
}

// loadUnlocked reads a record without acquiring the lock.
// Caller must hold at least a read lock.
func (s *FileStore) loadUnlocked(sessionID string) (*Record, error) {
	data, err := os.ReadFile(s.recordPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: checkpoint for %s is corrupt: %v", session.ErrState, sessionID, err)
	}

	if record.Version != RecordVersion {
		return nil, fmt.Errorf("%w: checkpoint for %s has version %d, expected %d",
			session.ErrState, sessionID, record.Version, RecordVersion)
	}

	if record.State == nil {
		return nil, fmt.Errorf("%w: checkpoint for %s has no state", session.ErrState, sessionID)
	}

	return &record, nil
}

// List returns a summary for every stored checkpoint, ordered by creation time.
func (s *FileStore) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		record, err := s.loadUnlocked(id)
		if err != nil {
			// Skip records that can't be loaded
			continue
		}

		summaries = append(summaries, Summary{
			SessionID: record.State.SessionID,
			Stage:     record.State.Stage,
			CreatedAt: record.State.CreatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].SessionID < summaries[j].SessionID
	})

	return summaries, nil
}

// Delete removes the checkpoint for a session.
func (s *FileStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.recordPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
