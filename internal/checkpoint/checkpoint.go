// Package checkpoint persists session state snapshots between node executions.
package checkpoint

import (
	"errors"
	"time"

	"github.com/yarlson/autodev/internal/session"
)

// RecordVersion is the current checkpoint schema version. Records carrying a
// different version are refused on load so schema changes stay explicit.
const RecordVersion = 1

// ErrNotFound is returned when no checkpoint exists for a session ID.
var ErrNotFound = errors.New("checkpoint not found")

// Record is the durable snapshot written after every node completion.
type Record struct {
	// Version tags the record schema for forward compatibility.
	Version int `json:"version"`

	// SavedAt is when the record was written.
	SavedAt time.Time `json:"saved_at"`

	// NextNode is the graph node that will execute next. Empty when the
	// session reached a terminal state.
	NextNode string `json:"next_node,omitempty"`

	// State is the full session state at checkpoint time.
	State *session.State `json:"state"`
}

// Summary is the listing entry for a stored checkpoint.
type Summary struct {
	SessionID string
	Stage     session.Stage
	CreatedAt time.Time
}

// Store defines checkpoint persistence keyed by session ID.
// The engine depends on this interface; FileStore implements it.
type Store interface {
	// Save atomically persists the record under its session ID.
	Save(record *Record) error

	// Load retrieves the record for a session.
	// Returns ErrNotFound if no checkpoint exists.
	Load(sessionID string) (*Record, error)

	// List returns a summary for every stored checkpoint.
	List() ([]Summary, error)

	// Delete removes the checkpoint for a session.
	// Returns ErrNotFound if no checkpoint exists.
	Delete(sessionID string) error
}
