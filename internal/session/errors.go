package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies engine failures for routing and display.
type ErrorKind string

// Error kinds recorded in last_error and mapped to exit codes by the CLI.
const (
	KindConfig       ErrorKind = "config"
	KindLLM          ErrorKind = "llm"
	KindWorker       ErrorKind = "worker"
	KindValidation   ErrorKind = "validation"
	KindState        ErrorKind = "state"
	KindIterationCap ErrorKind = "iteration_cap"
)

// Sentinel errors for errors.Is matching across packages.
var (
	ErrConfig     = errors.New("configuration error")
	ErrLLM        = errors.New("llm call failed")
	ErrWorker     = errors.New("worker failed")
	ErrValidation = errors.New("validation failed")
	ErrState      = errors.New("state error")
)

// sentinelByKind maps each kind to its sentinel for Unwrap.
var sentinelByKind = map[ErrorKind]error{
	KindConfig:       ErrConfig,
	KindLLM:          ErrLLM,
	KindWorker:       ErrWorker,
	KindValidation:   ErrValidation,
	KindState:        ErrState,
	KindIterationCap: ErrState,
}

// EngineError is the structured error persisted in session state.
type EngineError struct {
	// Kind classifies the failure.
	Kind ErrorKind `json:"kind"`

	// Message is a single-sentence explanation.
	Message string `json:"message"`

	// Node is the graph node that failed, when known.
	Node string `json:"node,omitempty"`

	// Time is when the failure was recorded.
	Time time.Time `json:"time"`
}

func (e *EngineError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Node, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	if sentinel, ok := sentinelByKind[e.Kind]; ok {
		return sentinel
	}
	return nil
}

// NewEngineError builds a structured error with the current timestamp.
func NewEngineError(kind ErrorKind, node, message string) *EngineError {
	return &EngineError{
		Kind:    kind,
		Message: message,
		Node:    node,
		Time:    time.Now().Truncate(time.Second),
	}
}

// Classify wraps an arbitrary node error into an EngineError, preserving an
// existing EngineError and mapping sentinel errors to their kinds.
func Classify(node string, err error) *EngineError {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		if engineErr.Node == "" {
			engineErr.Node = node
		}
		return engineErr
	}

	kind := KindState
	switch {
	case errors.Is(err, ErrConfig):
		kind = KindConfig
	case errors.Is(err, ErrLLM):
		kind = KindLLM
	case errors.Is(err, ErrWorker):
		kind = KindWorker
	case errors.Is(err, ErrValidation):
		kind = KindValidation
	}

	return NewEngineError(kind, node, err.Error())
}
