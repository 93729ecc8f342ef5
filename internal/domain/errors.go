package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrInvalidEventID = errors.New("invalid event id")
	ErrNotReady       = errors.New("event store not loaded")

	ErrIDSpaceExhausted = errors.New("no event id left to assign")
)

// LoadError means the initial population of the store could not complete.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load events (%s): %v", e.Op, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// PersistError means a write-through to durable storage failed. The in-memory
// change has been rolled back when this is returned.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist events (%s): %v", e.Op, e.Err) }
func (e *PersistError) Unwrap() error { return e.Err }

// ValidationError carries per-field problems of a draft.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ParseEventID is the single coercion point for ids that arrive as text.
func ParseEventID(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidEventID)
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEventID, raw)
	}
	return id, nil
}
