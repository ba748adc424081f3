package version

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by operations that need an active snapshot
	ErrNotLoaded = errors.New("version not loaded")
	// ErrAlreadyLoaded is returned by Init and Load on a version that has an
	// active snapshot
	ErrAlreadyLoaded = errors.New("version already loaded")
	// ErrNoSnapshot is returned by Load when the version has no snapshot on disk
	ErrNoSnapshot = errors.New("no snapshot found")
	// ErrProvenanceMismatch is returned when an update is asked to read a
	// corpus other than the one the active index was built from
	ErrProvenanceMismatch = errors.New("source path does not match index provenance")
)

// Phase is the lifecycle position of a version
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseInitializing
	PhaseActive
	PhaseUpdating
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhaseInitializing:
		return "initializing"
	case PhaseActive:
		return "active"
	case PhaseUpdating:
		return "updating"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PhaseError reports an operation attempted in the wrong phase
type PhaseError struct {
	Op    string
	Phase Phase
	err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: version is %s: %v", e.Op, e.Phase, e.err)
}

func (e *PhaseError) Unwrap() error {
	return e.err
}
