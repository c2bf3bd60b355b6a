package repo

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrCreationLoad is returned when a new repository could not be hydrated
	// from the store.
	ErrCreationLoad = errors.New("repository load failed")

	// ErrPersistence is returned when a dirty repository could not be written.
	ErrPersistence = errors.New("repository persist failed")

	// ErrPurge is returned when a repository could not be removed from the store.
	ErrPurge = errors.New("repository purge failed")

	// ErrPrune is returned when a versioned repository failed to prune.
	ErrPrune = errors.New("repository prune failed")

	// ErrUnknownKind is returned by FindOrCreate for a kind with no constructor.
	ErrUnknownKind = errors.New("unknown repository kind")
)

// LoadError reports a failed read or Load during FindOrCreate.
type LoadError struct {
	Identifier string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Identifier, e.Err)
}

func (e *LoadError) Is(target error) bool { return target == ErrCreationLoad }

func (e *LoadError) Unwrap() error { return e.Err }

// PersistError reports a failed Dump or store write during a flush.
type PersistError struct {
	Identifier string
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %q: %v", e.Identifier, e.Err)
}

func (e *PersistError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistError) Unwrap() error { return e.Err }

// PurgeError reports a failed store delete.
type PurgeError struct {
	Identifier string
	Err        error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge %q: %v", e.Identifier, e.Err)
}

func (e *PurgeError) Is(target error) bool { return target == ErrPurge }

func (e *PurgeError) Unwrap() error { return e.Err }

// PruneError reports a failed Prune on a versioned repository.
type PruneError struct {
	Identifier string
	Err        error
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("prune %q: %v", e.Identifier, e.Err)
}

func (e *PruneError) Is(target error) bool { return target == ErrPrune }

func (e *PruneError) Unwrap() error { return e.Err }
