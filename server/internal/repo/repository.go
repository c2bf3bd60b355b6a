package repo

import (
	"context"
	"time"
)

// Repository is a domain store the registry manages. Implementations must be
// safe for concurrent use: FlushAll calls Dump and MarkClean while request
// handlers mutate the same instance.
type Repository interface {
	SetNamespace(ns string)
	SetIdentifier(id string)
	// SetRegistry installs the back-reference to the owning registry. It is
	// called on creation and again on every cache hit.
	SetRegistry(r *Registry)

	Namespace() string
	Identifier() string

	// Load replaces the in-memory state with a previously dumped state.
	// Malformed input returns an error and leaves the repository unusable.
	Load(state string) error
	// Dump serialises the current state together with the mutation revision
	// it reflects.
	Dump() (state string, rev uint64, err error)
	// IsDirty reports whether the repository changed since its last
	// successful flush.
	IsDirty() bool
	// MarkClean clears the dirty flag if no mutation happened after the Dump
	// that returned rev.
	MarkClean(rev uint64)
}

// Versioned is a Repository that keeps per-version snapshots and can drop
// the ones older than a retention window.
type Versioned interface {
	Repository
	Prune(ctx context.Context, maxAgeDays int, now func() time.Time) error
}

// Constructor builds an empty repository of one kind.
type Constructor func() Repository

// Constructors is the kind dispatch table handed to NewRegistry.
type Constructors map[Kind]Constructor
