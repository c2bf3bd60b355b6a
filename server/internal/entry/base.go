package entry

import (
	"sync"

	"github.com/stigkj/tlb/server/internal/repo"
)

// Base carries the bookkeeping shared by every repository: identity, the
// registry back-reference and revision-based dirty tracking. Concrete types
// embed it and guard their own state with the same mutex.
type Base struct {
	mu       sync.Mutex
	ns       string
	id       string
	registry *repo.Registry
	rev      uint64 // bumped on every mutation
	cleanRev uint64 // rev of the last successful flush
}

func (b *Base) SetNamespace(ns string) {
	b.mu.Lock()
	b.ns = ns
	b.mu.Unlock()
}

func (b *Base) SetIdentifier(id string) {
	b.mu.Lock()
	b.id = id
	b.mu.Unlock()
}

func (b *Base) SetRegistry(r *repo.Registry) {
	b.mu.Lock()
	b.registry = r
	b.mu.Unlock()
}

func (b *Base) Namespace() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ns
}

func (b *Base) Identifier() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// Registry returns the owning registry, or nil before the first FindOrCreate.
func (b *Base) Registry() *repo.Registry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry
}

func (b *Base) IsDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rev != b.cleanRev
}

func (b *Base) MarkClean(rev uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rev > b.cleanRev && rev <= b.rev {
		b.cleanRev = rev
	}
}

// touch records a mutation. Caller holds mu.
func (b *Base) touch() { b.rev++ }

// loaded marks freshly loaded state as clean. Caller holds mu.
func (b *Base) loaded() { b.cleanRev = b.rev }
