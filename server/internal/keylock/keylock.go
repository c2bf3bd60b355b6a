package keylock

import "sync"

// Registry maps identifiers to dedicated mutexes.
// The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// For returns the mutex for id. Equal identifiers always receive the same
// mutex; it is never shared with any other identifier.
func (r *Registry) For(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Do runs fn while holding the mutex for id.
func (r *Registry) Do(id string, fn func()) {
	l := r.For(id)
	l.Lock()
	defer l.Unlock()
	fn()
}

// Len returns the number of handles created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
