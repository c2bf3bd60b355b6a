package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stigkj/tlb/server/internal/store/memory"
)

// fakeRepo is a minimal Repository holding a list of strings as JSON.
type fakeRepo struct {
	mu       sync.Mutex
	ns, id   string
	registry *Registry
	items    []string
	rev      uint64
	cleanRev uint64
	loadErr  error
	loads    int
}

func (f *fakeRepo) SetNamespace(ns string)  { f.mu.Lock(); f.ns = ns; f.mu.Unlock() }
func (f *fakeRepo) SetIdentifier(id string) { f.mu.Lock(); f.id = id; f.mu.Unlock() }
func (f *fakeRepo) SetRegistry(r *Registry) { f.mu.Lock(); f.registry = r; f.mu.Unlock() }
func (f *fakeRepo) Namespace() string       { f.mu.Lock(); defer f.mu.Unlock(); return f.ns }
func (f *fakeRepo) Identifier() string      { f.mu.Lock(); defer f.mu.Unlock(); return f.id }

func (f *fakeRepo) Load(state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return f.loadErr
	}
	return json.Unmarshal([]byte(state), &f.items)
}

func (f *fakeRepo) Dump() (string, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.Marshal(f.items)
	return string(b), f.rev, err
}

func (f *fakeRepo) IsDirty() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.rev != f.cleanRev }

func (f *fakeRepo) MarkClean(rev uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rev > f.cleanRev {
		f.cleanRev = rev
	}
}

func (f *fakeRepo) add(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, s)
	f.rev++
}

func (f *fakeRepo) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.items...)
}

// fakeVersioned records Prune calls.
type fakeVersioned struct {
	fakeRepo
	pruneErr  error
	pruned    atomic.Int32
	lastDays  atomic.Int32
	lastClock atomic.Value // time.Time
}

func (f *fakeVersioned) Prune(_ context.Context, maxAgeDays int, now func() time.Time) error {
	f.pruned.Add(1)
	f.lastDays.Store(int32(maxAgeDays))
	f.lastClock.Store(now())
	return f.pruneErr
}

const (
	kindPlain     Kind = "plain"
	kindVersioned Kind = "versioned"
)

func testConstructors() Constructors {
	return Constructors{
		kindPlain:     func() Repository { return &fakeRepo{} },
		kindVersioned: func() Repository { return &fakeVersioned{} },
	}
}

// faultyStore wraps a memory store and fails operations on selected keys.
type faultyStore struct {
	*memory.Store
	mu         sync.Mutex
	failWrite  map[string]bool
	failRead   map[string]bool
	failDelete map[string]bool
	writes     map[string]int
	readDelay  time.Duration
	reads      atomic.Int32
}

var errInjected = errors.New("injected i/o failure")

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:      memory.New(),
		failWrite:  map[string]bool{},
		failRead:   map[string]bool{},
		failDelete: map[string]bool{},
		writes:     map[string]int{},
	}
}

func (s *faultyStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.reads.Add(1)
	if s.readDelay > 0 {
		time.Sleep(s.readDelay)
	}
	s.mu.Lock()
	fail := s.failRead[key]
	s.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return s.Store.Read(ctx, key)
}

func (s *faultyStore) Write(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	fail := s.failWrite[key]
	if !fail {
		s.writes[key]++
	}
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.Store.Write(ctx, key, data)
}

func (s *faultyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failDelete[key]
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.Store.Delete(ctx, key)
}

func (s *faultyStore) writeCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

func (s *faultyStore) setFail(m map[string]bool, key string, v bool) {
	s.mu.Lock()
	m[key] = v
	s.mu.Unlock()
}
