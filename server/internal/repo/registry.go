package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stigkj/tlb/server/internal/cache"
	"github.com/stigkj/tlb/server/internal/keylock"
	"github.com/stigkj/tlb/server/internal/metrics"
	"github.com/stigkj/tlb/server/internal/store"
)

// FlushStats summarises one FlushAll pass.
type FlushStats struct {
	Scanned int `json:"scanned"` // identifiers in the cache snapshot
	Written int `json:"written"` // dirty repositories persisted
	Failed  int `json:"failed"`  // dirty repositories that could not be persisted
}

// EntryInfo describes one cached repository.
type EntryInfo struct {
	Identifier string `json:"identifier"`
	Namespace  string `json:"namespace"`
	Dirty      bool   `json:"dirty"`
}

// Registry owns the live repositories of the server.
type Registry struct {
	store   store.Store
	ctors   Constructors
	cache   *cache.Cache[Repository]
	locks   *keylock.Registry
	metrics *metrics.Metrics
	now     func() time.Time // injectable for deterministic tests

	shutdownOnce  sync.Once
	shutdownStats FlushStats
	shutdownErr   error
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now as the registry's clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithMetrics records registry outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates a registry persisting to st and building repositories
// through ctors.
func NewRegistry(st store.Store, ctors Constructors, opts ...Option) *Registry {
	r := &Registry{
		store: st,
		ctors: ctors,
		cache: cache.New[Repository]("repositories"),
		locks: keylock.New(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time { return r.now() }

// Len returns the number of cached repositories.
func (r *Registry) Len() int { return r.cache.Len() }

// FindOrCreate returns the single live repository for (namespace, version,
// kind), creating and hydrating it on first use.
//
// A new instance is inserted into the cache before its persisted state is
// read. If reading or loading that state fails the instance is evicted again,
// the persisted state is left untouched, and a *LoadError is returned; the
// next call retries.
func (r *Registry) FindOrCreate(ctx context.Context, namespace, version string, kind Kind) (Repository, error) {
	ctor, ok := r.ctors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	id := Identifier(namespace, version, kind)

	mu := r.locks.For(id)
	mu.Lock()
	defer mu.Unlock()

	if rp, ok := r.cache.Get(id); ok {
		rp.SetRegistry(r)
		return rp, nil
	}

	rp := ctor()
	rp.SetNamespace(namespace)
	rp.SetIdentifier(id)
	rp.SetRegistry(r)
	r.cache.Put(id, rp)

	empty, err := r.hydrate(ctx, id, rp)
	r.metrics.ObserveLoad(empty, err)
	if err != nil {
		r.cache.Remove(id)
		r.metrics.SetCached(r.cache.Len())
		slog.Error("registry: load failed", "identifier", id, "err", err)
		return nil, &LoadError{Identifier: id, Err: err}
	}
	r.metrics.SetCached(r.cache.Len())
	slog.Debug("registry: repository created", "identifier", id, "empty", empty)
	return rp, nil
}

// hydrate loads persisted state into rp. Caller holds the identifier lock.
func (r *Registry) hydrate(ctx context.Context, id string, rp Repository) (empty bool, err error) {
	data, err := r.store.Read(ctx, id)
	if store.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, rp.Load(string(data))
}

// Get returns the cached repository for id without creating one.
func (r *Registry) Get(id string) (Repository, bool) {
	return r.cache.Get(id)
}

// FlushAll persists every dirty repository. It visits a snapshot of the cache
// keys, re-fetching each under its lock, so repositories purged meanwhile are
// skipped. A failure for one identifier is logged and counted; the pass
// continues and the failures are returned joined.
func (r *Registry) FlushAll(ctx context.Context) (FlushStats, error) {
	var (
		stats FlushStats
		errs  []error
	)
	for _, id := range r.cache.Keys() {
		stats.Scanned++
		wrote, err := r.flush(ctx, id)
		if wrote || err != nil {
			r.metrics.ObserveFlush(err)
		}
		switch {
		case err != nil:
			stats.Failed++
			errs = append(errs, err)
			slog.Warn("registry: flush failed, state may be stale after restart",
				"identifier", id, "err", err)
		case wrote:
			stats.Written++
		}
	}
	if stats.Written > 0 || stats.Failed > 0 {
		slog.Debug("registry: flush complete",
			"scanned", stats.Scanned, "written", stats.Written, "failed", stats.Failed)
	}
	return stats, errors.Join(errs...)
}

func (r *Registry) flush(ctx context.Context, id string) (bool, error) {
	mu := r.locks.For(id)
	mu.Lock()
	defer mu.Unlock()

	rp, ok := r.cache.Get(id)
	if !ok || !rp.IsDirty() {
		return false, nil
	}
	state, rev, err := rp.Dump()
	if err != nil {
		return false, &PersistError{Identifier: id, Err: err}
	}
	if err := r.store.Write(ctx, id, []byte(state)); err != nil {
		return false, &PersistError{Identifier: id, Err: err}
	}
	rp.MarkClean(rev)
	return true, nil
}

// Purge forgets id: it drops the cached instance and deletes the persisted
// state. Purging an identifier with no persisted state succeeds.
func (r *Registry) Purge(ctx context.Context, id string) error {
	mu := r.locks.For(id)
	mu.Lock()
	defer mu.Unlock()

	r.cache.Remove(id)
	r.metrics.SetCached(r.cache.Len())
	err := r.store.Delete(ctx, id)
	r.metrics.ObservePurge(err)
	if err != nil {
		slog.Error("registry: purge failed", "identifier", id, "err", err)
		return &PurgeError{Identifier: id, Err: err}
	}
	slog.Info("registry: purged", "identifier", id)
	return nil
}

// PurgeOlderThan asks every cached Versioned repository to drop versions
// older than maxAgeDays. Other repositories are untouched. A failing
// repository is logged and the pass continues; failures are returned joined.
func (r *Registry) PurgeOlderThan(ctx context.Context, maxAgeDays int) error {
	var errs []error
	for _, id := range r.cache.Keys() {
		rp, ok := r.cache.Get(id)
		if !ok {
			continue
		}
		v, ok := rp.(Versioned)
		if !ok {
			continue
		}
		err := v.Prune(ctx, maxAgeDays, r.now)
		r.metrics.ObservePrune(err)
		if err != nil {
			slog.Warn("registry: prune of old versions failed",
				"identifier", id, "max_age_days", maxAgeDays, "err", err)
			errs = append(errs, &PruneError{Identifier: id, Err: err})
		}
	}
	return errors.Join(errs...)
}

// ShutdownFlush runs FlushAll once for the life of the registry. Later calls
// return the first call's result without flushing again.
func (r *Registry) ShutdownFlush(ctx context.Context) (FlushStats, error) {
	r.shutdownOnce.Do(func() {
		slog.Info("registry: shutdown flush started", "cached", r.cache.Len())
		r.shutdownStats, r.shutdownErr = r.FlushAll(ctx)
		slog.Info("registry: shutdown flush complete",
			"written", r.shutdownStats.Written, "failed", r.shutdownStats.Failed)
	})
	return r.shutdownStats, r.shutdownErr
}

// RegisterShutdownFlush arranges for a final FlushAll when ctx is done (for
// example a signal.NotifyContext). The returned wait blocks until that flush
// has finished; call it before the process exits.
func (r *Registry) RegisterShutdownFlush(ctx context.Context) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		_, _ = r.ShutdownFlush(context.WithoutCancel(ctx))
	}()
	return func() { <-done }
}

// Entries returns a point-in-time listing of cached repositories ordered by
// identifier.
func (r *Registry) Entries() []EntryInfo {
	keys := r.cache.Keys()
	out := make([]EntryInfo, 0, len(keys))
	for _, id := range keys {
		rp, ok := r.cache.Get(id)
		if !ok {
			continue
		}
		out = append(out, EntryInfo{Identifier: id, Namespace: rp.Namespace(), Dirty: rp.IsDirty()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}
