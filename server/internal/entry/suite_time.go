package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/stigkj/tlb/server/internal/repo"
)

// SuiteTime is the measured run time of one test suite, in milliseconds.
type SuiteTime struct {
	Name string `json:"name"`
	Time int64  `json:"time"`
}

// SuiteTimeRepo tracks suite times for a namespace. The LATEST repository
// accumulates updates; ForVersion freezes a copy of it under a build version
// so every partition of that build balances against the same data. The
// LATEST repository remembers when each version was frozen and Prune drops
// the frozen copies that have outlived the retention window.
type SuiteTimeRepo struct {
	Base
	times    map[string]SuiteTime
	versions map[string]time.Time // frozen version -> creation time
	frozen   bool
}

type suiteTimeState struct {
	Times    []SuiteTime          `json:"times"`
	Versions map[string]time.Time `json:"versions,omitempty"`
	Frozen   bool                 `json:"frozen,omitempty"`
}

var _ repo.Versioned = (*SuiteTimeRepo)(nil)

// ErrNoRegistry is returned when a repository that needs its registry has not
// been obtained through one.
var ErrNoRegistry = errors.New("repository is not attached to a registry")

// NewSuiteTimeRepo returns an empty repository.
func NewSuiteTimeRepo() *SuiteTimeRepo {
	return &SuiteTimeRepo{
		times:    make(map[string]SuiteTime),
		versions: make(map[string]time.Time),
	}
}

// Update records st, replacing any earlier time for the same suite.
func (r *SuiteTimeRepo) Update(st SuiteTime) error {
	if st.Name == "" {
		return fmt.Errorf("%w: suite time with empty name", ErrInvalidEntry)
	}
	if st.Time < 0 {
		return fmt.Errorf("%w: negative time for %q", ErrInvalidEntry, st.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times[st.Name] = st
	r.touch()
	return nil
}

// List returns the times ordered by suite name.
func (r *SuiteTimeRepo) List() []SuiteTime {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

func (r *SuiteTimeRepo) listLocked() []SuiteTime {
	out := make([]SuiteTime, 0, len(r.times))
	for _, st := range r.times {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Frozen reports whether this repository is a frozen per-version copy.
func (r *SuiteTimeRepo) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Versions returns the frozen versions and their creation times.
func (r *SuiteTimeRepo) Versions() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]time.Time, len(r.versions))
	for v, t := range r.versions {
		out[v] = t
	}
	return out
}

// ForVersion returns the frozen copy of this repository for version, creating
// it from the current times on first request. It is meant to be called on the
// LATEST repository; asking for LatestVersion returns r itself.
func (r *SuiteTimeRepo) ForVersion(ctx context.Context, version string) (*SuiteTimeRepo, error) {
	if version == repo.LatestVersion {
		return r, nil
	}
	// The registry is called without holding r.mu: FindOrCreate takes the
	// version's keyed lock and flushes take r.mu under keyed locks.
	r.mu.Lock()
	reg, ns := r.registry, r.ns
	r.mu.Unlock()
	if reg == nil {
		return nil, ErrNoRegistry
	}

	v, err := SuiteTimes(ctx, reg, ns, version)
	if err != nil {
		return nil, err
	}
	if v.freeze(r.List()) {
		slog.Debug("suite-time: version frozen", "namespace", ns, "version", version)
	}

	r.mu.Lock()
	if _, ok := r.versions[version]; !ok {
		r.versions[version] = reg.Now()
		r.touch()
	}
	r.mu.Unlock()
	return v, nil
}

// freeze fills an unfrozen repository with times and marks it frozen.
func (r *SuiteTimeRepo) freeze(times []SuiteTime) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return false
	}
	r.times = make(map[string]SuiteTime, len(times))
	for _, st := range times {
		r.times[st.Name] = st
	}
	r.frozen = true
	r.touch()
	return true
}

// Prune purges every frozen version created more than maxAgeDays ago. A
// version whose purge fails stays listed and is retried on the next call.
func (r *SuiteTimeRepo) Prune(ctx context.Context, maxAgeDays int, now func() time.Time) error {
	cutoff := repo.RetentionCutoff(now(), maxAgeDays)

	r.mu.Lock()
	reg, ns := r.registry, r.ns
	var old []string
	for v, created := range r.versions {
		if created.Before(cutoff) {
			old = append(old, v)
		}
	}
	r.mu.Unlock()
	if len(old) == 0 {
		return nil
	}
	if reg == nil {
		return ErrNoRegistry
	}
	sort.Strings(old)

	var errs []error
	for _, v := range old {
		if err := reg.Purge(ctx, repo.Identifier(ns, v, repo.KindSuiteTime)); err != nil {
			errs = append(errs, err)
			continue
		}
		r.mu.Lock()
		delete(r.versions, v)
		r.touch()
		r.mu.Unlock()
		slog.Info("suite-time: pruned version", "namespace", ns, "version", v)
	}
	return errors.Join(errs...)
}

func (r *SuiteTimeRepo) Load(state string) error {
	var st suiteTimeState
	if err := json.Unmarshal([]byte(state), &st); err != nil {
		return fmt.Errorf("suite time state: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = make(map[string]SuiteTime, len(st.Times))
	for _, t := range st.Times {
		r.times[t.Name] = t
	}
	r.versions = st.Versions
	if r.versions == nil {
		r.versions = make(map[string]time.Time)
	}
	r.frozen = st.Frozen
	r.loaded()
	return nil
}

func (r *SuiteTimeRepo) Dump() (string, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.Marshal(suiteTimeState{
		Times:    r.listLocked(),
		Versions: r.versions,
		Frozen:   r.frozen,
	})
	if err != nil {
		return "", 0, err
	}
	return string(b), r.rev, nil
}
