package repo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stigkj/tlb/server/internal/metrics"
)

// Default schedule values.
const (
	DefaultFlushInterval   = 5 * time.Minute
	DefaultPruneInterval   = time.Hour
	DefaultVersionLifeDays = 7

	// MaxVersionLifeDays is the longest retention window honoured; larger
	// values keep every version.
	MaxVersionLifeDays = 100 * 365
)

// RetentionCutoff returns the instant before which a version is older than
// maxAgeDays. Negative ages count as zero. Ages above MaxVersionLifeDays yield
// the zero Time, which no creation time precedes.
func RetentionCutoff(now time.Time, maxAgeDays int) time.Time {
	switch {
	case maxAgeDays > MaxVersionLifeDays:
		return time.Time{}
	case maxAgeDays < 0:
		maxAgeDays = 0
	}
	return now.AddDate(0, 0, -maxAgeDays)
}

// Schedule controls the periodic maintenance passes.
type Schedule struct {
	FlushInterval   time.Duration
	PruneInterval   time.Duration
	VersionLifeDays int
}

func (s Schedule) normalized() Schedule {
	if s.FlushInterval <= 0 {
		s.FlushInterval = DefaultFlushInterval
	}
	if s.PruneInterval <= 0 {
		s.PruneInterval = DefaultPruneInterval
	}
	if s.VersionLifeDays < 0 {
		s.VersionLifeDays = DefaultVersionLifeDays
	}
	return s
}

// Scheduler runs FlushAll and PurgeOlderThan on their own tickers.
type Scheduler struct {
	reg     *Registry
	metrics *metrics.Metrics

	mu      sync.Mutex
	current Schedule
	changed chan struct{}
}

// NewScheduler creates a scheduler for reg. Non-positive intervals fall back
// to the defaults. m may be nil.
func NewScheduler(reg *Registry, s Schedule, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		reg:     reg,
		metrics: m,
		current: s.normalized(),
		changed: make(chan struct{}, 1),
	}
}

// Current returns the schedule in effect.
func (s *Scheduler) Current() Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update replaces the schedule. A running Run loop resets its tickers.
func (s *Scheduler) Update(next Schedule) {
	next = next.normalized()
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()
	if prev == next {
		return
	}
	slog.Info("scheduler: schedule updated",
		"flush_interval", next.FlushInterval, "prune_interval", next.PruneInterval,
		"version_life_days", next.VersionLifeDays)
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, flushing dirty repositories and pruning
// old versions at the scheduled intervals.
func (s *Scheduler) Run(ctx context.Context) {
	cur := s.Current()
	flushT := time.NewTicker(cur.FlushInterval)
	defer flushT.Stop()
	pruneT := time.NewTicker(cur.PruneInterval)
	defer pruneT.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
			cur = s.Current()
			flushT.Reset(cur.FlushInterval)
			pruneT.Reset(cur.PruneInterval)
		case now := <-flushT.C:
			stats, err := s.reg.FlushAll(ctx)
			if err != nil {
				slog.Warn("scheduler: flush finished with errors", "failed", stats.Failed)
			}
			s.metrics.MarkRun("flush", float64(now.Unix()))
		case now := <-pruneT.C:
			days := s.Current().VersionLifeDays
			if err := s.reg.PurgeOlderThan(ctx, days); err != nil {
				slog.Warn("scheduler: prune finished with errors", "max_age_days", days)
			}
			s.metrics.MarkRun("prune", float64(now.Unix()))
		}
	}
}
