// Package scheduler repeats the poll cycle on a configurable interval.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cjwillin/rss-watcher/internal/storage"
)

// Interval bounds. The floor avoids hammering remote feeds when a hostile
// or mistyped value lands in settings.
const (
	defaultIntervalSeconds = 300
	minIntervalSeconds     = 60
)

// Poller runs one poll cycle.
type Poller interface {
	PollOnce(ctx context.Context) (int, error)
}

// Scheduler runs poll cycles sequentially until cancelled. Cycles never
// overlap: the next one starts only after the prior one's wait period.
type Scheduler struct {
	store  storage.Storage
	poller Poller
	log    *slog.Logger
	slice  time.Duration
}

// New creates a Scheduler.
func New(store storage.Storage, poller Poller, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		poller: poller,
		log:    log,
		slice:  1 * time.Second,
	}
}

// SetWaitSlice overrides the 1-second cancellation check granularity
// (useful for testing).
func (s *Scheduler) SetWaitSlice(d time.Duration) {
	s.slice = d
}

// Run polls repeatedly, blocking until ctx is cancelled. A failed cycle is
// logged and the loop continues on schedule; only cancellation stops it.
func (s *Scheduler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		interval := s.interval(ctx)

		if count, err := s.poller.PollOnce(ctx); err != nil {
			s.log.Error("poll cycle", "error", err)
		} else if count > 0 {
			s.log.Info("poll cycle complete", "alerts", count)
		}

		if !s.wait(ctx, interval) {
			return
		}
	}
}

// interval reads poll_interval_seconds from settings, falling back to the
// default when absent or unparsable and clamping to the floor.
func (s *Scheduler) interval(ctx context.Context) time.Duration {
	raw, err := s.store.GetSetting(ctx, "poll_interval_seconds", strconv.Itoa(defaultIntervalSeconds))
	if err != nil {
		s.log.Error("read poll interval", "error", err)
		return defaultIntervalSeconds * time.Second
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultIntervalSeconds * time.Second
	}
	if n < minIntervalSeconds {
		n = minIntervalSeconds
	}
	return time.Duration(n) * time.Second
}

// wait sleeps up to d in small slices, re-checking cancellation each slice
// so a stop request lands within roughly one slice period. It reports
// whether the full wait elapsed without cancellation.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	timer := time.NewTimer(s.slice)
	defer timer.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			timer.Reset(s.slice)
		}
	}
	return true
}
