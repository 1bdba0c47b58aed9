// Package scheduler runs the missed-occurrence batch on a cron schedule.
// Throttling is explicit: the last run is read from storage and handed to a
// Throttle on every tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nick-dorsch/tally/internal/ledger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	JobMissedCheck = "missed_check"

	DefaultSpec        = "@every 15m"
	DefaultMinInterval = time.Hour
)

// Throttle decides whether a job may run again.
type Throttle struct {
	MinInterval time.Duration
}

// Due reports whether at least MinInterval has passed since lastRun. A job
// that never ran is always due, as is one whose last run lies in the future.
func (t Throttle) Due(lastRun *time.Time, now time.Time) bool {
	if lastRun == nil || t.MinInterval <= 0 {
		return true
	}
	if lastRun.After(now) {
		return true
	}
	return now.Sub(*lastRun) >= t.MinInterval
}

type Checker interface {
	CheckAllMissedRecurring(ctx context.Context, asOf *time.Time) (*ledger.BatchResult, error)
}

type RunStore interface {
	GetLastRun(ctx context.Context, job string) (*time.Time, error)
	RecordRun(ctx context.Context, job string, at time.Time, result string) error
}

type Scheduler struct {
	checker  Checker
	runs     RunStore
	throttle Throttle
	spec     string
	cron     *cron.Cron
	now      func() time.Time
	log      logrus.FieldLogger

	runMu sync.Mutex
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = log }
}

// New registers the missed check under spec (standard five-field cron or a
// descriptor such as "@every 15m").
func New(checker Checker, runs RunStore, spec string, throttle Throttle, opts ...Option) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	s := &Scheduler{
		checker:  checker,
		runs:     runs,
		throttle: throttle,
		spec:     spec,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if _, _, err := s.RunOnce(context.Background()); err != nil {
		s.log.WithError(err).Error("Scheduled missed check failed")
	}
}

// RunOnce runs the batch if the throttle allows it. Runs never overlap; a
// failed batch is not recorded, so the next tick retries it.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, *ledger.BatchResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.now()
	last, err := s.runs.GetLastRun(ctx, JobMissedCheck)
	if err != nil {
		return false, nil, err
	}
	if !s.throttle.Due(last, now) {
		s.log.WithField("last_run", last).Debug("Missed check throttled")
		return false, nil, nil
	}

	res, err := s.checker.CheckAllMissedRecurring(ctx, &now)
	if err != nil {
		return true, nil, fmt.Errorf("failed to run missed check: %w", err)
	}

	summary := fmt.Sprintf("processed=%d new_misses=%d errors=%d", res.Processed, res.TotalNewMisses, len(res.Errors))
	if err := s.runs.RecordRun(ctx, JobMissedCheck, now, summary); err != nil {
		return true, res, err
	}

	s.log.WithFields(logrus.Fields{
		"processed":  res.Processed,
		"new_misses": res.TotalNewMisses,
		"errors":     len(res.Errors),
	}).Info("Missed check finished")
	return true, res, nil
}

// Start runs one check immediately, then follows the schedule until ctx is
// cancelled. It returns once any in-flight run has finished.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, _, err := s.RunOnce(ctx); err != nil {
		s.log.WithError(err).Error("Initial missed check failed")
	}

	s.cron.Start()
	s.log.WithField("schedule", s.spec).Info("Scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
	return nil
}
