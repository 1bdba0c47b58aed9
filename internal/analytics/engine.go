// Package analytics is the engine facade. It reads task snapshots from a
// source, keeps the ledger in step with them and exposes every report.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nick-dorsch/tally/internal/automation"
	"github.com/nick-dorsch/tally/internal/db"
	"github.com/nick-dorsch/tally/internal/extract"
	"github.com/nick-dorsch/tally/internal/goals"
	"github.com/nick-dorsch/tally/internal/ledger"
	"github.com/nick-dorsch/tally/internal/productivity"
	"github.com/nick-dorsch/tally/internal/scoring"
	"github.com/nick-dorsch/tally/internal/source"
	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
)

var ErrGoalNotFound = errors.New("goal not found")

// EventSink receives engine events. automation.Dispatcher is the usual one.
type EventSink interface {
	Dispatch(ctx context.Context, ev automation.Event) error
}

type Engine struct {
	source source.TaskSource
	store  *db.DB
	ledger *ledger.Ledger
	events EventSink
	now    func() time.Time
	log    logrus.FieldLogger
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithEvents(sink EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func New(src source.TaskSource, store *db.DB, opts ...Option) *Engine {
	e := &Engine{
		source: src,
		store:  store,
		now:    time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = ledger.New(store, e.log)
	return e
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

func (e *Engine) emit(ctx context.Context, ev automation.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Dispatch(ctx, ev); err != nil {
		e.log.WithError(err).Warn("Event dispatch failed")
	}
}

// snapshot loads tasks and syncs recurring series from them. Completions
// the sync records are announced like direct ones.
func (e *Engine) snapshot(ctx context.Context) ([]models.Task, error) {
	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	res, err := e.ledger.SyncSeries(ctx, tasks)
	if res != nil {
		for _, c := range res.Recorded {
			e.emitCompletion(ctx, c)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sync series: %w", err)
	}
	return tasks, nil
}

func (e *Engine) emitCompletion(ctx context.Context, c ledger.Completion) {
	text := c.Text
	if text == "" {
		text = c.RootID
	}
	e.emit(ctx, automation.CompletionRecorded{RootID: c.RootID, Text: text, Date: c.Date, State: c.State})
}

func (e *Engine) period(name string) (models.Period, error) {
	return models.ParsePeriod(name, e.now())
}

// CheckAllMissedRecurring records misses for every active series up to, but
// not including, asOf (today when nil).
func (e *Engine) CheckAllMissedRecurring(ctx context.Context, asOf *time.Time) (*ledger.BatchResult, error) {
	if _, err := e.snapshot(ctx); err != nil {
		return nil, err
	}

	date := models.Day(e.now())
	if asOf != nil {
		date = models.Day(*asOf)
	}

	res, err := e.ledger.CheckAllMissedRecurring(ctx, date)
	if err != nil {
		return nil, err
	}

	for _, c := range res.Checked {
		if c.NewMisses == 0 {
			continue
		}
		s, err := e.ledger.Series(ctx, c.RootID)
		if err != nil || s == nil {
			continue
		}
		e.emit(ctx, automation.SeriesChecked{
			RootID:    s.RootID,
			Text:      s.Text,
			NewMisses: c.NewMisses,
			State:     s.SeriesState,
			AsOf:      date,
		})
	}
	return res, nil
}

// RecordCompletion marks the occurrence of rootID fulfilled on date (today
// when nil).
func (e *Engine) RecordCompletion(ctx context.Context, rootID string, date *time.Time) (*ledger.Completion, error) {
	if _, err := e.snapshot(ctx); err != nil {
		return nil, err
	}

	d := e.now()
	if date != nil {
		d = *date
	}

	c, err := e.ledger.RecordCompletion(ctx, rootID, d)
	if err != nil {
		return nil, err
	}

	if c.Inserted || c.Corrected {
		e.emitCompletion(ctx, *c)
	}
	return c, nil
}

// SetSeriesActive pauses or resumes a recurring series. Paused series keep
// their history but are left out of miss checks.
func (e *Engine) SetSeriesActive(ctx context.Context, rootID string, active bool) (*models.Series, error) {
	if _, err := e.snapshot(ctx); err != nil {
		return nil, err
	}
	return e.ledger.SetActive(ctx, rootID, active)
}

func (e *Engine) ExtractMetrics(text string) extract.Result {
	return extract.Extract(text)
}

func (e *Engine) GetLagIndicators(ctx context.Context, period string) (*scoring.LagReport, error) {
	p, err := e.period(period)
	if err != nil {
		return nil, err
	}
	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	report := scoring.LagIndicators(tasks, p, e.now())
	return &report, nil
}

func (e *Engine) GetTaskMasteryStats(ctx context.Context, period string) ([]scoring.CategoryMastery, error) {
	p, err := e.period(period)
	if err != nil {
		return nil, err
	}
	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return scoring.MasteryStats(tasks, p, e.now()), nil
}

func (e *Engine) GetGoals(ctx context.Context) ([]*models.Goal, error) {
	return e.store.ListGoals(ctx)
}

// CreateGoal validates and stores a goal. Missing dates default to the
// period implied by the goal type.
func (e *Engine) CreateGoal(ctx context.Context, g models.Goal) (*models.Goal, error) {
	goals.ApplyDefaultPeriod(&g, e.now())
	if err := goals.Validate(g); err != nil {
		return nil, err
	}
	if err := e.store.CreateGoal(ctx, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (e *Engine) DeleteGoal(ctx context.Context, goalID string) error {
	g, err := e.store.GetGoal(ctx, goalID)
	if err != nil {
		return err
	}
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGoalNotFound, goalID)
	}
	return e.store.DeleteGoal(ctx, goalID)
}

func (e *Engine) GetGoalProgress(ctx context.Context, goalID string) (*models.GoalProgress, error) {
	g, err := e.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrGoalNotFound, goalID)
	}

	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	p := goals.Progress(*g, tasks, e.now())
	e.emit(ctx, automation.GoalEvaluated{Progress: p})
	return &p, nil
}

func (e *Engine) GetProductivityMetrics(ctx context.Context, period string) (*productivity.Metrics, error) {
	p, err := e.period(period)
	if err != nil {
		return nil, err
	}
	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	m := productivity.Compute(tasks, p)
	return &m, nil
}

// GetProductivityInsights covers the last 30 days.
func (e *Engine) GetProductivityInsights(ctx context.Context) ([]productivity.Insight, error) {
	p, err := e.period("month")
	if err != nil {
		return nil, err
	}
	tasks, err := e.source.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return productivity.Insights(tasks, p, e.now()), nil
}
