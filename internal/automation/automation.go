// Package automation reacts to engine events with notification rules. Each
// trigger and action kind is its own type; there are no untyped payloads.
package automation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/nick-dorsch/tally/internal/notify"
	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
)

// Event is emitted by the analytics engine.
type Event interface {
	eventName() string
}

// SeriesChecked follows a missed check of one series.
type SeriesChecked struct {
	RootID    string
	Text      string
	NewMisses int
	State     models.SeriesState
	AsOf      time.Time
}

// CompletionRecorded follows a completion that changed the ledger.
type CompletionRecorded struct {
	RootID string
	Text   string
	Date   time.Time
	State  models.SeriesState
}

// GoalEvaluated follows every progress computation.
type GoalEvaluated struct {
	Progress models.GoalProgress
}

func (SeriesChecked) eventName() string      { return "series_checked" }
func (CompletionRecorded) eventName() string { return "completion_recorded" }
func (GoalEvaluated) eventName() string      { return "goal_evaluated" }

type Trigger interface {
	triggerKind() string
}

// MissesDetected fires when one check finds at least MinMisses new misses.
type MissesDetected struct {
	MinMisses int `yaml:"min_misses"`
}

// StreakReached fires when a completion brings the current streak to
// exactly Length.
type StreakReached struct {
	Length int `yaml:"length"`
}

// GoalCompleted fires once per goal when its progress reaches the target.
type GoalCompleted struct{}

func (MissesDetected) triggerKind() string { return "misses_detected" }
func (StreakReached) triggerKind() string  { return "streak_reached" }
func (GoalCompleted) triggerKind() string  { return "goal_completed" }

type Action interface {
	actionKind() string
}

// SendTelegram renders Template and sends it through the notifier.
type SendTelegram struct {
	Template string `yaml:"template"`
}

// LogMessage renders Template and logs it at Level.
type LogMessage struct {
	Level    string `yaml:"level"`
	Template string `yaml:"template"`
}

func (SendTelegram) actionKind() string { return "send_telegram" }
func (LogMessage) actionKind() string   { return "log_message" }

type Rule struct {
	Name    string
	Trigger Trigger
	Action  Action
}

// messageData is what templates see.
type messageData struct {
	EventID   string
	Rule      string
	RootID    string
	Text      string
	NewMisses int
	Streak    int
	Longest   int
	Date      string
	Goal      string
	Current   int
	Target    int
	Percent   int
}

type Dispatcher struct {
	rules  []Rule
	sender notify.Sender
	log    logrus.FieldLogger

	mu    sync.Mutex
	fired map[string]bool
}

func NewDispatcher(rules []Rule, sender notify.Sender, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sender == nil {
		sender = notify.Log{Logger: log}
	}
	return &Dispatcher{rules: rules, sender: sender, log: log, fired: make(map[string]bool)}
}

// Dispatch runs every rule whose trigger matches ev. Action failures are
// logged and returned together; they never stop the remaining rules.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	var errs []string
	for _, rule := range d.rules {
		data, ok := d.match(rule, ev)
		if !ok {
			continue
		}
		data.EventID = uuid.New().String()
		data.Rule = rule.Name

		entry := d.log.WithFields(logrus.Fields{"rule": rule.Name, "event": ev.eventName(), "event_id": data.EventID})
		if err := d.run(ctx, rule, data); err != nil {
			entry.WithError(err).Warn("Automation action failed")
			errs = append(errs, fmt.Sprintf("%s: %v", rule.Name, err))
			continue
		}
		entry.Debug("Automation rule fired")
	}

	if len(errs) > 0 {
		return fmt.Errorf("automation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (d *Dispatcher) match(rule Rule, ev Event) (messageData, bool) {
	switch trig := rule.Trigger.(type) {
	case MissesDetected:
		e, ok := ev.(SeriesChecked)
		threshold := trig.MinMisses
		if threshold < 1 {
			threshold = 1
		}
		if !ok || e.NewMisses < threshold {
			return messageData{}, false
		}
		return seriesData(e.RootID, e.Text, e.State, e.AsOf, e.NewMisses), true

	case StreakReached:
		e, ok := ev.(CompletionRecorded)
		if !ok || trig.Length < 1 || e.State.CurrentStreak != trig.Length {
			return messageData{}, false
		}
		return seriesData(e.RootID, e.Text, e.State, e.Date, 0), true

	case GoalCompleted:
		e, ok := ev.(GoalEvaluated)
		if !ok || !e.Progress.IsCompleted {
			return messageData{}, false
		}
		key := rule.Name + "|" + e.Progress.Goal.ID
		d.mu.Lock()
		seen := d.fired[key]
		d.fired[key] = true
		d.mu.Unlock()
		if seen {
			return messageData{}, false
		}
		return messageData{
			Goal:    e.Progress.Goal.Title,
			Current: e.Progress.Current,
			Target:  e.Progress.Goal.TargetValue,
			Percent: e.Progress.ProgressPercentage,
		}, true
	}
	return messageData{}, false
}

func seriesData(rootID, text string, state models.SeriesState, date time.Time, misses int) messageData {
	return messageData{
		RootID:    rootID,
		Text:      text,
		NewMisses: misses,
		Streak:    state.CurrentStreak,
		Longest:   state.LongestStreak,
		Date:      date.Format(models.DateLayout),
	}
}

var defaultTemplates = map[string]string{
	"misses_detected": "<b>{{.Text}}</b>: {{.NewMisses}} missed occurrence(s) before {{.Date}}.",
	"streak_reached":  "<b>{{.Text}}</b>: {{.Streak}} in a row!",
	"goal_completed":  "Goal <b>{{.Goal}}</b> reached ({{.Current}}/{{.Target}}).",
}

func (d *Dispatcher) run(ctx context.Context, rule Rule, data messageData) error {
	fallback := defaultTemplates[rule.Trigger.triggerKind()]

	switch a := rule.Action.(type) {
	case SendTelegram:
		msg, err := render(orDefault(a.Template, fallback), data)
		if err != nil {
			return err
		}
		return d.sender.SendMessage(ctx, msg)

	case LogMessage:
		msg, err := render(orDefault(a.Template, fallback), data)
		if err != nil {
			return err
		}
		level, err := logrus.ParseLevel(a.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		d.log.WithField("rule", data.Rule).Log(level, msg)
		return nil
	}
	return fmt.Errorf("unsupported action %T", rule.Action)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func render(tmpl string, data messageData) (string, error) {
	t, err := template.New("message").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
