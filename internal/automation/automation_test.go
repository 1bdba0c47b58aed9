package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/yaml.v3"
)

type recordingSender struct {
	messages []string
	err      error
}

func (r *recordingSender) SendMessage(ctx context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, text)
	return nil
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestDispatchMissesDetected(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher([]Rule{{
		Name:    "missed",
		Trigger: MissesDetected{MinMisses: 2},
		Action:  SendTelegram{Template: "{{.Text}} missed {{.NewMisses}}"},
	}}, sender, quietLogger())

	ctx := context.Background()
	asOf := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	if err := d.Dispatch(ctx, SeriesChecked{RootID: "r", Text: "Read", NewMisses: 1, AsOf: asOf}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(sender.messages) != 0 {
		t.Fatalf("Expected no message below threshold, got %v", sender.messages)
	}

	if err := d.Dispatch(ctx, SeriesChecked{RootID: "r", Text: "Read", NewMisses: 3, AsOf: asOf}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(sender.messages) != 1 || sender.messages[0] != "Read missed 3" {
		t.Errorf("Unexpected messages: %v", sender.messages)
	}

	// Other events never match a misses trigger.
	if err := d.Dispatch(ctx, GoalEvaluated{}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(sender.messages) != 1 {
		t.Errorf("Expected no extra messages, got %v", sender.messages)
	}
}

func TestDispatchStreakReachedUsesDefaultTemplate(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher([]Rule{{Name: "streak", Trigger: StreakReached{Length: 7}, Action: SendTelegram{}}}, sender, quietLogger())

	ctx := context.Background()
	ev := CompletionRecorded{RootID: "r", Text: "Meditate", State: models.SeriesState{CurrentStreak: 6, LongestStreak: 6}}
	_ = d.Dispatch(ctx, ev)
	ev.State.CurrentStreak, ev.State.LongestStreak = 7, 7
	_ = d.Dispatch(ctx, ev)

	if len(sender.messages) != 1 {
		t.Fatalf("Expected exactly one message, got %v", sender.messages)
	}
	if !strings.Contains(sender.messages[0], "7 in a row") {
		t.Errorf("Unexpected default message: %q", sender.messages[0])
	}
}

func TestDispatchGoalCompletedFiresOnce(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher([]Rule{{Name: "goal", Trigger: GoalCompleted{}, Action: SendTelegram{Template: "{{.Goal}} {{.Percent}}%"}}}, sender, quietLogger())

	ev := GoalEvaluated{Progress: models.GoalProgress{
		Goal:               models.Goal{ID: "g1", Title: "Read more", TargetValue: 5},
		Current:            5,
		ProgressPercentage: 100,
		IsCompleted:        true,
	}}
	for i := 0; i < 3; i++ {
		if err := d.Dispatch(context.Background(), ev); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
	}

	if len(sender.messages) != 1 || sender.messages[0] != "Read more 100%" {
		t.Errorf("Expected one goal message, got %v", sender.messages)
	}
}

func TestDispatchLogMessage(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	d := NewDispatcher([]Rule{{Name: "log", Trigger: MissesDetected{}, Action: LogMessage{Level: "warn", Template: "{{.RootID}}"}}}, nil, logger)
	if err := d.Dispatch(context.Background(), SeriesChecked{RootID: "abc", NewMisses: 1}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "abc" && e.Level == logrus.WarnLevel {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected warn entry with root id, got %+v", hook.AllEntries())
	}
}

func TestDispatchCollectsErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("offline")}
	d := NewDispatcher([]Rule{
		{Name: "bad-template", Trigger: MissesDetected{}, Action: SendTelegram{Template: "{{.Nope}}"}},
		{Name: "offline", Trigger: MissesDetected{}, Action: SendTelegram{Template: "x"}},
		{Name: "fine", Trigger: MissesDetected{}, Action: LogMessage{Template: "ok"}},
	}, sender, quietLogger())

	err := d.Dispatch(context.Background(), SeriesChecked{NewMisses: 1})
	if err == nil {
		t.Fatal("Expected aggregated error")
	}
	if !strings.Contains(err.Error(), "bad-template") || !strings.Contains(err.Error(), "offline") {
		t.Errorf("Expected both failing rules in error, got %v", err)
	}
	if strings.Contains(err.Error(), "fine") {
		t.Errorf("Did not expect the working rule in error, got %v", err)
	}
}

func TestRuleYAML(t *testing.T) {
	src := `
- name: missed-alert
  trigger: {kind: misses_detected, min_misses: 2}
  action: {kind: send_telegram, template: "missed {{.NewMisses}}"}
- name: week-streak
  trigger: {kind: streak_reached, length: 7}
  action: {kind: log_message, level: info}
- name: goals
  trigger: {kind: goal_completed}
  action: {kind: send_telegram}
`
	var rules []Rule
	if err := yaml.Unmarshal([]byte(src), &rules); err != nil {
		t.Fatalf("Failed to decode rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(rules))
	}

	if trig, ok := rules[0].Trigger.(MissesDetected); !ok || trig.MinMisses != 2 {
		t.Errorf("Unexpected first trigger: %#v", rules[0].Trigger)
	}
	if act, ok := rules[0].Action.(SendTelegram); !ok || act.Template != "missed {{.NewMisses}}" {
		t.Errorf("Unexpected first action: %#v", rules[0].Action)
	}
	if trig, ok := rules[1].Trigger.(StreakReached); !ok || trig.Length != 7 {
		t.Errorf("Unexpected second trigger: %#v", rules[1].Trigger)
	}
	if act, ok := rules[1].Action.(LogMessage); !ok || act.Level != "info" {
		t.Errorf("Unexpected second action: %#v", rules[1].Action)
	}
	if _, ok := rules[2].Trigger.(GoalCompleted); !ok {
		t.Errorf("Unexpected third trigger: %#v", rules[2].Trigger)
	}

	out, err := yaml.Marshal(rules)
	if err != nil {
		t.Fatalf("Failed to encode rules: %v", err)
	}
	var again []Rule
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("Failed to decode encoded rules: %v\n%s", err, out)
	}
	if len(again) != 3 {
		t.Errorf("Expected 3 rules after re-decoding, got %d", len(again))
	}
}

func TestRuleYAMLRejectsUnknownKinds(t *testing.T) {
	cases := map[string]string{
		"trigger": "- name: x\n  trigger: {kind: moon_phase}\n  action: {kind: send_telegram}\n",
		"action":  "- name: x\n  trigger: {kind: goal_completed}\n  action: {kind: carrier_pigeon}\n",
		"missing": "- name: x\n  action: {kind: send_telegram}\n",
		"streak":  "- name: x\n  trigger: {kind: streak_reached}\n  action: {kind: send_telegram}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			var rules []Rule
			if err := yaml.Unmarshal([]byte(src), &rules); err == nil {
				t.Errorf("Expected error, decoded %#v", rules)
			}
		})
	}
}
