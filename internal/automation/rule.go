package automation

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ruleYAML mirrors the config file layout:
//
//   - name: missed-alert
//     trigger: {kind: misses_detected, min_misses: 2}
//     action: {kind: send_telegram, template: "..."}
type ruleYAML struct {
	Name    string    `yaml:"name"`
	Trigger yaml.Node `yaml:"trigger"`
	Action  yaml.Node `yaml:"action"`
}

type kindOnly struct {
	Kind string `yaml:"kind"`
}

func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var raw ruleYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("line %d: rule needs a name", node.Line)
	}

	trigger, err := decodeTrigger(&raw.Trigger)
	if err != nil {
		return fmt.Errorf("rule %s: %w", raw.Name, err)
	}
	action, err := decodeAction(&raw.Action)
	if err != nil {
		return fmt.Errorf("rule %s: %w", raw.Name, err)
	}

	*r = Rule{Name: raw.Name, Trigger: trigger, Action: action}
	return nil
}

func (r Rule) MarshalYAML() (any, error) {
	return map[string]any{
		"name":    r.Name,
		"trigger": withKind(r.Trigger.triggerKind(), r.Trigger),
		"action":  withKind(r.Action.actionKind(), r.Action),
	}, nil
}

func withKind(kind string, v any) map[string]any {
	out := map[string]any{}
	b, err := yaml.Marshal(v)
	if err == nil {
		_ = yaml.Unmarshal(b, &out)
	}
	if out == nil {
		out = map[string]any{}
	}
	out["kind"] = kind
	return out
}

func decodeTrigger(node *yaml.Node) (Trigger, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("trigger is required")
	}
	var k kindOnly
	if err := node.Decode(&k); err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}

	switch k.Kind {
	case "misses_detected":
		var t MissesDetected
		err := node.Decode(&t)
		return t, err
	case "streak_reached":
		var t StreakReached
		if err := node.Decode(&t); err != nil {
			return nil, err
		}
		if t.Length < 1 {
			return nil, fmt.Errorf("streak_reached needs a positive length")
		}
		return t, nil
	case "goal_completed":
		return GoalCompleted{}, nil
	case "":
		return nil, fmt.Errorf("trigger kind is required")
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", k.Kind)
	}
}

func decodeAction(node *yaml.Node) (Action, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("action is required")
	}
	var k kindOnly
	if err := node.Decode(&k); err != nil {
		return nil, fmt.Errorf("action: %w", err)
	}

	switch k.Kind {
	case "send_telegram":
		var a SendTelegram
		err := node.Decode(&a)
		return a, err
	case "log_message":
		var a LogMessage
		err := node.Decode(&a)
		return a, err
	case "":
		return nil, fmt.Errorf("action kind is required")
	default:
		return nil, fmt.Errorf("unknown action kind %q", k.Kind)
	}
}
