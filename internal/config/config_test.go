package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nick-dorsch/tally/internal/automation"
	"github.com/sirupsen/logrus"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Default Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Tasks.Source != SourceJSONL {
		t.Errorf("Default Tasks.Source = %q, want %q", cfg.Tasks.Source, SourceJSONL)
	}
	if cfg.Tasks.Table != "tasks" {
		t.Errorf("Default Tasks.Table = %q, want %q", cfg.Tasks.Table, "tasks")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Default Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cfg.Database.Path != filepath.Join(".tally", "tally.db") {
		t.Errorf("Expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileAndRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/habits.db
tasks:
  path: /tmp/tasks.jsonl
telegram:
  token: abc
  chat_id: 42
scheduler:
  min_interval: 30m
rules:
  - name: missed-alert
    trigger: {kind: misses_detected, min_misses: 2}
    action: {kind: send_telegram}
  - name: streak-log
    trigger: {kind: streak_reached, length: 7}
    action: {kind: log_message, level: info, template: "{{.Text}} x{{.Streak}}"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.Database.Path != "/tmp/habits.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Unset driver should keep its default, got %q", cfg.Database.Driver)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Errorf("Telegram.ChatID = %d, want 42", cfg.Telegram.ChatID)
	}

	d, err := cfg.MinInterval()
	if err != nil || d != 30*time.Minute {
		t.Errorf("MinInterval = %v, %v; want 30m", d, err)
	}

	if len(cfg.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(cfg.Rules))
	}
	trig, ok := cfg.Rules[0].Trigger.(automation.MissesDetected)
	if !ok || trig.MinMisses != 2 {
		t.Errorf("Unexpected first trigger: %#v", cfg.Rules[0].Trigger)
	}
	if _, ok := cfg.Rules[1].Action.(automation.LogMessage); !ok {
		t.Errorf("Unexpected second action: %#v", cfg.Rules[1].Action)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Loaded config should validate: %v", err)
	}
}

func TestLoadBadRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
rules:
  - name: broken
    trigger: {kind: moon_phase}
    action: {kind: log_message}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for an unknown trigger kind")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TALLY_DB_PATH", "/env/tally.db")
	t.Setenv("TALLY_TASKS_SOURCE", "supabase")
	t.Setenv("TALLY_SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("TALLY_SUPABASE_KEY", "key")
	t.Setenv("TALLY_TELEGRAM_CHAT_ID", "7")
	t.Setenv("TALLY_PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.Database.Path != "/env/tally.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Tasks.Source != SourceSupabase || cfg.Tasks.SupabaseKey != "key" {
		t.Errorf("Unexpected tasks config: %+v", cfg.Tasks)
	}
	if cfg.Telegram.ChatID != 7 || cfg.Server.Port != 9090 {
		t.Errorf("Unexpected chat id %d or port %d", cfg.Telegram.ChatID, cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config: %v", err)
	}
}

func TestEnvOverrideBadNumber(t *testing.T) {
	t.Setenv("TALLY_PORT", "eighty")

	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing tasks path", func(c *Config) { c.Tasks.Path = "" }, ErrMissingTasksPath},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, ErrInvalidConfig},
		{"bad source", func(c *Config) { c.Tasks.Source = "csv" }, ErrInvalidConfig},
		{"supabase without key", func(c *Config) {
			c.Tasks.Source = SourceSupabase
			c.Tasks.SupabaseURL = "https://example.supabase.co"
		}, ErrInvalidConfig},
		{"bad cron", func(c *Config) { c.Scheduler.Spec = "every tuesday" }, ErrInvalidConfig},
		{"bad interval", func(c *Config) { c.Scheduler.MinInterval = "soon" }, ErrInvalidConfig},
		{"token without chat", func(c *Config) { c.Telegram.Token = "abc" }, ErrInvalidConfig},
		{"telegram rule without token", func(c *Config) {
			c.Rules = []automation.Rule{{
				Name:    "r",
				Trigger: automation.GoalCompleted{},
				Action:  automation.SendTelegram{},
			}}
		}, ErrInvalidConfig},
		{"valid cgo driver", func(c *Config) { c.Database.Driver = "sqlite3" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Server.Port = 8123
	cfg.Rules = []automation.Rule{{
		Name:    "goal-log",
		Trigger: automation.GoalCompleted{},
		Action:  automation.LogMessage{Level: "warn"},
	}}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Server.Port != 8123 {
		t.Errorf("Port = %d, want 8123", loaded.Server.Port)
	}
	if len(loaded.Rules) != 1 || loaded.Rules[0].Name != "goal-log" {
		t.Errorf("Unexpected rules: %+v", loaded.Rules)
	}
}

func TestInitLogger(t *testing.T) {
	InitLogger("debug", "json")
	if Logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Level = %v, want debug", Logger.GetLevel())
	}
	if _, ok := Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", Logger.Formatter)
	}

	InitLogger("nonsense", "text")
	if Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("Level = %v, want info", Logger.GetLevel())
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TALLY_TEST_ONLY_VAR=from-file\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Setenv("TALLY_TEST_ONLY_VAR", "")
	os.Unsetenv("TALLY_TEST_ONLY_VAR")

	LoadEnv(path)
	if got := os.Getenv("TALLY_TEST_ONLY_VAR"); got != "from-file" {
		t.Errorf("Expected from-file, got %q", got)
	}
}
