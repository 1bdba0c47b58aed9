// Package config loads tally configuration. Values are resolved from
// (highest to lowest priority):
// 1. Environment variables (TALLY_*, after .env is loaded)
// 2. Project config (.tally/config.yaml, or TALLY_CONFIG)
// 3. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nick-dorsch/tally/internal/automation"
	"github.com/nick-dorsch/tally/internal/db"
	"github.com/nick-dorsch/tally/internal/source"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	Dir      = ".tally"
	FileName = "config.yaml"

	SourceJSONL    = "jsonl"
	SourceSupabase = "supabase"
)

var (
	ErrMissingTasksPath = errors.New("tasks.path is required for the jsonl source")
	ErrInvalidConfig    = errors.New("invalid config")
)

type Config struct {
	Database  DatabaseConfig    `yaml:"database" json:"database"`
	Tasks     TasksConfig       `yaml:"tasks" json:"tasks"`
	Telegram  TelegramConfig    `yaml:"telegram" json:"telegram"`
	Scheduler SchedulerConfig   `yaml:"scheduler" json:"scheduler"`
	Server    ServerConfig      `yaml:"server" json:"server"`
	Log       LogConfig         `yaml:"log" json:"log"`
	Rules     []automation.Rule `yaml:"rules" json:"-"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver       string `yaml:"driver" json:"driver"`
	Path         string `yaml:"path" json:"path"`
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`
}

type TasksConfig struct {
	// Source is "jsonl" or "supabase".
	Source      string `yaml:"source" json:"source"`
	Path        string `yaml:"path" json:"path"`
	SupabaseURL string `yaml:"supabase_url" json:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key" json:"-"`
	Table       string `yaml:"table" json:"table"`
}

type TelegramConfig struct {
	Token  string `yaml:"token" json:"-"`
	ChatID int64  `yaml:"chat_id" json:"chat_id"`
}

type SchedulerConfig struct {
	// Spec is a cron expression or descriptor.
	Spec string `yaml:"spec" json:"spec"`
	// MinInterval throttles the missed check, e.g. "1h".
	MinInterval string `yaml:"min_interval" json:"min_interval"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       db.DriverSQLite,
			Path:         filepath.Join(Dir, "tally.db"),
			SnapshotPath: filepath.Join(Dir, "snapshot.jsonl"),
		},
		Tasks: TasksConfig{
			Source: SourceJSONL,
			Path:   filepath.Join(Dir, "tasks.jsonl"),
			Table:  source.DefaultSupabaseTable,
		},
		Scheduler: SchedulerConfig{
			Spec:        "@every 15m",
			MinInterval: "1h",
		},
		Server: ServerConfig{Port: 8000},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Path returns the project config path.
func Path() string {
	if override := strings.TrimSpace(os.Getenv("TALLY_CONFIG")); override != "" {
		return override
	}
	return filepath.Join(Dir, FileName)
}

// Load reads the config at path (Path() when empty) over the defaults and
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TALLY_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TALLY_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TALLY_TASKS_SOURCE"); v != "" {
		cfg.Tasks.Source = v
	}
	if v := os.Getenv("TALLY_TASKS_PATH"); v != "" {
		cfg.Tasks.Path = v
	}
	if v := os.Getenv("TALLY_SUPABASE_URL"); v != "" {
		cfg.Tasks.SupabaseURL = v
	}
	if v := os.Getenv("TALLY_SUPABASE_KEY"); v != "" {
		cfg.Tasks.SupabaseKey = v
	}
	if v := os.Getenv("TALLY_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TALLY_TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TALLY_TELEGRAM_CHAT_ID: %v", ErrInvalidConfig, err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("TALLY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TALLY_PORT: %v", ErrInvalidConfig, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// MinInterval parses Scheduler.MinInterval; empty means no throttle.
func (c *Config) MinInterval() (time.Duration, error) {
	if strings.TrimSpace(c.Scheduler.MinInterval) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Scheduler.MinInterval)
	if err != nil {
		return 0, fmt.Errorf("%w: scheduler.min_interval: %v", ErrInvalidConfig, err)
	}
	return d, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case db.DriverSQLite, db.DriverSQLite3:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	switch c.Tasks.Source {
	case SourceJSONL:
		if strings.TrimSpace(c.Tasks.Path) == "" {
			return ErrMissingTasksPath
		}
	case SourceSupabase:
		if c.Tasks.SupabaseURL == "" || c.Tasks.SupabaseKey == "" {
			return fmt.Errorf("%w: supabase source needs url and key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown tasks source %q", ErrInvalidConfig, c.Tasks.Source)
	}

	if c.Scheduler.Spec != "" {
		if _, err := cron.ParseStandard(c.Scheduler.Spec); err != nil {
			return fmt.Errorf("%w: scheduler.spec: %v", ErrInvalidConfig, err)
		}
	}
	if _, err := c.MinInterval(); err != nil {
		return err
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("%w: telegram.chat_id is required with a token", ErrInvalidConfig)
	}
	for _, r := range c.Rules {
		if _, ok := r.Action.(automation.SendTelegram); ok && c.Telegram.Token == "" {
			return fmt.Errorf("%w: rule %s sends to telegram but no token is set", ErrInvalidConfig, r.Name)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// Save writes c as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
