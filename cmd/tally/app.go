package main

import (
	"context"
	"fmt"

	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/internal/automation"
	"github.com/nick-dorsch/tally/internal/config"
	"github.com/nick-dorsch/tally/internal/db"
	"github.com/nick-dorsch/tally/internal/notify"
	"github.com/nick-dorsch/tally/internal/source"
	"github.com/sirupsen/logrus"
)

// app is everything a command needs, built from config and flags.
type app struct {
	cfg    *config.Config
	db     *db.DB
	engine *analytics.Engine
	log    *logrus.Logger
}

func loadConfig(opts *options) (*config.Config, error) {
	config.LoadEnv()

	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.tasksPath != "" {
		cfg.Tasks.Source = config.SourceJSONL
		cfg.Tasks.Path = opts.tasksPath
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	config.InitLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func openApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := config.Logger

	database, err := db.OpenWithDriver(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, err
	}
	if cfg.Database.SnapshotPath != "" {
		database.EnableAutoSnapshot(cfg.Database.SnapshotPath)
	}

	src, err := newSource(cfg, log)
	if err != nil {
		database.Close()
		return nil, err
	}

	var sender notify.Sender = notify.Log{Logger: log}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			database.Close()
			return nil, err
		}
		sender = tg
	}

	engine := analytics.New(src, database,
		analytics.WithLogger(log),
		analytics.WithEvents(automation.NewDispatcher(cfg.Rules, sender, log)),
	)

	return &app{cfg: cfg, db: database, engine: engine, log: log}, nil
}

func newSource(cfg *config.Config, log logrus.FieldLogger) (source.TaskSource, error) {
	switch cfg.Tasks.Source {
	case config.SourceSupabase:
		src, err := source.NewSupabaseSource(cfg.Tasks.SupabaseURL, cfg.Tasks.SupabaseKey, cfg.Tasks.Table, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceJSONL:
		return source.NewJSONLSource(cfg.Tasks.Path), nil
	default:
		return nil, fmt.Errorf("unknown tasks source: %s", cfg.Tasks.Source)
	}
}

func (a *app) Close() error {
	return a.db.Close()
}
