// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hashedlabs/mention-monitor/internal/clock/system"
	"github.com/hashedlabs/mention-monitor/internal/config"
	"github.com/hashedlabs/mention-monitor/internal/hash/sha256"
	"github.com/hashedlabs/mention-monitor/internal/id/uuid"
	"github.com/hashedlabs/mention-monitor/internal/logging"
	"github.com/hashedlabs/mention-monitor/internal/monitor"
	"github.com/hashedlabs/mention-monitor/internal/notify"
	slacknotify "github.com/hashedlabs/mention-monitor/internal/notify/slack"
	telegramnotify "github.com/hashedlabs/mention-monitor/internal/notify/telegram"
	"github.com/hashedlabs/mention-monitor/internal/source/gdelt"
	"github.com/hashedlabs/mention-monitor/internal/source/googlenews"
	"github.com/hashedlabs/mention-monitor/internal/storage/memory"
	"github.com/hashedlabs/mention-monitor/internal/storage/postgres"
	"github.com/hashedlabs/mention-monitor/internal/storage/sheets"
	"github.com/hashedlabs/mention-monitor/internal/storage/sqlite"
)

// App holds all the shared, long-lived services for the application: the
// logger, the persistence backend, and the notifier. It is initialized once
// at startup and handed to the commands that need it.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	store      monitor.MentionStore
	watermarks monitor.WatermarkStore
	notifier   monitor.Notifier
	closers    []func() error
}

// Config returns the validated configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// NewApp creates and initializes a new App from the global Viper state. It is
// the central point for service initialization and fails fast if any critical
// service cannot be built.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logging.InitLogger(cfg.Logging.Development)
	l := logging.L
	l.Info("Initializing application services...")

	a := &App{cfg: cfg, logger: l}
	if err := a.initStorage(ctx); err != nil {
		return nil, err
	}
	if err := a.initNotifier(); err != nil {
		return nil, err
	}

	l.Info("Application services initialized successfully.",
		zap.String("storage", cfg.Storage.Provider),
		zap.String("notify", cfg.Notify.Provider))
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.cfg.Storage.Provider {
	case "postgres":
		a.logger.Info("Connecting to PostgreSQL...")
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      a.cfg.Storage.Postgres.DSN,
			MaxConns: a.cfg.Storage.Postgres.MaxConns,
			MinConns: a.cfg.Storage.Postgres.MinConns,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			return fmt.Errorf("failed to initialize postgres schema: %w", err)
		}
		a.store, a.watermarks = store, store
		a.closers = append(a.closers, func() error { store.Close(); return nil })
	case "sqlite":
		a.logger.Info("Opening SQLite database", zap.String("path", a.cfg.Storage.SQLite.Path))
		store, err := sqlite.Open(ctx, a.cfg.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		a.store, a.watermarks = store, store
		a.closers = append(a.closers, store.Close)
	case "sheets":
		a.logger.Info("Connecting to Google Sheets",
			zap.String("spreadsheet", a.cfg.Storage.Sheets.SpreadsheetID))
		store, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   a.cfg.Storage.Sheets.SpreadsheetID,
			CredentialsJSON: a.cfg.Storage.Sheets.CredentialsJSON,
			MentionsSheet:   a.cfg.Storage.Sheets.MentionsSheet,
			StateSheet:      a.cfg.Storage.Sheets.StateSheet,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize sheets storage: %w", err)
		}
		a.store, a.watermarks = store, store
	case "noop":
		a.logger.Info("Using in-memory storage. Nothing survives the process.")
		store := memory.New()
		a.store, a.watermarks = store, store
	default:
		return fmt.Errorf("unknown storage provider: %s", a.cfg.Storage.Provider)
	}
	return nil
}

func (a *App) initNotifier() error {
	switch a.cfg.Notify.Provider {
	case "slack":
		a.logger.Info("Using Slack notifier", zap.String("channel", a.cfg.Notify.Slack.Channel))
		n, err := slacknotify.New(slacknotify.Config{
			Token:   a.cfg.Notify.Slack.Token,
			Channel: a.cfg.Notify.Slack.Channel,
			Header:  a.cfg.Notify.Slack.Header,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize slack notifier: %w", err)
		}
		a.notifier = n
	case "telegram":
		a.logger.Info("Using Telegram notifier", zap.Int64("chat_id", a.cfg.Notify.Telegram.ChatID))
		n, err := telegramnotify.New(telegramnotify.Config{
			Token:  a.cfg.Notify.Telegram.Token,
			ChatID: a.cfg.Notify.Telegram.ChatID,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
		a.notifier = n
	case "log":
		a.logger.Info("Using log notifier. Alerts will only be logged.")
		a.notifier = notify.NewLogNotifier(a.logger)
	default:
		return fmt.Errorf("unknown notify provider: %s", a.cfg.Notify.Provider)
	}
	return nil
}

// Runner assembles the run orchestrator from the configured services.
func (a *App) Runner() (*monitor.Runner, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	var sources []monitor.Source
	if a.cfg.Sources.GoogleNews.Enabled {
		sources = append(sources, googlenews.New(googlenews.Config{
			BaseURL:  a.cfg.Sources.GoogleNews.BaseURL,
			Language: a.cfg.Sources.GoogleNews.Language,
			Country:  a.cfg.Sources.GoogleNews.Country,
			Timeout:  time.Duration(a.cfg.Sources.GoogleNews.TimeoutSeconds) * time.Second,
		}))
	}
	if a.cfg.Sources.GDELT.Enabled {
		sources = append(sources, gdelt.New(gdelt.Config{
			Endpoint:   a.cfg.Sources.GDELT.BaseURL,
			MaxRecords: a.cfg.Sources.GDELT.MaxRecords,
			Timeout:    time.Duration(a.cfg.Sources.GDELT.TimeoutSeconds) * time.Second,
		}))
	}

	prefixes := a.cfg.Monitor.TrackingParamPrefixes
	if len(prefixes) == 0 {
		prefixes = monitor.DefaultTrackingPrefixes
	}
	keys := a.cfg.Monitor.TrackingParamKeys
	if len(keys) == 0 {
		keys = monitor.DefaultTrackingKeys
	}
	policy := monitor.NewIdentityPolicy(prefixes, keys, sha256.New())

	return monitor.NewRunner(monitor.RunnerConfig{
		Query:           a.cfg.Query(),
		NotifyCap:       a.cfg.Monitor.NotifyCap,
		SeenCap:         a.cfg.Monitor.SeenCap,
		FetchAttempts:   a.cfg.Monitor.FetchAttempts,
		FetchRetryDelay: a.cfg.FetchRetryDelay(),
		Location:        loc,
		MaxLookback:     a.cfg.MaxLookback(),
		FutureTolerance: a.cfg.FutureTolerance(),
	}, monitor.RunnerDeps{
		Sources:   sources,
		Store:     a.store,
		Watermark: a.watermarks,
		Notifier:  a.notifier,
		Filter:    monitor.NewFilter(policy),
		Clock:     system.New(),
		IDs:       uuid.NewGenerator(),
		Logger:    a.logger,
	}), nil
}

// Close gracefully shuts down all services in the App container. Called by a
// Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Error closing service", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		// Best effort; stderr sync fails on some platforms.
		_ = err
	}
}
