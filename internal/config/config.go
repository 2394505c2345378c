// Package config loads and validates monitor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor"`
	Sources SourcesConfig `mapstructure:"sources"`
	Storage StorageConfig `mapstructure:"storage"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MonitorConfig governs the run pipeline: what to search for and how the
// freshness window, dedup identity, and alert cap behave.
type MonitorConfig struct {
	Keywords              []string `mapstructure:"keywords"`
	Timezone              string   `mapstructure:"timezone"`
	NotifyCap             int      `mapstructure:"notify_cap"`
	SeenCap               int      `mapstructure:"seen_cap"`
	MaxLookbackDays       int      `mapstructure:"max_lookback_days"`
	FutureToleranceMin    int      `mapstructure:"future_tolerance_minutes"`
	FetchAttempts         int      `mapstructure:"fetch_attempts"`
	FetchRetryDelaySec    int      `mapstructure:"fetch_retry_delay_seconds"`
	TrackingParamPrefixes []string `mapstructure:"tracking_param_prefixes"`
	TrackingParamKeys     []string `mapstructure:"tracking_param_keys"`
}

// SourcesConfig toggles and tunes the upstream feeds.
type SourcesConfig struct {
	GoogleNews GoogleNewsConfig `mapstructure:"googlenews"`
	GDELT      GDELTConfig      `mapstructure:"gdelt"`
}

// GoogleNewsConfig tunes the Google News RSS adapter.
type GoogleNewsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	Language       string `mapstructure:"language"`
	Country        string `mapstructure:"country"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GDELTConfig tunes the GDELT DOC API adapter.
type GDELTConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	MaxRecords     int    `mapstructure:"max_records"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig selects and configures the persistence provider.
type StorageConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
}

// PostgresConfig controls access to the PostgreSQL backend.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// SQLiteConfig controls the embedded SQLite backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// SheetsConfig controls the Google Sheets backend.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	MentionsSheet   string `mapstructure:"mentions_sheet"`
	StateSheet      string `mapstructure:"state_sheet"`
}

// NotifyConfig selects and configures the alert channel.
type NotifyConfig struct {
	Provider string         `mapstructure:"provider"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// SlackConfig holds Slack delivery credentials.
type SlackConfig struct {
	Token   string `mapstructure:"token"`
	Channel string `mapstructure:"channel"`
	Header  string `mapstructure:"header"`
}

// TelegramConfig holds Telegram delivery credentials.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// WatchConfig controls the scheduled mode.
type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// ServerConfig controls the HTTP sidecar serving health and metrics.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load unmarshals and validates a Config from an initialized Viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Monitor.Keywords) == 0 {
		return fmt.Errorf("monitor.keywords must not be empty")
	}
	if _, err := time.LoadLocation(c.Monitor.Timezone); err != nil {
		return fmt.Errorf("monitor.timezone %q: %w", c.Monitor.Timezone, err)
	}
	if c.Monitor.NotifyCap <= 0 {
		return fmt.Errorf("monitor.notify_cap must be > 0")
	}
	if c.Monitor.SeenCap <= 0 {
		return fmt.Errorf("monitor.seen_cap must be > 0")
	}
	if c.Monitor.MaxLookbackDays <= 0 {
		return fmt.Errorf("monitor.max_lookback_days must be > 0")
	}
	if c.Monitor.FetchAttempts <= 0 {
		return fmt.Errorf("monitor.fetch_attempts must be > 0")
	}
	if !c.Sources.GoogleNews.Enabled && !c.Sources.GDELT.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}

	switch c.Storage.Provider {
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage provider is 'postgres' but storage.postgres.dsn is not set")
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage provider is 'sqlite' but storage.sqlite.path is not set")
		}
	case "sheets":
		if c.Storage.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("storage provider is 'sheets' but storage.sheets.spreadsheet_id is not set")
		}
		if c.Storage.Sheets.CredentialsJSON == "" {
			return fmt.Errorf("storage provider is 'sheets' but storage.sheets.credentials_json is not set")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}

	switch c.Notify.Provider {
	case "slack":
		if c.Notify.Slack.Token == "" || c.Notify.Slack.Channel == "" {
			return fmt.Errorf("notify provider is 'slack' but token or channel is not set")
		}
	case "telegram":
		if c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == 0 {
			return fmt.Errorf("notify provider is 'telegram' but token or chat_id is not set")
		}
	case "log":
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}

	if c.Watch.Schedule == "" {
		return fmt.Errorf("watch.schedule must not be empty")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// Query renders the keyword list as a single search expression, quoting each
// keyword so multi-word phrases match exactly.
func (c Config) Query() string {
	quoted := make([]string, 0, len(c.Monitor.Keywords))
	for _, kw := range c.Monitor.Keywords {
		quoted = append(quoted, fmt.Sprintf("%q", kw))
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}

// Location resolves the configured timezone. Validate has already checked it
// loads, so errors here indicate a programming mistake.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Monitor.Timezone)
}

// FetchRetryDelay converts the configured retry base delay into a duration.
func (c Config) FetchRetryDelay() time.Duration {
	return time.Duration(c.Monitor.FetchRetryDelaySec) * time.Second
}

// MaxLookback converts the lookback window into a duration.
func (c Config) MaxLookback() time.Duration {
	return time.Duration(c.Monitor.MaxLookbackDays) * 24 * time.Hour
}

// FutureTolerance converts the clock-skew allowance into a duration.
func (c Config) FutureTolerance() time.Duration {
	return time.Duration(c.Monitor.FutureToleranceMin) * time.Minute
}
