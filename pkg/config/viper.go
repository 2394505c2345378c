// Package config initializes the application's configuration. It uses the
// Viper library to read settings from a config file and environment
// variables, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hashedlabs/mention-monitor/internal/logging"
)

// InitConfig initializes the application's configuration using Viper. It sets
// defaults, defines configuration search paths, and enables environment
// variable overrides. Called once at startup from the root command.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/mention-monitor/")
		viper.AddConfigPath("$HOME/.mention-monitor")
	}

	setDefaults(viper.GetViper())

	// e.g. MONITOR_NOTIFY_SLACK_TOKEN=xoxb-...
	viper.SetEnvPrefix("MONITOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.timezone", "Asia/Seoul")
	v.SetDefault("monitor.notify_cap", 10)
	v.SetDefault("monitor.seen_cap", 5000)
	v.SetDefault("monitor.max_lookback_days", 7)
	v.SetDefault("monitor.future_tolerance_minutes", 5)
	v.SetDefault("monitor.fetch_attempts", 3)
	v.SetDefault("monitor.fetch_retry_delay_seconds", 2)
	v.SetDefault("monitor.tracking_param_prefixes", []string{"utm_"})
	v.SetDefault("monitor.tracking_param_keys", []string{
		"gclid", "dclid", "fbclid", "yclid", "msclkid",
		"mc_cid", "mc_eid", "igshid", "ref",
	})

	v.SetDefault("sources.googlenews.enabled", true)
	v.SetDefault("sources.googlenews.base_url", "https://news.google.com/rss/search")
	v.SetDefault("sources.googlenews.language", "ko")
	v.SetDefault("sources.googlenews.country", "KR")
	v.SetDefault("sources.googlenews.timeout_seconds", 15)

	v.SetDefault("sources.gdelt.enabled", true)
	v.SetDefault("sources.gdelt.base_url", "https://api.gdeltproject.org/api/v2/doc/doc")
	v.SetDefault("sources.gdelt.max_records", 50)
	v.SetDefault("sources.gdelt.timeout_seconds", 15)

	v.SetDefault("storage.provider", "sqlite")
	v.SetDefault("storage.sqlite.path", "data/mentions.db")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.min_conns", 1)
	v.SetDefault("storage.sheets.mentions_sheet", "mentions")
	v.SetDefault("storage.sheets.state_sheet", "state")

	v.SetDefault("notify.provider", "log")

	v.SetDefault("watch.schedule", "*/30 * * * *")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}
