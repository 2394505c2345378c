// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/hashedlabs/mention-monitor/internal/app"
)

// setBaseConfig seeds the global Viper with a minimal valid configuration
// using the in-process providers, so no external service is touched.
func setBaseConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("monitor.keywords", []string{"hashed"})
	viper.Set("monitor.timezone", "Asia/Seoul")
	viper.Set("monitor.notify_cap", 10)
	viper.Set("monitor.seen_cap", 5000)
	viper.Set("monitor.max_lookback_days", 7)
	viper.Set("monitor.future_tolerance_minutes", 5)
	viper.Set("monitor.fetch_attempts", 3)
	viper.Set("monitor.fetch_retry_delay_seconds", 2)
	viper.Set("sources.googlenews.enabled", true)
	viper.Set("sources.gdelt.enabled", true)
	viper.Set("storage.provider", "noop")
	viper.Set("notify.provider", "log")
	viper.Set("watch.schedule", "*/30 * * * *")
	viper.Set("server.port", 8080)
	viper.Set("logging.development", false)
}

func TestNewAppWithInProcessProviders(t *testing.T) {
	setBaseConfig(t)

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, "noop", a.Config().Storage.Provider)
	require.NotNil(t, a.Logger())

	runner, err := a.Runner()
	require.NoError(t, err)
	require.NotNil(t, runner)
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	setBaseConfig(t)
	viper.Set("monitor.keywords", []string{})

	_, err := app.NewApp(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "monitor.keywords")
}

func TestNewAppRequiresProviderSettings(t *testing.T) {
	setBaseConfig(t)
	viper.Set("storage.provider", "postgres")

	_, err := app.NewApp(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage.postgres.dsn")
}

func TestNewAppSQLiteRoundTrip(t *testing.T) {
	setBaseConfig(t)
	viper.Set("storage.provider", "sqlite")
	viper.Set("storage.sqlite.path", t.TempDir()+"/mentions.db")

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)
	a.Close()
}
