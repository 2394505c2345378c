// Package cmd defines and implements the CLI commands for the mention-monitor executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hashedlabs/mention-monitor/internal/app"
	appconfig "github.com/hashedlabs/mention-monitor/internal/config"
	"github.com/hashedlabs/mention-monitor/internal/logging"
	"github.com/hashedlabs/mention-monitor/internal/monitor"
	"github.com/hashedlabs/mention-monitor/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. It allows a mock
// app to be injected during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() appconfig.Config
	Runner() (*monitor.Runner, error)
}

// newApp is the application factory. It is a variable so tests can replace it
// with a mock factory.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mention-monitor",
		Short: "Keyword mention monitoring over Google News RSS and GDELT.",
		Long: `mention-monitor periodically searches Google News RSS and the GDELT DOC
API for configured keywords, deduplicates results against a persistent store,
and alerts a chat channel about mentions it has not seen before.`,

		// Runs after config is loaded but before the subcommand's RunE; the
		// right place to build and inject the application services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() { config.InitConfig(cfgFile) })

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/mention-monitor, $HOME/.mention-monitor)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	// Bootstrap logger so config loading can log; the App rebuilds it from
	// the logging.development setting.
	logging.InitLogger(true)

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
