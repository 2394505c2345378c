package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCmd creates the 'run' subcommand: one monitoring cycle, then exit.
// A failed run returns a non-zero exit status so cron-style wrappers notice.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Executes a single monitoring run",
		Long: `Fetches all enabled sources once, filters and deduplicates the results,
persists fresh mentions, sends notifications, and advances the watermark.`,

		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	runner, err := appInstance.Runner()
	if err != nil {
		return fmt.Errorf("assemble runner: %w", err)
	}

	report, err := runner.Run(cmd.Context())
	logger := appInstance.Logger()
	logger.Info("Run finished",
		zap.String("run_id", report.RunID),
		zap.String("state", string(report.State)),
		zap.Bool("bootstrap", report.Bootstrap),
		zap.Int("fetched", report.Fetched),
		zap.Int("fresh", report.Fresh),
		zap.Int("skipped", report.Skipped),
		zap.Int("notified", report.Notified),
		zap.Int("digested", report.Digested),
		zap.Int("source_failures", len(report.SourceFailures)))
	if err != nil {
		return fmt.Errorf("monitoring run: %w", err)
	}
	return nil
}
