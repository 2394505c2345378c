// Package notify hosts chat-delivery helpers shared by the notifier providers.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

// LogNotifier implements monitor.Notifier by logging instead of delivering.
// It backs the "log" provider for dry runs and local development.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs a single mention alert.
func (n *LogNotifier) Notify(_ context.Context, m monitor.Mention) error {
	n.logger.Info("mention alert",
		zap.String("id", m.ID),
		zap.String("source", m.Source),
		zap.String("title", m.Title),
		zap.String("url", m.URL),
		zap.Time("published_at", m.PublishedAt))
	return nil
}

// NotifyDigest logs the digest summary.
func (n *LogNotifier) NotifyDigest(_ context.Context, mentions []monitor.Mention) error {
	n.logger.Info("mention digest", zap.Int("mentions", len(mentions)))
	return nil
}
