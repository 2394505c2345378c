// Package telegram delivers mention alerts to a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

// maxAttempts bounds the rate-limit retry loop per message.
const maxAttempts = 4

// Config controls the Telegram notifier.
type Config struct {
	Token  string
	ChatID int64
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements monitor.Notifier over the Telegram Bot API.
type Notifier struct {
	bot    sender
	chatID int64
}

// New builds a Notifier; the bot token is validated against the API.
func New(cfg Config) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("notify.telegram.token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("notify.telegram.chat_id is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewWithBot(bot, cfg.ChatID), nil
}

// NewWithBot builds a Notifier around an existing bot client (tests inject a stub).
func NewWithBot(bot sender, chatID int64) *Notifier {
	return &Notifier{bot: bot, chatID: chatID}
}

// Notify sends one Markdown alert for a single mention.
func (n *Notifier) Notify(ctx context.Context, m monitor.Mention) error {
	text := fmt.Sprintf("*[%s]* [%s](%s)\nPublished: `%s`",
		m.Source,
		escapeText(m.Title),
		m.URL,
		m.PublishedAt.UTC().Format(time.RFC3339))
	return n.send(ctx, text)
}

// NotifyDigest sends one summarized message for the mentions past the alert cap.
func (n *Notifier) NotifyDigest(ctx context.Context, mentions []monitor.Mention) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d more new mentions beyond the alert cap:*\n", len(mentions))
	for _, m := range mentions {
		fmt.Fprintf(&sb, "• [%s](%s) — %s\n", escapeText(m.Title), m.URL, m.Source)
	}
	return n.send(ctx, sb.String())
}

// send delivers with bounded retry on Telegram's 429 retry-after signal and
// fails fast on anything else.
func (n *Notifier) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
			return fmt.Errorf("send message: %w", err)
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(apiErr.RetryAfter) * time.Second):
		}
	}
	return fmt.Errorf("send message: rate limited after %d attempts: %w", maxAttempts, lastErr)
}

// escapeText neutralizes the Markdown control characters Telegram rejects in
// entity text.
func escapeText(s string) string {
	r := strings.NewReplacer("[", "(", "]", ")", "*", "∗", "_", " ", "`", "'")
	return r.Replace(s)
}
