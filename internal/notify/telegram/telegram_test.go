package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	errs []error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable type")
	}
	f.sent = append(f.sent, msg)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func testMention() monitor.Mention {
	return monitor.Mention{
		ID:          "abc123",
		Source:      "GDELT",
		Title:       "Fund [X] update",
		URL:         "https://news.example.com/article",
		PublishedAt: time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC),
	}
}

func TestNotifySendsMarkdownAlert(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	n := NewWithBot(bot, 42)

	require.NoError(t, n.Notify(context.Background(), testMention()))
	require.Len(t, bot.sent, 1)

	msg := bot.sent[0]
	require.Equal(t, int64(42), msg.ChatID)
	require.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	require.True(t, msg.DisableWebPagePreview)
	require.Contains(t, msg.Text, "*[GDELT]*")
	require.Contains(t, msg.Text, "(https://news.example.com/article)")
	// Square brackets in the title must not open a Markdown entity.
	require.Contains(t, msg.Text, "Fund (X) update")
	require.Contains(t, msg.Text, "2025-03-10T04:00:00Z")
}

func TestNotifyDigestListsOverflow(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	n := NewWithBot(bot, 42)

	overflow := []monitor.Mention{testMention(), testMention()}
	overflow[1].URL = "https://news.example.com/second"
	require.NoError(t, n.NotifyDigest(context.Background(), overflow))
	require.Len(t, bot.sent, 1)
	require.Contains(t, bot.sent[0].Text, "2 more new mentions")
	require.Contains(t, bot.sent[0].Text, "https://news.example.com/second")
}

func TestNotifyRetriesOnRateLimit(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{errs: []error{
		&tgbotapi.Error{
			Code:               429,
			Message:            "Too Many Requests",
			ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 1},
		},
	}}
	n := NewWithBot(bot, 42)

	require.NoError(t, n.Notify(context.Background(), testMention()))
	require.Len(t, bot.sent, 2)
}

func TestNotifyFailsFastOnAPIError(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{errs: []error{
		&tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
	}}
	n := NewWithBot(bot, 42)

	err := n.Notify(context.Background(), testMention())
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
	require.Len(t, bot.sent, 1)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{ChatID: 42})
	require.Error(t, err)

	_, err = New(Config{Token: "123:abc"})
	require.Error(t, err)
}
