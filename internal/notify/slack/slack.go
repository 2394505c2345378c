// Package slack delivers mention alerts to a Slack channel as Block Kit messages.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

const defaultHeader = "🟣 Mention Alert"

// maxAttempts bounds the rate-limit retry loop per message. Anything other
// than a rate-limit signal fails fast.
const maxAttempts = 4

// Config controls the Slack notifier.
type Config struct {
	Token   string
	Channel string
	Header  string
}

type api interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier implements monitor.Notifier over the Slack Web API.
type Notifier struct {
	client  api
	channel string
	header  string
}

// New builds a Notifier from config.
func New(cfg Config) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("notify.slack.token is required")
	}
	if !strings.HasPrefix(cfg.Token, "xoxb-") {
		return nil, fmt.Errorf("notify.slack.token is not a bot token (expected xoxb- prefix)")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("notify.slack.channel is required")
	}
	return NewWithClient(slackapi.New(cfg.Token), cfg), nil
}

// NewWithClient builds a Notifier around an existing client (tests inject a
// stub or a client pointed at a local server).
func NewWithClient(client api, cfg Config) *Notifier {
	header := cfg.Header
	if header == "" {
		header = defaultHeader
	}
	return &Notifier{client: client, channel: cfg.Channel, header: header}
}

// Notify posts one Block Kit alert for a single mention.
func (n *Notifier) Notify(ctx context.Context, m monitor.Mention) error {
	fallback := fmt.Sprintf("[%s] %s", m.Source, m.Title)
	return n.post(ctx,
		slackapi.MsgOptionText(fallback, false),
		slackapi.MsgOptionBlocks(n.mentionBlocks(m)...))
}

// NotifyDigest posts one summarized message for the mentions past the alert cap.
func (n *Notifier) NotifyDigest(ctx context.Context, mentions []monitor.Mention) error {
	fallback := fmt.Sprintf("%d more new mentions", len(mentions))
	return n.post(ctx,
		slackapi.MsgOptionText(fallback, false),
		slackapi.MsgOptionBlocks(n.digestBlocks(mentions)...))
}

// post sends with bounded retry on Slack's rate-limit signal, honoring the
// advertised retry-after. Any other failure is returned immediately.
func (n *Notifier) post(ctx context.Context, options ...slackapi.MsgOption) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, _, err := n.client.PostMessageContext(ctx, n.channel, options...)
		if err == nil {
			return nil
		}
		var rateLimited *slackapi.RateLimitedError
		if !errors.As(err, &rateLimited) {
			return fmt.Errorf("post message: %w", err)
		}
		lastErr = err
		wait := rateLimited.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("post message: rate limited after %d attempts: %w", maxAttempts, lastErr)
}

func (n *Notifier) mentionBlocks(m monitor.Mention) []slackapi.Block {
	body := fmt.Sprintf("*<%s|%s>*\n\n*Source:* `%s`\n*Published:* `%s`",
		m.URL,
		escapeText(m.Title),
		m.Source,
		m.PublishedAt.UTC().Format(time.RFC3339))
	return []slackapi.Block{
		slackapi.NewHeaderBlock(slackapi.NewTextBlockObject(slackapi.PlainTextType, n.header, true, false)),
		slackapi.NewDividerBlock(),
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, body, false, false), nil, nil),
		slackapi.NewDividerBlock(),
		slackapi.NewContextBlock("",
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "automated mention monitor (Google News RSS + GDELT)", false, false)),
	}
}

func (n *Notifier) digestBlocks(mentions []monitor.Mention) []slackapi.Block {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d more new mentions beyond the alert cap:*\n", len(mentions))
	for _, m := range mentions {
		fmt.Fprintf(&sb, "• <%s|%s> — `%s`\n", m.URL, escapeText(m.Title), m.Source)
	}
	return []slackapi.Block{
		slackapi.NewHeaderBlock(slackapi.NewTextBlockObject(slackapi.PlainTextType, n.header+" — Digest", true, false)),
		slackapi.NewDividerBlock(),
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, sb.String(), false, false), nil, nil),
	}
}

// escapeText escapes the characters Slack treats as control characters in
// mrkdwn text.
func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
