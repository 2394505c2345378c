// Package googlenews fetches mention candidates from the Google News search RSS feed.
package googlenews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

// SourceName is the origin tag recorded on every item from this feed.
const SourceName = "GoogleNewsRSS"

const defaultBaseURL = "https://news.google.com/rss/search"

// Config controls the localized search feed.
type Config struct {
	// BaseURL overrides the feed endpoint (tests); empty means the real feed.
	BaseURL string
	// Language is the hl parameter, e.g. "ko".
	Language string
	// Country is the gl parameter, e.g. "KR"; ceid is derived as country:language.
	Country string
	Timeout time.Duration
}

// Source implements monitor.Source over the Google News search RSS feed.
type Source struct {
	cfg    Config
	parser *gofeed.Parser
}

// New builds a Source.
func New(cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "ko"
	}
	if cfg.Country == "" {
		cfg.Country = "KR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	parser.UserAgent = "mention-monitor/1.0"
	return &Source{cfg: cfg, parser: parser}
}

// Name implements monitor.Source.
func (s *Source) Name() string { return SourceName }

// Fetch retrieves and parses the search feed for the combined query. The
// published string is passed through raw; the runner owns timestamp parsing.
func (s *Source) Fetch(ctx context.Context, query string) ([]monitor.RawItem, error) {
	feedURL := s.feedURL(query)
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]monitor.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}
		items = append(items, monitor.RawItem{
			Source:         SourceName,
			Title:          entry.Title,
			URL:            entry.Link,
			PublishedAtRaw: entry.Published,
		})
	}
	return items, nil
}

func (s *Source) feedURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", s.cfg.Language)
	params.Set("gl", s.cfg.Country)
	params.Set("ceid", fmt.Sprintf("%s:%s", s.cfg.Country, s.cfg.Language))
	return s.cfg.BaseURL + "?" + params.Encode()
}
