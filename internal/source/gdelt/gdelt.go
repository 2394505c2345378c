// Package gdelt fetches mention candidates from the GDELT DOC 2.0 API.
package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

// SourceName is the origin tag recorded on every item from this API.
const SourceName = "GDELT"

const (
	defaultEndpoint   = "https://api.gdeltproject.org/api/v2/doc/doc"
	defaultMaxRecords = 50
	userAgent         = "mention-monitor/1.0"

	// seendateLayout is GDELT's article timestamp format, always UTC.
	seendateLayout = "20060102150405"
)

// Config controls the DOC API client.
type Config struct {
	Endpoint   string
	MaxRecords int
	Timeout    time.Duration
}

// Source implements monitor.Source over the GDELT DOC ArtList API.
type Source struct {
	cfg    Config
	client *http.Client
}

// New builds a Source.
func New(cfg Config) *Source {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements monitor.Source.
func (s *Source) Name() string { return SourceName }

type articleList struct {
	Articles []struct {
		Title    string `json:"title"`
		URL      string `json:"url"`
		SeenDate string `json:"seendate"`
	} `json:"articles"`
}

// Fetch queries the ArtList endpoint. Non-200 status, an empty body, and a
// non-JSON content type are all reported as errors so the runner's retry
// policy treats them as transient.
func (s *Source) Fetch(ctx context.Context, query string) ([]monitor.RawItem, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "ArtList")
	params.Set("format", "json")
	params.Set("maxrecords", strconv.Itoa(s.cfg.MaxRecords))
	params.Set("sort", "HybridRel")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gdelt http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("gdelt empty response")
	}
	if ctype := resp.Header.Get("Content-Type"); !strings.Contains(ctype, "application/json") {
		return nil, fmt.Errorf("gdelt non-json content type %q", ctype)
	}

	var list articleList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	items := make([]monitor.RawItem, 0, len(list.Articles))
	for _, art := range list.Articles {
		if art.URL == "" {
			continue
		}
		items = append(items, monitor.RawItem{
			Source:         SourceName,
			Title:          art.Title,
			URL:            art.URL,
			PublishedAtRaw: normalizeSeenDate(art.SeenDate),
		})
	}
	return items, nil
}

// normalizeSeenDate converts GDELT's compact UTC timestamp to RFC 3339. A
// missing or malformed value is passed through empty so the time guard drops
// the item with a logged reason; it is never replaced with the current time.
func normalizeSeenDate(seendate string) string {
	if seendate == "" {
		return ""
	}
	t, err := time.Parse(seendateLayout, seendate)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
