package gdelt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const artListFixture = `{
  "articles": [
    {"title": "Hashed leads round", "url": "https://example.com/a", "seendate": "20250310053000"},
    {"title": "No seendate", "url": "https://example.com/b"},
    {"title": "Bad seendate", "url": "https://example.com/c", "seendate": "tomorrow"},
    {"title": "No url", "seendate": "20250310053000"}
  ]
}`

func TestFetchParsesArticles(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, `("Hashed" OR "해시드")`, q.Get("query"))
		require.Equal(t, "ArtList", q.Get("mode"))
		require.Equal(t, "json", q.Get("format"))
		require.Equal(t, "50", q.Get("maxrecords"))
		require.Equal(t, "HybridRel", q.Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(artListFixture))
	}))
	defer ts.Close()

	src := New(Config{Endpoint: ts.URL, Timeout: 5 * time.Second})
	require.Equal(t, SourceName, src.Name())

	items, err := src.Fetch(context.Background(), `("Hashed" OR "해시드")`)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.Equal(t, SourceName, items[0].Source)
	require.Equal(t, "https://example.com/a", items[0].URL)
	require.Equal(t, "2025-03-10T05:30:00Z", items[0].PublishedAtRaw)

	// Missing and malformed seendates are passed through empty, never
	// substituted with the current time.
	require.Empty(t, items[1].PublishedAtRaw)
	require.Empty(t, items[2].PublishedAtRaw)
}

func TestFetchRejectsTransientResponses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: "gdelt http 502",
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
			},
			wantErr: "gdelt empty response",
		},
		{
			name: "wrong content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html>rate limited</html>"))
			},
			wantErr: "non-json content type",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"articles": [`))
			},
			wantErr: "decode articles",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			src := New(Config{Endpoint: ts.URL, Timeout: 5 * time.Second})
			_, err := src.Fetch(context.Background(), `("Hashed")`)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNormalizeSeenDate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2025-03-10T05:30:00Z", normalizeSeenDate("20250310053000"))
	require.Empty(t, normalizeSeenDate(""))
	require.Empty(t, normalizeSeenDate("2025-03-10"))
}
