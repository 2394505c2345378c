package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mention(source, url string) Mention {
	return Mention{
		Source:      source,
		Title:       "title",
		URL:         url,
		PublishedAt: time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC),
	}
}

func TestPartitionRoutesSeenToSkipped(t *testing.T) {
	t.Parallel()

	policy := defaultPolicy()
	filter := NewFilter(policy)

	seenID, err := policy.ComputeID("GoogleNewsRSS", "https://example.com/old")
	require.NoError(t, err)
	seen := map[string]struct{}{seenID: {}}

	candidates := []Mention{
		mention("GoogleNewsRSS", "https://example.com/old"),
		mention("GoogleNewsRSS", "https://example.com/new"),
	}

	fresh, skipped := filter.Partition(candidates, seen)
	require.Len(t, fresh, 1)
	require.Len(t, skipped, 1)
	require.Equal(t, "https://example.com/new", fresh[0].URL)
	require.Equal(t, "https://example.com/old", skipped[0].URL)
	require.NotEmpty(t, fresh[0].ID)
	require.NotEqual(t, seenID, fresh[0].ID)
}

func TestPartitionIsLosslessAndStable(t *testing.T) {
	t.Parallel()

	filter := NewFilter(defaultPolicy())

	candidates := []Mention{
		mention("GDELT", "https://a.example.com/1"),
		mention("GDELT", "https://a.example.com/2"),
		mention("GDELT", "https://a.example.com/3"),
		mention("GDELT", "https://a.example.com/4"),
	}

	fresh, skipped := filter.Partition(candidates, map[string]struct{}{})
	require.Len(t, fresh, 4)
	require.Empty(t, skipped)
	for i, m := range fresh {
		require.Equal(t, candidates[i].URL, m.URL, "fresh must preserve input order")
	}
}

func TestPartitionDedupsWithinBatch(t *testing.T) {
	t.Parallel()

	filter := NewFilter(defaultPolicy())

	// Same story under tracking-parameter and case variations, plus one
	// literal repeat: a single fresh entry must survive.
	candidates := []Mention{
		mention("GoogleNewsRSS", "https://example.com/story?id=1"),
		mention("GoogleNewsRSS", "https://example.com/story?id=1&utm_source=rss"),
		mention("GoogleNewsRSS", "https://EXAMPLE.com/story?id=1"),
		mention("GoogleNewsRSS", "https://example.com/story?id=1"),
	}

	fresh, skipped := filter.Partition(candidates, map[string]struct{}{})
	require.Len(t, fresh, 1)
	require.Len(t, skipped, 3)
	require.Equal(t, "https://example.com/story?id=1", fresh[0].URL, "first occurrence wins")
	require.Equal(t, len(candidates), len(fresh)+len(skipped))
}

func TestPartitionDoesNotMutateSeen(t *testing.T) {
	t.Parallel()

	filter := NewFilter(defaultPolicy())
	seen := map[string]struct{}{"preexisting": {}}

	filter.Partition([]Mention{
		mention("GDELT", "https://example.com/a"),
		mention("GDELT", "https://example.com/b"),
	}, seen)

	require.Len(t, seen, 1)
	_, ok := seen["preexisting"]
	require.True(t, ok)
}

func TestPartitionSkipsUnidentifiableCandidates(t *testing.T) {
	t.Parallel()

	filter := NewFilter(defaultPolicy())

	candidates := []Mention{
		mention("GDELT", "https://example.com/ok"),
		mention("GDELT", "http://bad url\x7f"),
	}

	fresh, skipped := filter.Partition(candidates, map[string]struct{}{})
	require.Len(t, fresh, 1)
	require.Len(t, skipped, 1)
	require.Empty(t, skipped[0].ID)
}
