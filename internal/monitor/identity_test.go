package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashedlabs/mention-monitor/internal/hash/sha256"
)

func defaultPolicy() *IdentityPolicy {
	return NewIdentityPolicy(DefaultTrackingPrefixes, DefaultTrackingKeys, sha256.New())
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	policy := defaultPolicy()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fragment removed",
			in:   "https://example.com/story#section-2",
			want: "https://example.com/story",
		},
		{
			name: "utm parameters stripped",
			in:   "https://example.com/a?utm_source=x&utm_medium=email&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "tracking prefix is case insensitive",
			in:   "https://example.com/a?UTM_Campaign=spring&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "click ids stripped",
			in:   "https://example.com/a?gclid=abc&fbclid=def&q=hashed",
			want: "https://example.com/a?q=hashed",
		},
		{
			name: "host lowercased, path case preserved",
			in:   "https://News.Example.COM/Article/One",
			want: "https://news.example.com/Article/One",
		},
		{
			name: "survivor order preserved",
			in:   "https://example.com/a?z=1&utm_term=k&a=2&b=3",
			want: "https://example.com/a?z=1&a=2&b=3",
		},
		{
			name: "survivor encoding untouched",
			in:   "https://example.com/a?q=%ED%95%B4%EC%8B%9C%EB%93%9C&utm_source=rss",
			want: "https://example.com/a?q=%ED%95%B4%EC%8B%9C%EB%93%9C",
		},
		{
			name: "all parameters stripped leaves bare path",
			in:   "https://example.com/a?utm_source=x",
			want: "https://example.com/a",
		},
		{
			name: "no query or fragment is unchanged",
			in:   "https://example.com/plain/path",
			want: "https://example.com/plain/path",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := policy.Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComputeIDCollapsesEquivalentURLs(t *testing.T) {
	t.Parallel()

	policy := defaultPolicy()

	base, err := policy.ComputeID("GoogleNewsRSS", "https://example.com/story?id=1")
	require.NoError(t, err)
	require.Len(t, base, 64) // hex-rendered 256-bit digest

	equivalents := []string{
		"https://example.com/story?id=1#top",
		"https://example.com/story?id=1&utm_source=news&utm_medium=rss",
		"https://EXAMPLE.com/story?id=1",
		"https://example.com/story?id=1&fbclid=xyz&igshid=123",
	}
	for _, u := range equivalents {
		id, err := policy.ComputeID("GoogleNewsRSS", u)
		require.NoError(t, err)
		require.Equal(t, base, id, "url %q should collapse to the base identifier", u)
	}
}

func TestComputeIDDiscriminates(t *testing.T) {
	t.Parallel()

	policy := defaultPolicy()

	base, err := policy.ComputeID("GoogleNewsRSS", "https://example.com/story?id=1")
	require.NoError(t, err)

	otherSource, err := policy.ComputeID("GDELT", "https://example.com/story?id=1")
	require.NoError(t, err)
	require.NotEqual(t, base, otherSource, "source is part of identity")

	otherParam, err := policy.ComputeID("GoogleNewsRSS", "https://example.com/story?id=2")
	require.NoError(t, err)
	require.NotEqual(t, base, otherParam, "non-tracking parameters are part of identity")

	otherPath, err := policy.ComputeID("GoogleNewsRSS", "https://example.com/Story?id=1")
	require.NoError(t, err)
	require.NotEqual(t, base, otherPath, "path case is part of identity")
}

func TestCustomTrackingPolicy(t *testing.T) {
	t.Parallel()

	policy := NewIdentityPolicy([]string{"utm_", "pk_"}, []string{"spm"}, sha256.New())

	got, err := policy.Normalize("https://example.com/a?pk_campaign=c&spm=x.y&keep=1")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a?keep=1", got)

	// Keys outside the configured policy survive even if they look tracking-ish.
	got, err = policy.Normalize("https://example.com/a?gclid=abc")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a?gclid=abc", got)
}
