package monitor

import (
	"context"
	"time"
)

// Source fetches candidate items for the combined keyword query.
// Implementations return an error only for failures that survived their own
// transport-level checks; the runner treats it as a degraded source.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]RawItem, error)
}

// MentionStore persists mentions and exposes the previously-seen ID set.
type MentionStore interface {
	// LoadSeenIDs returns at most cap of the most recently fetched IDs.
	LoadSeenIDs(ctx context.Context, cap int) (map[string]struct{}, error)
	// AppendMentions inserts mentions append-only; an ID collision leaves
	// the existing row untouched (first writer wins).
	AppendMentions(ctx context.Context, mentions []Mention) error
}

// WatermarkStore persists the run cursor. LoadWatermark reports absence via
// the second return value rather than a sentinel time.
type WatermarkStore interface {
	LoadWatermark(ctx context.Context) (time.Time, bool, error)
	StoreWatermark(ctx context.Context, since time.Time) error
}

// Notifier delivers new mentions to the chat channel. Implementations carry
// their own retry for rate limiting and fail fast on anything else.
type Notifier interface {
	Notify(ctx context.Context, m Mention) error
	NotifyDigest(ctx context.Context, mentions []Mention) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Hasher computes digests for deduplication identity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
