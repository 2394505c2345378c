// Package monitor implements the mention-monitoring pipeline: identity
// normalization, time-window filtering, deduplication, and the run state machine.
package monitor

import "time"

// RawItem is a candidate item as reported by a source, before any parsing.
// PublishedAtRaw carries the source's published string verbatim; an empty
// string means the source reported no timestamp.
type RawItem struct {
	Source         string
	Title          string
	URL            string
	PublishedAtRaw string
}

// Mention is a candidate item observed from a feed. ID is derived from the
// source tag and the normalized URL; title and published time are not part
// of identity. Persisted mentions are immutable and inserted at most once.
type Mention struct {
	ID          string
	Source      string
	Title       string
	URL         string
	PublishedAt time.Time // zero when absent or unparseable
	FetchedAt   time.Time
}

// SourceResult is the outcome of fetching one source. A degraded source
// carries its failure in Err and contributes no items; it never aborts a run.
type SourceResult struct {
	Source string
	Items  []RawItem
	Err    error
}

// RunState identifies the orchestrator's position in the run lifecycle.
type RunState string

// Run lifecycle states.
const (
	StateInit               RunState = "init"
	StateLoadingWatermark   RunState = "loading_watermark"
	StateBootstrap          RunState = "bootstrap"
	StateFetching           RunState = "fetching"
	StateFiltering          RunState = "filtering"
	StateDeduping           RunState = "deduping"
	StatePersisting         RunState = "persisting"
	StateNotifying          RunState = "notifying"
	StateAdvancingWatermark RunState = "advancing_watermark"
	StateDone               RunState = "done"
	StateFailed             RunState = "failed"
)

// RunReport summarizes a single run for logging and process exit handling.
type RunReport struct {
	RunID          string
	StartedAt      time.Time
	State          RunState
	Bootstrap      bool
	Fetched        int
	Dropped        int
	Fresh          int
	Skipped        int
	Notified       int
	Digested       int
	SourceFailures map[string]string
}
