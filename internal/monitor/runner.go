package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"
)

// RunnerConfig carries the orchestration knobs for one deployment. It is
// constructed once at process start and passed in; the runner holds no
// ambient global state.
type RunnerConfig struct {
	// Query is the combined OR-query sent to every source.
	Query string
	// NotifyCap bounds individual notifications per run; the remainder is
	// sent as a single digest.
	NotifyCap int
	// SeenCap bounds the seen-ID set loaded from the store.
	SeenCap int
	// FetchAttempts bounds per-source fetch retries.
	FetchAttempts int
	// FetchRetryDelay is the base delay between attempts; the wait grows
	// linearly with the attempt number.
	FetchRetryDelay time.Duration
	// Location is the fixed zone used to compute the local day start.
	Location *time.Location
	// MaxLookback is the absolute floor: items published earlier are
	// rejected regardless of the watermark.
	MaxLookback time.Duration
	// FutureTolerance allows small source clock skew past "now".
	FutureTolerance time.Duration
}

// RunnerDeps wires the collaborators into the orchestrator.
type RunnerDeps struct {
	Sources   []Source
	Store     MentionStore
	Watermark WatermarkStore
	Notifier  Notifier
	Filter    *Filter
	Clock     Clock
	IDs       IDGenerator
	Logger    *zap.Logger
}

// Runner drives a single monitoring run through the state machine
// INIT → LOADING_WATERMARK → {BOOTSTRAP | FETCHING} → FILTERING → DEDUPING →
// PERSISTING → NOTIFYING → ADVANCING_WATERMARK → DONE, with FAILED absorbing.
//
// Runs are strictly sequential; the caller is responsible for never
// overlapping two runs against the same stores.
type Runner struct {
	cfg       RunnerConfig
	sources   []Source
	store     MentionStore
	watermark WatermarkStore
	notifier  Notifier
	filter    *Filter
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(cfg RunnerConfig, deps RunnerDeps) *Runner {
	if cfg.NotifyCap <= 0 {
		cfg.NotifyCap = 10
	}
	if cfg.SeenCap <= 0 {
		cfg.SeenCap = 5000
	}
	if cfg.FetchAttempts <= 0 {
		cfg.FetchAttempts = 3
	}
	if cfg.FetchRetryDelay <= 0 {
		cfg.FetchRetryDelay = 2 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxLookback <= 0 {
		cfg.MaxLookback = 7 * 24 * time.Hour
	}
	if cfg.FutureTolerance <= 0 {
		cfg.FutureTolerance = 5 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		sources:   deps.Sources,
		store:     deps.Store,
		watermark: deps.Watermark,
		notifier:  deps.Notifier,
		filter:    deps.Filter,
		clock:     deps.Clock,
		ids:       deps.IDs,
		logger:    logger,
	}
}

// Run executes one full monitoring cycle. The returned report is valid on
// both success and failure; on failure its State is StateFailed and the
// watermark has not been advanced.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	start := r.clock.Now()
	runID, err := r.ids.NewID()
	if err != nil {
		return RunReport{State: StateFailed}, fmt.Errorf("generate run id: %w", err)
	}
	report := RunReport{
		RunID:          runID,
		StartedAt:      start,
		State:          StateInit,
		SourceFailures: map[string]string{},
	}
	log := r.logger.With(zap.String("run_id", runID))

	report.State = StateLoadingWatermark
	watermark, present, err := r.watermark.LoadWatermark(ctx)
	if err != nil {
		return r.fail(&report, log, fmt.Errorf("%w: load watermark: %v", ErrPersistence, err))
	}

	if !present {
		// Cold start: seed the watermark and notify nothing, otherwise every
		// historical match would fire at once.
		report.State = StateBootstrap
		report.Bootstrap = true
		if err := r.watermark.StoreWatermark(ctx, start); err != nil {
			return r.fail(&report, log, fmt.Errorf("%w: seed watermark: %v", ErrPersistence, err))
		}
		report.State = StateDone
		RunsTotal.WithLabelValues("bootstrap").Inc()
		log.Info("bootstrap run: watermark seeded, no notifications sent",
			zap.Time("watermark", start))
		return report, nil
	}

	report.State = StateFetching
	merged := r.fetchAll(ctx, &report, log)
	report.Fetched = len(merged)

	report.State = StateFiltering
	window := NewWindow(start, watermark, r.cfg.Location, r.cfg.MaxLookback, r.cfg.FutureTolerance)
	candidates := r.applyTimeGuard(merged, start, window, &report, log)

	report.State = StateDeduping
	seen, err := r.store.LoadSeenIDs(ctx, r.cfg.SeenCap)
	if err != nil {
		return r.fail(&report, log, fmt.Errorf("%w: load seen ids: %v", ErrPersistence, err))
	}
	fresh, skipped := r.filter.Partition(candidates, seen)
	report.Fresh = len(fresh)
	report.Skipped = len(skipped)
	MentionsFresh.Add(float64(len(fresh)))

	// Persist before notifying: the store, not notification success, is the
	// source of truth for "already handled".
	report.State = StatePersisting
	if len(fresh) > 0 {
		if err := r.store.AppendMentions(ctx, fresh); err != nil {
			return r.fail(&report, log, fmt.Errorf("%w: append mentions: %v", ErrPersistence, err))
		}
	}

	report.State = StateNotifying
	if err := r.notifyFresh(ctx, fresh, &report, log); err != nil {
		return r.fail(&report, log, err)
	}

	report.State = StateAdvancingWatermark
	if err := r.watermark.StoreWatermark(ctx, start); err != nil {
		return r.fail(&report, log, fmt.Errorf("%w: advance watermark: %v", ErrPersistence, err))
	}

	report.State = StateDone
	RunsTotal.WithLabelValues("success").Inc()
	log.Info("run complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("dropped", report.Dropped),
		zap.Int("fresh", report.Fresh),
		zap.Int("skipped", report.Skipped),
		zap.Int("notified", report.Notified),
		zap.Int("digested", report.Digested),
		zap.Time("watermark", start))
	return report, nil
}

func (r *Runner) fail(report *RunReport, log *zap.Logger, err error) (RunReport, error) {
	failedAt := report.State
	report.State = StateFailed
	RunsTotal.WithLabelValues("failure").Inc()
	log.Error("run failed", zap.String("stage", string(failedAt)), zap.Error(err))
	return *report, err
}

// fetchAll invokes each source in configured order with bounded retry. A
// source that exhausts its retries degrades to an empty result set; it never
// aborts the run. Results are merged deterministically in source order.
func (r *Runner) fetchAll(ctx context.Context, report *RunReport, log *zap.Logger) []RawItem {
	var merged []RawItem
	for _, src := range r.sources {
		items, err := r.fetchWithRetry(ctx, src, log)
		if err != nil {
			report.SourceFailures[src.Name()] = err.Error()
			SourceFailures.WithLabelValues(src.Name()).Inc()
			log.Warn("source degraded to empty result set",
				zap.String("source", src.Name()),
				zap.Int("attempts", r.cfg.FetchAttempts),
				zap.Error(err))
			continue
		}
		MentionsFetched.WithLabelValues(src.Name()).Add(float64(len(items)))
		log.Info("source fetched",
			zap.String("source", src.Name()),
			zap.Int("items", len(items)))
		merged = append(merged, items...)
	}
	return merged
}

func (r *Runner) fetchWithRetry(ctx context.Context, src Source, log *zap.Logger) ([]RawItem, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.FetchAttempts; attempt++ {
		if attempt > 1 {
			// Short increasing delay between attempts; this is a low
			// frequency batch job, so blocking the run is acceptable.
			wait := r.cfg.FetchRetryDelay * time.Duration(attempt-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		items, err := src.Fetch(ctx, r.cfg.Query)
		if err == nil {
			return items, nil
		}
		lastErr = err
		log.Warn("source fetch attempt failed",
			zap.String("source", src.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// applyTimeGuard parses each item's published time and applies the acceptance
// window. Every dropped item is logged with its reason.
func (r *Runner) applyTimeGuard(items []RawItem, fetchedAt time.Time, window Window, report *RunReport, log *zap.Logger) []Mention {
	candidates := make([]Mention, 0, len(items))
	for _, raw := range items {
		published := parsePublished(raw.PublishedAtRaw)
		if reason, ok := window.Accept(published); !ok {
			report.Dropped++
			MentionsDropped.WithLabelValues(string(reason)).Inc()
			log.Debug("item dropped by time guard",
				zap.String("source", raw.Source),
				zap.String("url", raw.URL),
				zap.String("reason", string(reason)),
				zap.String("published_at_raw", raw.PublishedAtRaw))
			continue
		}
		candidates = append(candidates, Mention{
			Source:      raw.Source,
			Title:       raw.Title,
			URL:         raw.URL,
			PublishedAt: published.UTC(),
			FetchedAt:   fetchedAt,
		})
	}
	return candidates
}

func (r *Runner) notifyFresh(ctx context.Context, fresh []Mention, report *RunReport, log *zap.Logger) error {
	direct := fresh
	var overflow []Mention
	if len(fresh) > r.cfg.NotifyCap {
		direct = fresh[:r.cfg.NotifyCap]
		overflow = fresh[r.cfg.NotifyCap:]
	}
	for _, m := range direct {
		if err := r.notifier.Notify(ctx, m); err != nil {
			return fmt.Errorf("%w: notify %s: %v", ErrNotification, m.ID, err)
		}
		report.Notified++
		NotificationsSent.WithLabelValues("alert").Inc()
	}
	if len(overflow) > 0 {
		// One summarized digest for everything past the cap, not one message
		// per item; this bounds notification volume on batch spikes.
		if err := r.notifier.NotifyDigest(ctx, overflow); err != nil {
			return fmt.Errorf("%w: notify digest: %v", ErrNotification, err)
		}
		report.Digested = len(overflow)
		NotificationsSent.WithLabelValues("digest").Inc()
		log.Info("digest sent", zap.Int("mentions", len(overflow)))
	}
	return nil
}

// parsePublished parses a feed-reported published string. It returns the zero
// time for an empty or unparseable value; the time guard then rejects the
// item. The current time is never substituted.
func parsePublished(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
