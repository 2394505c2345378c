package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MentionsFetched tracks raw items returned per source, before filtering.
	MentionsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_mentions_fetched_total",
		Help: "Raw items fetched, labeled by source.",
	}, []string{"source"})
	// MentionsDropped tracks items rejected by the time guard or identity stage.
	MentionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_mentions_dropped_total",
		Help: "Items dropped before dedup, labeled by reason.",
	}, []string{"reason"})
	// MentionsFresh tracks items that survived dedup and were persisted.
	MentionsFresh = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_mentions_fresh_total",
		Help: "New mentions persisted.",
	})
	// NotificationsSent tracks chat deliveries, labeled alert or digest.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_notifications_sent_total",
		Help: "Notifications delivered, labeled by kind.",
	}, []string{"kind"})
	// SourceFailures tracks sources that degraded to empty after retries.
	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_source_failures_total",
		Help: "Source fetches that failed after all retry attempts.",
	}, []string{"source"})
	// RunsTotal tracks completed runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_runs_total",
		Help: "Runs executed, labeled by result.",
	}, []string{"result"})
)
