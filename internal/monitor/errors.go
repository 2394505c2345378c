package monitor

import "errors"

// Run-level failure classes. Per-source and per-item failures are contained
// and logged; these propagate to the caller as an unsuccessful run outcome.
var (
	// ErrPersistence marks a mention-store or watermark-store failure. The
	// run aborts without advancing the watermark so the next run retries the
	// same window.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotification marks a chat delivery failure after the notifier's own
	// retries. Remaining notifications are halted; persisted mentions stand.
	ErrNotification = errors.New("notification failure")
)
