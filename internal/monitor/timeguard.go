package monitor

import "time"

// DropReason explains why the time guard rejected an item. Every rejection is
// logged with its reason; there is no silent data loss.
type DropReason string

// Time-guard rejection reasons.
const (
	DropNoTimestamp     DropReason = "no_timestamp"
	DropBeforeWatermark DropReason = "before_watermark"
	DropBeforeDayStart  DropReason = "before_day_start"
	DropTooOld          DropReason = "too_old"
	DropInFuture        DropReason = "in_future"
	DropBadURL          DropReason = "bad_url"
)

// Window is the acceptance window for one run, computed once at run start.
//
// The watermark bound is exclusive: items published at or before the
// watermark were already considered. The day-start bound is inclusive.
type Window struct {
	Watermark time.Time // zero when absent
	DayStart  time.Time
	Floor     time.Time
	Upper     time.Time
}

// NewWindow computes the run's acceptance window. DayStart is the most recent
// local midnight in loc; Floor is now minus the lookback limit; Upper allows
// a small tolerance for source clock skew.
func NewWindow(now, watermark time.Time, loc *time.Location, maxLookback, futureTolerance time.Duration) Window {
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{
		Watermark: watermark,
		DayStart:  dayStart,
		Floor:     now.Add(-maxLookback),
		Upper:     now.Add(futureTolerance),
	}
}

// Accept reports whether publishedAt falls inside the window. An absent or
// unparseable timestamp (zero time) is rejected unconditionally: substituting
// "now" would make stale or malformed items look new.
func (w Window) Accept(publishedAt time.Time) (DropReason, bool) {
	if publishedAt.IsZero() {
		return DropNoTimestamp, false
	}
	if publishedAt.Before(w.Floor) {
		return DropTooOld, false
	}
	if publishedAt.After(w.Upper) {
		return DropInFuture, false
	}
	if !w.Watermark.IsZero() && !publishedAt.After(w.Watermark) {
		return DropBeforeWatermark, false
	}
	if publishedAt.Before(w.DayStart) {
		return DropBeforeDayStart, false
	}
	return "", true
}
