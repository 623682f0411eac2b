package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ENSWatch/domain"
)

// NotificationWindow is how far ahead of expiry a name counts as expiring soon.
const NotificationWindow = 7 * 24 * time.Hour

// StaleEntry is a watched name whose stored expiry no longer matches the registrar.
type StaleEntry struct {
	Label  string        `json:"label"`
	Stored domain.Record `json:"stored"`
	Fresh  domain.Record `json:"fresh"`
}

// RefreshFailure records a label that could not be re-resolved this cycle.
type RefreshFailure struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// FindExpiringSoon returns, in watchlist order, the labels with
// now < expirationDate <= now+NotificationWindow. Already expired names are left
// to the refresh path.
func FindExpiringSoon(w *domain.Watchlist, now time.Time) []string {
	var out []string
	if w == nil {
		return out
	}
	nowMs := now.UnixMilli()
	limit := nowMs + NotificationWindow.Milliseconds()
	w.Range(func(label string, rec domain.Record) bool {
		if rec.ExpirationDate > nowMs && rec.ExpirationDate <= limit {
			out = append(out, label)
		}
		return true
	})
	return out
}

// FindStale re-resolves every watched label, one at a time, and returns those
// whose fresh expiry differs from the stored one. A label that fails to resolve
// is reported in the failures and skipped; it never stops the scan.
func FindStale(ctx context.Context, w *domain.Watchlist, resolver LabelResolver, logger *zap.Logger) ([]StaleEntry, []RefreshFailure) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		stale    []StaleEntry
		failures []RefreshFailure
	)
	if w == nil {
		return stale, failures
	}

	for _, label := range w.Labels() {
		if ctx.Err() != nil {
			failures = append(failures, RefreshFailure{Label: label, Reason: ctx.Err().Error(), Err: ctx.Err()})
			continue
		}
		stored, _ := w.Get(label)

		fresh, err := resolver.ResolveLabel(ctx, label)
		if err != nil {
			logger.Warn("refresh failed", zap.String("label", label), zap.Error(err))
			refreshFailures.Inc()
			failures = append(failures, RefreshFailure{Label: label, Reason: err.Error(), Err: err})
			continue
		}
		if fresh.ExpirationDate != stored.ExpirationDate {
			logger.Info("stale expiry",
				zap.String("label", label),
				zap.Int64("stored", stored.ExpirationDate),
				zap.Int64("fresh", fresh.ExpirationDate))
			stale = append(stale, StaleEntry{Label: label, Stored: stored, Fresh: fresh})
		}
	}
	return stale, failures
}
