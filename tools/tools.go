package tools

import (
	"time"
)

const DateLayout = "2006-01-02"

// DaysUntil returns the whole days from now until the expiry given in
// milliseconds. Expired names give a negative count.
func DaysUntil(expirationDate int64, now time.Time) int {
	d := time.UnixMilli(expirationDate).Sub(now)
	return int(d.Hours() / 24)
}

// FormatExpiry renders a millisecond expiry as a date in loc, UTC when loc is nil.
func FormatExpiry(expirationDate int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(expirationDate).In(loc).Format(DateLayout)
}
