package output

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Size renders a byte count with IEC units ("1.5 MiB").
func Size(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

// Count renders an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Ago renders t relative to now ("3 hours ago"). The zero time renders as "-".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
