package util

import (
	"strconv"
	"time"
)

// ParseTime accepts RFC3339, RFC3339Nano, or unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses s or falls back to def when empty or invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignFromTo truncates the range to bucket boundaries for the timeframe.
// Unknown timeframes align to days.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	bucket := 24 * time.Hour
	switch tf {
	case "1h":
		bucket = time.Hour
	case "1w":
		bucket = 7 * 24 * time.Hour
	}
	return from.Truncate(bucket), to.Truncate(bucket)
}
