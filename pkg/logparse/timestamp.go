package logparse

import (
	"strings"
	"time"
)

// nowFunc is the ingestion wall-clock, swappable in tests.
var nowFunc = time.Now

// timestampFormats are tried in order before the locale-general fallback.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02",
	time.Stamp,
	time.StampMilli,
	time.ANSIC,
	time.UnixDate,
}

// parseTimestamp tries the explicit formats in order. Comma decimal
// separators are normalized first. A false return means the caller should
// fall back to the ingestion wall-clock.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Replace(s, ",", ".", 1)
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
