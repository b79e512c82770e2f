package parsers

import (
	"strings"
	"time"
)

const (
	isoLayout      = "2006-01-02T15:04:05"
	isoMicroLayout = "2006-01-02T15:04:05.000000"
)

// isoFormat renders t without a zone, with microseconds only when present.
func isoFormat(t time.Time) string {
	if t.Nanosecond()/1000 != 0 {
		return t.Format(isoMicroLayout)
	}
	return t.Format(isoLayout)
}

// parseFirst tries each layout in order against the trimmed input.
func parseFirst(raw string, layouts []string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
