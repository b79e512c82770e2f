// Package timeline normalizes event timestamps from every artifact and
// merges them into one chronological sequence. It performs deterministic
// analysis only.
package timeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

const (
	UnknownTimestamp = "UNKNOWN"
	UnknownTime      = "UNKNOWN_TIME"
	displayLayout    = "2006-01-02 15:04:05"
)

// layouts are tried in order; the first that parses wins.
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"02/01/2006 15:04:05",
	time.Stamp, // auth.log style (Feb 03 10:44:12)
	time.ANSIC,
}

// ParseTimestamp returns the zero time when no known layout matches.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			// yearless syslog stamp: keep it after unknown events
			t = time.Date(1, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		}
		return t
	}
	return time.Time{}
}

// Build normalizes every event and sorts them chronologically. Events whose
// timestamps cannot be parsed sort first, in their original order.
func Build(events []evidence.Event) []evidence.Event {
	out := make([]evidence.Event, 0, len(events))
	for _, e := range events {
		ts := e.Timestamp
		if strings.TrimSpace(ts) == "" {
			ts = UnknownTimestamp
		}
		src := e.Source
		if strings.TrimSpace(src) == "" {
			src = evidence.SourceUnknown
		}
		out = append(out, evidence.Event{
			Timestamp:   ts,
			Description: e.Description,
			Source:      src,
			ParsedTime:  ParseTimestamp(e.Timestamp),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ParsedTime.Before(out[j].ParsedTime)
	})
	return out
}

// Format renders the timeline as human-readable lines for reports and CLI output.
func Format(events []evidence.Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		ts := UnknownTime
		if !e.ParsedTime.IsZero() {
			ts = e.ParsedTime.Format(displayLayout)
		}
		lines = append(lines, fmt.Sprintf("[%s] (%s) %s", ts, e.Source, e.Description))
	}
	return strings.Join(lines, "\n")
}
