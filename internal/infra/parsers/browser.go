package parsers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

// browserLayouts covers the timestamp shapes seen in browser history exports.
var browserLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"02/01/2006 15:04:05",
	"20060102150405",
}

// NormalizeBrowserTimestamp converts a known browser timestamp to ISO-8601.
// Unrecognized input is returned trimmed but otherwise untouched.
func NormalizeBrowserTimestamp(raw string) string {
	if t, ok := parseFirst(raw, browserLayouts); ok {
		return isoFormat(t)
	}
	return strings.TrimSpace(raw)
}

// BrowserParser reads browser history CSV exports with a header row
// containing at least timestamp and url columns.
type BrowserParser struct{}

func NewBrowserParser() *BrowserParser { return &BrowserParser{} }

func (p *BrowserParser) Parse(ctx context.Context, path string) ([]evidence.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.ParseReader(ctx, f)
}

// ParseReader parses CSV content from r.
func (p *BrowserParser) ParseReader(ctx context.Context, r io.Reader) ([]evidence.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var events []evidence.Event
	for {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return events, fmt.Errorf("read csv row: %w", err)
		}

		ts := field(row, "timestamp")
		if ts == "" {
			continue
		}
		url := field(row, "url")
		if url == "" {
			continue
		}

		desc := "Visited URL: " + url
		if dl := field(row, "downloaded_file"); dl != "" {
			desc = "Downloaded file: " + dl
		}

		events = append(events, evidence.Event{
			Timestamp:   NormalizeBrowserTimestamp(ts),
			Description: desc,
			Source:      evidence.SourceBrowser,
		})
	}
	return events, nil
}
