package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

func TestParseTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-15 14:30:45":        time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC),
		"2024-01-15T14:30:45":        time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC),
		"2024-01-15T14:30:45.123456": time.Date(2024, 1, 15, 14, 30, 45, 123456000, time.UTC),
		"15/01/2024 14:30:45":        time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC),
		"Mon Jan 15 14:30:45 2024":   time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC),
		"Mon Jan  8 14:30:45 2024":   time.Date(2024, 1, 8, 14, 30, 45, 0, time.UTC),
	}
	for raw, want := range cases {
		got := ParseTimestamp(raw)
		assert.True(t, want.Equal(got), "%q: want %s got %s", raw, want, got)
	}
}

func TestParseTimestampYearlessStamp(t *testing.T) {
	got := ParseTimestamp("Feb 03 10:44:12")
	require.False(t, got.IsZero())
	assert.Equal(t, 1, got.Year())
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestParseTimestampUnknown(t *testing.T) {
	assert.True(t, ParseTimestamp("yesterday-ish").IsZero())
	assert.True(t, ParseTimestamp("").IsZero())
}

func TestBuildSortsChronologicallyAndKeepsUnknownFirst(t *testing.T) {
	events := []evidence.Event{
		{Timestamp: "2024-01-15T14:30:45", Description: "late", Source: "browser"},
		{Timestamp: "garbage", Description: "unknown-1", Source: "auth_log"},
		{Timestamp: "2024-01-15 09:00:00", Description: "early", Source: "auth_log"},
		{Timestamp: "", Description: "unknown-2"},
	}

	got := Build(events)
	require.Len(t, got, 4)
	assert.Equal(t, "unknown-1", got[0].Description)
	assert.Equal(t, "unknown-2", got[1].Description)
	assert.Equal(t, UnknownTimestamp, got[1].Timestamp)
	assert.Equal(t, evidence.SourceUnknown, got[1].Source)
	assert.Equal(t, "early", got[2].Description)
	assert.Equal(t, "late", got[3].Description)
}

func TestFormat(t *testing.T) {
	got := Format(Build([]evidence.Event{
		{Timestamp: "2024-01-15T14:30:45", Description: "Visited URL: http://x", Source: "browser"},
		{Timestamp: "nope", Description: "odd", Source: "file_system"},
	}))
	assert.Equal(t, "[UNKNOWN_TIME] (file_system) odd\n[2024-01-15 14:30:45] (browser) Visited URL: http://x", got)
}
