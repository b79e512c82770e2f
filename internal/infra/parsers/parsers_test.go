package parsers

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNormalizeBrowserTimestamp(t *testing.T) {
	cases := map[string]string{
		"2024-01-15 14:30:45":        "2024-01-15T14:30:45",
		"2024-01-15T14:30:45":        "2024-01-15T14:30:45",
		"2024-01-15 14:30:45.123456": "2024-01-15T14:30:45.123456",
		"01/15/2024 14:30:45":        "2024-01-15T14:30:45",
		"01/15/2024 02:30:45 PM":     "2024-01-15T14:30:45",
		"15/01/2024 14:30:45":        "2024-01-15T14:30:45",
		"20240115143045":             "2024-01-15T14:30:45",
		"  last tuesday ":            "last tuesday",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBrowserTimestamp(in), in)
	}
}

func TestBrowserParser(t *testing.T) {
	csv := "timestamp,url,downloaded_file\n" +
		"2024-01-15 14:30:45,https://example.com,\n" +
		"2024-01-15 14:31:00,https://evil.example/payload,payload.exe\n" +
		",https://no-time.example,\n" +
		"2024-01-15 14:32:00,,\n"
	events, err := NewBrowserParser().Parse(context.Background(), writeFile(t, "history.csv", csv))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, evidence.Event{Timestamp: "2024-01-15T14:30:45", Description: "Visited URL: https://example.com", Source: "browser"}, events[0])
	assert.Equal(t, "Downloaded file: payload.exe", events[1].Description)
}

func TestBrowserParserEmptyFile(t *testing.T) {
	events, err := NewBrowserParser().ParseReader(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExtractAuthEvent(t *testing.T) {
	cases := []struct {
		line string
		desc string
		ts   string
	}{
		{"Jan 15 14:30:45 host sshd[1]: Failed password for invalid user admin from 10.0.0.1", "Failed login attempt for user: admin", "2024-01-15T14:30:45"},
		{"Jan  5 08:00:01 host sshd[1]: Accepted password for alice from 10.0.0.2", "Successful login for user: alice", "2024-01-05T08:00:01"},
		{"Jan 15 14:30:45 host sshd[1]: Accepted publickey for bob from 10.0.0.3", "Successful SSH key authentication for user: bob", "2024-01-15T14:30:45"},
		{"Jan 15 14:30:45 host sudo: pam_unix(sudo:session): session opened for user root", "Session opened for user: root", "2024-01-15T14:30:45"},
		{"Jan 15 14:30:45 host sshd[1]: Invalid user guest from 1.2.3.4", "Invalid user login attempt: guest", "2024-01-15T14:30:45"},
		{"Jan 15 14:30:45 host sudo:    carol : TTY=pts/0 ; PWD=/ ; USER=root ; COMMAND=/bin/sh", "Privileged command by user: carol", "2024-01-15T14:30:45"},
		{"Jan 15 14:30:45 host login: ROOT LOGIN on tty1 refused", "Root login refused", "2024-01-15T14:30:45"},
		{"2024-03-01T10:00:00 host passwd: password changed for dave", "Password changed for user: dave", "2024-03-01T10:00:00"},
	}
	for _, tc := range cases {
		e, ok := ExtractAuthEvent(tc.line, 2024)
		require.True(t, ok, tc.line)
		assert.Equal(t, tc.desc, e.Description, tc.line)
		assert.Equal(t, tc.ts, e.Timestamp, tc.line)
		assert.Equal(t, evidence.SourceAuthLog, e.Source)
	}
}

func TestExtractAuthEventIgnoresNoise(t *testing.T) {
	for _, line := range []string{
		"",
		"no timestamp Failed password for root",
		"Jan 15 14:30:45 host cron[2]: job started",
	} {
		_, ok := ExtractAuthEvent(line, 2024)
		assert.False(t, ok, line)
	}
}

func TestAuthLogParserUsesClockYear(t *testing.T) {
	p := &AuthLogParser{Now: func() time.Time { return time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC) }}
	events, err := p.ParseReader(context.Background(), strings.NewReader(
		"Feb 03 10:44:12 host sshd[9]: Failed password for root from 5.6.7.8\nrandom line\n"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2019-02-03T10:44:12", events[0].Timestamp)
}

func TestAuthLogParserOversizedLine(t *testing.T) {
	p := &AuthLogParser{Now: func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }}
	log := "Jan 15 14:30:45 host sshd[1]: Failed password for root from 1.2.3.4\n" +
		strings.Repeat("A", 2<<20) + "\n" +
		"Jan 15 14:31:00 host sshd[1]: Accepted password for alice from 1.2.3.4\n"

	events, err := p.Parse(context.Background(), writeFile(t, "auth.log", log))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Failed login attempt for user: root", events[0].Description)
	assert.Equal(t, "Successful login for user: alice", events[1].Description)
}

func TestAuthLogParserReadErrorKeepsEvents(t *testing.T) {
	p := &AuthLogParser{Now: func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }}
	r := io.MultiReader(
		strings.NewReader("Jan 15 14:30:45 host sshd[1]: Failed password for root from 1.2.3.4\n"),
		iotest.ErrReader(errors.New("disk gone")),
	)

	events, err := p.ParseReader(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	require.Len(t, events, 1)
	assert.Equal(t, "2024-01-15T14:30:45", events[0].Timestamp)
}

func TestNormalizeSyslogTimestampLeapDay(t *testing.T) {
	assert.Equal(t, "2024-02-29T08:00:00", NormalizeSyslogTimestamp("Feb 29 08:00:00", 2024))
	assert.Equal(t, "Feb 29 08:00:00", NormalizeSyslogTimestamp("Feb 29 08:00:00", 2023))
}

func TestBinaryParser(t *testing.T) {
	path := writeFile(t, "dropper.exe", "hello")
	events, err := NewBinaryParser().Parse(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	// sha256("hello") = 2cf24dba5f...
	assert.Equal(t, "Suspicious file created (SHA256: 2cf24dba5f...)", events[0].Description)
	assert.Equal(t, evidence.SourceFileSystem, events[0].Source)
	_, err = time.Parse(time.ANSIC, events[0].Timestamp)
	assert.NoError(t, err)
}

func TestRouterKinds(t *testing.T) {
	assert.Equal(t, evidence.KindBrowser, KindFor("History.CSV"))
	assert.Equal(t, evidence.KindAuthLog, KindFor("auth.log"))
	assert.Equal(t, evidence.KindAuthLog, KindFor("notes.txt"))
	assert.Equal(t, evidence.KindBinary, KindFor("evil.dll"))
	assert.Equal(t, evidence.KindUnsupported, KindFor("photo.png"))
}

func TestRouterFallsBackToBinaryForDisguisedLogs(t *testing.T) {
	r := NewRouter()
	path := writeFile(t, "payload.exe.txt", "MZ\x90\x00 not a log")
	kind, events, err := r.Parse(context.Background(), "payload.exe.txt", path)
	require.NoError(t, err)
	assert.Equal(t, evidence.KindBinary, kind)
	require.Len(t, events, 1)
	assert.Equal(t, evidence.SourceFileSystem, events[0].Source)
}

func TestRouterFallsBackToBinaryForOversizedPayload(t *testing.T) {
	path := writeFile(t, "payload.exe.log", strings.Repeat("\x90", 2<<20))
	kind, events, err := NewRouter().Parse(context.Background(), "payload.exe.log", path)
	require.NoError(t, err)
	assert.Equal(t, evidence.KindBinary, kind)
	require.Len(t, events, 1)
	assert.Equal(t, evidence.SourceFileSystem, events[0].Source)
}

type stubParser struct {
	events []evidence.Event
	err    error
}

func (s stubParser) Parse(ctx context.Context, path string) ([]evidence.Event, error) {
	return s.events, s.err
}

func TestRouterFallsBackToBinaryWhenLogReadFails(t *testing.T) {
	r := NewRouter()
	r.AuthLog = stubParser{err: errors.New("read auth log: broken")}
	path := writeFile(t, "dropper.bin.txt", "MZ")

	kind, events, err := r.Parse(context.Background(), "dropper.bin.txt", path)
	require.NoError(t, err)
	assert.Equal(t, evidence.KindBinary, kind)
	assert.Len(t, events, 1)
}

func TestRouterKeepsPartialLogEvents(t *testing.T) {
	r := NewRouter()
	partial := []evidence.Event{{Timestamp: "2024-01-15T14:30:45", Description: "Failed login attempt for user: root", Source: evidence.SourceAuthLog}}
	r.AuthLog = stubParser{events: partial, err: errors.New("read auth log: broken")}

	kind, events, err := r.Parse(context.Background(), "payload.exe.log", "/unused")
	require.Error(t, err)
	assert.Equal(t, evidence.KindAuthLog, kind)
	assert.Equal(t, partial, events)
}

func TestRouterUnsupported(t *testing.T) {
	kind, events, err := NewRouter().Parse(context.Background(), "image.png", "/does/not/matter")
	require.NoError(t, err)
	assert.Equal(t, evidence.KindUnsupported, kind)
	assert.Empty(t, events)
}
