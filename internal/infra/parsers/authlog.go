package parsers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

var (
	syslogStampRe = regexp.MustCompile(`^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)
	isoStampRe    = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`)
)

type authPattern struct {
	re       *regexp.Regexp
	template string // %s is replaced by the captured user when present
}

// authPatterns are checked in order; the first match describes the line.
var authPatterns = []authPattern{
	// failed attempts
	{regexp.MustCompile(`(?i)Failed password for (?:invalid user )?(\S+)`), "Failed login attempt for user: %s"},
	{regexp.MustCompile(`(?i)authentication failure.*user=(\S+)`), "Authentication failure for user: %s"},
	{regexp.MustCompile(`(?i)FAILED LOGIN.*user=(\S+)`), "Failed login for user: %s"},

	// successful logins
	{regexp.MustCompile(`(?i)Accepted password for (\S+)`), "Successful login for user: %s"},
	{regexp.MustCompile(`(?i)Accepted publickey for (\S+)`), "Successful SSH key authentication for user: %s"},

	// sessions
	{regexp.MustCompile(`(?i)session opened for user (\S+)`), "Session opened for user: %s"},
	{regexp.MustCompile(`(?i)session closed for user (\S+)`), "Session closed for user: %s"},

	// lockouts
	{regexp.MustCompile(`(?i)Account locked.*user (\S+)`), "Account locked: %s"},
	{regexp.MustCompile(`(?i)account (\S+) locked`), "Account locked: %s"},

	// invalid or disallowed users
	{regexp.MustCompile(`(?i)Invalid user (\S+)`), "Invalid user login attempt: %s"},
	{regexp.MustCompile(`(?i)User (\S+) from .* not allowed`), "Unauthorized login attempt by user: %s"},

	// root
	{regexp.MustCompile(`(?i)root.*authentication failure`), "Failed root authentication attempt"},
	{regexp.MustCompile(`(?i)ROOT LOGIN.*refused`), "Root login refused"},

	// privilege use
	{regexp.MustCompile(`(?i)sudo:.*user (\S+).*COMMAND=`), "Sudo command executed by user: %s"},
	{regexp.MustCompile(`(?i)(\S+) : TTY=.*COMMAND=`), "Privileged command by user: %s"},

	// credential changes
	{regexp.MustCompile(`(?i)password changed for (\S+)`), "Password changed for user: %s"},
	{regexp.MustCompile(`(?i)New password for user (\S+)`), "Password reset for user: %s"},
}

// AuthLogParser extracts authentication events from Linux auth.log style files.
type AuthLogParser struct {
	// Now supplies the year for syslog stamps, which carry none.
	Now func() time.Time
}

func NewAuthLogParser() *AuthLogParser {
	return &AuthLogParser{Now: time.Now}
}

func (p *AuthLogParser) Parse(ctx context.Context, path string) ([]evidence.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.ParseReader(ctx, f)
}

// ParseReader reads r line by line. Lines that are not authentication
// related are ignored. Lines have no length limit. On a read error the events
// found so far are returned with it.
func (p *AuthLogParser) ParseReader(ctx context.Context, r io.Reader) ([]evidence.Event, error) {
	year := p.now().Year()

	var events []evidence.Event
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		line, err := br.ReadString('\n')
		if line != "" {
			if e, ok := ExtractAuthEvent(line, year); ok {
				events = append(events, e)
			}
		}
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("read auth log: %w", err)
		}
	}
}

func (p *AuthLogParser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// ExtractAuthEvent parses a single log line. ok is false when the line has no
// leading timestamp or matches no authentication pattern.
func ExtractAuthEvent(line string, year int) (evidence.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return evidence.Event{}, false
	}

	m := syslogStampRe.FindStringSubmatch(line)
	if m == nil {
		m = isoStampRe.FindStringSubmatch(line)
	}
	if m == nil {
		return evidence.Event{}, false
	}
	ts := NormalizeSyslogTimestamp(m[1], year)

	for _, pat := range authPatterns {
		match := pat.re.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		desc := pat.template
		if strings.Contains(desc, "%s") && len(match) > 1 {
			desc = fmt.Sprintf(desc, match[1])
		}
		return evidence.Event{
			Timestamp:   ts,
			Description: desc,
			Source:      evidence.SourceAuthLog,
		}, true
	}
	return evidence.Event{}, false
}

// NormalizeSyslogTimestamp converts "Jan 15 14:30:45" (using year) or an ISO
// stamp to ISO-8601. Anything else is returned as-is.
func NormalizeSyslogTimestamp(raw string, year int) string {
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.RFC3339Nano, strings.Replace(raw, "Z", "+00:00", 1)); err == nil {
		return t.Format(time.RFC3339Nano)
	}
	if t, err := time.Parse(isoLayout, raw); err == nil {
		return isoFormat(t)
	}

	compact := strings.Join(strings.Fields(raw), " ")
	// fractional seconds are accepted by the parser even without a layout field
	if t, err := time.Parse("Jan 2 15:04:05", compact); err == nil {
		d := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		if d.Month() != t.Month() {
			// Feb 29 outside a leap year
			return raw
		}
		return isoFormat(d)
	}
	return raw
}
