// Package offline provides a deterministic, rule based summarizer used when
// no LLM provider is configured. It reads the same prompt an LLM would.
package offline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bryanwahyu/forensiq/internal/infra/ai/prompt"
)

var lineRe = regexp.MustCompile(`^\[([^\]]*)\] \(([^)]*)\) (.*)$`)

// bruteForceThreshold is the number of failures for one user that, followed
// by a success, reads as a brute force.
const bruteForceThreshold = 3

type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) Summarize(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return AnalyzeTimeline(prompt.TimelineSection(p)), nil
}

type finding struct {
	severity string
	text     string
}

// AnalyzeTimeline inspects "[ts] (source) description" lines and writes a
// short investigation narrative.
func AnalyzeTimeline(text string) string {
	perSource := map[string]int{}
	failedByUser := map[string]int{}
	var (
		total      int
		failed     int
		success    int
		privileged []string
		downloads  []string
		binaries   []string
		accountOps []string
		sequence   []string
		firstTS    string
		lastTS     string
	)

	suspiciousExt := regexp.MustCompile(`(?i)\.(exe|dll|bin|scr|bat|ps1|sh|js|vbs|msi)\b`)
	userOf := func(desc string) string {
		if i := strings.LastIndex(desc, ": "); i >= 0 {
			return strings.TrimSpace(desc[i+2:])
		}
		return ""
	}

	for _, raw := range strings.Split(text, "\n") {
		m := lineRe.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		ts, src, desc := m[1], m[2], m[3]
		total++
		perSource[src]++
		if firstTS == "" {
			firstTS = ts
		}
		lastTS = ts

		switch {
		case strings.HasPrefix(desc, "Failed login"),
			strings.HasPrefix(desc, "Authentication failure"),
			strings.HasPrefix(desc, "Invalid user login attempt"),
			strings.HasPrefix(desc, "Unauthorized login attempt"),
			strings.HasPrefix(desc, "Failed root authentication"):
			failed++
			failedByUser[userOf(desc)]++

		case strings.HasPrefix(desc, "Successful"):
			success++
			user := userOf(desc)
			if failedByUser[user] >= bruteForceThreshold {
				sequence = append(sequence, fmt.Sprintf("%d failed attempts against %q were followed by a successful login at %s", failedByUser[user], user, ts))
			}

		case strings.HasPrefix(desc, "Sudo command"), strings.HasPrefix(desc, "Privileged command"):
			privileged = append(privileged, fmt.Sprintf("%s at %s", desc, ts))

		case strings.HasPrefix(desc, "Password changed"), strings.HasPrefix(desc, "Password reset"), strings.HasPrefix(desc, "Account locked"):
			accountOps = append(accountOps, fmt.Sprintf("%s at %s", desc, ts))

		case strings.HasPrefix(desc, "Downloaded file:"):
			if suspiciousExt.MatchString(desc) {
				downloads = append(downloads, fmt.Sprintf("%s at %s", strings.TrimPrefix(desc, "Downloaded file: "), ts))
			}

		case strings.HasPrefix(desc, "Suspicious file created"):
			binaries = append(binaries, fmt.Sprintf("%s (%s)", desc, ts))
		}
	}

	if total == 0 {
		return "No timeline events were available for analysis."
	}

	findings := make([]finding, 0, 8)
	add := func(sev, format string, args ...any) {
		findings = append(findings, finding{severity: sev, text: fmt.Sprintf(format, args...)})
	}

	for _, s := range sequence {
		add("critical", "Possible brute force: %s.", s)
	}
	if failed > 0 {
		add("high", "%d failed or invalid authentication attempt(s) recorded.", failed)
	}
	if len(privileged) > 0 {
		add("high", "Privileged command execution: %s.", strings.Join(limit(privileged, 3), "; "))
	}
	if len(downloads) > 0 {
		add("high", "Executable content downloaded: %s.", strings.Join(limit(downloads, 3), "; "))
	}
	if len(binaries) > 0 {
		add("medium", "Suspicious binaries present: %s.", strings.Join(limit(binaries, 3), "; "))
	}
	if len(accountOps) > 0 {
		add("medium", "Account changes: %s.", strings.Join(limit(accountOps, 3), "; "))
	}
	if success > 0 && len(sequence) == 0 {
		add("info", "%d successful login(s) without a preceding failure burst.", success)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Observed %d event(s) between %s and %s from %s.\n", total, firstTS, lastTS, sourceSummary(perSource))

	if len(findings) == 0 {
		b.WriteString("\nNo suspicious behavior matched the offline rules; review the timeline manually.")
		return b.String()
	}

	b.WriteString("\nFindings:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- [%s] %s\n", f.severity, f.text)
	}

	b.WriteString("\nAssessment: ")
	switch {
	case len(sequence) > 0 && (len(privileged) > 0 || len(downloads) > 0 || len(binaries) > 0):
		b.WriteString("the sequence is consistent with credential compromise followed by post-exploitation activity. Treat the host as compromised.")
	case len(sequence) > 0:
		b.WriteString("credentials were likely guessed. Rotate the affected account and review its sessions.")
	case len(downloads) > 0 || len(binaries) > 0:
		b.WriteString("malicious payload delivery is possible. Hash-check the binaries against threat intelligence.")
	default:
		b.WriteString("activity warrants review but shows no confirmed compromise.")
	}
	return b.String()
}

func sourceSummary(perSource map[string]int) string {
	keys := make([]string, 0, len(perSource))
	for k := range perSource {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s (%d)", k, perSource[k]))
	}
	return strings.Join(parts, ", ")
}

func limit(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	out := append([]string{}, items[:n]...)
	return append(out, fmt.Sprintf("and %d more", len(items)-n))
}
