package prompt

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxPromptChars keeps a prompt inside a ~4k token context window.
const DefaultMaxPromptChars = 12000

const truncatedMarker = "\n...[Truncated]..."

// GetSystemPrompt sets the assistant persona for chat style providers.
func GetSystemPrompt() string {
	return "You are a digital forensics report assistant. Summarize strictly based on the provided data; do not speculate or infer missing details."
}

// GetSummaryPrompt wraps one batch of timeline lines in the analyst
// instruction. Prompts longer than maxChars are cut and marked.
func GetSummaryPrompt(timelineText string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}

	var b strings.Builder
	b.WriteString(`
You are a digital forensic analyst.

Based on the following forensic timeline, write a clear and concise
incident investigation summary. Identify suspicious behavior,
possible attack sequence, and attacker intent.

Timeline:
`)
	b.WriteString(timelineText)
	b.WriteString("\n\nInvestigation Summary:\n")

	out, cut := Truncate(b.String(), maxChars)
	if cut {
		out += truncatedMarker
	}
	return out
}

// Truncate keeps the first n characters of s. It never splits a multi-byte
// rune. cut reports whether anything was dropped.
func Truncate(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// TimelineSection extracts the timeline lines back out of a summary prompt.
// Offline providers use it to avoid re-reading instructions as evidence.
func TimelineSection(p string) string {
	start := strings.Index(p, "Timeline:\n")
	if start < 0 {
		return p
	}
	body := p[start+len("Timeline:\n"):]
	if end := strings.Index(body, "\n\nInvestigation Summary:"); end >= 0 {
		body = body[:end]
	}
	return body
}
