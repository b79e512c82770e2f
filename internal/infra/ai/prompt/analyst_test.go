package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestGetSummaryPromptEmbedsTimeline(t *testing.T) {
	p := GetSummaryPrompt("[t] (browser) Visited URL: x", 0)
	assert.Contains(t, p, "digital forensic analyst")
	assert.Contains(t, p, "Timeline:\n[t] (browser) Visited URL: x")
	assert.True(t, strings.HasSuffix(p, "Investigation Summary:\n"))
}

func TestGetSummaryPromptTruncates(t *testing.T) {
	p := GetSummaryPrompt(strings.Repeat("a", 500), 100)
	assert.Equal(t, 100+len(truncatedMarker), len(p))
	assert.True(t, strings.HasSuffix(p, "...[Truncated]..."))
}

func TestGetSummaryPromptTruncatesByCharacter(t *testing.T) {
	p := GetSummaryPrompt(strings.Repeat("é", 500), 100)
	assert.True(t, utf8.ValidString(p))
	assert.Equal(t, 100+len(truncatedMarker), utf8.RuneCountInString(p))
}

func TestTruncate(t *testing.T) {
	out, cut := Truncate("日本語テキスト", 3)
	assert.True(t, cut)
	assert.Equal(t, "日本語", out)

	out, cut = Truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)

	out, cut = Truncate("abc", 0)
	assert.False(t, cut)
	assert.Equal(t, "abc", out)
}

func TestTimelineSection(t *testing.T) {
	p := GetSummaryPrompt("line one\nline two", 0)
	assert.Equal(t, "line one\nline two", TimelineSection(p))
	assert.Equal(t, "raw", TimelineSection("raw"))
}
