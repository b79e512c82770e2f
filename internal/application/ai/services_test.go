package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	failOn  map[int]bool
}

func (f *fakeClient) Summarize(ctx context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	n := len(f.prompts)
	if f.failOn[n] {
		return "", errors.New("model crashed")
	}
	return fmt.Sprintf("summary %d", n), nil
}

func events(n int) []evidence.Event {
	out := make([]evidence.Event, n)
	for i := range out {
		out[i] = evidence.Event{Timestamp: fmt.Sprintf("2024-01-01T00:00:%02d", i%60), Source: "auth_log", Description: fmt.Sprintf("event %d", i)}
	}
	return out
}

func TestReportBatchesTimeline(t *testing.T) {
	fc := &fakeClient{}
	svc := NewService(fc, zerolog.Nop())

	report, err := svc.Report(context.Background(), events(65))
	require.NoError(t, err)
	require.Len(t, fc.prompts, 3)
	assert.Contains(t, report, "#### Analysis Phase 1 (Events 0-30)\nsummary 1")
	assert.Contains(t, report, "#### Analysis Phase 2 (Events 30-60)\nsummary 2")
	assert.Contains(t, report, "#### Analysis Phase 3 (Events 60-65)\nsummary 3")
	assert.Contains(t, fc.prompts[2], "(auth_log) event 64")
	assert.NotContains(t, fc.prompts[2], "event 59")
}

func TestReportSkipsFailedPhase(t *testing.T) {
	fc := &fakeClient{failOn: map[int]bool{1: true}}
	svc := NewService(fc, zerolog.Nop())
	svc.BatchSize = 2

	report, err := svc.Report(context.Background(), events(4))
	require.NoError(t, err)
	assert.Contains(t, report, "[Phase 1 Skipped: Error generating summary]")
	assert.Contains(t, report, "#### Analysis Phase 2 (Events 2-4)\nsummary 2")
}

func TestReportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(&fakeClient{}, zerolog.Nop()).Report(ctx, events(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchTextTruncates(t *testing.T) {
	long := []evidence.Event{{Timestamp: "t", Source: "s", Description: strings.Repeat("x", 100)}}
	text, truncated := BatchText(long, 20)
	assert.True(t, truncated)
	assert.True(t, strings.HasSuffix(text, "\n...[TRUNCATED]..."))
	assert.Equal(t, 20+len("\n...[TRUNCATED]..."), len(text))

	text, truncated = BatchText(long[:0], 20)
	assert.False(t, truncated)
	assert.Empty(t, text)
}

func TestBatchTextKeepsRunesWhole(t *testing.T) {
	long := []evidence.Event{{Timestamp: "t", Source: "s", Description: strings.Repeat("ü", 50)}}
	text, truncated := BatchText(long, 20)
	assert.True(t, truncated)
	body := strings.TrimSuffix(text, "\n...[TRUNCATED]...")
	assert.True(t, utf8.ValidString(body))
	assert.Equal(t, 20, utf8.RuneCountInString(body))
}
