package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	domai "github.com/bryanwahyu/forensiq/internal/domain/ai"
	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
	"github.com/bryanwahyu/forensiq/internal/infra/ai/prompt"
)

const (
	// DefaultBatchSize keeps roughly 2-3k tokens of events per request.
	DefaultBatchSize = 30
	// DefaultMaxBatchChars guards against unusually long log lines.
	DefaultMaxBatchChars = 10000
)

// Service turns a timeline into a phased investigation report.
type Service struct {
	client         domai.Client
	log            zerolog.Logger
	BatchSize      int
	MaxBatchChars  int
	MaxPromptChars int
	BatchTimeout   time.Duration // per summary request, 0 means none
}

func NewService(client domai.Client, log zerolog.Logger) *Service {
	return &Service{
		client:         client,
		log:            log.With().Str("component", "summarizer").Logger(),
		BatchSize:      DefaultBatchSize,
		MaxBatchChars:  DefaultMaxBatchChars,
		MaxPromptChars: prompt.DefaultMaxPromptChars,
	}
}

// BatchText renders events as "[ts] (source) description" lines, cut to
// maxChars with a marker when necessary.
func BatchText(events []evidence.Event, maxChars int) (string, bool) {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("[%s] (%s) %s", e.Timestamp, e.Source, e.Description))
	}
	text := strings.Join(lines, "\n")
	if cut, ok := prompt.Truncate(text, maxChars); ok {
		return cut + "\n...[TRUNCATED]...", true
	}
	return text, false
}

// Report summarizes the timeline batch by batch. A failing batch is noted in
// the report and does not stop the remaining ones; only context
// cancellation aborts.
func (s *Service) Report(ctx context.Context, timeline []evidence.Event) (string, error) {
	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	total := len(timeline)
	batches := (total + size - 1) / size
	s.log.Info().Int("events", total).Int("batches", batches).Msg("splitting timeline")

	parts := make([]string, 0, batches*2)
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		start := i * size
		end := min(start+size, total)
		phase := i + 1

		text, truncated := BatchText(timeline[start:end], s.MaxBatchChars)
		if truncated {
			s.log.Warn().Int("phase", phase).Int("max_chars", s.MaxBatchChars).Msg("batch text truncated")
		}
		s.log.Debug().Int("phase", phase).Int("from", start).Int("to", end).Msg("analyzing batch")

		summary, err := s.summarize(ctx, prompt.GetSummaryPrompt(text, s.MaxPromptChars))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			s.log.Error().Err(err).Int("phase", phase).Msg("batch summary failed")
			parts = append(parts, fmt.Sprintf("\n[Phase %d Skipped: Error generating summary]", phase))
			continue
		}
		parts = append(parts, fmt.Sprintf("\n\n#### Analysis Phase %d (Events %d-%d)", phase, start, end), summary)
	}
	return strings.TrimLeft(strings.Join(parts, "\n"), "\n"), nil
}

func (s *Service) summarize(ctx context.Context, p string) (string, error) {
	if s.BatchTimeout <= 0 {
		return s.client.Summarize(ctx, p)
	}
	ctx, cancel := context.WithTimeout(ctx, s.BatchTimeout)
	defer cancel()
	return s.client.Summarize(ctx, p)
}
