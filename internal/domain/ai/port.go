package ai

import "context"

// Client turns a prepared prompt into a narrative. Implementations must be
// safe for concurrent use.
type Client interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}
