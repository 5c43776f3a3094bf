/*
Package llm talks to the external generative model services. Two providers are wired:
a Llama model behind an OpenAI-compatible chat-completions endpoint for the first plan,
and Google Gemini for the follow-up plan.
*/
package llm

import (
	"context"
	"errors"
	"math"
	"time"
)

// --- Retry Configuration ---
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultRequestTimeout = 120 * time.Second
)

var (
	// ErrNotConfigured is returned when a provider has no API key.
	ErrNotConfigured = errors.New("server is not configured for AI plans")

	// ErrEmptyCompletion is returned when the provider answered without any text.
	ErrEmptyCompletion = errors.New("no content found in model response")
)

// Generator produces free text from a system and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

// backoff returns the wait before retry attempt i (0-based), doubling each time.
func backoff(initial time.Duration, attempt int) time.Duration {
	return initial * time.Duration(math.Pow(2, float64(attempt)))
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
