package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures a GeminiClient. BaseURL is only set to point at a stand-in server.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiClient generates follow-up plans through the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration

	maxRetries     int
	initialBackoff time.Duration
}

// NewGeminiClient creates the underlying genai client. An empty API key yields a client
// whose Generate reports ErrNotConfigured, so the server can still start without it.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}

	g := &GeminiClient{
		model:          cfg.Model,
		timeout:        cfg.Timeout,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiClient) Name() string {
	return g.model
}

// Generate calls GenerateContent with retries on any provider error or empty answer.
func (g *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	logger := zerolog.Ctx(ctx)

	if g.client == nil {
		logger.Error().Msg("GEMINI_API_KEY is not set")
		return "", ErrNotConfigured
	}

	config := &genai.GenerateContentConfig{}
	if strings.TrimSpace(systemPrompt) != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	var lastErr error
	for i := 0; i < g.maxRetries; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, backoff(g.initialBackoff, i-1)); err != nil {
				return "", err
			}
		}

		logger.Info().Str("model", g.model).Msgf("Attempt %d: Calling Gemini API...", i+1)

		text, err := g.generateOnce(ctx, userPrompt, config)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		lastErr = err
		logger.Warn().Err(lastErr).Msgf("Attempt %d failed", i+1)
	}

	return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", g.maxRetries, lastErr)
}

func (g *GeminiClient) generateOnce(ctx context.Context, userPrompt string, config *genai.GenerateContentConfig) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(reqCtx, g.model, genai.Text(userPrompt), config)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
