package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultChatBaseURL   = "https://router.huggingface.co/v1"
	DefaultChatModel     = "meta-llama/Llama-3.1-8B-Instruct"
	DefaultChatMaxTokens = 8192
)

// --- Structs for the chat-completions Request/Response ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatConfig configures a ChatClient.
type ChatConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint. Hugging Face's
// router, vLLM, TGI and Ollama all serve Llama 3.1 this way.
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client

	maxRetries     int
	initialBackoff time.Duration
}

// NewChatClient fills unset config fields with defaults.
func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultChatMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}

	return &ChatClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		maxTokens:      cfg.MaxTokens,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
	}
}

func (c *ChatClient) Name() string {
	return c.model
}

// Generate sends the system and user messages and returns the first choice's text.
// Transport errors, 429 and 5xx responses are retried with exponential backoff.
func (c *ChatClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	logger := zerolog.Ctx(ctx)

	if c.apiKey == "" {
		logger.Error().Msg("LLAMA_API_KEY is not set")
		return "", ErrNotConfigured
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.7,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error

	// Exponential backoff retry loop
	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, backoff(c.initialBackoff, i-1)); err != nil {
				return "", err
			}
		}

		logger.Info().Str("model", c.model).Msgf("Attempt %d: Calling chat completions API...", i+1)

		text, retryable, err := c.do(ctx, payloadBytes)
		if err == nil {
			return text, nil
		}
		if !retryable {
			return "", err
		}

		lastErr = err
		logger.Warn().Err(lastErr).Msgf("Attempt %d failed", i+1)
	}

	return "", fmt.Errorf("failed to call chat API after %d attempts: %w", c.maxRetries, lastErr)
}

// do performs one request. The bool reports whether the failure is worth retrying.
func (c *ChatClient) do(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API returned non-200 status: %s, Body: %s", resp.Status, string(body))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", false, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", false, ErrEmptyCompletion
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", false, ErrEmptyCompletion
	}
	return text, false, nil
}
