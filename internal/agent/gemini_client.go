package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

var (
	errEmptyResponse = errors.New("completion service returned no text")
	errMissingAPIKey = errors.New("gemini API key is required")
)

// GeminiClient is the Completer backed by Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// GeminiClientConfig holds configuration for the Gemini client.
type GeminiClientConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint; empty means the public endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// NewGeminiClient creates a Gemini client. No network I/O happens until the
// first Complete call.
func NewGeminiClient(ctx context.Context, cfg GeminiClientConfig, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger.Info("Gemini client ready", "model", cfg.Model)
	return &GeminiClient{client: client, model: cfg.Model, logger: logger}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete sends prompt as a single user turn and returns the trimmed text of
// the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		c.logger.Warn("Gemini request failed", "model", c.model, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("generate content with %s: %w", c.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", errEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", errEmptyResponse
	}

	c.logger.Debug("Gemini request completed",
		"model", c.model,
		"prompt_length", len(prompt),
		"response_length", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}
