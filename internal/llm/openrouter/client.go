package openrouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Config for the OpenRouter client.
type Config struct {
	APIKey      string  // required
	BaseURL     string  // default https://openrouter.ai/api/v1
	Model       string  // e.g. "anthropic/claude-3.5-sonnet"
	Temperature float64 // 0..2
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements llm.Provider against OpenRouter's OpenAI-compatible
// chat completions API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "anthropic/claude-3.5-sonnet"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) Name() string { return "openrouter" }

func (c *Client) Call(ctx context.Context, req llm.Request) (llm.RawResponse, error) {
	content := make([]map[string]any, 0, len(req.Images)+1)
	content = append(content, map[string]any{"type": "text", "text": req.Prompt})
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return llm.RawResponse{}, err
	}

	var or struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &or); err != nil {
		return llm.RawResponse{}, fmt.Errorf("decode openrouter response: %w", err)
	}
	if len(or.Choices) == 0 {
		return llm.RawResponse{}, fmt.Errorf("no choices in openrouter response")
	}

	resp := llm.RawResponse{Text: or.Choices[0].Message.Content}
	if or.Usage != nil {
		resp.Usage = &llm.Usage{
			InputTokens:  or.Usage.PromptTokens,
			OutputTokens: or.Usage.CompletionTokens,
			TotalTokens:  or.Usage.TotalTokens,
		}
	}
	return resp, nil
}
