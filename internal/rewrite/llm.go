package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// Provider selects the text generation backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderCustom Provider = "custom"
)

// LLMClient talks to a text generation service.
type LLMClient struct {
	cfg    config.AIConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg config.AIConfig, logger *slog.Logger) *LLMClient {
	return &LLMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "llm_client"),
	}
}

// Provider returns the configured backend.
func (c *LLMClient) Provider() Provider {
	return Provider(c.cfg.Provider)
}

// Ready reports types.ErrNoCredentials when the backend cannot be called.
func (c *LLMClient) Ready() error {
	switch c.Provider() {
	case ProviderOpenAI:
		if c.cfg.APIKey == "" {
			return types.ErrNoCredentials
		}
	case ProviderOllama, ProviderCustom:
		if c.cfg.Endpoint == "" {
			return types.ErrNoCredentials
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
	return nil
}

// Generate sends a prompt to the LLM and returns the response text.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	switch c.Provider() {
	case ProviderOllama:
		return c.generateOllama(ctx, prompt)
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt)
	default:
		return c.generateCustom(ctx, prompt)
	}
}

func (c *LLMClient) generateOllama(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	respBody, err := c.post(ctx, strings.TrimRight(c.cfg.Endpoint, "/")+"/api/generate", payload, false)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}

func (c *LLMClient) generateOpenAI(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":      c.cfg.MaxTokens,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	respBody, err := c.post(ctx, strings.TrimRight(endpoint, "/")+"/chat/completions", payload, true)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) generateCustom(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"model":  c.cfg.Model,
	}
	respBody, err := c.post(ctx, c.cfg.Endpoint, payload, c.cfg.APIKey != "")
	if err != nil {
		return "", err
	}
	return string(respBody), nil
}

func (c *LLMClient) post(ctx context.Context, endpoint string, payload any, auth bool) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > 200 {
			respBody = respBody[:200]
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}
	return respBody, nil
}

// extractJSON tries to find a JSON object in the LLM response.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return "{}"
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		switch {
		case inString:
			if s[i] == '\\' {
				i++
			} else if s[i] == '"' {
				inString = false
			}
		case s[i] == '"':
			inString = true
		case s[i] == '{':
			depth++
		case s[i] == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return "{}"
}
