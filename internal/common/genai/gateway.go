package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "loan-advisor/internal/common/http"
)

type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// GatewayClient talks to the internal GenAI gateway over POST /api/ai/generate.
type GatewayClient struct {
	config *GatewayConfig
	client *httpclient.Client
}

func NewGatewayClient(cfg *GatewayConfig) *GatewayClient {
	return &GatewayClient{
		config: cfg,
		// per-call deadlines come from the context
		client: httpclient.NewClient(0),
	}
}

type gatewayRequest struct {
	Prompt         string  `json:"prompt"`
	System         string  `json:"system,omitempty"`
	ResponseFormat string  `json:"response_format"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
}

type gatewayResponse struct {
	Text string `json:"text"`
}

func (c *GatewayClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	format := "text"
	if req.Structured {
		format = "json"
	}
	body, err := json.Marshal(gatewayRequest{
		Prompt:         req.Prompt,
		System:         req.System,
		ResponseFormat: format,
		MaxTokens:      c.config.MaxTokens,
		Temperature:    c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrGenerationFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrGenerationTimeout
			}
		}

		text, err := c.call(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ErrGenerationTimeout
		}
	}

	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

func (c *GatewayClient) call(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode error: %v", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", ErrEmptyResponse
	}
	return out.Text, nil
}
