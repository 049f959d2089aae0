// Package genai is the narrow text-generation boundary used by the advice and explanation stages.
package genai

import (
	"context"
	"errors"
	"fmt"

	"loan-advisor/internal/common/config"
)

var (
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrEmptyResponse     = errors.New("GENERATION_EMPTY_RESPONSE")
)

// Request is one prompt. Structured asks the backend for a single JSON object.
type Request struct {
	Prompt     string
	System     string
	Structured bool
}

// Generator produces text for a prompt. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New builds the backend named by apis.genai.provider.
func New(cfg config.APIsConfig) (Generator, error) {
	switch cfg.GenAI.Provider {
	case config.ProviderGateway, "":
		return NewGatewayClient(&GatewayConfig{
			BaseURL:     cfg.GenAI.BaseURL,
			APIKey:      cfg.GenAI.APIKey,
			Timeout:     config.GetDuration(cfg.GenAI.Timeout),
			MaxRetries:  cfg.GenAI.MaxRetries,
			MaxTokens:   cfg.GenAI.MaxTokens,
			Temperature: cfg.GenAI.Temperature,
		}), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(&OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			Timeout:     config.GetDuration(cfg.GenAI.Timeout),
			MaxTokens:   cfg.GenAI.MaxTokens,
			Temperature: cfg.GenAI.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.GenAI.Provider)
	}
}
