// Package llm wraps the external answer generator behind a circuit
// breaker. The pipeline treats the generator as optional: when it is
// unconfigured or the breaker is open, callers fall back to verbatim FAQ
// answers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/pkg/circuitbreaker"
	"github.com/fleetassist/backend/pkg/config"
	"github.com/fleetassist/backend/pkg/logger"
)

var ErrNotConfigured = errors.New("generator is not configured")

type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	breaker     *circuitbreaker.CircuitBreaker
}

func NewClient(cfg config.GeneratorConfig) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		breaker: circuitbreaker.New("generator", circuitbreaker.Config{
			MaxRequests:      3,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		}),
	}

	if cfg.APIKey != "" {
		c.api = openai.NewClient(cfg.APIKey)
	}
	if c.timeout <= 0 {
		c.timeout = 20 * time.Second
	}

	return c
}

// Available reports whether a generation attempt is worth making right
// now. False when no API key was configured or the breaker is open.
func (c *Client) Available() bool {
	return c.api != nil && c.breaker.Available()
}

// Generate produces one answer from the system and user prompts. The call
// is bounded by the configured timeout and makes exactly one attempt; the
// query path never retries.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var answer string
	err := c.breaker.Execute(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("chat completion returned no choices")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		logger.Warn("generation failed",
			zap.String("model", c.model),
			zap.Error(err))
		return "", err
	}

	return answer, nil
}
