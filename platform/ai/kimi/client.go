package kimi

import (
	"context"
	"net/http"

	"salesflow_backend/platform/apperr"
	"salesflow_backend/platform/config"

	"golang.org/x/time/rate"
)

// Client is the plain completion client used by the escalation and
// next-action engines. Every call site is expected to catch the returned
// KindDependency error and fall back to a canned result; the client itself
// never retries.
type Client struct {
	config      Config
	maxTokens   int
	temperature float64
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient builds a completion client from application configuration.
func NewClient(cfg config.CompletionConfig) *Client {
	rps := cfg.GetCompletionRequestsPerSecond()
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		config: Config{
			APIKey:  cfg.GetCompletionAPIKey(),
			BaseURL: cfg.GetCompletionBaseURL(),
			Model:   cfg.GetCompletionModel(),
		}.withDefaults(),
		maxTokens:   cfg.GetCompletionMaxTokens(),
		temperature: cfg.GetCompletionTemperature(),
		http:        &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Complete sends a system+user prompt pair and returns the assistant text.
// Failures come back as apperr.KindDependency.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.config.APIKey == "" {
		return "", apperr.Dependency("completion service not configured", nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperr.Dependency("completion rate limit wait", err)
	}

	payload := map[string]interface{}{
		"model": c.config.Model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	}

	result, err := postChat(ctx, c.http, c.config, payload)
	if err != nil {
		return "", apperr.Dependency("completion call failed", err)
	}

	return result.Choices[0].Message.Content, nil
}
