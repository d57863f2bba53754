// Package openai is a generative classifier backend for OpenAI-compatible
// chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rodekruis/qfa/internal/classifier"
	"github.com/rodekruis/qfa/internal/source/httpclient"
)

// Provider is the registry name of this backend.
const Provider = "openai"

const defaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when the config names none.
const DefaultModel = "gpt-4o-mini"

func init() {
	classifier.Register(Provider, func(cfg classifier.Config) (classifier.Backend, error) {
		return New(cfg)
	})
}

// Backend asks a chat model to pick a candidate.
type Backend struct {
	client *httpclient.Client
	model  string
}

// New creates a backend. BaseURL defaults to the OpenAI API; any
// compatible server (Azure OpenAI deployments, local gateways) works.
func New(cfg classifier.Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	opts := []httpclient.Option{httpclient.WithBearer(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	return &Backend{client: httpclient.New(baseURL, opts...), model: model}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Choose sends one chat completion and reconciles the reply.
func (b *Backend) Choose(ctx context.Context, text string, candidates []string) (string, error) {
	req := chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifier.SystemPrompt},
			{Role: "user", Content: classifier.Prompt(text, candidates)},
		},
		MaxTokens: 64,
	}
	var resp chatResponse
	if err := b.client.SendJSON(ctx, http.MethodPost, "/chat/completions", nil, req, &resp); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("openai: empty response")
	}
	return classifier.Closest(answer, candidates), nil
}
