// Package gemini is a generative classifier backend using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rodekruis/qfa/internal/classifier"
)

// Provider is the registry name of this backend.
const Provider = "gemini"

// DefaultModel is used when the config names none.
const DefaultModel = "gemini-2.0-flash"

func init() {
	classifier.Register(Provider, func(cfg classifier.Config) (classifier.Backend, error) {
		return New(context.Background(), cfg)
	})
}

// contentGenerator is the part of genai.Models the backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Backend asks a Gemini model to pick a candidate and maps the answer onto
// the candidate list with classifier.Closest.
type Backend struct {
	models contentGenerator
	model  string
}

// New creates a Gemini backend. cfg.APIKey is required.
func New(ctx context.Context, cfg classifier.Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return newBackend(client.Models, cfg.Model), nil
}

func newBackend(models contentGenerator, model string) *Backend {
	if model == "" {
		model = DefaultModel
	}
	return &Backend{models: models, model: model}
}

// Choose sends the prompt and reconciles the reply.
func (b *Backend) Choose(ctx context.Context, text string, candidates []string) (string, error) {
	var temperature float32
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(classifier.SystemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   64,
	}
	contents := []*genai.Content{
		genai.NewContentFromText(classifier.Prompt(text, candidates), genai.RoleUser),
	}
	resp, err := b.models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", errors.New("gemini: empty response")
	}
	return classifier.Closest(answer, candidates), nil
}
