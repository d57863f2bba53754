// Package translate normalizes labels and feedback text into the single
// working language the classifier operates in.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rodekruis/qfa/internal/source/httpclient"
)

// DefaultEndpoint is the Microsoft Translator v3 global endpoint.
const DefaultEndpoint = "https://api.cognitive.microsofttranslator.com"

// ErrEmptyTranslation is returned when the service answers without text.
var ErrEmptyTranslation = errors.New("translate: service returned no translation")

// Translator translates text into the working language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Config holds Microsoft Translator settings.
type Config struct {
	Endpoint string
	Key      string
	Region   string
	To       string // target language, e.g. "en"
	Timeout  time.Duration
}

// Microsoft calls the Microsoft Translator v3 /translate API.
type Microsoft struct {
	client *httpclient.Client
	to     string
}

// NewMicrosoft creates a translator for the given config.
func NewMicrosoft(cfg Config) *Microsoft {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	to := cfg.To
	if to == "" {
		to = "en"
	}
	opts := []httpclient.Option{
		httpclient.WithHeader("Ocp-Apim-Subscription-Key", cfg.Key),
	}
	if cfg.Region != "" {
		opts = append(opts, httpclient.WithHeader("Ocp-Apim-Subscription-Region", cfg.Region))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}
	return &Microsoft{client: httpclient.New(endpoint, opts...), to: to}
}

type translateResponse []struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translate sends a single text for translation with automatic source
// language detection.
func (m *Microsoft) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("to", m.to)

	var resp translateResponse
	body := []map[string]string{{"Text": text}}
	err := m.client.SendJSON(ctx, http.MethodPost, "/translate", withTraceID(q), body, &resp)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(resp) == 0 || len(resp[0].Translations) == 0 || resp[0].Translations[0].Text == "" {
		return "", ErrEmptyTranslation
	}
	return resp[0].Translations[0].Text, nil
}

// withTraceID tags the call so it can be located in the service's logs.
func withTraceID(q url.Values) url.Values {
	q.Set("ClientTraceId", uuid.NewString())
	return q
}

// Cached memoizes a Translator for the lifetime of one load. Taxonomies
// repeat labels across groups, so this avoids paying per duplicate.
type Cached struct {
	next Translator
	seen map[string]string
}

// NewCached wraps next. The result is not safe for concurrent use.
func NewCached(next Translator) *Cached {
	return &Cached{next: next, seen: make(map[string]string)}
}

// Translate returns the memoized translation of text.
func (c *Cached) Translate(ctx context.Context, text string) (string, error) {
	if out, ok := c.seen[text]; ok {
		return out, nil
	}
	out, err := c.next.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	c.seen[text] = out
	return out, nil
}
