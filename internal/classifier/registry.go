package classifier

import (
	"fmt"
	"sort"
	"time"
)

// Config selects and configures a backend.
type Config struct {
	Provider string // registered backend name
	Model    string // model identifier reported by "qfa model"

	// Local entailment model.
	ModelPath          string
	VocabPath          string
	LibPath            string // ONNX Runtime shared library; defaults next to the model
	EntailmentIndex    int
	HypothesisTemplate string

	// Remote generative models.
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Constructor creates a Backend from config.
type Constructor func(cfg Config) (Backend, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under the given provider name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Providers returns the names of all registered backends, sorted.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the backend named by cfg.Provider and wraps it in a Classifier.
func Open(cfg Config) (*Classifier, error) {
	ctor, ok := registry[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.Provider)
	}
	b, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", cfg.Provider, err)
	}
	return New(b), nil
}
