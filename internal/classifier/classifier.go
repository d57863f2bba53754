// Package classifier chooses one label out of a candidate set for a text.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNoCandidates is returned when Choose is called with an empty
	// candidate list.
	ErrNoCandidates = errors.New("classifier: no candidates")

	// ErrUnavailable wraps every backend failure: network errors, timeouts
	// and cancelled contexts. It is never turned into a default label.
	ErrUnavailable = errors.New("classifier: backend unavailable")
)

// TextClassifier picks exactly one of candidates for text.
type TextClassifier interface {
	Choose(ctx context.Context, text string, candidates []string) (string, error)
}

// Backend is a model that ranks candidates. It is only called with two or
// more candidates. Backends may also implement io.Closer.
type Backend interface {
	Choose(ctx context.Context, text string, candidates []string) (string, error)
}

// Classifier is the TextClassifier handed to callers. It owns the rules
// every backend shares.
type Classifier struct {
	backend Backend
}

// New wraps backend.
func New(backend Backend) *Classifier {
	return &Classifier{backend: backend}
}

// Choose returns the chosen candidate. A single candidate is returned without
// consulting the backend. The backend's answer is returned as is; callers
// detect answers outside the candidate set.
func (c *Classifier) Choose(ctx context.Context, text string, candidates []string) (string, error) {
	switch len(candidates) {
	case 0:
		return "", ErrNoCandidates
	case 1:
		return candidates[0], nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	label, err := c.backend.Choose(ctx, text, candidates)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return label, nil
}

// Close releases the backend when it holds resources.
func (c *Classifier) Close() error {
	if cl, ok := c.backend.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
