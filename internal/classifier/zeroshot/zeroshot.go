// Package zeroshot is a local classifier backend built on a natural language
// inference model run with ONNX Runtime. Each candidate is turned into a
// hypothesis and the candidate whose hypothesis the text entails most
// strongly wins.
package zeroshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rodekruis/qfa/internal/classifier"
)

// Provider is the registry name of this backend.
const Provider = "zeroshot"

// DefaultTemplate turns a candidate label into a hypothesis.
const DefaultTemplate = "This text is about {}."

func init() {
	classifier.Register(Provider, func(cfg classifier.Config) (classifier.Backend, error) {
		return New(cfg)
	})
}

// scorer returns [batch * numLabels] logits.
type scorer interface {
	logits(b batch) ([]float32, error)
	close() error
}

// Backend scores every candidate in one batched inference.
type Backend struct {
	tok        *tokenizer
	model      scorer
	numLabels  int
	entailment int
	template   string
}

// New loads the model and vocabulary named in cfg. The tokenizer is
// WordPiece, so the model must come from the BERT family.
func New(cfg classifier.Config) (*Backend, error) {
	if cfg.ModelPath == "" || cfg.VocabPath == "" {
		return nil, errors.New("zeroshot: model_path and vocab_path are required")
	}
	sess, err := newNLISession(cfg.ModelPath, cfg.LibPath)
	if err != nil {
		return nil, fmt.Errorf("zeroshot: %w", err)
	}
	tok, err := newTokenizer(cfg.VocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("zeroshot: %w", err)
	}
	b, err := newBackend(tok, sess, int(sess.numLabels), cfg.EntailmentIndex, cfg.HypothesisTemplate)
	if err != nil {
		sess.close()
		return nil, err
	}
	return b, nil
}

func newBackend(tok *tokenizer, model scorer, numLabels, entailment int, template string) (*Backend, error) {
	if entailment < 0 || entailment >= numLabels {
		return nil, fmt.Errorf("zeroshot: entailment index %d outside model labels [0,%d)", entailment, numLabels)
	}
	if template == "" {
		template = DefaultTemplate
	}
	if !strings.Contains(template, "{}") {
		return nil, fmt.Errorf("zeroshot: hypothesis template %q has no {} placeholder", template)
	}
	return &Backend{tok: tok, model: model, numLabels: numLabels, entailment: entailment, template: template}, nil
}

// Choose returns the candidate with the highest entailment logit. Ties go to
// the earlier candidate.
func (b *Backend) Choose(ctx context.Context, text string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", classifier.ErrNoCandidates
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hyps := make([]string, len(candidates))
	for i, c := range candidates {
		hyps[i] = strings.ReplaceAll(b.template, "{}", c)
	}
	logits, err := b.model.logits(b.tok.pairBatch(text, hyps))
	if err != nil {
		return "", fmt.Errorf("zeroshot: %w", err)
	}
	if len(logits) != len(candidates)*b.numLabels {
		return "", fmt.Errorf("zeroshot: got %d logits for %d candidates", len(logits), len(candidates))
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if logits[i*b.numLabels+b.entailment] > logits[best*b.numLabels+b.entailment] {
			best = i
		}
	}
	return candidates[best], nil
}

// Close releases ONNX Runtime resources.
func (b *Backend) Close() error {
	if b.model != nil {
		return b.model.close()
	}
	return nil
}
