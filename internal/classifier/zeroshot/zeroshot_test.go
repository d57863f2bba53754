package zeroshot

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rodekruis/qfa/internal/classifier"
)

// fakeModel returns, for each pair, an entailment logit taken from scores in
// candidate order. Label layout: contradiction, neutral, entailment.
type fakeModel struct {
	scores []float32
	err    error
	last   batch
	closed bool
}

func (f *fakeModel) logits(b batch) ([]float32, error) {
	f.last = b
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, 0, b.size*3)
	for i := int64(0); i < b.size; i++ {
		out = append(out, 0, 0, f.scores[i])
	}
	return out, nil
}

func (f *fakeModel) close() error {
	f.closed = true
	return nil
}

func TestChooseHighestEntailment(t *testing.T) {
	m := &fakeModel{scores: []float32{0.1, 2.5, 1.0}}
	b, err := newBackend(testTokenizer(t), m, 3, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.Choose(context.Background(), "the clinic was closed", []string{"cash", "health", "cafe"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "health" {
		t.Errorf("Choose() = %q, want health", got)
	}
	if m.last.size != 3 {
		t.Errorf("expected one batch of 3 pairs, got %d", m.last.size)
	}
}

func TestChooseTieKeepsFirst(t *testing.T) {
	b, err := newBackend(testTokenizer(t), &fakeModel{scores: []float32{1, 1}}, 3, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := b.Choose(context.Background(), "x", []string{"cash", "health"})
	if got != "cash" {
		t.Errorf("Choose() = %q, want cash", got)
	}
}

func TestChooseModelError(t *testing.T) {
	cause := errors.New("boom")
	b, err := newBackend(testTokenizer(t), &fakeModel{err: cause}, 3, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Choose(context.Background(), "x", []string{"a", "b"}); !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestChooseCancelled(t *testing.T) {
	m := &fakeModel{scores: []float32{1, 2}}
	b, _ := newBackend(testTokenizer(t), m, 3, 2, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Choose(ctx, "x", []string{"a", "b"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewBackendValidation(t *testing.T) {
	tok := testTokenizer(t)
	if _, err := newBackend(tok, &fakeModel{}, 3, 3, ""); err == nil {
		t.Error("expected error for entailment index out of range")
	}
	if _, err := newBackend(tok, &fakeModel{}, 3, 2, "no placeholder"); err == nil {
		t.Error("expected error for template without placeholder")
	}
	b, err := newBackend(tok, &fakeModel{}, 3, 2, "")
	if err != nil || b.template != DefaultTemplate {
		t.Errorf("default template not applied: %v", err)
	}
}

func TestClose(t *testing.T) {
	m := &fakeModel{}
	b, _ := newBackend(testTokenizer(t), m, 3, 2, "")
	if err := b.Close(); err != nil || !m.closed {
		t.Errorf("Close() = %v, closed=%v", err, m.closed)
	}
}

func TestNewRequiresPaths(t *testing.T) {
	if _, err := New(classifier.Config{}); err == nil {
		t.Fatal("expected error without model paths")
	}
}

const (
	testModelPath = "../../../models/nli.onnx"
	testVocabPath = "../../../models/vocab.txt"
)

func TestModelEndToEnd(t *testing.T) {
	if _, err := os.Stat(testModelPath); os.IsNotExist(err) {
		t.Skip("model files not found; run 'make download-model' first")
	}
	b, err := New(classifier.Config{ModelPath: testModelPath, VocabPath: testVocabPath, EntailmentIndex: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	got, err := b.Choose(context.Background(), "The clinic has run out of medicine for my child.", []string{"health", "cash", "shelter"})
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("chose %q", got)
	if got != "health" && got != "cash" && got != "shelter" {
		t.Errorf("Choose() = %q, not a candidate", got)
	}
}
