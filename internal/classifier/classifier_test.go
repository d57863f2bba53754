package classifier

import (
	"context"
	"errors"
	"io"
	"testing"
)

type countingBackend struct {
	calls  int
	answer string
	err    error
	closed bool
}

func (b *countingBackend) Choose(_ context.Context, _ string, _ []string) (string, error) {
	b.calls++
	return b.answer, b.err
}

func (b *countingBackend) Close() error {
	b.closed = true
	return nil
}

func TestChooseSingleCandidateSkipsBackend(t *testing.T) {
	b := &countingBackend{err: errors.New("must not be called")}
	c := New(b)
	for _, label := range []string{"Health", "Other", ""} {
		got, err := c.Choose(context.Background(), "any text", []string{label})
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if got != label {
			t.Errorf("Choose() = %q, want %q", got, label)
		}
	}
	if b.calls != 0 {
		t.Errorf("backend called %d times, want 0", b.calls)
	}
}

func TestChooseNoCandidates(t *testing.T) {
	b := &countingBackend{}
	_, err := New(b).Choose(context.Background(), "text", nil)
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if b.calls != 0 {
		t.Error("backend called for empty candidates")
	}
}

func TestChooseDelegates(t *testing.T) {
	b := &countingBackend{answer: "Cash"}
	got, err := New(b).Choose(context.Background(), "text", []string{"Health", "Cash"})
	if err != nil || got != "Cash" {
		t.Fatalf("Choose() = %q, %v", got, err)
	}
	if b.calls != 1 {
		t.Errorf("calls = %d", b.calls)
	}
}

func TestChooseDoesNotCoerce(t *testing.T) {
	b := &countingBackend{answer: "Shelter"}
	got, err := New(b).Choose(context.Background(), "text", []string{"Health", "Cash"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Shelter" {
		t.Errorf("Choose() = %q, want backend answer unchanged", got)
	}
}

func TestChooseBackendFailure(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := New(&countingBackend{err: cause}).Choose(context.Background(), "text", []string{"a", "b"})
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrUnavailable wrapping cause, got %v", err)
	}
}

func TestChooseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &countingBackend{answer: "a"}
	_, err := New(b).Choose(ctx, "text", []string{"a", "b"})
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrUnavailable and context.Canceled, got %v", err)
	}
	if b.calls != 0 {
		t.Error("backend called with cancelled context")
	}
}

func TestClose(t *testing.T) {
	b := &countingBackend{}
	if err := New(b).Close(); err != nil || !b.closed {
		t.Fatalf("Close() = %v, closed=%v", err, b.closed)
	}
	var _ io.Closer = New(b)
}

func TestOpen(t *testing.T) {
	Register("test-fixed", func(cfg Config) (Backend, error) {
		return &countingBackend{answer: cfg.Model}, nil
	})
	defer delete(registry, "test-fixed")

	c, err := Open(Config{Provider: "test-fixed", Model: "b"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := c.Choose(context.Background(), "x", []string{"a", "b"})
	if err != nil || got != "b" {
		t.Fatalf("Choose() = %q, %v", got, err)
	}

	if _, err := Open(Config{Provider: "missing"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOpenConstructorError(t *testing.T) {
	Register("test-broken", func(Config) (Backend, error) {
		return nil, errors.New("no model")
	})
	defer delete(registry, "test-broken")
	if _, err := Open(Config{Provider: "test-broken"}); err == nil {
		t.Fatal("expected error")
	}
}
