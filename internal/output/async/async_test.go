package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rodekruis/qfa/internal/model"
)

type mockOutput struct {
	mu      sync.Mutex
	results []model.Result
	closed  bool
	err     error
	delay   time.Duration
}

func (m *mockOutput) Write(_ context.Context, r model.Result) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.results = append(m.results, r)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

func TestResultsFlowThroughInOrder(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))
	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), model.Result{ID: fmt.Sprint(i)}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if inner.count() != 10 {
		t.Fatalf("got %d results, want 10", inner.count())
	}
	for i, r := range inner.results {
		if r.ID != fmt.Sprint(i) {
			t.Errorf("result %d has id %q", i, r.ID)
		}
	}
	if !inner.closed {
		t.Error("inner output not closed")
	}
}

func TestBackpressureUnblocks(t *testing.T) {
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))
	defer a.Close()

	a.Write(context.Background(), model.Result{ID: "first"})
	done := make(chan struct{})
	go func() {
		a.Write(context.Background(), model.Result{ID: "second"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely")
	}
}

func TestWriteHonorsContext(t *testing.T) {
	inner := &mockOutput{delay: time.Second}
	a := New(inner, WithBufferSize(1), WithDrainTimeout(10*time.Millisecond))
	defer a.Close()

	a.Write(context.Background(), model.Result{ID: "a"}) // taken by drain
	a.Write(context.Background(), model.Result{ID: "b"}) // fills the buffer

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := a.Write(ctx, model.Result{ID: "c"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestDropOnFull(t *testing.T) {
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())
	for i := 0; i < 20; i++ {
		a.Write(context.Background(), model.Result{ID: "burst"})
	}
	a.Close()
	if n := inner.count(); n == 20 || n == 0 {
		t.Errorf("delivered %d of 20, expected some but not all", n)
	}
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var calls atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(error) { calls.Add(1) }))
	for i := 0; i < 5; i++ {
		a.Write(context.Background(), model.Result{ID: "x"})
	}
	a.Close()
	if calls.Load() != 5 {
		t.Errorf("error callback called %d times, want 5", calls.Load())
	}
}

func TestCloseIdempotent(t *testing.T) {
	a := New(&mockOutput{}, WithBufferSize(16))
	a.Write(context.Background(), model.Result{ID: "x"})
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}
