// Package webhook posts batches of classification results to an HTTP
// endpoint, such as the automation that consumes them downstream.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/output"
	"github.com/rodekruis/qfa/internal/source/httpclient"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) {
		for k, v := range h {
			o.clientOpts = append(o.clientOpts, httpclient.WithHeader(k, v))
		}
	}
}

// WithBatchSize sets the number of results accumulated before a flush.
// Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time a result waits before a flush.
// Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.clientOpts = append(o.clientOpts, httpclient.WithTimeout(d)) }
}

// WithRetries overrides the retry policy for 429 and 5xx answers.
func WithRetries(n int, baseDelay time.Duration) Option {
	return func(o *Output) { o.clientOpts = append(o.clientOpts, httpclient.WithRetries(n, baseDelay)) }
}

// WithVerbosity sets the result verbosity. Default: Standard.
func WithVerbosity(v output.Verbosity) Option {
	return func(o *Output) { o.verbosity = v }
}

// WithOnError sets the callback for failed timer-triggered flushes.
// Default: slog.Warn.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output POSTs results as a JSON array once batchSize results are pending
// or flushInterval has passed since the first pending one.
type Output struct {
	client        *httpclient.Client
	clientOpts    []httpclient.Option
	batchSize     int
	flushInterval time.Duration
	verbosity     output.Verbosity
	errFunc       func(error)

	mu      sync.Mutex
	pending []model.Result
	timer   *time.Timer
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		verbosity:     output.Standard,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.client = httpclient.New(url, o.clientOpts...)
	return o
}

// Write queues result and flushes when the batch is full.
func (o *Output) Write(ctx context.Context, result model.Result) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.FormatResult(result, o.verbosity))
	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}
	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(context.Background()); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close flushes pending results and stops the timer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flushLocked(context.Background())
}

// flushLocked posts the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) == 0 {
		return nil
	}
	batch := o.pending
	o.pending = nil
	if err := o.client.SendJSON(ctx, http.MethodPost, "", nil, batch, nil); err != nil {
		return fmt.Errorf("webhook: %d results: %w", len(batch), err)
	}
	return nil
}
