// Package pipeline classifies a stream of feedback items against one
// taxonomy and writes a result per item.
package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/output"
)

const (
	defaultWorkers   = 4
	defaultChunkSize = 256
	maxLineSize      = 1 << 20
)

// Classifier classifies one text. *engine.Session implements it.
type Classifier interface {
	Classify(ctx context.Context, text string) (model.Outcome, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the number of concurrent classifications. Default: 4.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithChunkSize sets how many items are read before their results are
// flushed. Default: 256.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// Stats summarizes a run.
type Stats struct {
	Items      int
	Classified int
	Failed     int
}

// Pipeline connects a classifier to an output.
type Pipeline struct {
	classifier Classifier
	output     output.Output
	workers    int
	chunkSize  int
}

// New creates a Pipeline.
func New(cls Classifier, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: cls,
		output:     out,
		workers:    defaultWorkers,
		chunkSize:  defaultChunkSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reads NDJSON feedback from r until EOF. Items are classified
// concurrently; results are written in input order. A failed item yields a
// result carrying the error and does not stop the run. Run returns early
// only on read, output, or context errors.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	chunk := make([]model.Feedback, 0, p.chunkSize)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var fb model.Feedback
		if err := json.Unmarshal([]byte(raw), &fb); err != nil {
			return stats, fmt.Errorf("pipeline: line %d: %w", line, err)
		}
		if fb.ID == "" {
			fb.ID = strconv.Itoa(line)
		}
		chunk = append(chunk, fb)
		if len(chunk) == p.chunkSize {
			if err := p.flush(ctx, chunk, &stats); err != nil {
				return stats, err
			}
			chunk = chunk[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("pipeline: read: %w", err)
	}
	if err := p.flush(ctx, chunk, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

// flush classifies a chunk and writes its results.
func (p *Pipeline) flush(ctx context.Context, items []model.Feedback, stats *Stats) error {
	if len(items) == 0 {
		return nil
	}
	results := make([]model.Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, fb := range items {
		g.Go(func() error {
			results[i] = p.classify(gctx, fb)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	for _, res := range results {
		stats.Items++
		if res.Error != "" {
			stats.Failed++
		} else {
			stats.Classified++
		}
		if err := p.output.Write(ctx, res); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	if f, ok := p.output.(output.Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) classify(ctx context.Context, fb model.Feedback) model.Result {
	out, err := p.classifier.Classify(ctx, fb.Text)
	if err != nil {
		slog.Warn("classification failed", "id", fb.ID, "error", err)
		return model.Result{ID: fb.ID, Error: err.Error()}
	}
	return model.Result{ID: fb.ID, Outcome: &out}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
