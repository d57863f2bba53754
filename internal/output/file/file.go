// Package file writes classification results to a local NDJSON file, one
// feedback item per line, for loading into a spreadsheet or a later upload.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	keepRotated    = 9
)

// Option configures a results file.
type Option func(*Output)

// WithMaxSize caps the results file at bytes; a full file moves to
// {path}.1. Zero keeps a single growing file.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets how many bytes of results are held before a disk write.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output appends results to a file. A result line is never split across two
// files.
type Output struct {
	mu        sync.Mutex
	buf       *bufio.Writer
	f         *os.File
	path      string
	verbosity output.Verbosity
	maxSize   int64
	size      int64
	bufSize   int
}

// New opens the results file at path, keeping what an earlier run wrote.
func New(path string, verbosity output.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{path: path, verbosity: verbosity, bufSize: defaultBufSize}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends the result of one feedback item.
func (o *Output) Write(_ context.Context, result model.Result) error {
	line, err := json.Marshal(output.FormatResult(result, o.verbosity))
	if err != nil {
		return fmt.Errorf("results file: encode %s: %w", result.ID, err)
	}
	line = append(line, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.full(len(line)) {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("results file: rotate %s: %w", o.path, err)
		}
	}
	n, err := o.buf.Write(line)
	o.size += int64(n)
	if err != nil {
		return fmt.Errorf("results file: write %s: %w", result.ID, err)
	}
	return nil
}

// Flush writes buffered results to disk.
func (o *Output) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.buf.Flush(); err != nil {
		return fmt.Errorf("results file: flush %s: %w", o.path, err)
	}
	return nil
}

// Close flushes pending results and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.buf.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("results file: flush %s: %w", o.path, err)
	}
	return o.f.Close()
}

// full reports whether a line of n bytes would push a non-empty file past
// the cap.
func (o *Output) full(n int) bool {
	return o.maxSize > 0 && o.size > 0 && o.size+int64(n) > o.maxSize
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("results file: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("results file: stat %s: %w", o.path, err)
	}
	o.f = f
	o.buf = bufio.NewWriterSize(f, o.bufSize)
	o.size = info.Size()
	return nil
}

// rotate shifts {path}.1 through {path}.8 up by one, dropping {path}.9, and
// starts a fresh file.
func (o *Output) rotate() error {
	if err := o.buf.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}
	for i := keepRotated - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", o.path, i), fmt.Sprintf("%s.%d", o.path, i+1))
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}
	return o.open()
}
