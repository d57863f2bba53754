// Package multi sends each classification result to several destinations,
// such as a results file and a webhook.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/output"
)

// Multi writes to its outputs in order. One destination failing does not
// keep a result from the others.
type Multi struct {
	outputs []output.Output
}

// New combines outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write sends result everywhere. The returned error names the feedback item.
func (m *Multi) Write(ctx context.Context, result model.Result) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("result %s: %w", result.ID, errors.Join(errs...))
}

// Flush flushes the outputs that buffer.
func (m *Multi) Flush() error {
	var errs []error
	for _, o := range m.outputs {
		if f, ok := o.(output.Flusher); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every output, including after a failure.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
