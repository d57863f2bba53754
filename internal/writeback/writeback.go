// Package writeback hands classification outcomes to the system the
// feedback came from.
package writeback

import (
	"context"
	"errors"
	"fmt"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
)

// ErrSubmissionNotFound is returned when the origin does not recognize the
// submission the outcome belongs to.
var ErrSubmissionNotFound = errors.New("writeback: submission not found")

// Status reports what the origin did with an outcome.
type Status struct {
	Code   int               `json:"status_code"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"` // field values written or to be written
}

// Writer maps an outcome into the origin's update call. payload is the
// origin-native record that was classified.
type Writer interface {
	Write(ctx context.Context, origin model.Origin, out model.Outcome, payload map[string]any) (Status, error)
}

// Constructor creates a Writer from shared source settings.
type Constructor func(cfg source.Config) Writer

var registry = map[string]Constructor{
	model.SystemKobo:    func(cfg source.Config) Writer { return NewKobo(cfg) },
	model.SystemEspoCRM: func(source.Config) Writer { return EspoCRM{} },
}

// For returns the writer for an origin system.
func For(system string, cfg source.Config) (Writer, error) {
	ctor, ok := registry[system]
	if !ok {
		return nil, fmt.Errorf("writeback: unsupported origin system %q", system)
	}
	return ctor(cfg), nil
}
