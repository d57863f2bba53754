package output

import (
	"context"

	"github.com/rodekruis/qfa/internal/model"
)

// Output defines the interface for classification result destinations.
type Output interface {
	Write(ctx context.Context, result model.Result) error
	Close() error
}

// Flusher is implemented by outputs that buffer results. The batch pipeline
// flushes after every chunk so completed chunks survive an aborted run.
type Flusher interface {
	Flush() error
}
