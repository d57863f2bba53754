// Package source fetches taxonomies from the systems that own them.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/rodekruis/qfa/internal/model"
)

// ErrOriginNotFound is returned when the origin does not exist or the
// credentials do not grant access to it.
var ErrOriginNotFound = errors.New("source: origin not found or unauthorized")

// Source defines the interface every taxonomy source must implement.
type Source interface {
	// Fetch reads the full taxonomy of origin together with its version marker.
	Fetch(ctx context.Context, origin model.Origin) (model.Snapshot, error)

	// Probe reads only what is needed to decide whether a cached copy is
	// stale. Counts is nil when the source cannot count cheaply.
	Probe(ctx context.Context, origin model.Origin) (model.Probe, error)
}

// Config holds settings shared by all sources.
type Config struct {
	// Endpoint overrides the default API host where the system has one
	// (Kobo). EspoCRM origins carry their own URL.
	Endpoint string
	Timeout  time.Duration
}
