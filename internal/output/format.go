package output

import (
	"fmt"
	"strings"

	"github.com/rodekruis/qfa/internal/model"
)

// Verbosity controls which result fields are emitted.
type Verbosity int

const (
	// Minimal emits IDs and display labels only.
	Minimal Verbosity = iota
	// Standard adds the working-language labels.
	Standard
	// Full also echoes the classified text.
	Full
)

// ParseVerbosity converts "minimal", "standard" or "full".
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, fmt.Errorf("output: unknown verbosity %q", s)
}

// FormatResult returns a copy of r with fields stripped according to
// verbosity. The outcome is copied, never modified in place.
func FormatResult(r model.Result, verbosity Verbosity) model.Result {
	if r.Outcome == nil || verbosity == Full {
		return r
	}
	out := *r.Outcome
	out.Text = ""
	if verbosity == Minimal {
		levels := make([]model.LevelResult, len(out.Levels))
		for i, l := range out.Levels {
			l.LabelCanonical = ""
			levels[i] = l
		}
		out.Levels = levels
	}
	r.Outcome = &out
	return r
}
