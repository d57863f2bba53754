package engine

import (
	"fmt"
	"strings"
)

// Operations reported in Error.Op.
const (
	OpLoad      = "load"
	OpProbe     = "probe"
	OpFetch     = "fetch"
	OpBuild     = "build"
	OpSave      = "save"
	OpDelete    = "delete"
	OpTranslate = "translate"
	OpClassify  = "classify"
	OpResolve   = "resolve"
)

// Error is the error returned at the request boundary. It names the origin
// and, for cascade failures, the level that failed.
type Error struct {
	System string
	Origin string
	Level  int // 0 when not tied to a level
	Op     string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("qfa: ")
	b.WriteString(e.Op)
	if e.System != "" || e.Origin != "" {
		fmt.Fprintf(&b, " %s:%s", e.System, e.Origin)
	}
	if e.Level > 0 {
		fmt.Fprintf(&b, " level %d", e.Level)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
