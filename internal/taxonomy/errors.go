package taxonomy

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity matches every *IntegrityError via errors.Is.
	ErrIntegrity = errors.New("taxonomy integrity violation")

	// ErrLabelNotFound is returned when a non-empty canonical label has no
	// record. It means the classifier answered outside the candidate set or
	// the tree and its cache disagree; callers must not default it away.
	ErrLabelNotFound = errors.New("label not found in taxonomy")
)

// Violation kinds reported by IntegrityError.
const (
	KindDuplicateID      = "duplicate-id"
	KindDuplicateLabel   = "duplicate-label"
	KindMissingParent    = "missing-parent"
	KindUnexpectedParent = "unexpected-parent"
	KindTooFewRecords    = "too-few-records"
	KindEmptyField       = "empty-field"
	KindInvalidLevel     = "invalid-level"
)

// IntegrityError describes why a record set cannot form a usable tree.
type IntegrityError struct {
	Level  int
	Kind   string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("taxonomy: level %d: %s: %s", e.Level, e.Kind, e.Detail)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
