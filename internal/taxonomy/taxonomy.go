package taxonomy

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rodekruis/qfa/internal/model"
)

type group struct {
	level  int
	parent string
}

// Tree is a validated, immutable leveled label set. A Tree is owned by one
// classification request; it is replaced wholesale, never edited.
type Tree struct {
	records []model.TaxonomyRecord
	levels  int
	marker  string
	fields  []string        // origin question or entity per level
	groups  map[group][]int // indexes into records, in record order
}

// New validates records and builds a Tree. The records slice is copied.
// Empty LabelCanonical fields default to Label.
func New(records []model.TaxonomyRecord, marker string) (*Tree, error) {
	recs := make([]model.TaxonomyRecord, len(records))
	copy(recs, records)
	for i := range recs {
		recs[i].Label = strings.TrimSpace(recs[i].Label)
		recs[i].LabelCanonical = strings.TrimSpace(recs[i].LabelCanonical)
		if recs[i].LabelCanonical == "" {
			recs[i].LabelCanonical = recs[i].Label
		}
	}

	t := &Tree{
		records: recs,
		marker:  marker,
		groups:  make(map[group][]int),
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) validate() error {
	if len(t.records) == 0 {
		return &IntegrityError{Level: 1, Kind: KindTooFewRecords, Detail: "taxonomy has no records"}
	}

	perLevel := make(map[int]int)
	idsAtLevel := make(map[int]map[string]bool)
	for i, r := range t.records {
		if r.Level < 1 {
			return &IntegrityError{Level: r.Level, Kind: KindInvalidLevel, Detail: fmt.Sprintf("record %q has level %d", r.ID, r.Level)}
		}
		if r.ID == "" {
			return &IntegrityError{Level: r.Level, Kind: KindEmptyField, Detail: fmt.Sprintf("record %d has an empty id", i)}
		}
		if r.Label == "" {
			return &IntegrityError{Level: r.Level, Kind: KindEmptyField, Detail: fmt.Sprintf("record %q has an empty label", r.ID)}
		}
		if r.Level == 1 && r.Parent != "" {
			return &IntegrityError{Level: 1, Kind: KindUnexpectedParent, Detail: fmt.Sprintf("record %q has parent %q", r.ID, r.Parent)}
		}
		if r.Level > 1 && r.Parent == "" {
			return &IntegrityError{Level: r.Level, Kind: KindMissingParent, Detail: fmt.Sprintf("record %q has no parent", r.ID)}
		}
		perLevel[r.Level]++
		if idsAtLevel[r.Level] == nil {
			idsAtLevel[r.Level] = make(map[string]bool)
		}
		idsAtLevel[r.Level][r.ID] = true
		g := group{level: r.Level, parent: r.Parent}
		t.groups[g] = append(t.groups[g], i)
	}

	levels := make([]int, 0, len(perLevel))
	for lvl := range perLevel {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)
	for i, lvl := range levels {
		if lvl != i+1 {
			return &IntegrityError{Level: lvl, Kind: KindInvalidLevel, Detail: fmt.Sprintf("level %d present without level %d", lvl, i+1)}
		}
		if perLevel[lvl] < 2 {
			return &IntegrityError{Level: lvl, Kind: KindTooFewRecords, Detail: fmt.Sprintf("%d record(s), need at least 2", perLevel[lvl])}
		}
	}
	t.levels = len(levels)

	for _, r := range t.records {
		if r.Level > 1 && !idsAtLevel[r.Level-1][r.Parent] {
			return &IntegrityError{Level: r.Level, Kind: KindMissingParent, Detail: fmt.Sprintf("record %q references unknown parent %q", r.ID, r.Parent)}
		}
	}

	for g, idx := range t.groups {
		ids := make(map[string]bool, len(idx))
		canonical := make(map[string]bool, len(idx))
		labels := make(map[string]bool, len(idx))
		for _, i := range idx {
			r := t.records[i]
			if ids[r.ID] {
				return &IntegrityError{Level: g.level, Kind: KindDuplicateID, Detail: fmt.Sprintf("id %q repeated under parent %q", r.ID, g.parent)}
			}
			if canonical[r.LabelCanonical] {
				return &IntegrityError{Level: g.level, Kind: KindDuplicateLabel, Detail: fmt.Sprintf("label %q repeated under parent %q", r.LabelCanonical, g.parent)}
			}
			if labels[r.Label] {
				return &IntegrityError{Level: g.level, Kind: KindDuplicateLabel, Detail: fmt.Sprintf("source label %q repeated under parent %q", r.Label, g.parent)}
			}
			ids[r.ID] = true
			canonical[r.LabelCanonical] = true
			labels[r.Label] = true
		}
	}
	return nil
}

// Levels returns the number of distinct levels.
func (t *Tree) Levels() int {
	return t.levels
}

// VersionMarker returns the opaque marker the tree was loaded with.
func (t *Tree) VersionMarker() string {
	return t.marker
}

// LevelFields returns the origin fields the tree was built from, level 1
// first. It is nil for trees built without them.
func (t *Tree) LevelFields() []string {
	if t.fields == nil {
		return nil
	}
	return append([]string(nil), t.fields...)
}

// WithLevelFields returns a copy of the tree bound to fields.
func (t *Tree) WithLevelFields(fields []string) *Tree {
	c := *t
	c.fields = append([]string(nil), fields...)
	return &c
}

// BuiltFrom reports whether the tree was built from exactly fields.
func (t *Tree) BuiltFrom(fields []string) bool {
	return slices.Equal(t.fields, fields)
}

// Len returns the number of records.
func (t *Tree) Len() int {
	return len(t.records)
}

// Records returns a copy of the records in load order.
func (t *Tree) Records() []model.TaxonomyRecord {
	out := make([]model.TaxonomyRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Counts returns the number of records per level.
func (t *Tree) Counts() map[int]int {
	counts := make(map[int]int, t.levels)
	for _, r := range t.records {
		counts[r.Level]++
	}
	return counts
}

// LabelsAt returns the canonical labels at level. When parent is non-empty
// only records whose parent ID equals it are returned. An empty result is
// valid and means there is nothing deeper to classify.
func (t *Tree) LabelsAt(level int, parent string) []string {
	var labels []string
	if parent != "" {
		for _, i := range t.groups[group{level: level, parent: parent}] {
			labels = append(labels, t.records[i].LabelCanonical)
		}
		return labels
	}
	for _, r := range t.records {
		if r.Level == level {
			labels = append(labels, r.LabelCanonical)
		}
	}
	return labels
}

// IDFor returns the ID of the first record with the given canonical label.
// An empty label yields an empty ID and no error.
func (t *Tree) IDFor(labelCanonical string) (string, error) {
	r, err := t.find(labelCanonical)
	if err != nil || r == nil {
		return "", err
	}
	return r.ID, nil
}

// DisplayLabelFor returns the source-language label of the first record
// with the given canonical label. An empty label yields an empty result.
func (t *Tree) DisplayLabelFor(labelCanonical string) (string, error) {
	r, err := t.find(labelCanonical)
	if err != nil || r == nil {
		return "", err
	}
	return r.Label, nil
}

func (t *Tree) find(labelCanonical string) (*model.TaxonomyRecord, error) {
	if labelCanonical == "" {
		return nil, nil
	}
	for i := range t.records {
		if t.records[i].LabelCanonical == labelCanonical {
			return &t.records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrLabelNotFound, labelCanonical)
}

// Resolve returns the record with the given canonical label inside the
// (level, parent) group. Labels are only unique per group, so this is the
// lookup to use when walking down the tree.
func (t *Tree) Resolve(level int, parent, labelCanonical string) (model.TaxonomyRecord, error) {
	if parent == "" {
		for _, r := range t.records {
			if r.Level == level && r.LabelCanonical == labelCanonical {
				return r, nil
			}
		}
	} else {
		for _, i := range t.groups[group{level: level, parent: parent}] {
			if t.records[i].LabelCanonical == labelCanonical {
				return t.records[i], nil
			}
		}
	}
	return model.TaxonomyRecord{}, fmt.Errorf("%w: %q at level %d", ErrLabelNotFound, labelCanonical, level)
}
