package model

// LevelResult is the classification outcome of a single taxonomy level.
// All label fields are empty when the cascade stopped before this level.
type LevelResult struct {
	Level          int    `json:"level"`
	LabelCanonical string `json:"label_canonical,omitempty"`
	Label          string `json:"label,omitempty"`
	ID             string `json:"id,omitempty"`
}

// Chosen reports whether a label was assigned at this level.
func (r LevelResult) Chosen() bool {
	return r.LabelCanonical != ""
}

// Outcome is the structured result of classifying one text.
type Outcome struct {
	Text   string        `json:"text,omitempty"`
	Levels []LevelResult `json:"levels"`
}

// At returns the result for level k (1-based). Levels beyond the taxonomy
// depth return an empty result.
func (o Outcome) At(k int) LevelResult {
	if k < 1 || k > len(o.Levels) {
		return LevelResult{Level: k}
	}
	return o.Levels[k-1]
}
