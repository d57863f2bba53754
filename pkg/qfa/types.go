package qfa

import "github.com/rodekruis/qfa/internal/model"

// Origin systems.
const (
	SystemKobo    = model.SystemKobo
	SystemEspoCRM = model.SystemEspoCRM
)

// Origin names the system that owns a taxonomy.
type Origin struct {
	System      string   // SystemKobo or SystemEspoCRM
	ID          string   // Kobo asset uid or EspoCRM instance URL
	Token       string   // API token for the origin
	LevelFields []string // select_one question (Kobo) or entity (EspoCRM) per level
}

func (o Origin) internal() model.Origin {
	return model.Origin{System: o.System, ID: o.ID, Authorization: o.Token, LevelFields: o.LevelFields}
}

// Level is the result at one taxonomy level. Label fields are empty when
// the cascade stopped above this level.
type Level struct {
	Level          int    `json:"level"`
	ID             string `json:"id,omitempty"`
	Label          string `json:"label,omitempty"`           // as defined in the origin
	LabelCanonical string `json:"label_canonical,omitempty"` // working-language form
}

// Outcome is the classification of one text.
type Outcome struct {
	Text   string  `json:"text"`
	Levels []Level `json:"levels"`
}

// Label is one taxonomy entry.
type Label struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	LabelCanonical string `json:"label_canonical"`
	Level          int    `json:"level"`
	Parent         string `json:"parent,omitempty"`
}

func outcomeFromModel(o model.Outcome) Outcome {
	levels := make([]Level, len(o.Levels))
	for i, l := range o.Levels {
		levels[i] = Level{Level: l.Level, ID: l.ID, Label: l.Label, LabelCanonical: l.LabelCanonical}
	}
	return Outcome{Text: o.Text, Levels: levels}
}
