package model

// Origin system names.
const (
	SystemKobo    = "kobo"
	SystemEspoCRM = "espocrm"
)

// Origin identifies the external system that owns a taxonomy and receives
// classification results.
type Origin struct {
	System        string   `json:"system"`       // "kobo", "espocrm"
	ID            string   `json:"origin"`       // asset uid or instance URL
	Authorization string   `json:"-"`            // API token
	LevelFields   []string `json:"level_fields"` // question or entity name per level, level 1 first
	TextField     string   `json:"text_field"`   // payload field holding the feedback text
}
