package model

// TaxonomyRecord is one label of a leveled taxonomy.
type TaxonomyRecord struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`           // source-language display form
	LabelCanonical string   `json:"label_canonical"` // working-language form used for matching
	Level          int      `json:"level"`
	Parent         string   `json:"parent,omitempty"` // ID of the parent record at Level-1; empty at level 1
	Examples       []string `json:"examples,omitempty"`
}

// SourceRecord is a taxonomy row projected out of a source-native payload,
// before validation and translation.
type SourceRecord struct {
	ID         string
	Label      string
	Level      int
	Parent     string
	ModifiedAt string // source timestamp, if the source tracks one
}

// Snapshot is the authoritative result of fetching a taxonomy from its origin.
type Snapshot struct {
	Records []SourceRecord
	Marker  string // opaque version marker
}

// Probe is the cheap freshness answer of a source. Counts holds the number
// of records per level; nil when the source cannot count without a full fetch.
type Probe struct {
	Marker string
	Counts map[int]int
}
