package model

// Feedback is a single item of free text to classify, as read by the batch pipeline.
type Feedback struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Result is the pipeline's output record for one Feedback item.
type Result struct {
	ID      string   `json:"id"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Error   string   `json:"error,omitempty"`
}
