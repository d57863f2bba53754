package kobo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFieldMissing is returned when a submission lacks the text field.
var ErrFieldMissing = errors.New("kobo: field missing from submission")

// CleanSubmission lowercases keys and strips group prefixes
// ("group_x/question" becomes "question").
func CleanSubmission(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		key := strings.ToLower(k)
		if i := strings.LastIndex(key, "/"); i >= 0 {
			key = key[i+1:]
		}
		out[key] = v
	}
	return out
}

// SubmissionText returns the value of field in a Kobo submission. Field
// names are matched case-insensitively and without group prefixes.
func SubmissionText(payload map[string]any, field string) (string, error) {
	v, ok := CleanSubmission(payload)[strings.ToLower(field)]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %q", ErrFieldMissing, field)
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), nil
	}
	return s, nil
}

// SubmissionID returns the "_id" of a submission.
func SubmissionID(payload map[string]any) (string, error) {
	switch v := payload["_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrFieldMissing, "_id")
}
