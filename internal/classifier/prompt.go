package classifier

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs generative backends to answer with one label only.
const SystemPrompt = "You classify humanitarian community feedback. " +
	"Reply with exactly one category from the list, copied verbatim, and nothing else."

// Prompt renders the user message sent to generative backends.
func Prompt(text string, candidates []string) string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nFeedback:\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\nCategory:")
	return b.String()
}
