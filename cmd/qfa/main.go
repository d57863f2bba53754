// Command qfa classifies free-text feedback against the taxonomy of the
// system it came from.
//
// Usage:
//
//	qfa schema load --system kobo --origin <asset uid> --levels type,category
//	qfa classify --system kobo --origin <asset uid> --levels type,category --text "..."
//	qfa batch --system espocrm --origin https://crm.example.org --levels Type,Category < feedback.ndjson
//
// See --help for all available options.
package main

func main() {
	Execute()
}
