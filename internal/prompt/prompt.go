// Package prompt turns search results and a question into a model prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/askweb/internal/search"
)

const (
	// MaxContextResults is how many search results feed the context.
	MaxContextResults = 2

	// MaxLineChars bounds each context line, counted in characters.
	MaxLineChars = 100
)

const template = `
Use the given context to answer the question clearly and concisely.

Question: %s

Context:
%s
`

// BuildContext renders the first MaxContextResults results as
// "title: snippet" lines, each cut to MaxLineChars, joined by newlines.
func BuildContext(results []search.Result) string {
	if len(results) > MaxContextResults {
		results = results[:MaxContextResults]
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, truncate(r.Line(), MaxLineChars))
	}
	return strings.Join(lines, "\n")
}

// Format embeds the question and context verbatim in the answer template.
func Format(question, context string) string {
	return fmt.Sprintf(template, question, context)
}

// truncate keeps at most n characters of s without splitting a rune.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
