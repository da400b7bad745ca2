package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/raphaelgruber/askweb/internal/search"
	"github.com/stretchr/testify/assert"
)

func TestBuildContext(t *testing.T) {
	tests := []struct {
		name    string
		results []search.Result
		want    string
	}{
		{"no results", nil, ""},
		{
			"single result",
			[]search.Result{{Title: "France", Snippet: "Paris is the capital..."}},
			"France: Paris is the capital...",
		},
		{
			"two results joined by newline",
			[]search.Result{
				{Title: "France", Snippet: "Paris is the capital..."},
				{Title: "Geo", Snippet: "France is in Europe..."},
			},
			"France: Paris is the capital...\nGeo: France is in Europe...",
		},
		{
			"only first two results used",
			[]search.Result{
				{Title: "a", Snippet: "1"},
				{Title: "b", Snippet: "2"},
				{Title: "c", Snippet: "3"},
			},
			"a: 1\nb: 2",
		},
		{
			"placeholders pass through",
			[]search.Result{{Title: search.DefaultTitle, Snippet: search.DefaultSnippet}},
			"No Title: No Content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildContext(tt.results))
		})
	}
}

func TestBuildContextBounds(t *testing.T) {
	long := strings.Repeat("x", 500)
	results := []search.Result{
		{Title: "first", Snippet: long},
		{Title: "second", Snippet: long},
		{Title: "third", Snippet: long},
		{Title: "fourth", Snippet: long},
	}

	lines := strings.Split(BuildContext(results), "\n")

	assert.Len(t, lines, MaxContextResults)
	for _, line := range lines {
		assert.Equal(t, MaxLineChars, utf8.RuneCountInString(line))
	}
	assert.True(t, strings.HasPrefix(lines[0], "first: "))
	assert.True(t, strings.HasPrefix(lines[1], "second: "))
}

func TestBuildContextTruncatesByCharacter(t *testing.T) {
	results := []search.Result{{Title: "Ünïcødé", Snippet: strings.Repeat("é", 200)}}

	line := BuildContext(results)

	assert.True(t, utf8.ValidString(line), "truncation must not split a rune")
	assert.Equal(t, MaxLineChars, utf8.RuneCountInString(line))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("", 3))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
}

func TestFormat(t *testing.T) {
	ctx := "France: Paris is the capital...\nGeo: France is in Europe..."

	got := Format("capital of France", ctx)

	want := "\nUse the given context to answer the question clearly and concisely.\n\n" +
		"Question: capital of France\n\n" +
		"Context:\n" + ctx + "\n"
	assert.Equal(t, want, got)
}

func TestFormatDoesNotEscape(t *testing.T) {
	got := Format("<b>100% {{.x}}</b>", "a & b")

	assert.Contains(t, got, "Question: <b>100% {{.x}}</b>")
	assert.Contains(t, got, "Context:\na & b\n")
}
