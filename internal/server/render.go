package server

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

	answerPolicyOnce sync.Once
	answerPolicy     *bluemonday.Policy
)

// answerHTMLPolicy allows the formatting a model answer typically carries
// (paragraphs, lists, code, tables, links) and strips everything else.
func answerHTMLPolicy() *bluemonday.Policy {
	answerPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").OnElements("code", "pre")
		policy.AllowURLSchemes("http", "https", "mailto")
		policy.RequireParseableURLs(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		answerPolicy = policy
	})
	return answerPolicy
}

// renderMarkdown converts an answer to sanitized HTML. If conversion fails
// the answer is shown as escaped text.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(answerHTMLPolicy().SanitizeBytes(buf.Bytes()))
}
