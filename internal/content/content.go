// Package content normalizes user-written text before it is stored and
// renders it for display.
package content

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	ugcPolicy   = bluemonday.UGCPolicy()

	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
			goldhtml.WithXHTML(),
		),
	)
)

func init() {
	ugcPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	ugcPolicy.RequireNoReferrerOnLinks(true)
}

// maxCleanPasses bounds how many layers of entity encoding Clean peels off.
const maxCleanPasses = 8

// Clean strips all markup and surrounding whitespace. The result is what gets
// stored; an empty result means the input had no real text.
//
// Entities are decoded before sanitizing so that encoded tags are stripped
// too, and the pass repeats until the text stops changing. Clean(Clean(s))
// is always Clean(s) for input that settles within maxCleanPasses; anything
// nested deeper is stored escaped.
func Clean(s string) string {
	cur := s
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanPass(cur)
		if next == cur {
			return next
		}
		cur = next
	}
	return html.EscapeString(cur)
}

func cleanPass(s string) string {
	stripped := stripPolicy.Sanitize(html.UnescapeString(s))
	// StrictPolicy escapes entities; store the plain text.
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// RenderMarkdown converts stored text to sanitized HTML.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	return string(ugcPolicy.SanitizeBytes(buf.Bytes()))
}
