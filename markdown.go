package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdownRenderer converts article bodies to the HTML the CMS stores.
// Fenced code is part of CommonMark; tables need the extension.
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

var headingPattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// renderMarkdown converts a markdown body to HTML.
func renderMarkdown(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// firstHeading returns the text of the first top-level heading, or "".
func firstHeading(body string) string {
	m := headingPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
