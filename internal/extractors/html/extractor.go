// Package html extracts readable text from HTML uploads.
package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"

	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates an HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "html"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Extract strips markup and returns the visible text, one line per block.
func (e *Extractor) Extract(_ context.Context, _ string, content []byte) (string, error) {
	text, err := stripHTML(content)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return text, nil
}

const hiddenSelector = "head, script, style, noscript, svg, template"

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "li": true, "ul": true, "ol": true, "tr": true, "table": true,
	"blockquote": true, "pre": true, "br": true, "hr": true,
}

var spaces = regexp.MustCompile(`[ \t\x{00a0}]+`)

// stripHTML drops hidden elements and returns the non-empty text lines.
// The parser decodes entities and discards comments.
func stripHTML(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	doc.Find(hiddenSelector).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func writeText(b *strings.Builder, n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		b.WriteString(n.Data)
		return
	case nethtml.CommentNode:
		return
	}

	block := n.Type == nethtml.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	switch {
	case block:
		b.WriteByte('\n')
	case n.Type == nethtml.ElementNode && (n.Data == "td" || n.Data == "th"):
		b.WriteByte('\t')
	}
}
