package services

import (
	"strings"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// maxHeadingLevel is the deepest heading the exporters render.
const maxHeadingLevel = 3

// ParseBlocks converts Markdown text to export blocks, one line at a time:
//   - "#", "##", "###" followed by a space start a heading of that level
//     (deeper headings render at level 3)
//   - "-" or "*" followed by a space start a bullet
//   - any other non-blank line is a paragraph
//
// Blank lines produce nothing. Inline markup is kept as text.
func ParseBlocks(markdown string) []domain.Block {
	var blocks []domain.Block
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, parseLine(line))
	}
	return blocks
}

func parseLine(line string) domain.Block {
	if level := headingLevel(line); level > 0 {
		text := strings.TrimSpace(line[level:])
		if level > maxHeadingLevel {
			level = maxHeadingLevel
		}
		return domain.Heading(level, text)
	}
	if (line[0] == '-' || line[0] == '*') && len(line) > 1 && line[1] == ' ' {
		return domain.Bullet(strings.TrimSpace(line[2:]))
	}
	return domain.Paragraph(line)
}

// headingLevel counts the leading '#' characters of a heading line.
// It returns 0 when the line is not a heading.
func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n == len(line) || line[n] != ' ' {
		return 0
	}
	return n
}
