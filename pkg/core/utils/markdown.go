package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

// CleanMarkdown strips the outer code fence models wrap reports in, leaving
// bare markdown ready for upload or rendering.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```markdown") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```markdown")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	} else if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	return cleaned
}

// ValidateMarkdown parses the input with goldmark and reports whether it
// yields a document with at least one block element. It rejects empty or
// whitespace-only model output before it gets written or uploaded anywhere.
func ValidateMarkdown(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	parser := goldmark.DefaultParser()
	doc := parser.Parse(text.NewReader([]byte(input)))
	return doc != nil && doc.HasChildren()
}
