package jira

import (
	"encoding/json"
	"strings"
)

// ADFNode is a node in an Atlassian Document Format tree. Only the subset
// needed for plain-text descriptions and comments is modeled; unknown node
// types still unmarshal and their text content is recoverable.
type ADFNode struct {
	Type    string    `json:"type"`
	Version int       `json:"version,omitempty"`
	Text    string    `json:"text,omitempty"`
	Content []ADFNode `json:"content,omitempty"`
}

// ADFDocument wraps plain text in a single-paragraph ADF document, the
// payload shape JIRA Cloud expects for descriptions and comments.
func ADFDocument(text string) ADFNode {
	return ADFNode{
		Type:    "doc",
		Version: 1,
		Content: []ADFNode{
			{
				Type: "paragraph",
				Content: []ADFNode{
					{Type: "text", Text: text},
				},
			},
		},
	}
}

// ADFText extracts the plain text from a raw ADF document. Paragraph-level
// nodes become separate lines. Returns "" for empty or non-ADF input.
func ADFText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var doc ADFNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Older API versions return descriptions as a bare string.
		var plain string
		if json.Unmarshal(raw, &plain) == nil {
			return plain
		}
		return ""
	}

	var blocks []string
	for _, block := range doc.Content {
		if text := collectText(block); text != "" {
			blocks = append(blocks, text)
		}
	}
	return strings.Join(blocks, "\n")
}

func collectText(node ADFNode) string {
	if node.Type == "text" {
		return node.Text
	}
	var sb strings.Builder
	for _, child := range node.Content {
		sb.WriteString(collectText(child))
	}
	return sb.String()
}
