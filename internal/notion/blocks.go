package notion

import (
	"regexp"
	"strings"
)

// richText is one rich_text fragment in a block or property value.
type richText struct {
	Type        string       `json:"type,omitempty"`
	Text        *textContent `json:"text,omitempty"`
	Annotations *annotations `json:"annotations,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
	Link    *link  `json:"link,omitempty"`
}

type link struct {
	URL string `json:"url"`
}

type annotations struct {
	Bold bool `json:"bold,omitempty"`
}

// block is one Notion content block. Exactly one payload field is non-nil,
// matching Type.
type block struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Heading1  *blockText `json:"heading_1,omitempty"`
	Heading2  *blockText `json:"heading_2,omitempty"`
	Heading3  *blockText `json:"heading_3,omitempty"`
	Bulleted  *blockText `json:"bulleted_list_item,omitempty"`
	Numbered  *blockText `json:"numbered_list_item,omitempty"`
	Quote     *blockText `json:"quote,omitempty"`
	Paragraph *blockText `json:"paragraph,omitempty"`
	Divider   *struct{}  `json:"divider,omitempty"`
}

type blockText struct {
	RichText []richText `json:"rich_text"`
}

func plainText(content string) richText {
	return richText{
		Type: "text",
		Text: &textContent{Content: truncate(content, maxRichTextLen)},
	}
}

func textBlock(content string) *blockText {
	return &blockText{RichText: []richText{plainText(content)}}
}

func newBlock(blockType string, content string) block {
	b := block{Object: "block", Type: blockType}
	switch blockType {
	case "heading_1":
		b.Heading1 = textBlock(content)
	case "heading_2":
		b.Heading2 = textBlock(content)
	case "heading_3":
		b.Heading3 = textBlock(content)
	case "bulleted_list_item":
		b.Bulleted = textBlock(content)
	case "numbered_list_item":
		b.Numbered = textBlock(content)
	case "quote":
		b.Quote = textBlock(content)
	case "divider":
		b.Divider = &struct{}{}
	default:
		b.Type = "paragraph"
		b.Paragraph = textBlock(content)
	}
	return b
}

var numberedItem = regexp.MustCompile(`^\d+\. `)

// MarkdownToBlocks converts markdown text to Notion blocks. It handles the
// subset the digest summaries use: headings 1-3, bulleted and numbered list
// items, dividers, quotes, and paragraphs. Blank lines are skipped.
func MarkdownToBlocks(markdown string) []block {
	var blocks []block
	for _, line := range strings.Split(markdown, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, newBlock("heading_1", strings.TrimSpace(line[2:])))
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, newBlock("heading_2", strings.TrimSpace(line[3:])))
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, newBlock("heading_3", strings.TrimSpace(line[4:])))
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			blocks = append(blocks, newBlock("bulleted_list_item", strings.TrimSpace(line[2:])))
		case numberedItem.MatchString(line):
			prefix := numberedItem.FindString(line)
			blocks = append(blocks, newBlock("numbered_list_item", strings.TrimSpace(line[len(prefix):])))
		case isDivider(line):
			blocks = append(blocks, newBlock("divider", ""))
		case strings.HasPrefix(line, "> "):
			blocks = append(blocks, newBlock("quote", strings.TrimSpace(line[2:])))
		default:
			blocks = append(blocks, newBlock("paragraph", strings.TrimSpace(line)))
		}
	}
	return blocks
}

func isDivider(line string) bool {
	switch strings.TrimSpace(line) {
	case "---", "***", "___":
		return true
	}
	return false
}

// truncate caps text at max runes, replacing the tail with "..." when over.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
