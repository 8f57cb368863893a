// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock normalizes an LLM response down to its JSON payload.
// LLMs often wrap JSON in ```json ... ``` blocks or conversational preamble
// even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	} else if strings.HasPrefix(text, "```") {
		// Handle generic ``` ... ``` blocks
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			// If first line looks like a language identifier (no spaces, short), skip it
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	// Strip preamble and trailing commentary around the first JSON value
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	start := objStart
	extract := extractJSONObject
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start = arrStart
		extract = extractJSONArray
	}
	if start < 0 {
		return text
	}
	if extracted := extract(text[start:]); extracted != "" {
		return extracted
	}
	return text
}

// extractJSONObject returns the balanced JSON object at the start of text,
// or the empty string if none begins there.
func extractJSONObject(text string) string {
	return scanBalanced(text, '{', '}')
}

// extractJSONArray returns the balanced JSON array at the start of text,
// or the empty string if none begins there.
func extractJSONArray(text string) string {
	return scanBalanced(text, '[', ']')
}

// scanBalanced walks text counting open/close pairs, ignoring delimiters
// inside string literals and escaped characters.
func scanBalanced(text string, openCh, closeCh byte) string {
	if len(text) == 0 || text[0] != openCh {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == openCh:
			depth++
		case ch == closeCh:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
