package chunkstore

import "strings"

// boundary preference for chunk breaks, strongest first
var breakMarkers = []string{"\n\n", "\n", ". ", " "}

// Split cuts content into overlapping windows of at most maxChars
// characters. Consecutive windows overlap by overlapChars. Each window
// prefers to end on a paragraph, line, sentence or word boundary, falling
// back to a hard character cut.
func Split(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	content = strings.TrimSpace(content)
	if len(content) == 0 {
		return nil
	}
	if len(content) <= maxChars {
		return []string{content}
	}

	var chunks []string
	contentLen := len(content)
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		if end < contentLen {
			end = findBreak(content, start, end)
		}

		chunk := strings.TrimSpace(content[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == contentLen {
			break
		}

		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// findBreak looks for a natural boundary within the last fifth of the
// window and returns the index just past it. Falls back to the raw cut.
func findBreak(content string, start, end int) int {
	lookBack := (end - start) / 5
	if lookBack == 0 {
		return end
	}
	limit := end - lookBack
	if limit < start {
		limit = start
	}
	for _, marker := range breakMarkers {
		if idx := strings.LastIndex(content[limit:end], marker); idx >= 0 {
			return limit + idx + len(marker)
		}
	}
	return end
}
