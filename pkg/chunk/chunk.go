// pkg/chunk/chunk.go
// Package chunk splits response text at a fixed character boundary for
// chat front ends with message size limits.
package chunk

// DefaultLimit matches the message ceiling of common chat transports.
const DefaultLimit = 4000

// Split cuts text into pieces of at most limit characters, preserving
// order. Text within the limit comes back as a single chunk; empty text
// yields no chunks. Boundaries are rune boundaries, answers are
// Cyrillic and byte slicing would split characters.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
