package loader

import "strings"

// splitChunks cuts text into overlapping windows for the semantic index.
// Cuts prefer paragraph breaks, then line breaks, then word boundaries, and
// only fall back to a hard cut for unbroken runs. Overlap carries trailing
// context into the next chunk so sentences spanning a cut stay searchable.
func splitChunks(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := boundary(text[start:end])
		if cut <= 0 {
			cut = size
		}
		chunk := strings.TrimSpace(text[start : start+cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := start + cut - overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return chunks
}

// boundary finds the best cut point inside a window, scanning from the end.
// Cuts in the first half of the window are rejected so pathological inputs
// cannot produce tiny chunks.
func boundary(window string) int {
	half := len(window) / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > half {
			return i
		}
	}
	return -1
}
