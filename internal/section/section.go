// Package section parses markdown-style documents into named heading spans
// and serves targeted excerpts. A heading's span runs from the end of the
// heading line to the next heading of equal or higher level, so parent
// sections include all nested subsection content.
//
// Extraction is deterministic and structure-aware; it is the first tier of
// the context cascade. A document with no headings yields an empty index,
// which callers treat as the trigger for fallback extraction, not a failure.
package section

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended when a section is cut to fit the budget.
// Callers and tests match on it to detect degraded output.
const TruncationMarker = "[...truncated]"

// minTruncatedChars is the smallest slice of a section worth including when
// the budget runs out mid-section.
const minTruncatedChars = 200

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	leadingRe = regexp.MustCompile(`^[\d.\-)\s]+`)
)

// Heading is one parsed heading with its position in the document.
type Heading struct {
	Line  int
	Level int
	Text  string
}

// Index maps normalized heading text to that heading's content span. Each
// heading is keyed by both its raw lowercased text and a cleaned form with
// leading numbering and punctuation stripped, so "3. Security" and
// "security" resolve to the same span.
type Index struct {
	sections map[string]string
	// keys preserves document insertion order so flexible matching always
	// resolves to the first matching heading.
	keys     []string
	headings []Heading
}

// Parse builds a section index from raw document text.
func Parse(text string) *Index {
	lines := strings.Split(text, "\n")

	var headings []Heading
	for i, line := range lines {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil {
			headings = append(headings, Heading{
				Line:  i,
				Level: len(m[1]),
				Text:  strings.TrimSpace(m[2]),
			})
		}
	}

	idx := &Index{
		sections: make(map[string]string),
		headings: headings,
	}

	for i, h := range headings {
		// Span ends at the next heading of equal or higher level; deeper
		// headings stay inside the span.
		end := len(lines)
		for _, next := range headings[i+1:] {
			if next.Level <= h.Level {
				end = next.Line
				break
			}
		}

		content := strings.TrimSpace(strings.Join(lines[h.Line+1:end], "\n"))
		if content == "" {
			continue
		}

		normalized := strings.ToLower(h.Text)
		idx.add(normalized, content)

		cleaned := strings.TrimSpace(leadingRe.ReplaceAllString(normalized, ""))
		if cleaned != "" && cleaned != normalized {
			idx.add(cleaned, content)
		}
	}

	return idx
}

func (idx *Index) add(key, content string) {
	if _, ok := idx.sections[key]; !ok {
		idx.keys = append(idx.keys, key)
	}
	idx.sections[key] = content
}

// Empty reports whether the document had no headings with content. This is
// the defined trigger for fallback extraction.
func (idx *Index) Empty() bool {
	return len(idx.sections) == 0
}

// Headings returns the parsed headings in document order.
func (idx *Index) Headings() []Heading {
	return idx.headings
}

// Len returns the number of lookup keys in the index.
func (idx *Index) Len() int {
	return len(idx.sections)
}

// Find resolves a wanted section name using flexible matching, in order:
// exact key match, wanted-name contained in a key, a key contained in the
// wanted-name, then token-overlap scoring where the best key wins if its
// shared-word fraction exceeds overlapThreshold. Candidate keys are walked
// in document order, so the first matching heading always wins.
func (idx *Index) Find(wanted string, overlapThreshold float64) (string, bool) {
	wantedLower := strings.ToLower(strings.TrimSpace(wanted))
	if content, ok := idx.sections[wantedLower]; ok {
		return content, true
	}

	for _, key := range idx.keys {
		if strings.Contains(key, wantedLower) {
			return idx.sections[key], true
		}
	}
	for _, key := range idx.keys {
		if strings.Contains(wantedLower, key) {
			return idx.sections[key], true
		}
	}

	wantedWords := tokenSet(wantedLower)
	if len(wantedWords) == 0 {
		return "", false
	}

	var (
		bestScore   float64
		bestContent string
		found       bool
	)
	for _, key := range idx.keys {
		keyWords := tokenSet(key)
		if len(keyWords) == 0 {
			continue
		}
		overlap := 0
		for w := range wantedWords {
			if _, ok := keyWords[w]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(max(len(wantedWords), len(keyWords)))
		if score > bestScore && score > overlapThreshold {
			bestScore = score
			bestContent = idx.sections[key]
			found = true
		}
	}

	return bestContent, found
}

// Extract pulls the wanted sections out of text, concatenated with labeled
// separators and bounded by maxChars (0 means no limit). When the budget is
// exhausted mid-section the section is truncated and marked, and remaining
// wanted sections are dropped.
func Extract(text string, wanted []string, maxChars int, overlapThreshold float64) string {
	idx := Parse(text)
	if idx.Empty() {
		return ""
	}

	var parts []string
	total := 0

	for _, name := range wanted {
		content, ok := idx.Find(name, overlapThreshold)
		if !ok {
			continue
		}

		chunk := "\n--- " + strings.ToUpper(name) + " ---\n" + content
		if maxChars > 0 && total+len(chunk) > maxChars {
			remaining := maxChars - total
			if remaining > minTruncatedChars {
				parts = append(parts, Cut(chunk, remaining)+"\n"+TruncationMarker)
			}
			break
		}
		parts = append(parts, chunk)
		total += len(chunk)
	}

	return strings.Join(parts, "\n")
}

// Cut returns s shortened to at most n bytes, backed up so the cut never
// lands inside a multi-byte rune.
func Cut(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
