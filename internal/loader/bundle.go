package loader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingContext is returned by Require when upstream artifacts the
// stage depends on have not been produced.
var ErrMissingContext = errors.New("missing required context")

// Tier identifies which cascade step produced an extract.
type Tier string

const (
	// TierSection is structured heading extraction.
	TierSection Tier = "section"

	// TierSemantic is scoped similarity search over indexed chunks.
	TierSemantic Tier = "semantic"

	// TierRaw is the bounded raw-document fallback.
	TierRaw Tier = "raw"
)

// Extract is the context served for one artifact type.
type Extract struct {
	// Type is the artifact type code the extract came from.
	Type string

	// Text is the extracted content.
	Text string

	// Tier records which cascade step produced Text.
	Tier Tier

	// Truncated reports whether Text was cut to fit the budget.
	Truncated bool
}

// Bundle is the full context delivered to one stage, keyed by artifact type
// and ordered as requested.
type Bundle struct {
	extracts map[string]Extract
	order    []string
}

func newBundle() *Bundle {
	return &Bundle{extracts: make(map[string]Extract)}
}

func (b *Bundle) add(e Extract) {
	if _, ok := b.extracts[e.Type]; !ok {
		b.order = append(b.order, e.Type)
	}
	b.extracts[e.Type] = e
}

// Get returns the extract for an artifact type.
func (b *Bundle) Get(artifactType string) (Extract, bool) {
	e, ok := b.extracts[artifactType]
	return e, ok
}

// Types returns the present artifact types in request order.
func (b *Bundle) Types() []string {
	return append([]string(nil), b.order...)
}

// Require checks that every named artifact type is present, reporting all
// gaps in a single error so the caller sees the complete precondition
// failure at once.
func (b *Bundle) Require(types ...string) error {
	var missing []string
	for _, t := range types {
		if _, ok := b.extracts[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingContext, strings.Join(missing, ", "))
	}
	return nil
}

// Format renders the bundle as prompt text with one labeled banner per
// document. Labels maps type codes to display names; unlisted types use
// their code. Raw-tier extracts carry an explicit warning so the consumer
// knows the content is unfiltered.
func (b *Bundle) Format(labels map[string]string) string {
	var sb strings.Builder
	for _, t := range b.order {
		e := b.extracts[t]
		label := labels[t]
		if label == "" {
			label = t
		}

		sb.WriteString("=== ")
		sb.WriteString(label)
		sb.WriteString(" ===\n")
		if e.Tier == TierRaw {
			sb.WriteString("[NOTE: raw document excerpt, sections could not be isolated]\n")
		}
		sb.WriteString(e.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
