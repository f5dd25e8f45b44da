// Package contextmap holds the static table describing which sections of
// each upstream document each downstream consumer cares about. It is data,
// not code: a built-in table ships with the binary and a YAML file can
// replace it without touching extraction logic.
package contextmap

import (
	"fmt"
	"os"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Map is the consumer -> artifact type -> wanted section names table.
type Map struct {
	consumers map[string]map[string][]string
}

// New builds a Map from a raw table. The table is copied.
func New(table map[string]map[string][]string) *Map {
	consumers := make(map[string]map[string][]string, len(table))
	for consumer, byArtifact := range table {
		entry := make(map[string][]string, len(byArtifact))
		for artifactType, sections := range byArtifact {
			entry[artifactType] = append([]string(nil), sections...)
		}
		consumers[consumer] = entry
	}
	return &Map{consumers: consumers}
}

// Load reads a Map from a YAML file of the shape:
//
//	qa_lead:
//	  PRD: [user stories, acceptance criteria]
//	  BIR: [database schema]
//
// An empty path returns the built-in default table.
func Load(path string) (*Map, error) {
	if path == "" {
		return New(defaultTable), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context map %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing context map %s: %w", path, err)
	}

	table := make(map[string]map[string][]string)
	if err := k.Unmarshal("", &table); err != nil {
		return nil, fmt.Errorf("unmarshaling context map %s: %w", path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("context map %s defines no consumers", path)
	}
	return New(table), nil
}

// Sections returns the wanted section names for a consumer and artifact
// type. A consumer with no entry for the type gets nothing: absence means
// the consumer does not read that document.
func (m *Map) Sections(consumer, artifactType string) []string {
	byArtifact, ok := m.consumers[consumer]
	if !ok {
		return nil
	}
	return byArtifact[artifactType]
}

// Consumers returns all configured consumer IDs, sorted.
func (m *Map) Consumers() []string {
	out := make([]string, 0, len(m.consumers))
	for c := range m.consumers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate checks referential completeness: every consumer a pipeline stage
// names must have at least one artifact entry. All gaps are reported in one
// pass.
func (m *Map) Validate(required []string) error {
	var missing []string
	for _, consumer := range required {
		if len(m.consumers[consumer]) == 0 {
			missing = append(missing, consumer)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("context map has no entries for consumers: %v", missing)
	}
	return nil
}
