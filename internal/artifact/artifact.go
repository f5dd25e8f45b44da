// Package artifact defines the append-only artifact record log attached to a
// project. Artifacts are immutable pointers to produced documents; a revision
// is a new record with a related type code, never an in-place edit.
package artifact

import (
	"errors"
	"os"
	"strings"
	"time"
)

// Common errors.
var (
	ErrEmptyType = errors.New("artifact type cannot be empty")
	ErrEmptyPath = errors.New("artifact path cannot be empty")
)

// Artifact is an immutable record pointing to one produced document.
type Artifact struct {
	// Type is the short document code, e.g. "PRD", "BIR". Revision suffixes
	// such as "BIR_R" share the base code as a prefix.
	Type string `json:"type"`

	// Name is a human-readable artifact name.
	Name string `json:"name,omitempty"`

	// Path is the location of the document content.
	Path string `json:"path"`

	// Description summarizes the artifact for handoff packages.
	Description string `json:"description,omitempty"`

	// CreatedBy identifies the producing stage.
	CreatedBy string `json:"created_by"`

	// CreatedAt is when the record was appended.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required fields before appending.
func (a Artifact) Validate() error {
	if a.Type == "" {
		return ErrEmptyType
	}
	if a.Path == "" {
		return ErrEmptyPath
	}
	return nil
}

// Exists reports whether the referenced document is present on disk.
func (a Artifact) Exists() bool {
	info, err := os.Stat(a.Path)
	return err == nil && !info.IsDir()
}

// Log is the ordered, append-only sequence of artifacts for one project.
// There are no update or delete operations; callers needing a new version
// append a new record.
type Log []Artifact

// Append adds a record with a generated timestamp and returns the stored
// artifact. The receiver is a pointer so the backing slice grows in place.
func (l *Log) Append(a Artifact) (Artifact, error) {
	if err := a.Validate(); err != nil {
		return Artifact{}, err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	*l = append(*l, a)
	return a, nil
}

// Latest returns the most recently appended artifact matching the given type.
// Matching is flexible: exact, or the requested type is a prefix of the
// stored type (so "BIR" resolves "BIR_R" revisions; most recent wins).
// Absence is an expected condition, reported via the bool, never an error.
func (l Log) Latest(artifactType string) (Artifact, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if matchesType(l[i].Type, artifactType) {
			return l[i], true
		}
	}
	return Artifact{}, false
}

// LatestPath returns the path of the latest on-disk artifact of the given
// type. Records whose file has gone missing are skipped.
func (l Log) LatestPath(artifactType string) (string, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if matchesType(l[i].Type, artifactType) && l[i].Exists() {
			return l[i].Path, true
		}
	}
	return "", false
}

func matchesType(stored, requested string) bool {
	return stored == requested || strings.HasPrefix(stored, requested)
}

// BaseType strips a revision suffix from an artifact type, so "BIR_R"
// yields "BIR". Types without a suffix are returned unchanged.
func BaseType(artifactType string) string {
	if i := strings.Index(artifactType, "_"); i > 0 {
		return artifactType[:i]
	}
	return artifactType
}
