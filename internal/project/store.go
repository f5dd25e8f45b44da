package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Store persists one JSON document per project. Every mutation of a context
// must be followed by Save before any further action: durability precedes
// notification and progression.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

// Save writes the full context atomically (temp file + rename). A crash
// mid-write leaves the previous document intact, which is what makes
// crash-and-resume safe for stages.
func (s *Store) Save(c *Context) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling context %s: %w", c.ProjectID, err)
	}

	target := s.path(c.ProjectID)
	tmp, err := os.CreateTemp(s.dir, c.ProjectID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing context %s: %w", c.ProjectID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing context %s: %w", c.ProjectID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persisting context %s: %w", c.ProjectID, err)
	}

	s.logger.Debug("context saved",
		zap.String("project_id", c.ProjectID),
		zap.String("status", string(c.Status)),
	)
	return nil
}

// Load reads a context by exact project ID.
func (s *Store) Load(projectID string) (*Context, error) {
	data, err := os.ReadFile(s.path(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("reading context %s: %w", projectID, err)
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling context %s: %w", projectID, err)
	}
	return &c, nil
}

// LoadByPrefix resolves a context by project ID prefix, for CLI convenience.
// An ambiguous prefix is an error listing nothing; absence is
// ErrProjectNotFound.
func (s *Store) LoadByPrefix(prefix string) (*Context, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty prefix", ErrProjectNotFound)
	}

	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, id := range ids {
		if id == prefix {
			return s.Load(id)
		}
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, prefix)
	case 1:
		return s.Load(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s matches %d projects", ErrAmbiguousProjectID, prefix, len(matches))
	}
}

// List returns all stored project IDs, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing state directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
