package project

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestStore_RoundTripPreservesOrdering(t *testing.T) {
	store := newTestStore(t)

	c, err := New("build a dashboard", ClassificationDev)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		c.LogEvent(fmt.Sprintf("EVENT_%d", i), "")
	}
	for _, typ := range []string{"PRD", "TAD", "BIR", "BIR_R"} {
		_, err := c.AppendArtifact(artifact.Artifact{Type: typ, Path: "/tmp/" + typ, CreatedBy: "test"})
		require.NoError(t, err)
	}

	require.NoError(t, store.Save(c))

	loaded, err := store.Load(c.ProjectID)
	require.NoError(t, err)

	require.Len(t, loaded.AuditLog, len(c.AuditLog))
	for i, ev := range c.AuditLog {
		assert.Equal(t, ev.Event, loaded.AuditLog[i].Event, "audit event %d out of order", i)
	}

	require.Len(t, loaded.Artifacts, 4)
	for i, a := range c.Artifacts {
		assert.Equal(t, a.Type, loaded.Artifacts[i].Type, "artifact %d out of order", i)
	}
	assert.Equal(t, c.Status, loaded.Status)
	assert.Equal(t, c.Classification, loaded.Classification)
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("PROJ-NOPE")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestStore_LoadByPrefix(t *testing.T) {
	store := newTestStore(t)

	a, err := New("project a", ClassificationDev)
	require.NoError(t, err)
	a.ProjectID = "PROJ-AAAA1111"
	require.NoError(t, store.Save(a))

	b, err := New("project b", ClassificationDS)
	require.NoError(t, err)
	b.ProjectID = "PROJ-BBBB2222"
	require.NoError(t, store.Save(b))

	got, err := store.LoadByPrefix("PROJ-AAAA")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-AAAA1111", got.ProjectID)

	_, err = store.LoadByPrefix("PROJ-")
	assert.ErrorIs(t, err, ErrAmbiguousProjectID)

	_, err = store.LoadByPrefix("PROJ-CCCC")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestStore_SaveOverwritesAtomically(t *testing.T) {
	store := newTestStore(t)

	c, err := New("build it", ClassificationDev)
	require.NoError(t, err)
	require.NoError(t, store.Save(c))

	c.LogEvent("SECOND_SAVE", "")
	require.NoError(t, store.Save(c))

	loaded, err := store.Load(c.ProjectID)
	require.NoError(t, err)
	require.Len(t, loaded.AuditLog, 1)

	// No stray temp files left behind.
	ids, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{c.ProjectID}, ids)
}
