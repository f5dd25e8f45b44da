package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		request        string
		classification Classification
		wantErr        error
	}{
		{
			name:           "valid dev project",
			request:        "build a trip dashboard",
			classification: ClassificationDev,
		},
		{
			name:           "empty request",
			request:        "   ",
			classification: ClassificationDev,
			wantErr:        ErrEmptyRequest,
		},
		{
			name:           "unknown classification",
			request:        "analyze trips",
			classification: Classification("UNKNOWN"),
			wantErr:        ErrInvalidClassification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.request, tt.classification)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, len(c.ProjectID) > 5 && c.ProjectID[:5] == "PROJ-")
			assert.Equal(t, StatusInitiated, c.Status)
			assert.Equal(t, tt.classification, c.Classification)
			assert.Empty(t, c.AuditLog)
		})
	}
}

func TestContext_AppendArtifactLogsEvent(t *testing.T) {
	c, err := New("build a dashboard", ClassificationDev)
	require.NoError(t, err)

	_, err = c.AppendArtifact(artifact.Artifact{Type: "PRD", Path: "/tmp/prd.md", CreatedBy: "product_manager"})
	require.NoError(t, err)

	require.Len(t, c.AuditLog, 1)
	assert.Equal(t, "ARTIFACT_REGISTERED", c.AuditLog[0].Event)
	assert.Contains(t, c.AuditLog[0].Detail, "PRD")
}

func testMachine() *Machine {
	return NewMachine(
		[]string{"PRD", "TAD", "BIR"},
		[]string{"DSP", "ADR"},
	)
}

func TestMachine_DevTrackForward(t *testing.T) {
	m := testMachine()
	c, err := New("build it", ClassificationDev)
	require.NoError(t, err)

	steps := []Status{
		StatusClassified,
		StatusRoutedToDev,
		StageComplete("PRD"),
		StageComplete("TAD"),
		StageComplete("BIR"),
		StatusComplete,
	}
	for _, to := range steps {
		require.NoError(t, m.Advance(c, to), "advance to %s", to)
		assert.Equal(t, to, c.Status)
	}
}

func TestMachine_RejectsIllegalTransitions(t *testing.T) {
	m := testMachine()

	t.Run("jump over a stage", func(t *testing.T) {
		c, err := New("build it", ClassificationDev)
		require.NoError(t, err)
		require.NoError(t, m.Advance(c, StatusClassified))
		require.NoError(t, m.Advance(c, StatusRoutedToDev))

		err = m.Advance(c, StageComplete("TAD"))
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, StatusRoutedToDev, c.Status, "status must not move on rejection")
	})

	t.Run("silent regression", func(t *testing.T) {
		c, err := New("build it", ClassificationDev)
		require.NoError(t, err)
		require.NoError(t, m.Advance(c, StatusClassified))
		require.NoError(t, m.Advance(c, StatusRoutedToDev))
		require.NoError(t, m.Advance(c, StageComplete("PRD")))

		err = m.Advance(c, StatusRoutedToDev)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("phase2 activation requires handoff approval", func(t *testing.T) {
		c := jointContext(t, DirectionDSToDev)
		require.NoError(t, m.Advance(c, StatusClassified))
		require.NoError(t, m.Advance(c, StatusRoutedToDSPhase1))
		require.NoError(t, m.Advance(c, StageComplete("DSP")))
		require.NoError(t, m.Advance(c, StageComplete("ADR")))

		err := m.Advance(c, ActivePhase2(CrewDev))
		assert.ErrorIs(t, err, ErrIllegalTransition)

		require.NoError(t, m.BeginPhase2(c, CrewDev))
		assert.Equal(t, ActivePhase2(CrewDev), c.Status)
	})
}

func jointContext(t *testing.T, dir HandoffDirection) *Context {
	t.Helper()
	c, err := New("analyze then build", ClassificationJoint)
	require.NoError(t, err)
	c.HandoffDirection = dir
	if dir == DirectionDSToDev {
		c.Phase1Crew, c.Phase2Crew = CrewDS, CrewDev
	} else {
		c.Phase1Crew, c.Phase2Crew = CrewDev, CrewDS
	}
	return c
}

func TestMachine_ReturnAndResubmit(t *testing.T) {
	m := testMachine()
	c := jointContext(t, DirectionDSToDev)
	require.NoError(t, m.Advance(c, StatusClassified))
	require.NoError(t, m.Advance(c, StatusRoutedToDSPhase1))
	require.NoError(t, m.Advance(c, StageComplete("DSP")))
	require.NoError(t, m.Advance(c, StageComplete("ADR")))

	m.Return(c, CrewDS, "insufficient acceptance criteria")
	assert.Equal(t, ReturnedTo(CrewDS), c.Status)

	// Resubmission after rejection activates phase 2.
	require.NoError(t, m.BeginPhase2(c, CrewDev))
	assert.Equal(t, ActivePhase2(CrewDev), c.Status)
}

func TestMachine_BidirectionalIsManual(t *testing.T) {
	m := testMachine()
	c := jointContext(t, DirectionBidirectional)
	require.NoError(t, m.Advance(c, StatusClassified))
	require.NoError(t, m.Advance(c, StatusRoutedBidirectional))

	err := m.Advance(c, StatusComplete)
	assert.ErrorIs(t, err, ErrManualTrack)
}

func TestMachine_Reached(t *testing.T) {
	m := testMachine()
	c, err := New("build it", ClassificationDev)
	require.NoError(t, err)
	require.NoError(t, m.Advance(c, StatusClassified))
	require.NoError(t, m.Advance(c, StatusRoutedToDev))
	require.NoError(t, m.Advance(c, StageComplete("PRD")))
	require.NoError(t, m.Advance(c, StageComplete("TAD")))

	assert.True(t, m.Reached(c, StageComplete("PRD")))
	assert.True(t, m.Reached(c, StageComplete("TAD")))
	assert.False(t, m.Reached(c, StageComplete("BIR")))
}

func TestMachine_RoutingFailed(t *testing.T) {
	m := testMachine()
	c, err := New("build it", ClassificationDev)
	require.NoError(t, err)
	require.NoError(t, m.Advance(c, StatusClassified))
	require.NoError(t, m.Advance(c, StatusRoutingFailed))
	assert.Equal(t, StatusRoutingFailed, c.Status)

	// Routing failure is off-track; nothing has been reached.
	assert.False(t, m.Reached(c, StageComplete("PRD")))
}
