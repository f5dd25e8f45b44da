package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/approval"
	"github.com/fyrsmithlabs/crewd/internal/config"
	"github.com/fyrsmithlabs/crewd/internal/contextmap"
	"github.com/fyrsmithlabs/crewd/internal/loader"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

type scriptApprover struct {
	decision approval.Decision
	calls    int
}

func (a *scriptApprover) Decide(context.Context, approval.Prompt) (approval.Decision, error) {
	a.calls++
	return a.decision, nil
}

// templateRunner produces a deterministic document per stage.
type templateRunner struct {
	ran []string
}

func (r *templateRunner) Run(_ context.Context, stage Stage, in RunInput) (string, error) {
	r.ran = append(r.ran, stage.Code)
	return fmt.Sprintf("# %s\n\n## Methodology\n\n%s\n\n## Findings\n\n%s\n",
		stage.Name,
		strings.Repeat("how the work was done. ", 10),
		strings.Repeat("what was found. ", 10)), nil
}

func newTestService(t *testing.T, approver approval.Approver) (*Service, *project.Store) {
	t.Helper()
	store, err := project.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	gate, err := approval.NewGate(approver, nil, store, zap.NewNop())
	require.NoError(t, err)
	svc, err := NewService(KeywordClassifier{}, gate, store, NewMachine(), zap.NewNop())
	require.NoError(t, err)
	return svc, store
}

func newTestExecutor(t *testing.T, store *project.Store) *Executor {
	t.Helper()
	cmap, err := contextmap.Load("")
	require.NoError(t, err)
	ld := loader.New(cmap, nil, config.Default().Extraction, zap.NewNop())
	exec, err := NewExecutor(ld, nil, NewMachine(), store, t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return exec
}

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		request string
		want    project.Classification
	}{
		{"build a customer portal with an api", project.ClassificationDev},
		{"forecast churn from the billing dataset", project.ClassificationDS},
		{"predict churn and build a dashboard for it", project.ClassificationJoint},
	}
	for _, tt := range tests {
		got, spec, err := KeywordClassifier{}.Classify(context.Background(), tt.request)
		require.NoError(t, err, tt.request)
		assert.Equal(t, tt.want, got, tt.request)
		assert.Equal(t, tt.want, spec.PrimaryCrew)
	}

	_, _, err := KeywordClassifier{}.Classify(context.Background(), "hello there")
	assert.ErrorIs(t, err, ErrUnclassifiable)
}

func TestKeywordClassifierJointDirection(t *testing.T) {
	_, spec, err := KeywordClassifier{}.Classify(context.Background(),
		"train a churn model and expose it through an api")
	require.NoError(t, err)
	assert.Equal(t, project.DirectionDSToDev, spec.HandoffDirection)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Build the portal", title("Build the portal. Users need self-service."))
	long := strings.Repeat("word ", 30)
	assert.LessOrEqual(t, len(title(long)), 60)
}

func TestTriageApprovedRoutesDev(t *testing.T) {
	approver := &scriptApprover{decision: approval.Decision{Approved: true}}
	svc, store := newTestService(t, approver)

	proj, err := svc.Triage(context.Background(), "build a customer portal with an api")
	require.NoError(t, err)

	assert.Equal(t, project.StatusRoutedToDev, proj.Status)
	assert.Equal(t, "development", proj.AssignedCrew)
	assert.Equal(t, "senior_dev", proj.CrewLead)
	assert.Equal(t, 1, approver.calls)

	onDisk, err := store.Load(proj.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, project.StatusRoutedToDev, onDisk.Status)
	require.NotEmpty(t, onDisk.Checkpoints)
	assert.Equal(t, "TRIAGE", onDisk.Checkpoints[0].Name)
	assert.Equal(t, project.CheckpointApproved, onDisk.Checkpoints[0].Outcome)
}

func TestTriageRejectedStaysInitiated(t *testing.T) {
	approver := &scriptApprover{decision: approval.Decision{Reason: "scope unclear"}}
	svc, store := newTestService(t, approver)

	proj, err := svc.Triage(context.Background(), "build a customer portal")
	require.ErrorIs(t, err, ErrTriageRejected)
	require.NotNil(t, proj)
	assert.Equal(t, project.StatusInitiated, proj.Status)

	onDisk, err := store.Load(proj.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, project.CheckpointRejected, onDisk.Checkpoints[0].Outcome)
	assert.Equal(t, "scope unclear", onDisk.Checkpoints[0].Reason)
}

func TestTriageJointRoutesPhase1(t *testing.T) {
	approver := &scriptApprover{decision: approval.Decision{Approved: true}}
	svc, _ := newTestService(t, approver)

	proj, err := svc.Triage(context.Background(), "predict churn and build a dashboard")
	require.NoError(t, err)

	assert.Equal(t, project.StatusRoutedToDSPhase1, proj.Status)
	assert.Equal(t, project.CrewDS, proj.Phase1Crew)
	assert.Equal(t, project.CrewDev, proj.Phase2Crew)
}

func TestRouteBidirectionalIsManual(t *testing.T) {
	approver := &scriptApprover{decision: approval.Decision{Approved: true}}
	svc, _ := newTestService(t, approver)

	proj, err := project.New("joint effort", project.ClassificationJoint)
	require.NoError(t, err)
	proj.HandoffDirection = project.DirectionBidirectional
	proj.Status = project.StatusClassified

	require.NoError(t, svc.Route(context.Background(), proj))
	assert.Equal(t, project.StatusRoutedBidirectional, proj.Status)
	assert.Equal(t, "manual coordination required", proj.NextAction)

	// No automated transition leaves the manual state.
	err = NewMachine().Advance(proj, project.StatusComplete)
	assert.ErrorIs(t, err, project.ErrManualTrack)
}

func TestDefaultContextMapCoversAllStages(t *testing.T) {
	cmap, err := contextmap.Load("")
	require.NoError(t, err)
	assert.NoError(t, cmap.Validate(Consumers(DevStages(), DSStages())))
}

func TestRunTrackDS(t *testing.T) {
	store, err := project.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	exec := newTestExecutor(t, store)

	proj, err := project.New("forecast churn from the dataset", project.ClassificationDS)
	require.NoError(t, err)
	proj.Status = project.StatusRoutedToDS
	require.NoError(t, store.Save(proj))

	runner := &templateRunner{}
	ran, err := exec.RunTrack(context.Background(), proj, project.CrewDS, runner)
	require.NoError(t, err)

	assert.Equal(t, 3, ran)
	assert.Equal(t, []string{"DSP", "ADR", "DSR"}, runner.ran)
	assert.Equal(t, project.StageComplete("DSR"), proj.Status)
	assert.Len(t, proj.Artifacts, 3)

	// Re-running a finished track is a pure no-op.
	ran, err = exec.RunTrack(context.Background(), proj, project.CrewDS, runner)
	require.NoError(t, err)
	assert.Zero(t, ran)
	assert.Len(t, runner.ran, 3)

	require.NoError(t, exec.Complete(context.Background(), proj))
	assert.Equal(t, project.StatusComplete, proj.Status)
}

func TestRunStageMissingUpstreamAborts(t *testing.T) {
	store, err := project.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	exec := newTestExecutor(t, store)

	proj, err := project.New("forecast churn", project.ClassificationDS)
	require.NoError(t, err)
	proj.Status = project.StatusRoutedToDS
	require.NoError(t, store.Save(proj))

	// ADR requires DSP, which was never produced.
	adr := DSStages()[1]
	runner := &templateRunner{}
	_, err = exec.RunStage(context.Background(), proj, adr, runner)

	require.ErrorIs(t, err, loader.ErrMissingContext)
	assert.Empty(t, runner.ran, "runner must not be invoked without its context")
	assert.Equal(t, project.StatusRoutedToDS, proj.Status)
	assert.Empty(t, proj.Artifacts)
}

type emptyRunner struct{}

func (emptyRunner) Run(context.Context, Stage, RunInput) (string, error) { return "  \n", nil }

func TestRunStageEmptyOutput(t *testing.T) {
	store, err := project.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	exec := newTestExecutor(t, store)

	proj, err := project.New("forecast churn", project.ClassificationDS)
	require.NoError(t, err)
	proj.Status = project.StatusRoutedToDS

	_, err = exec.RunStage(context.Background(), proj, DSStages()[0], emptyRunner{})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestStageCodes(t *testing.T) {
	codes := StageCodes(DSStages())
	assert.Equal(t, []string{"DSP", "ADR", "DSR"}, codes)
}
