package approval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/notify"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

// chanApprover blocks until a decision is pushed, so tests can assert on
// state while the gate is waiting.
type chanApprover struct {
	waiting   chan Prompt
	decisions chan Decision
}

func newChanApprover() *chanApprover {
	return &chanApprover{
		waiting:   make(chan Prompt, 1),
		decisions: make(chan Decision),
	}
}

func (a *chanApprover) Decide(ctx context.Context, p Prompt) (Decision, error) {
	a.waiting <- p
	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case d := <-a.decisions:
		return d, nil
	}
}

func newTestProject(t *testing.T) (*project.Context, *project.Store) {
	t.Helper()
	proj, err := project.New("build a thing", project.ClassificationDev)
	require.NoError(t, err)

	store, err := project.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(proj))
	return proj, store
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		input    string
		approved bool
		reason   string
	}{
		{"APPROVE", true, ""},
		{"approve", true, ""},
		{"YES", true, ""},
		{"REJECT needs error handling", false, "needs error handling"},
		{"no missing tests", false, "missing tests"},
		{"garbled response", false, "garbled response"},
		{"", false, ""},
	}
	for _, tt := range tests {
		d := parseDecision(tt.input)
		assert.Equal(t, tt.approved, d.Approved, "input %q", tt.input)
		assert.Equal(t, tt.reason, d.Reason, "input %q", tt.input)
	}
}

func TestTerminalApprover(t *testing.T) {
	var out strings.Builder
	a := NewTerminalApprover(strings.NewReader("APPROVE\n"), &out)

	d, err := a.Decide(context.Background(), Prompt{ProjectID: "PROJ-1", Name: "TRIAGE", Summary: "plan"})
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Contains(t, out.String(), "TRIAGE")
	assert.Contains(t, out.String(), "plan")
}

func TestTerminalApproverClosedInput(t *testing.T) {
	a := NewTerminalApprover(strings.NewReader(""), &strings.Builder{})
	_, err := a.Decide(context.Background(), Prompt{})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestGateBlocksWithDurableRequest(t *testing.T) {
	proj, store := newTestProject(t)
	approver := newChanApprover()
	gate, err := NewGate(approver, nil, store, zap.NewNop())
	require.NoError(t, err)

	type result struct {
		decision Decision
		err      error
	}
	done := make(chan result, 1)
	go func() {
		d, err := gate.Request(context.Background(), proj, "TRIAGE", "triage summary")
		done <- result{decision: d, err: err}
	}()

	// The gate is blocked on the approver; the pending request must already
	// be on disk.
	<-approver.waiting
	onDisk, err := store.Load(proj.ProjectID)
	require.NoError(t, err)
	require.Len(t, onDisk.Checkpoints, 1)
	assert.Equal(t, project.CheckpointRequested, onDisk.Checkpoints[0].Outcome)

	select {
	case <-done:
		t.Fatal("gate returned before a decision was given")
	case <-time.After(50 * time.Millisecond):
	}

	approver.decisions <- Decision{Approved: true}
	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.decision.Approved)

	onDisk, err = store.Load(proj.ProjectID)
	require.NoError(t, err)
	require.Len(t, onDisk.Checkpoints, 1)
	assert.Equal(t, project.CheckpointApproved, onDisk.Checkpoints[0].Outcome)
	assert.NotNil(t, onDisk.Checkpoints[0].DecidedAt)
}

func TestGateRejectionKeepsReason(t *testing.T) {
	proj, store := newTestProject(t)
	var out strings.Builder
	approver := NewTerminalApprover(strings.NewReader("REJECT tighten the schema\n"), &out)
	gate, err := NewGate(approver, notify.NewLogNotifier(zap.NewNop()), store, zap.NewNop())
	require.NoError(t, err)

	d, err := gate.Request(context.Background(), proj, "HANDOFF", "package summary")
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, "tighten the schema", d.Reason)

	onDisk, err := store.Load(proj.ProjectID)
	require.NoError(t, err)
	require.Len(t, onDisk.Checkpoints, 1)
	assert.Equal(t, project.CheckpointRejected, onDisk.Checkpoints[0].Outcome)
	assert.Equal(t, "tighten the schema", onDisk.Checkpoints[0].Reason)

	var events []string
	for _, e := range onDisk.AuditLog {
		events = append(events, e.Event)
	}
	assert.Contains(t, events, "CHECKPOINT_REQUESTED")
	assert.Contains(t, events, "CHECKPOINT_REJECTED")
}

func TestGateContextCanceled(t *testing.T) {
	proj, store := newTestProject(t)
	approver := newChanApprover()
	gate, err := NewGate(approver, nil, store, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := gate.Request(ctx, proj, "TRIAGE", "summary")
		errCh <- err
	}()

	<-approver.waiting
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestNewGateRequiresApprover(t *testing.T) {
	_, err := NewGate(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrApproverRequired)
}
