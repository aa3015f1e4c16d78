package jobrun

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	jobrt "github.com/yungbote/tutorbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
)

type stubHandler struct {
	run func(*jobrt.Context) error
}

func (stubHandler) Type() string                  { return "stub" }
func (h stubHandler) Run(jc *jobrt.Context) error { return h.run(jc) }

func newActivities(t *testing.T, h stubHandler) (*Activities, repos.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := jobrt.NewRegistry()
	if err := reg.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	return &Activities{Log: log, DB: db, Jobs: repo, Registry: reg, heartbeat: func(context.Context) {}}, repo
}

func seed(t *testing.T, a *Activities, status string, attempts int) *types.JobRun {
	t.Helper()
	j := &types.JobRun{OwnerUserID: uuid.New(), JobType: "stub", Status: status, Stage: "queued", Attempts: attempts}
	if _, err := a.Jobs.Create(dbctx.Context{Ctx: context.Background(), Tx: a.DB}, []*types.JobRun{j}); err != nil {
		t.Fatalf("create: %v", err)
	}
	return j
}

func TestTickRunsHandler(t *testing.T) {
	calls := 0
	a, _ := newActivities(t, stubHandler{run: func(jc *jobrt.Context) error {
		calls++
		jc.Succeed("done", nil)
		return nil
	}})
	job := seed(t, a, types.JobStatusQueued, 0)

	res, err := a.Tick(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Status != types.JobStatusSucceeded || res.Attempts != 1 || calls != 1 {
		t.Fatalf("res=%+v calls=%d", res, calls)
	}

	// A settled row is reported without running again.
	if res, err = a.Tick(context.Background(), job.ID.String()); err != nil || res.Status != types.JobStatusSucceeded || calls != 1 {
		t.Fatalf("second tick res=%+v err=%v calls=%d", res, err, calls)
	}
}

func TestTickSettlesNilReturn(t *testing.T) {
	a, _ := newActivities(t, stubHandler{run: func(*jobrt.Context) error { return nil }})
	job := seed(t, a, types.JobStatusQueued, 0)
	res, err := a.Tick(context.Background(), job.ID.String())
	if err != nil || res.Status != types.JobStatusSucceeded {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestTickRetriesFailedUntilCeiling(t *testing.T) {
	a, _ := newActivities(t, stubHandler{run: func(*jobrt.Context) error { return errors.New("llm down") }})

	retry := seed(t, a, types.JobStatusFailed, 1)
	res, err := a.Tick(context.Background(), retry.ID.String())
	if err != nil || res.Status != types.JobStatusFailed || res.Attempts != 2 || res.Stage != "run" {
		t.Fatalf("res=%+v err=%v", res, err)
	}

	exhausted := seed(t, a, types.JobStatusFailed, maxAttempts)
	res, err = a.Tick(context.Background(), exhausted.ID.String())
	if err != nil || res.Attempts != maxAttempts {
		t.Fatalf("exhausted res=%+v err=%v", res, err)
	}
}

func TestTickRejectsBadID(t *testing.T) {
	a, _ := newActivities(t, stubHandler{run: func(*jobrt.Context) error { return nil }})
	if _, err := a.Tick(context.Background(), "nope"); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if _, err := a.Tick(context.Background(), uuid.NewString()); err == nil {
		t.Fatalf("expected not found error")
	}
}

func runWorkflow(t *testing.T, statuses ...string) error {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	i := 0
	env.RegisterActivityWithOptions(func(_ context.Context, jobID string) (TickResult, error) {
		s := statuses[i]
		if i < len(statuses)-1 {
			i++
		}
		return TickResult{JobID: jobID, Status: s}, nil
	}, activity.RegisterOptions{Name: ActivityTick})
	env.SetStartWorkflowOptions(temporalsdkclient.StartWorkflowOptions{ID: uuid.NewString()})
	env.ExecuteWorkflow(Workflow)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	return env.GetWorkflowError()
}

func TestWorkflowLoopsUntilTerminal(t *testing.T) {
	if err := runWorkflow(t, types.JobStatusRunning, types.JobStatusRunning, types.JobStatusSucceeded); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if err := runWorkflow(t, types.JobStatusCanceled); err != nil {
		t.Fatalf("canceled should complete cleanly: %v", err)
	}
	if err := runWorkflow(t, types.JobStatusFailed); err == nil {
		t.Fatalf("failed job should fail the workflow")
	}
}
