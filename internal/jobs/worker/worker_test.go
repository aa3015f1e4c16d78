package worker

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
)

type funcHandler struct {
	jobType string
	run     func(*runtime.Context) error
}

func (h funcHandler) Type() string                  { return h.jobType }
func (h funcHandler) Run(jc *runtime.Context) error { return h.run(jc) }

func TestProcessNextDispatchesByType(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)

	reg := runtime.NewRegistry()
	var seen []uuid.UUID
	if err := reg.Register(funcHandler{jobType: "ok", run: func(jc *runtime.Context) error {
		seen = append(seen, jc.Job.ID)
		jc.Succeed("done", map[string]any{"n": 1})
		return nil
	}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(funcHandler{jobType: "boom", run: func(*runtime.Context) error {
		panic("kaput")
	}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	mk := func(jobType string) *types.JobRun {
		j := &types.JobRun{OwnerUserID: uuid.New(), JobType: jobType, Status: types.JobStatusQueued, Stage: "queued"}
		if _, err := repo.Create(dbctx.Context{Ctx: ctx, Tx: db}, []*types.JobRun{j}); err != nil {
			t.Fatalf("create: %v", err)
		}
		return j
	}
	okJob := mk("ok")
	panicJob := mk("boom")
	orphan := mk("unknown")

	w := NewWorker(db, log, repo, reg, nil)
	for i := 0; i < 3; i++ {
		if !w.ProcessNext(ctx, 1) {
			t.Fatalf("iteration %d claimed nothing", i)
		}
	}
	// Failed rows are retried only after the retry delay.
	if w.ProcessNext(ctx, 1) {
		t.Fatalf("expected no runnable job")
	}

	rows, err := repo.GetByIDs(dbctx.Context{Ctx: ctx, Tx: db}, []uuid.UUID{okJob.ID, panicJob.ID, orphan.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	byID := map[uuid.UUID]*types.JobRun{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	if got := byID[okJob.ID]; got.Status != types.JobStatusSucceeded || got.Attempts != 1 {
		t.Fatalf("ok job status=%s attempts=%d", got.Status, got.Attempts)
	}
	if got := byID[panicJob.ID]; got.Status != types.JobStatusFailed || got.Stage != "panic" {
		t.Fatalf("panic job status=%s stage=%s", got.Status, got.Stage)
	}
	if got := byID[orphan.ID]; got.Status != types.JobStatusFailed || got.Stage != "dispatch" {
		t.Fatalf("orphan job status=%s stage=%s", got.Status, got.Stage)
	}
	if len(seen) != 1 || seen[0] != okJob.ID {
		t.Fatalf("seen=%v", seen)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "2")
	db := testutil.DB(t)
	log := testutil.Logger(t)
	w := NewWorker(db, log, repos.NewJobRunRepo(db, log), runtime.NewRegistry(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()
	w.Wait()
}
