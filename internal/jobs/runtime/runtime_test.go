package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
)

type namedHandler string

func (h namedHandler) Type() string       { return string(h) }
func (h namedHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(namedHandler("a")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(namedHandler("a")); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if err := r.Register(namedHandler("")); err == nil {
		t.Fatalf("empty type accepted")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("nil handler accepted")
	}
	if _, ok := r.Get("a"); !ok {
		t.Fatalf("handler a missing")
	}
	if _, ok := r.Get("b"); ok {
		t.Fatalf("unexpected handler b")
	}
}

func TestPayloadAndTrace(t *testing.T) {
	id := uuid.New()
	job := &types.JobRun{Payload: datatypes.JSON([]byte(`{"topic_id":"` + id.String() + `","bad":"x","trace_id":"tr-1"}`))}
	jc := NewContext(context.Background(), nil, job, nil, nil)

	if got, ok := jc.PayloadUUID("topic_id"); !ok || got != id {
		t.Fatalf("PayloadUUID=%v,%v", got, ok)
	}
	if _, ok := jc.PayloadUUID("bad"); ok {
		t.Fatalf("invalid uuid accepted")
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatalf("missing key accepted")
	}
	if td := ctxutil.GetTraceData(jc.Ctx); td == nil || td.TraceID != "tr-1" {
		t.Fatalf("trace data=%+v", td)
	}

	broken := NewContext(context.Background(), nil, &types.JobRun{Payload: datatypes.JSON([]byte(`nope`))}, nil, nil)
	if broken.Payload() == nil {
		t.Fatalf("Payload returned nil")
	}
}

func TestCanceledJobIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewJobRunRepo(db, testutil.Logger(t))

	job := &types.JobRun{OwnerUserID: uuid.New(), JobType: "x", Status: types.JobStatusCanceled, Stage: "canceled"}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx, Tx: db}, []*types.JobRun{job}); err != nil {
		t.Fatalf("create: %v", err)
	}
	jc := NewContext(ctx, db, job, repo, nil)
	jc.Fail("run", errors.New("late failure"))
	jc.Succeed("done", nil)

	rows, err := repo.GetByIDs(dbctx.Context{Ctx: ctx, Tx: db}, []uuid.UUID{job.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload: %v", err)
	}
	if rows[0].Status != types.JobStatusCanceled || rows[0].Error != "" {
		t.Fatalf("status=%s error=%q", rows[0].Status, rows[0].Error)
	}
}
