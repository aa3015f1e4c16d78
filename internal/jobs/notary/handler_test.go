package notary

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/services"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

type storingSummarizer struct {
	db   *gorm.DB
	err  error
	runs int
}

func (s *storingSummarizer) Run(ctx context.Context, studentID, topicID string) (*tutoring.TopicSummary, error) {
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	row := &types.TopicSummary{
		StudentID:         uuid.MustParse(studentID),
		TopicID:           uuid.MustParse(topicID),
		CompletionSummary: "entendió la recursión",
		EngagementLevel:   "High",
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return &tutoring.TopicSummary{StudentID: studentID, TopicID: topicID, CompletionSummary: row.CompletionSummary}, nil
}

type recordingNotifier struct {
	summaries []*types.TopicSummary
	done      int
	failed    []string
}

func (r *recordingNotifier) JobCreated(uuid.UUID, *types.JobRun)                       {}
func (r *recordingNotifier) JobProgress(uuid.UUID, *types.JobRun, string, int, string) {}
func (r *recordingNotifier) JobFailed(_ uuid.UUID, _ *types.JobRun, stage string, _ string) {
	r.failed = append(r.failed, stage)
}
func (r *recordingNotifier) JobDone(uuid.UUID, *types.JobRun) { r.done++ }
func (r *recordingNotifier) TopicSummaryReady(_ uuid.UUID, s *types.TopicSummary) {
	r.summaries = append(r.summaries, s)
}
func (r *recordingNotifier) SyllabusUpdated(uuid.UUID, uuid.UUID, []*types.SyllabusEntry) {}

func seedJob(t *testing.T, ctx context.Context, db *gorm.DB, repo repos.JobRunRepo, payload map[string]any) *types.JobRun {
	t.Helper()
	raw, _ := json.Marshal(payload)
	job := &types.JobRun{
		OwnerUserID: uuid.New(),
		JobType:     services.JobTypeNotarySummary,
		Status:      types.JobStatusRunning,
		Stage:       "queued",
		Payload:     datatypes.JSON(raw),
	}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx, Tx: db}, []*types.JobRun{job}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func reload(t *testing.T, ctx context.Context, db *gorm.DB, repo repos.JobRunRepo, id uuid.UUID) *types.JobRun {
	t.Helper()
	rows, err := repo.GetByIDs(dbctx.Context{Ctx: ctx, Tx: db}, []uuid.UUID{id})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload job: rows=%d err=%v", len(rows), err)
	}
	return rows[0]
}

func TestHandlerStoresSummaryAndNotifies(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewJobRunRepo(db, log)
	sumRepo := repos.NewTopicSummaryRepo(db, log)
	notify := &recordingNotifier{}

	studentID, topicID := uuid.New(), uuid.New()
	job := seedJob(t, ctx, db, jobRepo, map[string]any{
		"student_id": studentID.String(),
		"course_id":  uuid.NewString(),
		"topic_id":   topicID.String(),
	})

	sum := &storingSummarizer{db: db}
	h := New(log, sum, sumRepo, notify)
	if err := h.Run(runtime.NewContext(ctx, db, job, jobRepo, notify)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := reload(t, ctx, db, jobRepo, job.ID)
	if got.Status != types.JobStatusSucceeded || got.Progress != 100 {
		t.Fatalf("status=%s progress=%d", got.Status, got.Progress)
	}
	if len(notify.summaries) != 1 || notify.summaries[0].TopicID != topicID {
		t.Fatalf("summary notifications=%v", notify.summaries)
	}
	if notify.done != 1 {
		t.Fatalf("done=%d", notify.done)
	}
	var res map[string]any
	_ = json.Unmarshal(got.Result, &res)
	if res["summary_id"] != notify.summaries[0].ID.String() {
		t.Fatalf("result=%v", res)
	}
}

func TestHandlerParseFailureFailsJobWithoutWriting(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewJobRunRepo(db, log)
	sumRepo := repos.NewTopicSummaryRepo(db, log)
	notify := &recordingNotifier{}

	studentID, topicID := uuid.New(), uuid.New()
	job := seedJob(t, ctx, db, jobRepo, map[string]any{
		"student_id": studentID.String(),
		"topic_id":   topicID.String(),
	})

	sum := &storingSummarizer{db: db, err: tutoring.ErrSummaryParse}
	if err := New(log, sum, sumRepo, notify).Run(runtime.NewContext(ctx, db, job, jobRepo, notify)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := reload(t, ctx, db, jobRepo, job.ID)
	if got.Status != types.JobStatusFailed || got.Stage != "summarize" {
		t.Fatalf("status=%s stage=%s", got.Status, got.Stage)
	}
	if latest, _ := sumRepo.GetLatest(dbctx.Context{Ctx: ctx}, studentID, topicID); latest != nil {
		t.Fatalf("summary written on parse failure")
	}
	if len(notify.summaries) != 0 || len(notify.failed) != 1 {
		t.Fatalf("summaries=%d failed=%v", len(notify.summaries), notify.failed)
	}
}

func TestHandlerRejectsMissingPayload(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewJobRunRepo(db, log)

	job := seedJob(t, ctx, db, jobRepo, map[string]any{"topic_id": "not-a-uuid"})
	sum := &storingSummarizer{db: db}
	if err := New(log, sum, repos.NewTopicSummaryRepo(db, log), nil).Run(runtime.NewContext(ctx, db, job, jobRepo, nil)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.runs != 0 {
		t.Fatalf("summarizer ran on invalid payload")
	}
	if got := reload(t, ctx, db, jobRepo, job.ID); got.Status != types.JobStatusFailed || got.Stage != "validate" {
		t.Fatalf("status=%s stage=%s", got.Status, got.Stage)
	}
}
