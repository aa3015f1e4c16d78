package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	pkgerrors "github.com/yungbote/tutorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/platform/redisx"
)

const (
	JobTypeNotarySummary = "notary_summary"
	EntityTypeTopic      = "topic"

	// Keep literal to avoid an import cycle with temporalx/jobrun.
	temporalJobWorkflow = "job_run"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	// EnqueueNotaryIfNeeded returns created=false when a summary job for the
	// same (student, topic) is already queued, running or just claimed.
	EnqueueNotaryIfNeeded(dbc dbctx.Context, studentID, courseID, topicID uuid.UUID) (*types.JobRun, bool, error)
	GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier

	dedupe    redisx.Claimer
	dedupeTTL time.Duration

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

// NewJobService builds the job service. tc may be nil, in which case queued
// rows are left for the DB worker pool.
func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	notify JobNotifier,
	dedupe redisx.Claimer,
	dedupeTTL time.Duration,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	if dedupe == nil {
		dedupe = redisx.NewLocalClaimer()
	}
	if dedupeTTL <= 0 {
		dedupeTTL = time.Minute
	}
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		notify:            notify,
		dedupe:            dedupe,
		dedupeTTL:         dedupeTTL,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if _, ok := payload["trace_id"]; !ok && td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if _, ok := payload["request_id"]; !ok && td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      types.JobStatusQueued,
		Stage:       "queued",
		Message:     "Queued",
		Payload:     datatypes.JSON(raw),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: txOr(dbc.Tx, s.db)}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}

	if s.temporal == nil {
		return job, nil
	}
	// Inside a real transaction the caller dispatches after commit.
	if dbc.InTx() {
		s.log.Debug("job enqueued inside transaction, awaiting dispatch after commit", "job_id", job.ID, "job_type", job.JobType)
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

// Dispatch starts the Temporal workflow for a queued row. Without Temporal it
// is a no-op and the DB worker claims the row.
func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if s.temporal == nil {
		return nil
	}
	if jobID == uuid.Nil {
		return fmt.Errorf("missing job id")
	}
	ctx := ctxutil.Default(dbc.Ctx)

	err := s.startTemporalJobWorkflow(ctx, jobID)
	if err == nil {
		return nil
	}
	if _, ok := err.(*serviceerror.WorkflowExecutionAlreadyStarted); ok {
		return nil
	}

	now := time.Now().UTC()
	_ = s.repo.UpdateFields(dbctx.Context{Ctx: ctx, Tx: s.db}, jobID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	if s.notify != nil {
		if rows, rerr := s.repo.GetByIDs(dbctx.Context{Ctx: ctx, Tx: s.db}, []uuid.UUID{jobID}); rerr == nil && len(rows) > 0 {
			s.notify.JobFailed(rows[0].OwnerUserID, rows[0], "dispatch", err.Error())
		}
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *jobService) startTemporalJobWorkflow(ctx context.Context, jobID uuid.UUID) error {
	tq := s.temporalTaskQueue
	if tq == "" {
		tq = "tutorbridge"
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, opts, temporalJobWorkflow)
	return err
}

func (s *jobService) EnqueueNotaryIfNeeded(dbc dbctx.Context, studentID, courseID, topicID uuid.UUID) (*types.JobRun, bool, error) {
	if studentID == uuid.Nil || topicID == uuid.Nil {
		return nil, false, fmt.Errorf("missing student_id or topic_id")
	}
	ctx := ctxutil.Default(dbc.Ctx)

	key := "notary:" + studentID.String() + ":" + topicID.String()
	claimed, err := s.dedupe.Claim(ctx, key, s.dedupeTTL)
	if err != nil {
		s.log.Warn("notary dedupe claim failed, relying on job table", "error", err)
	} else if !claimed {
		s.log.Debug("notary already claimed", "student_id", studentID, "topic_id", topicID)
		return nil, false, nil
	}
	release := func() {
		if !claimed {
			return
		}
		if rerr := s.dedupe.Release(ctx, key); rerr != nil {
			s.log.Warn("notary dedupe release failed", "error", rerr)
		}
	}

	repoCtx := dbctx.Context{Ctx: ctx, Tx: txOr(dbc.Tx, s.db)}
	has, err := s.repo.HasRunnableForEntity(repoCtx, studentID, EntityTypeTopic, topicID, JobTypeNotarySummary)
	if err != nil {
		release()
		return nil, false, err
	}
	if has {
		return nil, false, nil
	}

	entityID := topicID
	job, err := s.Enqueue(repoCtx, studentID, JobTypeNotarySummary, EntityTypeTopic, &entityID, map[string]any{
		"student_id": studentID.String(),
		"course_id":  courseID.String(),
		"topic_id":   topicID.String(),
	})
	if err != nil {
		release()
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not_authenticated", pkgerrors.ErrUnauthorized)
	}
	if jobID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_job_id", pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.repo.GetByIDs(dbctx.Context{Ctx: dbc.Ctx, Tx: txOr(dbc.Tx, s.db)}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].OwnerUserID != rd.UserID {
		return nil, apierr.NotFound("job_not_found", pkgerrors.ErrNotFound)
	}
	return rows[0], nil
}

func txOr(tx, base *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return base
}
