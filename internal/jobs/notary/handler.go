package notary

import (
	"context"
	"fmt"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/tutorbridge-backend/internal/observability"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/services"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

// Summarizer is satisfied by *tutoring.Notary.
type Summarizer interface {
	Run(ctx context.Context, studentID, topicID string) (*tutoring.TopicSummary, error)
}

// Handler runs the notary_summary job: one summary per (student, topic) run.
type Handler struct {
	log       *logger.Logger
	notary    Summarizer
	summaries repos.TopicSummaryRepo
	notify    services.TutorNotifier
}

func New(baseLog *logger.Logger, notary Summarizer, summaries repos.TopicSummaryRepo, notify services.TutorNotifier) *Handler {
	return &Handler{
		log:       baseLog.With("job", services.JobTypeNotarySummary),
		notary:    notary,
		summaries: summaries,
		notify:    notify,
	}
}

func (h *Handler) Type() string { return services.JobTypeNotarySummary }

func (h *Handler) Run(jc *runtime.Context) error {
	studentID, ok := jc.PayloadUUID("student_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing student_id"))
		return nil
	}
	topicID, ok := jc.PayloadUUID("topic_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing topic_id"))
		return nil
	}

	jc.Progress("summarize", 10, "Summarizing topic")
	if _, err := h.notary.Run(jc.Ctx, studentID.String(), topicID.String()); err != nil {
		outcome := "error"
		if k := tutoring.KindOf(err); k != "" {
			outcome = string(k)
		}
		observability.Current().ObserveNotary(outcome)
		jc.Fail("summarize", err)
		return nil
	}
	observability.Current().ObserveNotary("ok")

	stored, err := h.summaries.GetLatest(dbctx.Context{Ctx: jc.Ctx, Tx: jc.DB}, studentID, topicID)
	if err != nil {
		h.log.Warn("summary stored but reload failed", "student_id", studentID, "topic_id", topicID, "error", err)
	}
	result := map[string]any{"topic_id": topicID.String()}
	if stored != nil {
		result["summary_id"] = stored.ID.String()
		if h.notify != nil {
			h.notify.TopicSummaryReady(studentID, stored)
		}
	}
	jc.Succeed("done", result)
	return nil
}
