package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/realtime"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.JobRun)
}

// TutorNotifier pushes tutoring events to the student's channel.
type TutorNotifier interface {
	TopicSummaryReady(userID uuid.UUID, summary *types.TopicSummary)
	SyllabusUpdated(userID, courseID uuid.UUID, entries []*types.SyllabusEntry)
}

type sseNotifier struct {
	emit SSEEmitter
}

type Notifier interface {
	JobNotifier
	TutorNotifier
}

// NewNotifier returns a notifier for job and tutoring events. A nil emitter
// yields a notifier that drops everything.
func NewNotifier(emit SSEEmitter) Notifier {
	return &sseNotifier{emit: emit}
}

func (n *sseNotifier) send(userID uuid.UUID, event realtime.SSEEvent, data any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	})
}

func (n *sseNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	n.send(userID, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *sseNotifier) JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string) {
	n.send(userID, realtime.SSEEventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *sseNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	n.send(userID, realtime.SSEEventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *sseNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	n.send(userID, realtime.SSEEventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"job":      job,
	})
}

func (n *sseNotifier) TopicSummaryReady(userID uuid.UUID, summary *types.TopicSummary) {
	n.send(userID, realtime.SSEEventTopicSummaryReady, map[string]any{
		"topic_id": summary.TopicID,
		"summary":  summary,
	})
}

func (n *sseNotifier) SyllabusUpdated(userID, courseID uuid.UUID, entries []*types.SyllabusEntry) {
	n.send(userID, realtime.SSEEventSyllabusUpdated, map[string]any{
		"course_id": courseID,
		"syllabus":  entries,
	})
}
