package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/observability"
	pkgerrors "github.com/yungbote/tutorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
	maxStudentMessage   = 8000
)

// TurnRunner is the subset of *tutoring.Orchestrator the service drives.
type TurnRunner interface {
	HandleStudentMessage(ctx context.Context, courseID, message string) (*tutoring.TurnResult, error)
	InitializeSession(ctx context.Context, courseID string) (*tutoring.TurnResult, error)
}

type TutorReply struct {
	Reply          string                `json:"reply"`
	CurrentTopicID string                `json:"current_topic_id"`
	Syllabus       []tutoring.TopicEntry `json:"syllabus"`
	SessionStarted bool                  `json:"session_started"`
	Degraded       bool                  `json:"degraded"`
}

type TutorService interface {
	SendMessage(ctx context.Context, courseID uuid.UUID, message string) (*TutorReply, error)
	StartSession(ctx context.Context, courseID uuid.UUID) (*TutorReply, error)
	GetHistory(ctx context.Context, courseID uuid.UUID, limit int) ([]*types.ChatMessage, error)
	GetLatestSummary(ctx context.Context, topicID uuid.UUID) (*types.TopicSummary, error)
}

type tutorService struct {
	db        *gorm.DB
	log       *logger.Logger
	turns     TurnRunner
	syllabi   repos.SyllabusRepo
	sessions  repos.ChatSessionRepo
	messages  repos.ChatMessageRepo
	summaries repos.TopicSummaryRepo
	notify    TutorNotifier
}

func NewTutorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	turns TurnRunner,
	syllabi repos.SyllabusRepo,
	sessions repos.ChatSessionRepo,
	messages repos.ChatMessageRepo,
	summaries repos.TopicSummaryRepo,
	notify TutorNotifier,
) TutorService {
	return &tutorService{
		db:        db,
		log:       baseLog.With("service", "TutorService"),
		turns:     turns,
		syllabi:   syllabi,
		sessions:  sessions,
		messages:  messages,
		summaries: summaries,
		notify:    notify,
	}
}

// SendMessage runs a Teacher turn. Tutoring errors are returned unchanged so
// the transport can render their student-facing text.
func (s *tutorService) SendMessage(ctx context.Context, courseID uuid.UUID, message string) (*TutorReply, error) {
	if courseID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_course_id", pkgerrors.ErrInvalidArgument)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apierr.BadRequest("empty_message", pkgerrors.ErrInvalidArgument)
	}
	if len([]rune(message)) > maxStudentMessage {
		return nil, apierr.BadRequest("message_too_long", pkgerrors.ErrInvalidArgument)
	}
	start := time.Now()
	res, err := s.turns.HandleStudentMessage(ctx, courseID.String(), message)
	observeTurn("message", start, res, err)
	if err != nil {
		return nil, err
	}
	return s.reply(ctx, courseID, res), nil
}

func (s *tutorService) StartSession(ctx context.Context, courseID uuid.UUID) (*TutorReply, error) {
	if courseID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_course_id", pkgerrors.ErrInvalidArgument)
	}
	start := time.Now()
	res, err := s.turns.InitializeSession(ctx, courseID.String())
	observeTurn("init", start, res, err)
	if err != nil {
		return nil, err
	}
	return s.reply(ctx, courseID, res), nil
}

func observeTurn(kind string, start time.Time, res *tutoring.TurnResult, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(tutoring.KindOf(err))
	case res != nil && res.UsedFallback:
		outcome = "fallback"
	}
	observability.Current().ObserveTurn(kind, outcome, time.Since(start))
}

func (s *tutorService) reply(ctx context.Context, courseID uuid.UUID, res *tutoring.TurnResult) *TutorReply {
	out := &TutorReply{
		Reply:          res.Text,
		CurrentTopicID: res.Syllabus.CurrentTopicID(),
		Syllabus:       res.Syllabus.Topics,
		SessionStarted: res.SessionStarted,
		Degraded:       res.UsedFallback,
	}
	if out.Syllabus == nil {
		out.Syllabus = []tutoring.TopicEntry{}
	}
	if len(res.Update.TopicsUpdated) > 0 && s.notify != nil {
		if studentID, err := uuid.Parse(res.Syllabus.StudentID); err == nil {
			entries, err := s.syllabi.ListForStudentCourse(dbctx.Context{Ctx: ctx, Tx: s.db}, studentID, courseID)
			if err != nil {
				s.log.Warn("reload syllabus for notify failed", "course_id", courseID, "error", err)
			} else {
				s.notify.SyllabusUpdated(studentID, courseID, entries)
			}
		}
	}
	return out
}

func (s *tutorService) GetHistory(ctx context.Context, courseID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	session, err := s.sessions.Get(dbc, rd.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []*types.ChatMessage{}, nil
	}
	return s.messages.ListBySession(dbc, session.ID, limit)
}

func (s *tutorService) GetLatestSummary(ctx context.Context, topicID uuid.UUID) (*types.TopicSummary, error) {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return nil, err
	}
	row, err := s.summaries.GetLatest(dbctx.Context{Ctx: ctx, Tx: s.db}, rd.UserID, topicID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("summary_not_found", pkgerrors.ErrNotFound)
	}
	return row, nil
}
