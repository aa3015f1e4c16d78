package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

// TutorPorts binds the tutoring core to the relational store and job queue.
type TutorPorts struct {
	Identity    tutoring.IdentityResolver
	Syllabi     tutoring.SyllabusStore
	Personas    tutoring.PersonaSource
	Transcripts tutoring.TranscriptStore
	Summaries   tutoring.SummaryStore
	Notary      tutoring.NotaryQueue
}

func NewTutorPorts(
	db *gorm.DB,
	courses repos.CourseRepo,
	topics repos.TopicRepo,
	personas repos.PersonaRepo,
	syllabi repos.SyllabusRepo,
	sessions repos.ChatSessionRepo,
	messages repos.ChatMessageRepo,
	summaries repos.TopicSummaryRepo,
	jobs JobService,
) TutorPorts {
	return TutorPorts{
		Identity:    requestIdentity{},
		Syllabi:     &syllabusStore{db: db, syllabi: syllabi, courses: courses, topics: topics},
		Personas:    &personaSource{db: db, personas: personas},
		Transcripts: &transcriptStore{db: db, sessions: sessions, messages: messages},
		Summaries:   &summaryStore{db: db, summaries: summaries},
		Notary:      &notaryQueue{jobs: jobs},
	}
}

type requestIdentity struct{}

func (requestIdentity) ResolveCallerIdentity(ctx context.Context) (tutoring.Identity, bool, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return tutoring.Identity{}, false, nil
	}
	return tutoring.Identity{StudentID: rd.UserID.String()}, true, nil
}

type syllabusStore struct {
	db      *gorm.DB
	syllabi repos.SyllabusRepo
	courses repos.CourseRepo
	topics  repos.TopicRepo
}

// GetSyllabus reports ok=false for unparseable ids and for students with no entries.
func (s *syllabusStore) GetSyllabus(ctx context.Context, studentID, courseID string) (tutoring.Syllabus, bool, error) {
	sid, err1 := uuid.Parse(studentID)
	cid, err2 := uuid.Parse(courseID)
	if err1 != nil || err2 != nil {
		return tutoring.Syllabus{}, false, nil
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	entries, err := s.syllabi.ListForStudentCourse(dbc, sid, cid)
	if err != nil {
		return tutoring.Syllabus{}, false, err
	}
	if len(entries) == 0 {
		return tutoring.Syllabus{}, false, nil
	}
	topics, err := s.topics.GetByIDs(dbc, lo.Map(entries, func(e *types.SyllabusEntry, _ int) uuid.UUID { return e.TopicID }))
	if err != nil {
		return tutoring.Syllabus{}, false, err
	}
	byID := lo.KeyBy(topics, func(t *types.Topic) uuid.UUID { return t.ID })
	out := tutoring.Syllabus{
		StudentID: studentID,
		CourseID:  courseID,
		Topics: lo.Map(entries, func(e *types.SyllabusEntry, _ int) tutoring.TopicEntry {
			entry := tutoring.TopicEntry{
				TopicID:    e.TopicID.String(),
				Status:     tutoring.TopicStatus(e.Status),
				OrderIndex: e.OrderIndex,
			}
			if t, ok := byID[e.TopicID]; ok {
				entry.Title, entry.Content, entry.Activities = t.Name, t.Content, t.Activities
			}
			return entry
		}),
	}
	courses, err := s.courses.GetByIDs(dbc, []uuid.UUID{cid})
	if err != nil {
		return tutoring.Syllabus{}, false, err
	}
	if len(courses) > 0 {
		out.CourseName, out.CourseDescription = courses[0].Name, courses[0].Description
	}
	return out, true, nil
}

func (s *syllabusStore) WriteTopicStatus(ctx context.Context, studentID, courseID, topicID string, status tutoring.TopicStatus) error {
	sid, err1 := uuid.Parse(studentID)
	cid, err2 := uuid.Parse(courseID)
	tid, err3 := uuid.Parse(topicID)
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("write topic status: malformed id")
	}
	_, err := s.syllabi.UpdateStatus(dbctx.Context{Ctx: ctx, Tx: s.db}, sid, cid, tid, string(status))
	return err
}

type personaSource struct {
	db       *gorm.DB
	personas repos.PersonaRepo
}

func (p *personaSource) GetPersonaConfig(ctx context.Context, courseID string) (tutoring.PersonaConfig, bool, error) {
	cid, err := uuid.Parse(courseID)
	if err != nil {
		return tutoring.PersonaConfig{}, false, nil
	}
	row, err := p.personas.GetByCourse(dbctx.Context{Ctx: ctx, Tx: p.db}, cid)
	if err != nil || row == nil {
		return tutoring.PersonaConfig{}, false, err
	}
	return tutoring.PersonaConfig{
		Tone:             row.Tone,
		ExplanationStyle: row.ExplanationStyle,
		Language:         row.Language,
		DifficultyLevel:  row.DifficultyLevel,
	}, true, nil
}

type transcriptStore struct {
	db       *gorm.DB
	sessions repos.ChatSessionRepo
	messages repos.ChatMessageRepo
}

func (t *transcriptStore) GetChatTranscript(ctx context.Context, studentID, topicID string) ([]tutoring.Message, error) {
	sid, err1 := uuid.Parse(studentID)
	tid, err2 := uuid.Parse(topicID)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("chat transcript: malformed id")
	}
	rows, err := t.messages.ListByUserTopic(dbctx.Context{Ctx: ctx, Tx: t.db}, sid, tid)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(m *types.ChatMessage, _ int) tutoring.Message {
		return tutoring.Message{Role: tutoring.MessageRole(m.Role), Content: m.Content}
	}), nil
}

func (t *transcriptStore) GetCourseHistory(ctx context.Context, studentID, courseID string, limit int) ([]tutoring.Message, error) {
	sid, err1 := uuid.Parse(studentID)
	cid, err2 := uuid.Parse(courseID)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: t.db}
	session, err := t.sessions.Get(dbc, sid, cid)
	if err != nil || session == nil {
		return nil, err
	}
	rows, err := t.messages.ListBySession(dbc, session.ID, limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(m *types.ChatMessage, _ int) tutoring.Message {
		return tutoring.Message{Role: tutoring.MessageRole(m.Role), Content: m.Content}
	}), nil
}

func (t *transcriptStore) AppendExchange(ctx context.Context, studentID, courseID, topicID string, msgs []tutoring.Message) error {
	sid, err1 := uuid.Parse(studentID)
	cid, err2 := uuid.Parse(courseID)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("append exchange: malformed id")
	}
	var topic *uuid.UUID
	if tid, err := uuid.Parse(topicID); err == nil {
		topic = &tid
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: t.db}
	session, err := t.sessions.GetOrCreate(dbc, sid, cid)
	if err != nil {
		return err
	}
	rows := lo.Map(msgs, func(m tutoring.Message, _ int) *types.ChatMessage {
		return &types.ChatMessage{UserID: sid, TopicID: topic, Role: string(m.Role), Content: m.Content}
	})
	_, err = t.messages.Append(dbc, session.ID, rows)
	return err
}

type summaryStore struct {
	db        *gorm.DB
	summaries repos.TopicSummaryRepo
}

func (s *summaryStore) SaveSummary(ctx context.Context, sum tutoring.TopicSummary) error {
	sid, err1 := uuid.Parse(sum.StudentID)
	tid, err2 := uuid.Parse(sum.TopicID)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("save summary: malformed id")
	}
	doubts := sum.StudentDoubts
	if doubts == nil {
		doubts = []string{}
	}
	raw, err := json.Marshal(doubts)
	if err != nil {
		return err
	}
	return s.summaries.Create(dbctx.Context{Ctx: ctx, Tx: s.db}, &types.TopicSummary{
		StudentID:          sid,
		TopicID:            tid,
		CompletionSummary:  sum.CompletionSummary,
		StudentDoubts:      datatypes.JSON(raw),
		EffectiveAnalogies: sum.EffectiveAnalogies,
		EngagementLevel:    sum.EngagementLevel,
		NextSessionHook:    sum.NextSessionHook,
		CreatedAt:          sum.CreatedAt,
	})
}

type notaryQueue struct {
	jobs JobService
}

func (q *notaryQueue) EnqueueNotary(ctx context.Context, req tutoring.NotaryRequest) error {
	sid, err1 := uuid.Parse(req.StudentID)
	cid, err2 := uuid.Parse(req.CourseID)
	tid, err3 := uuid.Parse(req.TopicID)
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("enqueue notary: malformed id")
	}
	_, _, err := q.jobs.EnqueueNotaryIfNeeded(dbctx.New(ctx), sid, cid, tid)
	return err
}
