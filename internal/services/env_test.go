package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type testEnv struct {
	db  *gorm.DB
	log *logger.Logger

	users       repos.UserRepo
	courses     repos.CourseRepo
	topics      repos.TopicRepo
	personas    repos.PersonaRepo
	enrollments repos.EnrollmentRepo
	syllabi     repos.SyllabusRepo
	sessions    repos.ChatSessionRepo
	messages    repos.ChatMessageRepo
	summaries   repos.TopicSummaryRepo
	jobs        repos.JobRunRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return &testEnv{
		db:          db,
		log:         log,
		users:       repos.NewUserRepo(db, log),
		courses:     repos.NewCourseRepo(db, log),
		topics:      repos.NewTopicRepo(db, log),
		personas:    repos.NewPersonaRepo(db, log),
		enrollments: repos.NewEnrollmentRepo(db, log),
		syllabi:     repos.NewSyllabusRepo(db, log),
		sessions:    repos.NewChatSessionRepo(db, log),
		messages:    repos.NewChatMessageRepo(db, log),
		summaries:   repos.NewTopicSummaryRepo(db, log),
		jobs:        repos.NewJobRunRepo(db, log),
	}
}

func (e *testEnv) courseService() CourseService {
	return NewCourseService(e.db, e.log, e.courses, e.topics, e.personas, e.enrollments, e.syllabi, e.sessions, e.messages)
}

func (e *testEnv) enrollmentService() EnrollmentService {
	return NewEnrollmentService(e.db, e.log, e.users, e.courses, e.topics, e.enrollments, e.syllabi, e.sessions, e.messages)
}

func asUser(u *types.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Role: u.Role})
}

type notifyEvent struct {
	kind   string
	userID uuid.UUID
}

// recordingNotifier captures every job and tutoring event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
}

func (r *recordingNotifier) add(kind string, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, notifyEvent{kind: kind, userID: userID})
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

func (r *recordingNotifier) JobCreated(u uuid.UUID, _ *types.JobRun) { r.add("job_created", u) }
func (r *recordingNotifier) JobProgress(u uuid.UUID, _ *types.JobRun, _ string, _ int, _ string) {
	r.add("job_progress", u)
}
func (r *recordingNotifier) JobFailed(u uuid.UUID, _ *types.JobRun, _, _ string) {
	r.add("job_failed", u)
}
func (r *recordingNotifier) JobDone(u uuid.UUID, _ *types.JobRun) { r.add("job_done", u) }
func (r *recordingNotifier) TopicSummaryReady(u uuid.UUID, _ *types.TopicSummary) {
	r.add("summary_ready", u)
}
func (r *recordingNotifier) SyllabusUpdated(u, _ uuid.UUID, _ []*types.SyllabusEntry) {
	r.add("syllabus_updated", u)
}
