package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/db"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	pkgerrors "github.com/yungbote/tutorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

// WarningNoTopics is returned when a student joins a course that has no topics yet.
const WarningNoTopics = "Curso sin temas"

type EnrollResult struct {
	Enrollment *types.Enrollment      `json:"enrollment"`
	Course     *types.Course          `json:"course"`
	Syllabus   []*types.SyllabusEntry `json:"syllabus"`
	Warning    string                 `json:"warning,omitempty"`
}

type StudentCourse struct {
	EnrollmentID uuid.UUID     `json:"enrollment_id"`
	Course       *types.Course `json:"course"`
	Teacher      string        `json:"teacher"`
	Progress     int           `json:"progress"`
}

type TopicWithStatus struct {
	*types.Topic
	Status string `json:"status"`
}

type StudentCourseDetails struct {
	Course   *types.Course      `json:"course"`
	Teacher  string             `json:"teacher"`
	Topics   []*TopicWithStatus `json:"topics"`
	Progress int                `json:"progress"`
}

type EnrollmentService interface {
	Enroll(ctx context.Context, code string) (*EnrollResult, error)
	ListCourses(ctx context.Context) ([]*StudentCourse, error)
	GetCourseDetails(ctx context.Context, courseID uuid.UUID) (*StudentCourseDetails, error)
	Drop(ctx context.Context, courseID uuid.UUID) error
	UpdateProgress(ctx context.Context, courseID uuid.UUID, progress int) error
}

type enrollmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	courses     repos.CourseRepo
	topics      repos.TopicRepo
	enrollments repos.EnrollmentRepo
	syllabi     repos.SyllabusRepo
	sessions    repos.ChatSessionRepo
	messages    repos.ChatMessageRepo
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	courses repos.CourseRepo,
	topics repos.TopicRepo,
	enrollments repos.EnrollmentRepo,
	syllabi repos.SyllabusRepo,
	sessions repos.ChatSessionRepo,
	messages repos.ChatMessageRepo,
) EnrollmentService {
	return &enrollmentService{
		db:          db,
		log:         baseLog.With("service", "EnrollmentService"),
		users:       users,
		courses:     courses,
		topics:      topics,
		enrollments: enrollments,
		syllabi:     syllabi,
		sessions:    sessions,
		messages:    messages,
	}
}

// Enroll joins the caller to the course with the given share code and lays out
// their syllabus: one entry per topic in course order, the first in progress.
func (s *enrollmentService) Enroll(ctx context.Context, code string) (*EnrollResult, error) {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apierr.BadRequest("course_code_required", pkgerrors.ErrInvalidArgument)
	}

	res := &EnrollResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		course, err := s.courses.GetByCode(dbc, code)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NotFound("invalid_course_code", fmt.Errorf("%w: no course with code %s", pkgerrors.ErrNotFound, code))
		}
		res.Course = course

		existing, err := s.enrollments.Get(dbc, rd.UserID, course.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Conflict("already_enrolled", fmt.Errorf("%w: already enrolled", pkgerrors.ErrConflict))
		}
		enrollment := &types.Enrollment{StudentID: rd.UserID, CourseID: course.ID}
		if err := s.enrollments.Create(dbc, enrollment); err != nil {
			if db.IsUniqueViolation(err) {
				return apierr.Conflict("already_enrolled", fmt.Errorf("%w: already enrolled", pkgerrors.ErrConflict))
			}
			return fmt.Errorf("create enrollment: %w", err)
		}
		res.Enrollment = enrollment

		topics, err := s.topics.ListByCourse(dbc, course.ID)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			res.Warning = WarningNoTopics
			res.Syllabus = []*types.SyllabusEntry{}
			return nil
		}
		entries := lo.Map(topics, func(t *types.Topic, i int) *types.SyllabusEntry {
			status := types.SyllabusPending
			if i == 0 {
				status = types.SyllabusInProgress
			}
			return &types.SyllabusEntry{
				StudentID:  rd.UserID,
				CourseID:   course.ID,
				TopicID:    t.ID,
				Status:     status,
				OrderIndex: i,
			}
		})
		res.Syllabus, err = s.syllabi.CreateEntries(dbc, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Warning != "" {
		s.log.Warn("enrolled in course without topics", "course_id", res.Course.ID, "student_id", rd.UserID)
	} else {
		s.log.Info("enrolled", "course_id", res.Course.ID, "student_id", rd.UserID, "topics", len(res.Syllabus))
	}
	return res, nil
}

func (s *enrollmentService) teacherEmails(dbc dbctx.Context, courses []*types.Course) (map[uuid.UUID]string, error) {
	ids := lo.Uniq(lo.Map(courses, func(c *types.Course, _ int) uuid.UUID { return c.TeacherID }))
	users, err := s.users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(users, func(u *types.User) (uuid.UUID, string) { return u.ID, u.Email }), nil
}

func teacherOr(emails map[uuid.UUID]string, id uuid.UUID) string {
	if e, ok := emails[id]; ok && e != "" {
		return e
	}
	return "Desconocido"
}

func (s *enrollmentService) ListCourses(ctx context.Context) ([]*StudentCourse, error) {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	enrollments, err := s.enrollments.ListByStudent(dbc, rd.UserID)
	if err != nil {
		return nil, err
	}
	// Enrollments of soft-deleted courses come back without a course.
	enrollments = lo.Filter(enrollments, func(e *types.Enrollment, _ int) bool { return e.Course != nil })
	emails, err := s.teacherEmails(dbc, lo.Map(enrollments, func(e *types.Enrollment, _ int) *types.Course { return e.Course }))
	if err != nil {
		return nil, err
	}
	return lo.Map(enrollments, func(e *types.Enrollment, _ int) *StudentCourse {
		return &StudentCourse{
			EnrollmentID: e.ID,
			Course:       e.Course,
			Teacher:      teacherOr(emails, e.Course.TeacherID),
			Progress:     e.Progress,
		}
	}), nil
}

// GetCourseDetails returns the course with each topic's syllabus status. Progress
// is the share of completed topics, rounded.
func (s *enrollmentService) GetCourseDetails(ctx context.Context, courseID uuid.UUID) (*StudentCourseDetails, error) {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	enrollment, err := s.enrollments.Get(dbc, rd.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, apierr.NotFound("not_enrolled", pkgerrors.ErrNotFound)
	}
	courses, err := s.courses.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, apierr.NotFound("course_not_found", pkgerrors.ErrNotFound)
	}
	topics, err := s.topics.ListByCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	entries, err := s.syllabi.ListForStudentCourse(dbc, rd.UserID, courseID)
	if err != nil {
		s.log.Warn("syllabus load failed", "course_id", courseID, "error", err)
		entries = nil
	}
	emails, err := s.teacherEmails(dbc, courses)
	if err != nil {
		return nil, err
	}

	status := lo.SliceToMap(entries, func(e *types.SyllabusEntry) (uuid.UUID, string) { return e.TopicID, e.Status })
	withStatus := lo.Map(topics, func(t *types.Topic, _ int) *TopicWithStatus {
		st, ok := status[t.ID]
		if !ok {
			st = types.SyllabusPending
		}
		return &TopicWithStatus{Topic: t, Status: st}
	})
	return &StudentCourseDetails{
		Course:   courses[0],
		Teacher:  teacherOr(emails, courses[0].TeacherID),
		Topics:   withStatus,
		Progress: completionPercent(len(topics), lo.CountBy(entries, func(e *types.SyllabusEntry) bool { return e.Status == types.SyllabusCompleted })),
	}, nil
}

func completionPercent(total, completed int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Drop removes the enrollment together with the student's syllabus and chat.
func (s *enrollmentService) Drop(ctx context.Context, courseID uuid.UUID) error {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		deleted, err := s.enrollments.Delete(dbc, rd.UserID, courseID)
		if err != nil {
			return err
		}
		if !deleted {
			return apierr.NotFound("not_enrolled", pkgerrors.ErrNotFound)
		}
		if err := s.syllabi.DeleteForStudentCourse(dbc, rd.UserID, courseID); err != nil {
			return err
		}
		session, err := s.sessions.Get(dbc, rd.UserID, courseID)
		if err != nil {
			return err
		}
		if session == nil {
			return nil
		}
		if err := s.messages.DeleteBySessionIDs(dbc, []uuid.UUID{session.ID}); err != nil {
			return err
		}
		return s.sessions.Delete(dbc, rd.UserID, courseID)
	})
}

func (s *enrollmentService) UpdateProgress(ctx context.Context, courseID uuid.UUID, progress int) error {
	rd, err := requireRole(ctx, types.RoleStudent)
	if err != nil {
		return err
	}
	if progress < 0 || progress > 100 {
		return apierr.BadRequest("invalid_progress", fmt.Errorf("%w: progress must be within 0..100", pkgerrors.ErrInvalidArgument))
	}
	ok, err := s.enrollments.UpdateProgress(dbctx.New(ctx), rd.UserID, courseID, progress)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("not_enrolled", pkgerrors.ErrNotFound)
	}
	return nil
}
