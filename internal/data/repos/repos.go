package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos/auth"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/chat"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/course"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/syllabus"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos/user"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type CourseRepo = course.CourseRepo
type TopicRepo = course.TopicRepo
type PersonaRepo = course.PersonaRepo
type EnrollmentRepo = course.EnrollmentRepo

type SyllabusRepo = syllabus.SyllabusRepo

type ChatSessionRepo = chat.ChatSessionRepo
type ChatMessageRepo = chat.ChatMessageRepo
type TopicSummaryRepo = chat.TopicSummaryRepo

type JobRunRepo = jobs.JobRunRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return course.NewCourseRepo(db, baseLog)
}
func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return course.NewTopicRepo(db, baseLog)
}
func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return course.NewPersonaRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return course.NewEnrollmentRepo(db, baseLog)
}

func NewSyllabusRepo(db *gorm.DB, baseLog *logger.Logger) SyllabusRepo {
	return syllabus.NewSyllabusRepo(db, baseLog)
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return chat.NewChatSessionRepo(db, baseLog)
}
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, baseLog)
}
func NewTopicSummaryRepo(db *gorm.DB, baseLog *logger.Logger) TopicSummaryRepo {
	return chat.NewTopicSummaryRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
