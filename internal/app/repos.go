package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	UserToken    repos.UserTokenRepo
	Course       repos.CourseRepo
	Topic        repos.TopicRepo
	Persona      repos.PersonaRepo
	Enrollment   repos.EnrollmentRepo
	Syllabus     repos.SyllabusRepo
	ChatSession  repos.ChatSessionRepo
	ChatMessage  repos.ChatMessageRepo
	TopicSummary repos.TopicSummaryRepo
	JobRun       repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		UserToken:    repos.NewUserTokenRepo(db, log),
		Course:       repos.NewCourseRepo(db, log),
		Topic:        repos.NewTopicRepo(db, log),
		Persona:      repos.NewPersonaRepo(db, log),
		Enrollment:   repos.NewEnrollmentRepo(db, log),
		Syllabus:     repos.NewSyllabusRepo(db, log),
		ChatSession:  repos.NewChatSessionRepo(db, log),
		ChatMessage:  repos.NewChatMessageRepo(db, log),
		TopicSummary: repos.NewTopicSummaryRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
	}
}
