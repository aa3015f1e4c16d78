package domain

import (
	"github.com/yungbote/tutorbridge-backend/internal/domain/auth"
	"github.com/yungbote/tutorbridge-backend/internal/domain/chat"
	"github.com/yungbote/tutorbridge-backend/internal/domain/course"
	"github.com/yungbote/tutorbridge-backend/internal/domain/jobs"
	"github.com/yungbote/tutorbridge-backend/internal/domain/syllabus"
	"github.com/yungbote/tutorbridge-backend/internal/domain/user"
)

const (
	RoleTeacher = user.RoleTeacher
	RoleStudent = user.RoleStudent

	SyllabusPending    = syllabus.StatusPending
	SyllabusInProgress = syllabus.StatusInProgress
	SyllabusCompleted  = syllabus.StatusCompleted

	ChatRoleUser      = chat.RoleUser
	ChatRoleAssistant = chat.RoleAssistant

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
	JobStatusCanceled  = jobs.StatusCanceled
)

type User = user.User
type UserToken = auth.UserToken

type Course = course.Course
type Topic = course.Topic
type PersonaConfig = course.PersonaConfig
type Enrollment = course.Enrollment

type SyllabusEntry = syllabus.Entry

type ChatSession = chat.ChatSession
type ChatMessage = chat.ChatMessage
type TopicSummary = chat.TopicSummary

type JobRun = jobs.JobRun

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Course{},
		&Topic{},
		&PersonaConfig{},
		&Enrollment{},
		&SyllabusEntry{},
		&ChatSession{},
		&ChatMessage{},
		&TopicSummary{},
		&JobRun{},
	}
}
