package tutoring

import (
	"context"
	"time"
)

type Identity struct {
	StudentID string
}

// PersonaConfig shapes how the tutor speaks for one course.
type PersonaConfig struct {
	Tone             string `json:"tone"`
	ExplanationStyle string `json:"explanation_style"`
	Language         string `json:"language"`
	DifficultyLevel  string `json:"difficulty_level"`
}

// DefaultPersona is used when a course has no persona record.
func DefaultPersona() PersonaConfig {
	return PersonaConfig{
		Tone:             "profesional",
		ExplanationStyle: "detallado",
		Language:         "es",
		DifficultyLevel:  "intermedio",
	}
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole
	Content string
}

// TopicSummary is the Notary's record for one completed topic.
type TopicSummary struct {
	StudentID          string
	TopicID            string
	CompletionSummary  string
	StudentDoubts      []string
	EffectiveAnalogies string
	EngagementLevel    string
	NextSessionHook    string
	CreatedAt          time.Time
}

// IdentityResolver returns ok=false when the caller is anonymous.
type IdentityResolver interface {
	ResolveCallerIdentity(ctx context.Context) (Identity, bool, error)
}

// SyllabusStore returns ok=false when the student has no plan for the course.
type SyllabusStore interface {
	GetSyllabus(ctx context.Context, studentID, courseID string) (Syllabus, bool, error)
	WriteTopicStatus(ctx context.Context, studentID, courseID, topicID string, status TopicStatus) error
}

// PersonaSource returns ok=false when the course has no persona record.
type PersonaSource interface {
	GetPersonaConfig(ctx context.Context, courseID string) (PersonaConfig, bool, error)
}

type TranscriptStore interface {
	GetChatTranscript(ctx context.Context, studentID, topicID string) ([]Message, error)
	// GetCourseHistory returns the last limit messages of the student's course
	// conversation, oldest first. An empty result means no session yet.
	GetCourseHistory(ctx context.Context, studentID, courseID string, limit int) ([]Message, error)
	AppendExchange(ctx context.Context, studentID, courseID, topicID string, msgs []Message) error
}

type SummaryStore interface {
	SaveSummary(ctx context.Context, s TopicSummary) error
}

// Completer is the LLM. system may be empty; the tutoring prompts are sent as
// the user turn.
type Completer interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// NotaryRequest is the unit of work handed from a Teacher turn to the Notary.
type NotaryRequest struct {
	StudentID string
	CourseID  string
	TopicID   string
}

// NotaryQueue accepts Notary work. Implementations must not block on the
// Notary itself.
type NotaryQueue interface {
	EnqueueNotary(ctx context.Context, req NotaryRequest) error
}

// TurnLocker serializes turns for one (student, course). The returned release
// func is always non-nil when err is nil.
type TurnLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
