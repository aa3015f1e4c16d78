package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TopicSummary is the pedagogical digest written after a student finishes a topic.
// A student may accumulate several summaries for the same topic; the newest wins.
type TopicSummary struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_topic_summary_student_topic,priority:1" json:"student_id"`
	TopicID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_topic_summary_student_topic,priority:2" json:"topic_id"`
	CompletionSummary  string         `gorm:"column:topic_completion_summary;type:text;not null;default:''" json:"topic_completion_summary"`
	StudentDoubts      datatypes.JSON `gorm:"column:student_doubts;type:jsonb;not null;default:'[]'" json:"student_doubts"`
	EffectiveAnalogies string         `gorm:"column:effective_analogies;type:text;not null;default:''" json:"effective_analogies"`
	EngagementLevel    string         `gorm:"column:engagement_level;not null;default:'Medium'" json:"engagement_level"`
	NextSessionHook    string         `gorm:"column:next_session_hook;type:text;not null;default:''" json:"next_session_hook"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (TopicSummary) TableName() string { return "topic_summary" }

func (s *TopicSummary) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if len(s.StudentDoubts) == 0 {
		s.StudentDoubts = datatypes.JSON([]byte("[]"))
	}
	return nil
}
