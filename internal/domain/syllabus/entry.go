package syllabus

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Entry is one row of a student's plan for a course.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_syllabus_student_course_topic,priority:1" json:"student_id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_syllabus_student_course_topic,priority:2" json:"course_id"`
	TopicID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_syllabus_student_course_topic,priority:3;index" json:"topic_id"`
	Status     string    `gorm:"column:status;not null;default:'pending'" json:"status"`
	OrderIndex int       `gorm:"column:order_index;not null;default:0" json:"order_index"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Entry) TableName() string { return "student_syllabus" }

func (e *Entry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
