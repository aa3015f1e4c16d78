package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course is owned by a teacher. Students join it through its share Code.
type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID   uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Code        string    `gorm:"column:code;not null;uniqueIndex" json:"code"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Topic is one teachable unit of a course. Position fixes the syllabus order.
type Topic struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;index:idx_topic_course_position,priority:1" json:"course_id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	Content    string    `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Activities string    `gorm:"column:activities;type:text;not null;default:''" json:"activities,omitempty"`
	Position   int       `gorm:"column:position;not null;default:0;index:idx_topic_course_position,priority:2" json:"position"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }

func (t *Topic) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
