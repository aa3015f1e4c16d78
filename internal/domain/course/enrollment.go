package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:1" json:"student_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:2;index" json:"course_id"`
	Progress  int       `gorm:"column:progress;not null;default:0" json:"progress"`

	EnrolledAt time.Time `gorm:"column:enrolled_at;not null;autoCreateTime" json:"enrolled_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`

	Course *Course `gorm:"foreignKey:CourseID;references:ID" json:"course,omitempty"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
