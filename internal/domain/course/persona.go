package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersonaConfig shapes how the tutor talks for one course.
type PersonaConfig struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"course_id"`
	Tone             string    `gorm:"column:tone;not null;default:''" json:"tone"`
	ExplanationStyle string    `gorm:"column:explanation_style;not null;default:''" json:"explanation_style"`
	Language         string    `gorm:"column:language;not null;default:''" json:"language"`
	DifficultyLevel  string    `gorm:"column:difficulty_level;not null;default:''" json:"difficulty_level"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PersonaConfig) TableName() string { return "persona_config" }

func (p *PersonaConfig) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
