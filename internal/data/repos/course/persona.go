package course

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type PersonaRepo interface {
	// GetByCourse returns nil, nil when the course has no persona configured.
	GetByCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.PersonaConfig, error)
	Upsert(dbc dbctx.Context, p *types.PersonaConfig) error
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: baseLog.With("repo", "PersonaRepo")}
}

func (r *personaRepo) GetByCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.PersonaConfig, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var p types.PersonaConfig
	err := dbc.DB(r.db).Where("course_id = ?", courseID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personaRepo) Upsert(dbc dbctx.Context, p *types.PersonaConfig) error {
	if p == nil || p.CourseID == uuid.Nil {
		return nil
	}
	p.UpdatedAt = time.Now()
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tone", "explanation_style", "language", "difficulty_level", "updated_at"}),
	}).Create(p).Error
}
