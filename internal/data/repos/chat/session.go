package chat

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type ChatSessionRepo interface {
	// Get returns nil, nil when the student never chatted in the course.
	Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.ChatSession, error)
	GetOrCreate(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.ChatSession, error)
	Delete(dbc dbctx.Context, userID, courseID uuid.UUID) error
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.ChatSession, error)
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{db: db, log: baseLog.With("repo", "ChatSessionRepo")}
}

func (r *chatSessionRepo) Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.ChatSession, error) {
	var s types.ChatSession
	err := dbc.DB(r.db).Where("user_id = ? AND course_id = ?", userID, courseID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *chatSessionRepo) GetOrCreate(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.ChatSession, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, errors.New("chat session requires user and course")
	}
	s := &types.ChatSession{UserID: userID, CourseID: courseID, NextSeq: 1}
	if err := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(s).Error; err != nil {
		return nil, err
	}
	return r.Get(dbc, userID, courseID)
}

func (r *chatSessionRepo) Delete(dbc dbctx.Context, userID, courseID uuid.UUID) error {
	return dbc.DB(r.db).Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&types.ChatSession{}).Error
}

func (r *chatSessionRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.ChatSession, error) {
	var out []*types.ChatSession
	if err := dbc.DB(r.db).Where("course_id = ?", courseID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
