package chat

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type TopicSummaryRepo interface {
	Create(dbc dbctx.Context, s *types.TopicSummary) error
	// GetLatest returns nil, nil when no summary exists yet.
	GetLatest(dbc dbctx.Context, studentID, topicID uuid.UUID) (*types.TopicSummary, error)
	ListByStudentTopic(dbc dbctx.Context, studentID, topicID uuid.UUID) ([]*types.TopicSummary, error)
}

type topicSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicSummaryRepo(db *gorm.DB, baseLog *logger.Logger) TopicSummaryRepo {
	return &topicSummaryRepo{db: db, log: baseLog.With("repo", "TopicSummaryRepo")}
}

func (r *topicSummaryRepo) Create(dbc dbctx.Context, s *types.TopicSummary) error {
	if s == nil {
		return nil
	}
	return dbc.DB(r.db).Create(s).Error
}

func (r *topicSummaryRepo) GetLatest(dbc dbctx.Context, studentID, topicID uuid.UUID) (*types.TopicSummary, error) {
	var s types.TopicSummary
	err := dbc.DB(r.db).
		Where("student_id = ? AND topic_id = ?", studentID, topicID).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *topicSummaryRepo) ListByStudentTopic(dbc dbctx.Context, studentID, topicID uuid.UUID) ([]*types.TopicSummary, error) {
	var out []*types.TopicSummary
	if err := dbc.DB(r.db).
		Where("student_id = ? AND topic_id = ?", studentID, topicID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
