package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type ChatMessageRepo interface {
	// Append assigns consecutive seq numbers from the session counter and inserts msgs.
	Append(dbc dbctx.Context, sessionID uuid.UUID, msgs []*types.ChatMessage) ([]*types.ChatMessage, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error)
	ListByUserTopic(dbc dbctx.Context, userID, topicID uuid.UUID) ([]*types.ChatMessage, error)
	CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
	DeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) Append(dbc dbctx.Context, sessionID uuid.UUID, msgs []*types.ChatMessage) ([]*types.ChatMessage, error) {
	if len(msgs) == 0 {
		return []*types.ChatMessage{}, nil
	}
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		now := time.Now()
		// Bumping the counter first takes the row lock, so concurrent appends serialize here.
		if err := txx.Model(&types.ChatSession{}).
			Where("id = ?", sessionID).
			Updates(map[string]interface{}{
				"next_seq":        gorm.Expr("next_seq + ?", len(msgs)),
				"last_message_at": now,
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}
		var s types.ChatSession
		if err := txx.Select("id", "next_seq").Where("id = ?", sessionID).First(&s).Error; err != nil {
			return err
		}
		first := s.NextSeq - int64(len(msgs))
		for i, m := range msgs {
			m.SessionID = sessionID
			m.Seq = first + int64(i)
		}
		return txx.Create(&msgs).Error
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListBySession returns the last limit messages (all when limit <= 0) in seq order.
func (r *chatMessageRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	var out []*types.ChatMessage
	q := dbc.DB(r.db).Where("session_id = ?", sessionID).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatMessageRepo) ListByUserTopic(dbc dbctx.Context, userID, topicID uuid.UUID) ([]*types.ChatMessage, error) {
	var out []*types.ChatMessage
	if err := dbc.DB(r.db).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatMessageRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.ChatMessage{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *chatMessageRepo) DeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Unscoped().Where("session_id IN ?", sessionIDs).Delete(&types.ChatMessage{}).Error
}
