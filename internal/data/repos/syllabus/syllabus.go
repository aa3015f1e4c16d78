package syllabus

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type SyllabusRepo interface {
	CreateEntries(dbc dbctx.Context, entries []*types.SyllabusEntry) ([]*types.SyllabusEntry, error)
	// ListForStudentCourse returns the plan in order_index order.
	ListForStudentCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) ([]*types.SyllabusEntry, error)
	// UpdateStatus never moves a completed entry back; it reports whether a row changed.
	UpdateStatus(dbc dbctx.Context, studentID, courseID, topicID uuid.UUID, status string) (bool, error)
	DeleteForStudentCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) error
	DeleteByTopicIDs(dbc dbctx.Context, topicIDs []uuid.UUID) error
	DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type syllabusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyllabusRepo(db *gorm.DB, baseLog *logger.Logger) SyllabusRepo {
	return &syllabusRepo{db: db, log: baseLog.With("repo", "SyllabusRepo")}
}

func (r *syllabusRepo) CreateEntries(dbc dbctx.Context, entries []*types.SyllabusEntry) ([]*types.SyllabusEntry, error) {
	if len(entries) == 0 {
		return []*types.SyllabusEntry{}, nil
	}
	if err := dbc.DB(r.db).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *syllabusRepo) ListForStudentCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) ([]*types.SyllabusEntry, error) {
	var out []*types.SyllabusEntry
	if studentID == uuid.Nil || courseID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Order("order_index ASC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *syllabusRepo) UpdateStatus(dbc dbctx.Context, studentID, courseID, topicID uuid.UUID, status string) (bool, error) {
	q := dbc.DB(r.db).Model(&types.SyllabusEntry{}).
		Where("student_id = ? AND course_id = ? AND topic_id = ?", studentID, courseID, topicID)
	if status != types.SyllabusCompleted {
		q = q.Where("status <> ?", types.SyllabusCompleted)
	}
	res := q.Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *syllabusRepo) DeleteForStudentCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) error {
	return dbc.DB(r.db).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&types.SyllabusEntry{}).Error
}

func (r *syllabusRepo) DeleteByTopicIDs(dbc dbctx.Context, topicIDs []uuid.UUID) error {
	if len(topicIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("topic_id IN ?", topicIDs).Delete(&types.SyllabusEntry{}).Error
}

func (r *syllabusRepo) DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("course_id = ?", courseID).Delete(&types.SyllabusEntry{}).Error
}
