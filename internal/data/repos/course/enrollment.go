package course

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	Create(dbc dbctx.Context, e *types.Enrollment) error
	Get(dbc dbctx.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.Enrollment, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Enrollment, error)
	UpdateProgress(dbc dbctx.Context, studentID, courseID uuid.UUID, progress int) (bool, error)
	Delete(dbc dbctx.Context, studentID, courseID uuid.UUID) (bool, error)
	DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) Create(dbc dbctx.Context, e *types.Enrollment) error {
	if e == nil {
		return nil
	}
	return dbc.DB(r.db).Omit("Course").Create(e).Error
}

// Get returns nil, nil when the student is not enrolled.
func (r *enrollmentRepo) Get(dbc dbctx.Context, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	var e types.Enrollment
	err := dbc.DB(r.db).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByStudent preloads each enrollment's course, newest enrollment first.
func (r *enrollmentRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	if studentID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) UpdateProgress(dbc dbctx.Context, studentID, courseID uuid.UUID, progress int) (bool, error) {
	res := dbc.DB(r.db).Model(&types.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Updates(map[string]interface{}{"progress": progress, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) Delete(dbc dbctx.Context, studentID, courseID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&types.Enrollment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("course_id = ?", courseID).Delete(&types.Enrollment{}).Error
}
