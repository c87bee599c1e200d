package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// Create is idempotent: enrolling twice is a no-op.
	Create(ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) error
	Exists(ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) (bool, error)
	ListUserIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error)
	Delete(ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) error {
	row := &domain.Enrollment{CourseID: courseID, UserID: userID, CreatedAt: time.Now().UTC()}
	return r.resolve(tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

func (r *enrollmentRepo) Exists(ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&domain.Enrollment{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *enrollmentRepo) ListUserIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.resolve(tx).WithContext(ctx).
		Model(&domain.Enrollment{}).
		Where("course_id = ?", courseID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *enrollmentRepo) Delete(ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Delete(&domain.Enrollment{}).Error
}

func (r *enrollmentRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&domain.Enrollment{}).Error
}

func (r *enrollmentRepo) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Enrollment{}).Error
}
