package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, course *domain.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Course, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.Course, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error)
	SetInstructor(ctx context.Context, tx *gorm.DB, id uuid.UUID, instructorID uuid.UUID) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *domain.Course) error {
	return r.resolve(tx).WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	err := r.resolve(tx).WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Units.Classes").
		Where("id = ?", id).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.Course, error) {
	var results []*domain.Course
	if err := r.resolve(tx).WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.resolve(tx).WithContext(ctx).
		Model(&domain.Course{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *courseRepo) SetInstructor(ctx context.Context, tx *gorm.DB, id uuid.UUID, instructorID uuid.UUID) (bool, error) {
	return r.UpdateFields(ctx, tx, id, map[string]any{"instructor_id": instructorID})
}

func (r *courseRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Course{}).Error
}
