package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type UnitRepo interface {
	Create(ctx context.Context, tx *gorm.DB, unit *domain.Unit) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Unit, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Unit, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type unitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnitRepo(db *gorm.DB, baseLog *logger.Logger) UnitRepo {
	return &unitRepo{db: db, log: baseLog.With("repo", "UnitRepo")}
}

func (r *unitRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *unitRepo) Create(ctx context.Context, tx *gorm.DB, unit *domain.Unit) error {
	return r.resolve(tx).WithContext(ctx).Create(unit).Error
}

func (r *unitRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Unit, error) {
	var unit domain.Unit
	err := r.resolve(tx).WithContext(ctx).
		Preload("Classes").
		Where("id = ?", id).
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*domain.Unit, error) {
	var results []*domain.Unit
	if err := r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sort_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *unitRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.resolve(tx).WithContext(ctx).
		Model(&domain.Unit{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *unitRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Unit{}).Error
}

func (r *unitRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&domain.Unit{}).Error
}
