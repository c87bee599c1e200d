package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type ClassRepo interface {
	Create(ctx context.Context, tx *gorm.DB, class *domain.Class) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Class, error)
	ListByUnit(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) ([]*domain.Class, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error

	// PublishedClassCounts returns the number of published classes per unit
	// of the course. The sync engine re-reads this on every call; it is the
	// live denominator of every learner's completion percentage.
	PublishedClassCounts(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (map[uuid.UUID]int, error)
}

type classRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClassRepo(db *gorm.DB, baseLog *logger.Logger) ClassRepo {
	return &classRepo{db: db, log: baseLog.With("repo", "ClassRepo")}
}

func (r *classRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *classRepo) Create(ctx context.Context, tx *gorm.DB, class *domain.Class) error {
	return r.resolve(tx).WithContext(ctx).Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Class, error) {
	var class domain.Class
	err := r.resolve(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&class).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) ListByUnit(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) ([]*domain.Class, error) {
	var results []*domain.Class
	if err := r.resolve(tx).WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *classRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.resolve(tx).WithContext(ctx).
		Model(&domain.Class{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *classRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Class{}).Error
}

func (r *classRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("unit_id IN (?)",
			r.resolve(tx).Model(&domain.Unit{}).Select("id").Where("course_id = ?", courseID),
		).
		Delete(&domain.Class{}).Error
}

func (r *classRepo) PublishedClassCounts(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (map[uuid.UUID]int, error) {
	type row struct {
		UnitID uuid.UUID
		N      int
	}
	var rows []row
	if err := r.resolve(tx).WithContext(ctx).
		Model(&domain.Class{}).
		Select("classes.unit_id AS unit_id, COUNT(*) AS n").
		Joins("JOIN units ON units.id = classes.unit_id").
		Where("units.course_id = ? AND classes.is_published = ?", courseID, true).
		Group("classes.unit_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, rr := range rows {
		counts[rr.UnitID] = rr.N
	}
	return counts, nil
}
