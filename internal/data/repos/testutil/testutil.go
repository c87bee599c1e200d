package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh in-memory sqlite database per test and migrates the
// structure tables into it.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	// A named shared-cache memory database keeps every pooled connection on
	// the same store; the unique name isolates tests from each other.
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Course{},
		&domain.Unit{},
		&domain.Class{},
		&domain.Enrollment{},
	); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *domain.Course {
	tb.Helper()
	now := time.Now().UTC()
	c := &domain.Course{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedUnit(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, order int) *domain.Unit {
	tb.Helper()
	now := time.Now().UTC()
	u := &domain.Unit{
		ID:        uuid.New(),
		CourseID:  courseID,
		Name:      "unit",
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed unit: %v", err)
	}
	return u
}

func SeedClass(tb testing.TB, ctx context.Context, tx *gorm.DB, unitID uuid.UUID, published bool) *domain.Class {
	tb.Helper()
	now := time.Now().UTC()
	c := &domain.Class{
		ID:          uuid.New(),
		UnitID:      unitID,
		Name:        "class",
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed class: %v", err)
	}
	return c
}
