package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Structure rows live in Postgres and are the source of truth for how many
// gradable items a course has. Only published classes count.

type Course struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"not null;column:name" json:"name"`
	Description  string     `gorm:"column:description" json:"description"`
	InstructorID *uuid.UUID `gorm:"type:uuid;column:instructor_id;index" json:"instructor_id,omitempty"`

	Units []Unit `gorm:"foreignKey:CourseID" json:"units,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

type Unit struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index;column:course_id" json:"course_id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Order       int       `gorm:"column:sort_order" json:"order"`
	Description string    `gorm:"column:description" json:"description"`

	Classes []Class `gorm:"foreignKey:UnitID" json:"classes,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Unit) TableName() string { return "units" }

type Class struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID      uuid.UUID `gorm:"type:uuid;not null;index;column:unit_id" json:"unit_id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	IsPublished bool      `gorm:"not null;default:false;column:is_published" json:"is_published"`

	// URLs of supporting material, stored as a JSON array.
	AdditionalMaterial datatypes.JSON `gorm:"column:additional_material" json:"additional_material,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Class) TableName() string { return "classes" }

// Enrollment links a learner (who lives in the progress store) to a course.
// There is no FK to a users table; learner identity is external to Postgres.
type Enrollment struct {
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey;column:course_id" json:"course_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Enrollment) TableName() string { return "enrollments" }
