// Package structure is the CRUD surface over the course hierarchy. Creating
// a course mirrors a Course node into the graph store; enrolling or assigning
// an instructor keeps the learner record's references in step with the
// enrollment rows.
package structure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

const casRetries = 5

type Service interface {
	CreateCourse(ctx context.Context, name, description string) (*domain.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	ListCourses(ctx context.Context) ([]*domain.Course, error)
	UpdateCourse(ctx context.Context, id uuid.UUID, name, description *string) (*domain.Course, error)
	// AssignInstructor points the course at the instructor and adds the
	// course to the instructor's record.
	AssignInstructor(ctx context.Context, courseID, instructorID uuid.UUID) error

	AddUnit(ctx context.Context, courseID uuid.UUID, name, description string, order int) (*domain.Unit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*domain.Unit, error)
	ListUnits(ctx context.Context, courseID uuid.UUID) ([]*domain.Unit, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, name, description *string, order *int) (*domain.Unit, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) error

	AddClass(ctx context.Context, unitID uuid.UUID, name, description string) (*domain.Class, error)
	GetClass(ctx context.Context, id uuid.UUID) (*domain.Class, error)
	UpdateClass(ctx context.Context, id uuid.UUID, name, description *string) (*domain.Class, error)
	// SetClassPublished flips the published bit; this changes every enrolled
	// learner's completion denominator on their next sync.
	SetClassPublished(ctx context.Context, id uuid.UUID, published bool) (*domain.Class, error)
	AddClassMaterial(ctx context.Context, id uuid.UUID, url string) (*domain.Class, error)
	RemoveClassMaterial(ctx context.Context, id uuid.UUID, url string) (*domain.Class, error)
	DeleteClass(ctx context.Context, id uuid.UUID) error

	Enroll(ctx context.Context, courseID, userID uuid.UUID) error
	Unenroll(ctx context.Context, courseID, userID uuid.UUID) error
}

type service struct {
	courses     repos.CourseRepo
	units       repos.UnitRepo
	classes     repos.ClassRepo
	enrollments repos.EnrollmentRepo
	users       progress.Store
	graphStore  graph.Store
	log         *logger.Logger
}

func NewService(
	courses repos.CourseRepo,
	units repos.UnitRepo,
	classes repos.ClassRepo,
	enrollments repos.EnrollmentRepo,
	users progress.Store,
	graphStore graph.Store,
	baseLog *logger.Logger,
) Service {
	return &service{
		courses:     courses,
		units:       units,
		classes:     classes,
		enrollments: enrollments,
		users:       users,
		graphStore:  graphStore,
		log:         baseLog.With("service", "StructureService"),
	}
}

func (s *service) CreateCourse(ctx context.Context, name, description string) (*domain.Course, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("course name must not be empty")
	}
	now := time.Now().UTC()
	course := &domain.Course{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.courses.Create(ctx, nil, course); err != nil {
		return nil, apierr.Unavailable("structure store write failed", err)
	}
	// Mirror the node so ratings and comments can attach; MERGE makes a
	// rerun harmless.
	if err := s.graphStore.CreateCourseNode(ctx, course.ID); err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	s.log.Info("course created", "course_id", course.ID, "name", name)
	return course, nil
}

func (s *service) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	course, err := s.courses.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course not found")
	}
	return course, nil
}

func (s *service) ListCourses(ctx context.Context) ([]*domain.Course, error) {
	out, err := s.courses.List(ctx, nil)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	return out, nil
}

func (s *service) UpdateCourse(ctx context.Context, id uuid.UUID, name, description *string) (*domain.Course, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if name != nil {
		fields["name"] = *name
	}
	if description != nil {
		fields["description"] = *description
	}
	ok, err := s.courses.UpdateFields(ctx, nil, id, fields)
	if err != nil {
		return nil, apierr.Unavailable("structure store write failed", err)
	}
	if !ok {
		return nil, apierr.NotFound("course not found")
	}
	return s.GetCourse(ctx, id)
}

func (s *service) AssignInstructor(ctx context.Context, courseID, instructorID uuid.UUID) error {
	instructor, err := s.users.GetUser(ctx, instructorID)
	if err != nil {
		return err
	}
	if instructor == nil {
		return apierr.NotFound("instructor not found")
	}

	ok, err := s.courses.SetInstructor(ctx, nil, courseID, instructorID)
	if err != nil {
		return apierr.Unavailable("structure store write failed", err)
	}
	if !ok {
		return apierr.NotFound("course not found")
	}

	return s.mutateUser(ctx, instructorID, func(u *domain.UserRecord) bool {
		return u.AddInstructorCourse(courseID)
	})
}

func (s *service) AddUnit(ctx context.Context, courseID uuid.UUID, name, description string, order int) (*domain.Unit, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	unit := &domain.Unit{
		ID:          uuid.New(),
		CourseID:    courseID,
		Name:        name,
		Description: description,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.units.Create(ctx, nil, unit); err != nil {
		return nil, apierr.Unavailable("structure store write failed", err)
	}
	return unit, nil
}

func (s *service) GetUnit(ctx context.Context, id uuid.UUID) (*domain.Unit, error) {
	unit, err := s.units.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	if unit == nil {
		return nil, apierr.NotFound("unit not found")
	}
	return unit, nil
}

func (s *service) ListUnits(ctx context.Context, courseID uuid.UUID) ([]*domain.Unit, error) {
	out, err := s.units.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	return out, nil
}

func (s *service) UpdateUnit(ctx context.Context, id uuid.UUID, name, description *string, order *int) (*domain.Unit, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if name != nil {
		fields["name"] = *name
	}
	if description != nil {
		fields["description"] = *description
	}
	if order != nil {
		fields["sort_order"] = *order
	}
	ok, err := s.units.UpdateFields(ctx, nil, id, fields)
	if err != nil {
		return nil, apierr.Unavailable("structure store write failed", err)
	}
	if !ok {
		return nil, apierr.NotFound("unit not found")
	}
	return s.GetUnit(ctx, id)
}

func (s *service) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return err
	}
	// Classes go first so no class row is left pointing at a missing unit.
	for _, class := range unit.Classes {
		if err := s.classes.Delete(ctx, nil, class.ID); err != nil {
			return apierr.Unavailable("structure store write failed", err)
		}
	}
	if err := s.units.Delete(ctx, nil, id); err != nil {
		return apierr.Unavailable("structure store write failed", err)
	}
	return nil
}

func (s *service) AddClass(ctx context.Context, unitID uuid.UUID, name, description string) (*domain.Class, error) {
	if _, err := s.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	class := &domain.Class{
		ID:          uuid.New(),
		UnitID:      unitID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.classes.Create(ctx, nil, class); err != nil {
		return nil, apierr.Unavailable("structure store write failed", err)
	}
	return class, nil
}

func (s *service) GetClass(ctx context.Context, id uuid.UUID) (*domain.Class, error) {
	class, err := s.classes.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	if class == nil {
		return nil, apierr.NotFound("class not found")
	}
	return class, nil
}

func (s *service) UpdateClass(ctx context.Context, id uuid.UUID, name, description *string) (*domain.Class, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if name != nil {
		fields["name"] = *name
	}
	if description != nil {
		fields["description"] = *description
	}
	return s.updateClassFields(ctx, id, fields)
}

func (s *service) SetClassPublished(ctx context.Context, id uuid.UUID, published bool) (*domain.Class, error) {
	return s.updateClassFields(ctx, id, map[string]any{
		"is_published": published,
		"updated_at":   time.Now().UTC(),
	})
}

func (s *service) updateClassFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*domain.Class, error) {
	ok, err := s.classes.UpdateFields(ctx, nil, id, fields)
	if err != nil {
		return nil, apierr.Unavailable("structure store write failed", err)
	}
	if !ok {
		return nil, apierr.NotFound("class not found")
	}
	return s.GetClass(ctx, id)
}

func (s *service) AddClassMaterial(ctx context.Context, id uuid.UUID, url string) (*domain.Class, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("material url must not be empty")
	}
	class, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	urls, err := decodeMaterials(class.AdditionalMaterial)
	if err != nil {
		return nil, err
	}
	for _, existing := range urls {
		if existing == url {
			return class, nil
		}
	}
	urls = append(urls, url)
	return s.writeMaterials(ctx, id, urls)
}

func (s *service) RemoveClassMaterial(ctx context.Context, id uuid.UUID, url string) (*domain.Class, error) {
	class, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	urls, err := decodeMaterials(class.AdditionalMaterial)
	if err != nil {
		return nil, err
	}
	kept := urls[:0]
	for _, existing := range urls {
		if existing != url {
			kept = append(kept, existing)
		}
	}
	return s.writeMaterials(ctx, id, kept)
}

func decodeMaterials(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, fmt.Errorf("decode class materials: %w", err)
	}
	return urls, nil
}

func (s *service) writeMaterials(ctx context.Context, id uuid.UUID, urls []string) (*domain.Class, error) {
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode class materials: %w", err)
	}
	return s.updateClassFields(ctx, id, map[string]any{
		"additional_material": datatypes.JSON(raw),
		"updated_at":          time.Now().UTC(),
	})
}

func (s *service) DeleteClass(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetClass(ctx, id); err != nil {
		return err
	}
	if err := s.classes.Delete(ctx, nil, id); err != nil {
		return apierr.Unavailable("structure store write failed", err)
	}
	return nil
}

func (s *service) Enroll(ctx context.Context, courseID, userID uuid.UUID) error {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apierr.NotFound("user not found")
	}

	// Row first, record second: a crash in between leaves an enrollment row
	// the record strip on unenroll or cascade cleans up.
	if err := s.enrollments.Create(ctx, nil, courseID, userID); err != nil {
		return apierr.Unavailable("structure store write failed", err)
	}
	return s.mutateUser(ctx, userID, func(u *domain.UserRecord) bool {
		return u.AddEnrolledCourse(courseID)
	})
}

func (s *service) Unenroll(ctx context.Context, courseID, userID uuid.UUID) error {
	if err := s.enrollments.Delete(ctx, nil, courseID, userID); err != nil {
		return apierr.Unavailable("structure store write failed", err)
	}
	return s.mutateUser(ctx, userID, func(u *domain.UserRecord) bool {
		return u.RemoveEnrolledCourse(courseID)
	})
}

func (s *service) mutateUser(ctx context.Context, userID uuid.UUID, fn func(u *domain.UserRecord) bool) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		u, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return apierr.NotFound("user not found")
		}
		if !fn(u) {
			return nil
		}
		err = s.users.PutUser(ctx, u)
		if apierr.IsConflict(err) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}
