// Package users owns the learner record lifecycle. The record lives in the
// progress store; a User node is mirrored into the graph store so ratings,
// comments and reactions can attach to it. The node is merged before the
// record is created: node creation is idempotent, so a failed registration
// never leaves a record without a node.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/cascade"
)

const casRetries = 5

type Service interface {
	// Register creates the record and its graph mirror. Conflict on a
	// duplicate email or username.
	Register(ctx context.Context, email, username, password, role string) (*domain.UserRecord, error)
	// Authenticate verifies credentials; NotFound for unknown email or a
	// wrong password, indistinguishable on purpose.
	Authenticate(ctx context.Context, email, password string) (*domain.UserRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.UserRecord, error)
	GetByUsername(ctx context.Context, username string) (*domain.UserRecord, error)
	List(ctx context.Context) ([]*domain.UserRecord, error)
	// ChangePassword rehashes and CAS-writes the record.
	ChangePassword(ctx context.Context, id uuid.UUID, password string) error
	// Delete hands off to the cascade coordinator.
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	store      progress.Store
	graphStore graph.Store
	cascades   cascade.Coordinator
	log        *logger.Logger
}

func NewService(store progress.Store, graphStore graph.Store, cascades cascade.Coordinator, baseLog *logger.Logger) Service {
	return &service{
		store:      store,
		graphStore: graphStore,
		cascades:   cascades,
		log:        baseLog.With("service", "UserService"),
	}
}

func (s *service) Register(ctx context.Context, email, username, password, role string) (*domain.UserRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return nil, fmt.Errorf("email and username must not be empty")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if role == "" {
		role = "student"
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierr.Conflict("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.UserRecord{
		ID:              uuid.New(),
		Email:           email,
		Username:        username,
		PasswordHash:    string(hash),
		Role:            role,
		EnrolledCourses: []uuid.UUID{},
		CoursesProgress: map[uuid.UUID]*domain.CourseProgress{},
	}

	if err := s.graphStore.UpsertUserNode(ctx, u.ID, username); err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.ID, "username", username)
	return u.Sanitized(), nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*domain.UserRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.NotFound("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apierr.NotFound("invalid credentials")
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.UserRecord, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.NotFound("user not found")
	}
	return u.Sanitized(), nil
}

func (s *service) GetByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.NotFound("user not found")
	}
	return u.Sanitized(), nil
}

func (s *service) List(ctx context.Context) ([]*domain.UserRecord, error) {
	all, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.UserRecord, 0, len(all))
	for _, u := range all {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apierr.NotFound("user not found")
		}
		u.PasswordHash = string(hash)
		err = s.store.PutUser(ctx, u)
		if apierr.IsConflict(err) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.cascades.DeleteUser(ctx, id)
}
