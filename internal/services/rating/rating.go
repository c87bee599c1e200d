// Package rating maintains the at-most-one RATED edge per (user, course)
// pair and the materialized rating aggregate on the course node. The backing
// store has no relationship uniqueness constraint, so edge creation is
// serialized through a keyed mutex: check-then-create for the same pair can
// never interleave. Every mutation ends with a full recompute of the
// aggregate from the edge set; counters are never adjusted incrementally.
package rating

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

const ratingStripes = 64

type Service interface {
	// Rate creates the user's rating for a course. Conflict if one exists.
	Rate(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.CourseRatingStats, error)
	// UpdateRating changes an existing rating. NotFound if none exists.
	UpdateRating(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.CourseRatingStats, error)
	// RemoveRating deletes the rating. NotFound if none exists.
	RemoveRating(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseRatingStats, error)
	GetRating(ctx context.Context, userID, courseID uuid.UUID) (*domain.RatingEdge, error)
	GetCourseStats(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error)
	ListCourseRatings(ctx context.Context, courseID uuid.UUID) ([]*domain.RatingEdge, error)
}

type service struct {
	store graph.Store
	log   *logger.Logger

	// Striped locks keyed by (user, course). A stripe collision only costs
	// contention, never correctness.
	locks [ratingStripes]sync.Mutex
}

func NewService(store graph.Store, baseLog *logger.Logger) Service {
	return &service{store: store, log: baseLog.With("service", "RatingAggregator")}
}

func (s *service) lockFor(userID, courseID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(userID[:])
	h.Write(courseID[:])
	return &s.locks[h.Sum32()%ratingStripes]
}

func validateValue(value int) error {
	if value < 1 || value > 5 {
		return fmt.Errorf("rating value must be between 1 and 5, got %d", value)
	}
	return nil
}

func (s *service) Rate(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.CourseRatingStats, error) {
	if err := validateValue(value); err != nil {
		return nil, err
	}

	mu := s.lockFor(userID, courseID)
	mu.Lock()
	defer mu.Unlock()

	exists, err := s.store.RatingEdgeExists(ctx, userID, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if exists {
		return nil, apierr.Conflict("user has already rated this course")
	}

	edge, err := s.store.CreateRatingEdge(ctx, userID, courseID, value)
	if err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if edge == nil {
		return nil, apierr.NotFound("user or course not found")
	}
	return s.recompute(ctx, courseID)
}

func (s *service) UpdateRating(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.CourseRatingStats, error) {
	if err := validateValue(value); err != nil {
		return nil, err
	}

	mu := s.lockFor(userID, courseID)
	mu.Lock()
	defer mu.Unlock()

	edge, err := s.store.UpdateRatingEdge(ctx, userID, courseID, value)
	if err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if edge == nil {
		return nil, apierr.NotFound("rating not found")
	}
	return s.recompute(ctx, courseID)
}

func (s *service) RemoveRating(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	mu := s.lockFor(userID, courseID)
	mu.Lock()
	defer mu.Unlock()

	deleted, err := s.store.DeleteRatingEdge(ctx, userID, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if !deleted {
		return nil, apierr.NotFound("rating not found")
	}
	return s.recompute(ctx, courseID)
}

func (s *service) recompute(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	stats, err := s.store.RecomputeCourseRating(ctx, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if stats == nil {
		return nil, apierr.NotFound("course not found")
	}
	s.log.Debug("course rating recomputed",
		"course_id", courseID, "average", stats.Average, "count", stats.Count)
	return stats, nil
}

func (s *service) GetRating(ctx context.Context, userID, courseID uuid.UUID) (*domain.RatingEdge, error) {
	edge, err := s.store.GetRatingEdge(ctx, userID, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if edge == nil {
		return nil, apierr.NotFound("rating not found")
	}
	return edge, nil
}

func (s *service) GetCourseStats(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	stats, err := s.store.CourseRatingStats(ctx, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if stats == nil {
		return nil, apierr.NotFound("course not found")
	}
	return stats, nil
}

func (s *service) ListCourseRatings(ctx context.Context, courseID uuid.UUID) ([]*domain.RatingEdge, error) {
	exists, err := s.store.CourseNodeExists(ctx, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if !exists {
		return nil, apierr.NotFound("course not found")
	}
	edges, err := s.store.ListCourseRatings(ctx, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	return edges, nil
}
