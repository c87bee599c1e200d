// Package comments owns comment nodes and their like/dislike counters. A
// reaction is remove-then-create: clearing any existing LIKES/DISLIKES edge
// first makes the operation idempotent per kind and guarantees a user holds
// at most one reaction per comment. Counters are always recomputed by
// counting edges, never incremented.
package comments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type Service interface {
	Create(ctx context.Context, authorID, courseID uuid.UUID, title, content string) (*domain.Comment, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	List(ctx context.Context) ([]*domain.Comment, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error)
	// TopByCourse orders by likeCount - dislikeCount, most relevant first.
	TopByCourse(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error)
	Update(ctx context.Context, id uuid.UUID, title, content string) (*domain.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// React replaces the user's reaction on the comment with kind and returns
	// the comment with recomputed counters. Reacting twice with the same kind
	// is a no-op.
	React(ctx context.Context, userID, commentID uuid.UUID, kind domain.ReactionKind) (*domain.Comment, error)
}

type service struct {
	store graph.Store
	log   *logger.Logger
}

func NewService(store graph.Store, baseLog *logger.Logger) Service {
	return &service{store: store, log: baseLog.With("service", "CommentService")}
}

func (s *service) Create(ctx context.Context, authorID, courseID uuid.UUID, title, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("comment content must not be empty")
	}

	userExists, err := s.store.UserNodeExists(ctx, authorID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if !userExists {
		return nil, apierr.NotFound("user not found")
	}
	courseExists, err := s.store.CourseNodeExists(ctx, courseID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if !courseExists {
		return nil, apierr.NotFound("course not found")
	}

	c := &domain.Comment{
		ID:       uuid.New(),
		Title:    title,
		Content:  content,
		AuthorID: authorID,
		CourseID: courseID,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if c == nil {
		return nil, apierr.NotFound("comment not found")
	}
	return c, nil
}

func (s *service) List(ctx context.Context) ([]*domain.Comment, error) {
	out, err := s.store.ListComments(ctx)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	return out, nil
}

func (s *service) ListByCourse(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error) {
	out, err := s.store.ListCourseComments(ctx, courseID, limit)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	return out, nil
}

func (s *service) TopByCourse(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error) {
	out, err := s.store.TopCourseComments(ctx, courseID, limit)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, title, content string) (*domain.Comment, error) {
	c, err := s.store.UpdateComment(ctx, id, title, content)
	if err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if c == nil {
		return nil, apierr.NotFound("comment not found")
	}
	return c, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.DeleteComment(ctx, id)
	if err != nil {
		return apierr.Unavailable("graph store write failed", err)
	}
	if !deleted {
		return apierr.NotFound("comment not found")
	}
	return nil
}

func (s *service) React(ctx context.Context, userID, commentID uuid.UUID, kind domain.ReactionKind) (*domain.Comment, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid reaction kind: %q", kind)
	}

	userExists, err := s.store.UserNodeExists(ctx, userID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if !userExists {
		return nil, apierr.NotFound("user not found")
	}
	exists, err := s.store.CommentNodeExists(ctx, commentID)
	if err != nil {
		return nil, apierr.Unavailable("graph store read failed", err)
	}
	if !exists {
		return nil, apierr.NotFound("comment not found")
	}

	if _, err := s.store.ClearReaction(ctx, userID, commentID); err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	if err := s.store.CreateReactionEdge(ctx, userID, commentID, kind); err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}

	likes, dislikes, err := s.store.RecomputeCommentReactions(ctx, commentID)
	if err != nil {
		return nil, apierr.Unavailable("graph store write failed", err)
	}
	s.log.Debug("comment reactions recomputed",
		"comment_id", commentID, "likes", likes, "dislikes", dislikes)

	return s.Get(ctx, commentID)
}
