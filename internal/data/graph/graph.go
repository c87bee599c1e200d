// Package graph is the GraphAggregateStore access layer. The Store
// interface is deliberately store-agnostic: it deals in nodes, typed edges
// and full-recompute aggregate operations, so any backend that can
// enumerate edges and group-count them (a property graph, or a relational
// edge table with GROUP BY) can implement it. The production implementation
// is Neo4j; tests run against the in-memory implementation.
//
// Both recompute operations are atomic within the store: the read-edges →
// compute → write-aggregate sequence runs in one native transaction, so a
// timeout or abort never leaves a partially updated aggregate.
package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/domain"
)

// UserGraphRemoval reports what DeleteUserGraph touched, so the caller can
// recompute the aggregates the removed edges fed into.
type UserGraphRemoval struct {
	// Courses the user had RATED.
	RatedCourseIDs []uuid.UUID
	// Comments (other users') the user had reacted to.
	ReactedCommentIDs []uuid.UUID
	// The user's own comments, detach-deleted along with the node.
	DeletedCommentIDs []uuid.UUID
}

type Store interface {
	// EnsureSchema installs uniqueness constraints where the backend
	// supports them; best effort.
	EnsureSchema(ctx context.Context) error

	// Nodes.
	UpsertUserNode(ctx context.Context, userID uuid.UUID, name string) error
	UserNodeExists(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateCourseNode(ctx context.Context, courseID uuid.UUID) error
	CourseNodeExists(ctx context.Context, courseID uuid.UUID) (bool, error)

	// Rating edges. Getters return (nil, nil) when the edge is absent;
	// mutators report whether an edge was touched.
	RatingEdgeExists(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	CreateRatingEdge(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.RatingEdge, error)
	UpdateRatingEdge(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.RatingEdge, error)
	DeleteRatingEdge(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	GetRatingEdge(ctx context.Context, userID, courseID uuid.UUID) (*domain.RatingEdge, error)
	ListCourseRatings(ctx context.Context, courseID uuid.UUID) ([]*domain.RatingEdge, error)

	// RecomputeCourseRating derives the aggregate from the full RATED edge
	// set and writes it onto the course node, atomically. Returns the
	// recomputed stats, or (nil, nil) when the course node is absent.
	RecomputeCourseRating(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error)
	// CourseRatingStats reads the materialized aggregate; (nil, nil) when
	// the course node is absent.
	CourseRatingStats(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error)

	// Comments.
	CreateComment(ctx context.Context, c *domain.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	ListComments(ctx context.Context) ([]*domain.Comment, error)
	ListCourseComments(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error)
	TopCourseComments(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error)
	UpdateComment(ctx context.Context, id uuid.UUID, title, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) (bool, error)
	CommentNodeExists(ctx context.Context, id uuid.UUID) (bool, error)

	// Reactions.
	ClearReaction(ctx context.Context, userID, commentID uuid.UUID) (int, error)
	CreateReactionEdge(ctx context.Context, userID, commentID uuid.UUID, kind domain.ReactionKind) error
	// RecomputeCommentReactions counts LIKES/DISLIKES edges and writes the
	// counters onto the comment node, atomically.
	RecomputeCommentReactions(ctx context.Context, commentID uuid.UUID) (likes, dislikes int64, err error)

	// Cascade cleanup; both are idempotent.
	DeleteCourseGraph(ctx context.Context, courseID uuid.UUID) error
	DeleteUserGraph(ctx context.Context, userID uuid.UUID) (*UserGraphRemoval, error)
}
