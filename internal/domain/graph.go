package domain

import (
	"time"

	"github.com/google/uuid"
)

// Graph-store entities. Courses and users are mirrored into the graph as
// nodes so ratings, comments and reactions can hang off them as edges.

type ReactionKind string

const (
	ReactionLike    ReactionKind = "LIKE"
	ReactionDislike ReactionKind = "DISLIKE"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// RatingEdge is the (User)-[RATED]->(Course) relationship. At most one per
// (user, course) pair; the store offers no relationship uniqueness
// constraint, so the rating service upholds this as a protocol invariant.
type RatingEdge struct {
	UserID    uuid.UUID `json:"userId"`
	CourseID  uuid.UUID `json:"courseId"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CourseRatingStats is the materialized aggregate stored on the Course node.
// Invariant: Average == mean(Values) and Count == len(Values) == len(Raters)
// immediately after every rating mutation. It is always recomputed in full
// from the edge set, never adjusted incrementally.
type CourseRatingStats struct {
	Average float64     `json:"averageRating"`
	Count   int64       `json:"totalRatings"`
	Values  []int       `json:"ratings"`
	Raters  []uuid.UUID `json:"ratedBy"`
}

type Comment struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   uuid.UUID `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CourseID   uuid.UUID `json:"courseId"`

	// Derived: must equal the count of LIKES / DISLIKES edges into the node.
	LikeCount    int64 `json:"likeCount"`
	DislikeCount int64 `json:"dislikeCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
