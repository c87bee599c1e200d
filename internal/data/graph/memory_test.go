package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/domain"
)

func TestDeleteUserGraphReportsTouchedAggregates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	userID := uuid.New()
	otherID := uuid.New()
	courseID := uuid.New()
	if err := store.UpsertUserNode(ctx, userID, "doomed"); err != nil {
		t.Fatalf("UpsertUserNode: %v", err)
	}
	if err := store.UpsertUserNode(ctx, otherID, "other"); err != nil {
		t.Fatalf("UpsertUserNode: %v", err)
	}
	if err := store.CreateCourseNode(ctx, courseID); err != nil {
		t.Fatalf("CreateCourseNode: %v", err)
	}
	if _, err := store.CreateRatingEdge(ctx, userID, courseID, 5); err != nil {
		t.Fatalf("CreateRatingEdge: %v", err)
	}

	theirs := &domain.Comment{ID: uuid.New(), Content: "x", AuthorID: otherID, CourseID: courseID}
	if err := store.CreateComment(ctx, theirs); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if err := store.CreateReactionEdge(ctx, userID, theirs.ID, domain.ReactionLike); err != nil {
		t.Fatalf("CreateReactionEdge: %v", err)
	}
	mine := &domain.Comment{ID: uuid.New(), Content: "y", AuthorID: userID, CourseID: courseID}
	if err := store.CreateComment(ctx, mine); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	removal, err := store.DeleteUserGraph(ctx, userID)
	if err != nil {
		t.Fatalf("DeleteUserGraph: %v", err)
	}
	if len(removal.RatedCourseIDs) != 1 || removal.RatedCourseIDs[0] != courseID {
		t.Fatalf("rated courses: %v", removal.RatedCourseIDs)
	}
	if len(removal.ReactedCommentIDs) != 1 || removal.ReactedCommentIDs[0] != theirs.ID {
		t.Fatalf("reacted comments: %v", removal.ReactedCommentIDs)
	}
	if len(removal.DeletedCommentIDs) != 1 || removal.DeletedCommentIDs[0] != mine.ID {
		t.Fatalf("deleted comments: %v", removal.DeletedCommentIDs)
	}

	if exists, _ := store.UserNodeExists(ctx, userID); exists {
		t.Fatalf("user node survived")
	}
	if c, _ := store.GetComment(ctx, mine.ID); c != nil {
		t.Fatalf("authored comment survived")
	}
	if c, _ := store.GetComment(ctx, theirs.ID); c == nil {
		t.Fatalf("bystander comment removed")
	}

	// The edges are gone; a recompute settles the aggregate at zero.
	stats, err := store.RecomputeCourseRating(ctx, courseID)
	if err != nil {
		t.Fatalf("RecomputeCourseRating: %v", err)
	}
	if stats.Count != 0 || stats.Average != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}

func TestDeleteCourseGraphRemovesSubgraph(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	userID := uuid.New()
	courseID := uuid.New()
	if err := store.UpsertUserNode(ctx, userID, "u"); err != nil {
		t.Fatalf("UpsertUserNode: %v", err)
	}
	if err := store.CreateCourseNode(ctx, courseID); err != nil {
		t.Fatalf("CreateCourseNode: %v", err)
	}
	if _, err := store.CreateRatingEdge(ctx, userID, courseID, 4); err != nil {
		t.Fatalf("CreateRatingEdge: %v", err)
	}
	c := &domain.Comment{ID: uuid.New(), Content: "z", AuthorID: userID, CourseID: courseID}
	if err := store.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if err := store.DeleteCourseGraph(ctx, courseID); err != nil {
		t.Fatalf("DeleteCourseGraph: %v", err)
	}
	if exists, _ := store.CourseNodeExists(ctx, courseID); exists {
		t.Fatalf("course node survived")
	}
	if got, _ := store.GetComment(ctx, c.ID); got != nil {
		t.Fatalf("course comment survived")
	}
	// Idempotent.
	if err := store.DeleteCourseGraph(ctx, courseID); err != nil {
		t.Fatalf("DeleteCourseGraph (rerun): %v", err)
	}
}
