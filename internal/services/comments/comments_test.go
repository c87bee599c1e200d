package comments

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/repos/testutil"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
)

func newTestService(t *testing.T) (Service, *graph.MemoryStore) {
	t.Helper()
	store := graph.NewMemoryStore()
	return NewService(store, testutil.Logger(t)), store
}

func seedNodes(t *testing.T, store *graph.MemoryStore, users int) ([]uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	ids := make([]uuid.UUID, 0, users)
	for i := 0; i < users; i++ {
		id := uuid.New()
		if err := store.UpsertUserNode(ctx, id, "commenter"); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		ids = append(ids, id)
	}
	courseID := uuid.New()
	if err := store.CreateCourseNode(ctx, courseID); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return ids, courseID
}

func TestCreateRequiresExistingNodes(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedNodes(t, store, 1)

	if _, err := svc.Create(ctx, uuid.New(), courseID, "t", "hello"); !apierr.IsNotFound(err) {
		t.Fatalf("absent author: expected NotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, users[0], uuid.New(), "t", "hello"); !apierr.IsNotFound(err) {
		t.Fatalf("absent course: expected NotFound, got %v", err)
	}

	c, err := svc.Create(ctx, users[0], courseID, "first", "hello")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.AuthorName != "commenter" {
		t.Fatalf("expected author name resolved from node, got %q", c.AuthorName)
	}
	if c.LikeCount != 0 || c.DislikeCount != 0 {
		t.Fatalf("expected zero counters, got %d/%d", c.LikeCount, c.DislikeCount)
	}
}

func TestReactReplacesPreviousReaction(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedNodes(t, store, 2)

	c, err := svc.Create(ctx, users[0], courseID, "t", "body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.React(ctx, users[1], c.ID, domain.ReactionLike)
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if got.LikeCount != 1 || got.DislikeCount != 0 {
		t.Fatalf("after LIKE: expected 1/0, got %d/%d", got.LikeCount, got.DislikeCount)
	}

	// Switching kind removes the old edge first; counts flip, never stack.
	got, err = svc.React(ctx, users[1], c.ID, domain.ReactionDislike)
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if got.LikeCount != 0 || got.DislikeCount != 1 {
		t.Fatalf("after switch: expected 0/1, got %d/%d", got.LikeCount, got.DislikeCount)
	}

	got, err = svc.React(ctx, users[1], c.ID, domain.ReactionDislike)
	if err != nil {
		t.Fatalf("React (repeat): %v", err)
	}
	if got.LikeCount != 0 || got.DislikeCount != 1 {
		t.Fatalf("repeat not idempotent: got %d/%d", got.LikeCount, got.DislikeCount)
	}
}

func TestReactCountsPerUser(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedNodes(t, store, 3)

	c, err := svc.Create(ctx, users[0], courseID, "t", "body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.React(ctx, users[1], c.ID, domain.ReactionLike); err != nil {
		t.Fatalf("React: %v", err)
	}
	got, err := svc.React(ctx, users[2], c.ID, domain.ReactionLike)
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if got.LikeCount != 2 {
		t.Fatalf("expected 2 likes, got %d", got.LikeCount)
	}
}

func TestTopByCourseOrdersByNetScore(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedNodes(t, store, 3)

	low, err := svc.Create(ctx, users[0], courseID, "low", "meh")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	high, err := svc.Create(ctx, users[0], courseID, "high", "great")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := svc.React(ctx, u, high.ID, domain.ReactionLike); err != nil {
			t.Fatalf("React: %v", err)
		}
	}
	if _, err := svc.React(ctx, users[1], low.ID, domain.ReactionDislike); err != nil {
		t.Fatalf("React: %v", err)
	}

	top, err := svc.TopByCourse(ctx, courseID, 1)
	if err != nil {
		t.Fatalf("TopByCourse: %v", err)
	}
	if len(top) != 1 || top[0].ID != high.ID {
		t.Fatalf("expected the liked comment first, got %+v", top)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedNodes(t, store, 1)

	c, err := svc.Create(ctx, users[0], courseID, "t", "body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := svc.Update(ctx, c.ID, "t2", "edited")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Content != "edited" {
		t.Fatalf("expected edited content, got %q", updated.Content)
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, c.ID); !apierr.IsNotFound(err) {
		t.Fatalf("second delete: expected NotFound, got %v", err)
	}
}
