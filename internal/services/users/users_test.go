package users

import (
	"context"
	"testing"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/data/repos/testutil"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/services/cascade"
)

func newTestService(t *testing.T) (Service, *graph.MemoryStore) {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	store := progress.NewMemoryStore()
	graphStore := graph.NewMemoryStore()
	coord := cascade.NewCoordinator(
		db,
		store,
		graphStore,
		repos.NewCourseRepo(db, log),
		repos.NewUnitRepo(db, log),
		repos.NewClassRepo(db, log),
		repos.NewEnrollmentRepo(db, log),
		log,
	)
	return NewService(store, graphStore, coord, log), graphStore
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, graphStore := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ada@Example.com", "ada", "s3cretpass", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash != "" {
		t.Fatalf("register leaked the password hash")
	}
	if u.Role != "student" {
		t.Fatalf("expected default role student, got %q", u.Role)
	}

	exists, err := graphStore.UserNodeExists(ctx, u.ID)
	if err != nil || !exists {
		t.Fatalf("expected mirrored user node, got %v/%v", exists, err)
	}

	got, err := svc.Authenticate(ctx, "ada@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user")
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "wrongpass"); !apierr.IsNotFound(err) {
		t.Fatalf("wrong password: expected NotFound, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cretpass"); !apierr.IsNotFound(err) {
		t.Fatalf("unknown email: expected NotFound, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "dup", "s3cretpass", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "dup@example.com", "other", "s3cretpass", ""); !apierr.IsConflict(err) {
		t.Fatalf("duplicate email: expected Conflict, got %v", err)
	}
	if _, err := svc.Register(ctx, "other@example.com", "dup", "s3cretpass", ""); !apierr.IsConflict(err) {
		t.Fatalf("duplicate username: expected Conflict, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "pw@example.com", "pwuser", "firstpass1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "secondpass2"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "pw@example.com", "firstpass1"); !apierr.IsNotFound(err) {
		t.Fatalf("old password still valid: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "pw@example.com", "secondpass2"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestDeleteRunsCascade(t *testing.T) {
	svc, graphStore := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "gone@example.com", "goner", "s3cretpass", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	exists, err := graphStore.UserNodeExists(ctx, u.ID)
	if err != nil || exists {
		t.Fatalf("user node survived delete: %v/%v", exists, err)
	}
}
