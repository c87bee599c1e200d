package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/data/repos/testutil"
)

func TestIssueAndVerifyToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour, testutil.Logger(t))

	userID := uuid.New()
	token, err := svc.IssueToken(userID, "instructor")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	gotID, gotRole, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if gotID != userID {
		t.Fatalf("expected %s, got %s", userID, gotID)
	}
	if gotRole != "instructor" {
		t.Fatalf("expected role instructor, got %q", gotRole)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	log := testutil.Logger(t)
	issuer := NewService("secret-a", time.Hour, log)
	verifier := NewService("secret-b", time.Hour, log)

	token, err := issuer.IssueToken(uuid.New(), "student")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, _, err := verifier.VerifyToken(token); err == nil {
		t.Fatalf("expected verification failure across secrets")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, testutil.Logger(t))

	token, err := svc.IssueToken(uuid.New(), "student")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, _, err := svc.VerifyToken(token); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour, testutil.Logger(t))
	if _, _, err := svc.VerifyToken("not-a-token"); err == nil {
		t.Fatalf("expected parse failure")
	}
}
