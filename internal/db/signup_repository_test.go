package db

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vibealong/vibealong/internal/models"
)

func newTestSignupRepo(t *testing.T) *SignupRepository {
	t.Helper()
	repo := NewSignupRepository(openTestDB(t))
	repo.cost = bcrypt.MinCost
	return repo
}

func testSignupRequest() models.SignupRequest {
	rate := 75.0
	return models.SignupRequest{
		FullName:   "Grace Hopper",
		Email:      "Grace@Example.com",
		Password:   "compiler-1952",
		Role:       models.RoleProvider,
		Headline:   "Debugging since before it was cool",
		Skills:     []string{"cobol", "go"},
		HourlyRate: &rate,
	}
}

func TestSignupRepositoryPersist(t *testing.T) {
	ctx := context.Background()
	repo := newTestSignupRepo(t)

	id, err := repo.Persist(ctx, testSignupRequest())
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "grace@example.com" {
		t.Fatalf("expected normalized email, got %q", got.Email)
	}
	if string(got.PasswordHash) == "compiler-1952" {
		t.Fatal("password stored in plain text")
	}
	if got.HourlyRate == nil || *got.HourlyRate != 75 {
		t.Fatalf("unexpected hourly rate %v", got.HourlyRate)
	}
	if len(got.Skills) != 2 || got.Skills[1] != "go" {
		t.Fatalf("unexpected skills %v", got.Skills)
	}

	if _, err := repo.Persist(ctx, testSignupRequest()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	counts, err := repo.CountByRole(ctx)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if counts[models.RoleProvider] != 1 {
		t.Fatalf("expected 1 provider, got %v", counts)
	}
}

func TestSignupRepositoryAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newTestSignupRepo(t)
	if _, err := repo.Create(ctx, testSignupRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.Authenticate(ctx, "grace@example.com", "compiler-1952"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := repo.Authenticate(ctx, "grace@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := repo.Authenticate(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignupRepositoryGetMissing(t *testing.T) {
	repo := newTestSignupRepo(t)
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrSignupNotFound) {
		t.Fatalf("expected ErrSignupNotFound, got %v", err)
	}
}
