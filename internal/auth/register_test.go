package auth

import (
	"context"
	"testing"

	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

type stubUserCreator struct {
	created []identity.CreateUserInput
	taken   map[string]bool
}

func (s *stubUserCreator) CreateUser(_ context.Context, in identity.CreateUserInput) (*models.User, error) {
	if s.taken[in.Email] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	s.created = append(s.created, in)
	return &models.User{
		ID:           uint(len(s.created)),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}, nil
}

func newRegisterService(t *testing.T, creator *stubUserCreator) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		Users:  creator,
		Hasher: security.NewHasher(testPasswordCfg),
	})
	if err != nil {
		t.Fatalf("build register service: %v", err)
	}
	return svc
}

func TestRegisterCreatesPendingUser(t *testing.T) {
	creator := &stubUserCreator{}
	svc := newRegisterService(t, creator)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Email:     " New@Example.com",
		Password:  "long-enough",
		FirstName: "New",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "new@example.com" || dto.IsApproved || !dto.IsActive {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(creator.created))
	}
	ok, err := security.VerifyPassword("long-enough", creator.created[0].PasswordHash)
	if err != nil || !ok {
		t.Fatalf("password should be hashed, ok=%v err=%v", ok, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	creator := &stubUserCreator{taken: map[string]bool{"dup@example.com": true}}
	svc := newRegisterService(t, creator)

	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "short"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "  ", Password: "long-enough"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "dup@example.com", Password: "long-enough"}); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(creator.created) != 0 {
		t.Fatalf("no user should be created, got %d", len(creator.created))
	}
}

func TestNewRegisterServiceRequiresDependencies(t *testing.T) {
	if _, err := NewRegisterService(RegisterServiceParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
