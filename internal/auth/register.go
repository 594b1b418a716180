package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

// RegisterService handles self-service signup.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*identity.UserDTO, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, in identity.CreateUserInput) (*models.User, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	Users  userCreator
	Hasher passwordHasher
}

type registerService struct {
	users  userCreator
	hasher passwordHasher
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user creator is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	return &registerService{users: params.Users, hasher: params.Hasher}, nil
}

// Register creates an active, unapproved account with no roles.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*identity.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(req.Password) < security.MinPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", security.MinPasswordLength))
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		return nil, err
	}
	return identity.UserFromModel(user), nil
}
