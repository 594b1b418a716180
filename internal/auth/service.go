package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/internal/identity"
	pkgAuth "github.com/ideasdevops/lead-ia/pkg/auth"
	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	pendingApprovalMessage    = "account pending approval"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Me(ctx context.Context, userID uint) (*identity.UserDTO, error)
}

type service struct {
	users  userRepository
	jwtCfg config.JWTConfig
	now    func() time.Time
}

type userRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	JWTConfig config.JWTConfig
	Now       func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:  params.UserRepo,
		jwtCfg: params.JWTConfig,
		now:    now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLogin = &now

	payload := pkgAuth.TokenPayload{UserID: user.ID, Email: user.Email, JTI: uuid.NewString()}
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	payload.JTI = uuid.NewString()
	refreshToken, err := pkgAuth.MintRefreshToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh jwt")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         identity.UserFromModel(user),
	}, nil
}

// Refresh re-checks the account state so deactivated users cannot extend a session.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgAuth.ParseRefreshToken(s.jwtCfg, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token")
	}
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &RefreshResponse{AccessToken: accessToken}, nil
}

func (s *service) Me(ctx context.Context, userID uint) (*identity.UserDTO, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return identity.UserFromModel(user), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindUserByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err := checkAccountState(user); err != nil {
		return nil, err
	}
	return user, nil
}

// checkAccountState runs only after the password matched, so approval state is not leaked.
func checkAccountState(user *models.User) error {
	if !user.IsActive {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !user.IsApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, pendingApprovalMessage)
	}
	return nil
}
