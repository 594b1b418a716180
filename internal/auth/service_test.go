package auth

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	pkgAuth "github.com/ideasdevops/lead-ia/pkg/auth"
	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      16,
}

var testJWTCfg = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "lead-ia",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 60,
}

type stubUserRepository struct {
	byEmail   map[string]*models.User
	byID      map[uint]*models.User
	lastLogin map[uint]time.Time
}

func newStubUserRepository(users ...*models.User) *stubUserRepository {
	repo := &stubUserRepository{
		byEmail:   map[string]*models.User{},
		byID:      map[uint]*models.User{},
		lastLogin: map[uint]time.Time{},
	}
	for _, u := range users {
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (s *stubUserRepository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) UpdateLastLogin(_ context.Context, id uint, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func approvedUser(t *testing.T, password string) *models.User {
	return &models.User{
		ID:           7,
		Email:        "ana@example.com",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Ana",
		IsActive:     true,
		IsApproved:   true,
		Roles:        []models.Role{{Name: "user", Permissions: []models.Permission{{Name: "view_leads"}}}},
	}
}

func buildService(t *testing.T, repo *stubUserRepository, now time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:  repo,
		JWTConfig: testJWTCfg,
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestLoginIssuesTokensAndRecordsLogin(t *testing.T) {
	user := approvedUser(t, "correct-horse")
	repo := newStubUserRepository(user)
	now := time.Now().UTC().Truncate(time.Second)
	svc := buildService(t, repo, now)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ANA@example.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := pkgAuth.ParseRefreshToken(testJWTCfg, resp.RefreshToken); err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
	if got := repo.lastLogin[user.ID]; !got.Equal(now) {
		t.Fatalf("expected last login %v, got %v", now, got)
	}
	if resp.User == nil || resp.User.LastLogin == nil || len(resp.User.Permissions) != 1 {
		t.Fatalf("unexpected user payload %+v", resp.User)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	user := approvedUser(t, "correct-horse")
	svc := buildService(t, newStubUserRepository(user), time.Now())

	cases := []LoginRequest{
		{Email: "", Password: "correct-horse"},
		{Email: "ghost@example.com", Password: "correct-horse"},
		{Email: user.Email, Password: "wrong"},
	}
	for _, req := range cases {
		if _, err := svc.Login(context.Background(), req); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}
}

func TestLoginRequiresApprovedActiveAccount(t *testing.T) {
	pending := approvedUser(t, "correct-horse")
	pending.IsApproved = false
	svc := buildService(t, newStubUserRepository(pending), time.Now())
	if _, err := svc.Login(context.Background(), LoginRequest{Email: pending.Email, Password: "correct-horse"}); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for pending user, got %v", err)
	}

	inactive := approvedUser(t, "correct-horse")
	inactive.IsActive = false
	svc = buildService(t, newStubUserRepository(inactive), time.Now())
	if _, err := svc.Login(context.Background(), LoginRequest{Email: inactive.Email, Password: "correct-horse"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}

func TestRefreshMintsAccessToken(t *testing.T) {
	user := approvedUser(t, "correct-horse")
	repo := newStubUserRepository(user)
	svc := buildService(t, repo, time.Now())

	login, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken); err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: login.AccessToken}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	repo.byID[user.ID].IsActive = false
	if _, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: login.RefreshToken}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("deactivated user must not refresh, got %v", err)
	}
}

func TestMe(t *testing.T) {
	user := approvedUser(t, "correct-horse")
	svc := buildService(t, newStubUserRepository(user), time.Now())

	dto, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.Email != user.Email || len(dto.Roles) != 1 {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if _, err := svc.Me(context.Background(), 99); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
