package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db"
	"github.com/ideasdevops/lead-ia/pkg/db/dbtest"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", errCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.(string)
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *fakeCache) PermissionsKey(userID uint) string {
	return fmt.Sprintf("perm:%d", userID)
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      16,
}

type fixture struct {
	svc   *Service
	db    *db.Client
	cache *fakeCache
	ctx   context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	cache := newFakeCache()
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		DB:       client,
		Hasher:   security.NewHasher(testPasswordCfg),
		Resolver: NewPermissionResolver(repo, cache, time.Minute, nil),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	if err := svc.Bootstrap(ctx, BootstrapInput{Email: "Admin@Example.com", Password: "admin-password"}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return fixture{svc: svc, db: client, cache: cache, ctx: ctx}
}

func (f fixture) admin(t *testing.T) *models.User {
	t.Helper()
	u, err := f.svc.Repository().FindUserByEmail(f.ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("load admin: %v", err)
	}
	return u
}

func (f fixture) newUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.svc.CreateUser(f.ctx, CreateUserInput{Email: email, PasswordHash: "hash", FirstName: "Ana", LastName: "Lopez"})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.Is(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without db")
	}
	if _, err := NewService(ServiceParams{DB: dbtest.New(t)}); err == nil {
		t.Fatal("expected error without hasher")
	}
}

func TestBootstrapSeedsCatalogAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Bootstrap(f.ctx, BootstrapInput{Email: "admin@example.com", Password: "admin-password"}); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	perms, err := f.svc.ListPermissions(f.ctx)
	if err != nil {
		t.Fatalf("list permissions: %v", err)
	}
	if len(perms) != 7 {
		t.Fatalf("expected 7 permissions, got %d", len(perms))
	}

	roles, err := f.svc.ListRoles(f.ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	for _, role := range roles {
		switch role.Name {
		case enums.RoleSuperadmin:
			if len(role.Permissions) != 7 {
				t.Fatalf("superadmin should hold every permission, got %v", role.PermissionNames())
			}
		case enums.RoleUser:
			if len(role.Permissions) != 4 {
				t.Fatalf("user role should hold 4 permissions, got %v", role.PermissionNames())
			}
		default:
			t.Fatalf("unexpected role %q", role.Name)
		}
	}

	admin := f.admin(t)
	if !admin.IsApproved || !admin.IsActive || !IsSuperadmin(*admin) {
		t.Fatalf("unexpected admin state %+v", admin)
	}
	if len(admin.Roles) != 1 {
		t.Fatalf("expected single superadmin link, got %v", admin.RoleNames())
	}
	if ok, _ := security.VerifyPassword("admin-password", admin.PasswordHash); !ok {
		t.Fatal("admin password not stored as argon2id hash")
	}
	if n, _ := f.svc.Repository().CountUsers(f.ctx); n != 1 {
		t.Fatalf("expected one user, got %d", n)
	}
}

func TestCreateUserDefaultsAndConflict(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "  New@Example.COM ")
	if u.Email != "new@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if !u.IsActive || u.IsApproved {
		t.Fatalf("new users start active and unapproved: %+v", u)
	}
	loaded, err := f.svc.GetUser(f.ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(loaded.Roles) != 0 {
		t.Fatalf("new user should have no roles, got %v", loaded.RoleNames())
	}

	_, err = f.svc.CreateUser(f.ctx, CreateUserInput{Email: "NEW@example.com", PasswordHash: "hash"})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = f.svc.CreateUser(f.ctx, CreateUserInput{Email: " ", PasswordHash: "hash"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestApproveUserIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "pending@example.com")

	pending, err := f.svc.ListPendingUsers(f.ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != u.ID {
		t.Fatalf("expected one pending user, got %v err=%v", pending, err)
	}

	for i := 0; i < 2; i++ {
		approved, err := f.svc.ApproveUser(f.ctx, u.ID)
		if err != nil {
			t.Fatalf("approve #%d: %v", i, err)
		}
		if !approved.IsApproved {
			t.Fatalf("approve #%d did not set flag", i)
		}
	}
	pending, _ = f.svc.ListPendingUsers(f.ctx)
	if len(pending) != 0 {
		t.Fatalf("expected no pending users, got %d", len(pending))
	}

	_, err = f.svc.ApproveUser(f.ctx, 9999)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateUserReplacesRolesAtomically(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "ana@example.com")

	roles := []string{enums.RoleUser}
	first := "Anita"
	updated, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{FirstName: &first, Roles: &roles})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.FirstName != "Anita" || len(updated.Roles) != 1 || updated.Roles[0].Name != enums.RoleUser {
		t.Fatalf("unexpected update result %+v", updated)
	}

	badRoles := []string{enums.RoleUser, "ghost"}
	last := "Changed"
	_, err = f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{LastName: &last, Roles: &badRoles})
	requireCode(t, err, pkgerrors.CodeNotFound)

	after, err := f.svc.GetUser(f.ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if after.LastName != "Lopez" {
		t.Fatalf("failed update must not change fields, got last name %q", after.LastName)
	}
	if len(after.Roles) != 1 {
		t.Fatalf("failed update must keep roles, got %v", after.RoleNames())
	}

	none := []string{}
	cleared, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Roles: &none})
	if err != nil {
		t.Fatalf("clear roles: %v", err)
	}
	if len(cleared.Roles) != 0 {
		t.Fatalf("expected roles cleared, got %v", cleared.RoleNames())
	}
}

func TestUpdateUserGuardsSuperadminGrant(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "staff@example.com")

	padded := []string{enums.RoleUser, "  " + enums.RoleSuperadmin + " "}
	_, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Roles: &padded})
	requireCode(t, err, pkgerrors.CodeForbidden)

	after, err := f.svc.GetUser(f.ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if IsSuperadmin(*after) || len(after.Roles) != 0 {
		t.Fatalf("rejected update must leave roles untouched, got %+v", after.Roles)
	}

	granted, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Roles: &padded, GrantSuperadmin: true})
	if err != nil {
		t.Fatalf("grant superadmin: %v", err)
	}
	if !IsSuperadmin(*granted) {
		t.Fatal("explicit grant should assign superadmin")
	}
}

func TestUpdateUserEmailAndPassword(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "one@example.com")
	f.newUser(t, "two@example.com")

	taken := "TWO@example.com"
	_, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Email: &taken})
	requireCode(t, err, pkgerrors.CodeConflict)

	short := "short"
	_, err = f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Password: &short})
	requireCode(t, err, pkgerrors.CodeValidation)

	fresh := "Three@Example.com"
	pw := "a-brand-new-password"
	updated, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Email: &fresh, Password: &pw})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "three@example.com" {
		t.Fatalf("unexpected email %q", updated.Email)
	}
	if ok, _ := security.VerifyPassword(pw, updated.PasswordHash); !ok {
		t.Fatal("password was not re-hashed")
	}

	admin := f.admin(t)
	other := "root@example.com"
	_, err = f.svc.UpdateUser(f.ctx, admin.ID, UpdateUserInput{Email: &other})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestDeleteUserProtectsSuperadmin(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	requireCode(t, f.svc.DeleteUser(f.ctx, admin.ID), pkgerrors.CodeForbidden)
	if _, err := f.svc.GetUser(f.ctx, admin.ID); err != nil {
		t.Fatalf("superadmin should remain: %v", err)
	}

	u := f.newUser(t, "bye@example.com")
	search := models.SearchQuery{UserID: u.ID, Query: "pizza", Location: "Paris", Source: enums.SearchSourceGoogleMaps, Status: enums.SearchStatusPending}
	if err := f.db.DB().Create(&search).Error; err != nil {
		t.Fatalf("seed search: %v", err)
	}
	if err := f.svc.DeleteUser(f.ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	_, err := f.svc.GetUser(f.ctx, u.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	var kept models.SearchQuery
	if err := f.db.DB().First(&kept, search.ID).Error; err != nil {
		t.Fatalf("search should survive owner deletion: %v", err)
	}
	if kept.UserID != u.ID {
		t.Fatalf("owner reference changed to %d", kept.UserID)
	}

	requireCode(t, f.svc.DeleteUser(f.ctx, u.ID), pkgerrors.CodeNotFound)
}

func TestListUsersSearchAndPaging(t *testing.T) {
	f := newFixture(t)
	for _, email := range []string{"maria@acme.io", "mario@acme.io", "zoe@other.io"} {
		f.newUser(t, email)
	}

	page, err := f.svc.ListUsers(f.ctx, UserFilter{Search: "MARI"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.PerPage != DefaultUsersPerPage {
		t.Fatalf("unexpected page %+v", page)
	}

	seen := map[uint]bool{}
	for p := 1; p <= 4; p++ {
		page, err := f.svc.ListUsers(f.ctx, UserFilter{Page: p, PerPage: 1})
		if err != nil {
			t.Fatalf("page %d: %v", p, err)
		}
		if page.Total != 4 || page.Pages != 4 || len(page.Items) != 1 {
			t.Fatalf("unexpected page %d: %+v", p, page)
		}
		seen[page.Items[0].ID] = true
	}
	if len(seen) != 4 {
		t.Fatalf("pages should cover every user once, saw %d", len(seen))
	}

	_, err = f.svc.ListUsers(f.ctx, UserFilter{Page: -1, PerPage: 10})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.ListUsers(f.ctx, UserFilter{Page: 1, PerPage: 500})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestListUsersSearchIsLiteralSubstring(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, "first_last@acme.io")
	f.newUser(t, "firstxlast@acme.io")
	f.newUser(t, `back\slash@acme.io`)

	for term, want := range map[string]int64{
		"_":          1,
		"first_last": 1,
		"%":          0,
		"x%l":        0,
		`\`:          1,
	} {
		page, err := f.svc.ListUsers(f.ctx, UserFilter{Search: term})
		if err != nil {
			t.Fatalf("list %q: %v", term, err)
		}
		if page.Total != want {
			t.Fatalf("search %q: expected %d users, got %d", term, want, page.Total)
		}
	}
}

func TestRoleLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRole(f.ctx, " ", "", nil)
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.CreateRole(f.ctx, enums.RoleUser, "", nil)
	requireCode(t, err, pkgerrors.CodeConflict)
	_, err = f.svc.CreateRole(f.ctx, "auditor", "", []string{"view_leads", "fly"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	role, err := f.svc.CreateRole(f.ctx, "auditor", "Reads leads", []string{"view_leads"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if len(role.Permissions) != 1 || role.Permissions[0].Name != "view_leads" {
		t.Fatalf("unexpected permissions %v", role.PermissionNames())
	}

	u := f.newUser(t, "aud@example.com")
	assign := []string{"auditor"}
	if _, err := f.svc.UpdateUser(f.ctx, u.ID, UpdateUserInput{Roles: &assign}); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if ok, _ := f.svc.HasPermission(f.ctx, u.ID, enums.PermissionViewLeads); !ok {
		t.Fatal("auditor should view leads")
	}
	if !f.cache.has(f.cache.PermissionsKey(u.ID)) {
		t.Fatal("resolved grants should be cached")
	}

	name := "reviewer"
	perms := []string{"view_leads", "export_leads"}
	updated, err := f.svc.UpdateRole(f.ctx, role.ID, UpdateRoleInput{Name: &name, Permissions: &perms})
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Name != "reviewer" || len(updated.Permissions) != 2 {
		t.Fatalf("unexpected role %+v", updated)
	}
	if f.cache.has(f.cache.PermissionsKey(u.ID)) {
		t.Fatal("role update should invalidate holders' cached grants")
	}
	if ok, _ := f.svc.HasPermission(f.ctx, u.ID, enums.PermissionExportLeads); !ok {
		t.Fatal("updated permissions should apply")
	}

	clash := enums.RoleUser
	_, err = f.svc.UpdateRole(f.ctx, role.ID, UpdateRoleInput{Name: &clash})
	requireCode(t, err, pkgerrors.CodeConflict)

	if err := f.svc.DeleteRole(f.ctx, role.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	if ok, _ := f.svc.HasPermission(f.ctx, u.ID, enums.PermissionViewLeads); ok {
		t.Fatal("deleted role should no longer grant")
	}
	_, err = f.svc.GetRole(f.ctx, role.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	requireCode(t, f.svc.DeleteRole(f.ctx, role.ID), pkgerrors.CodeNotFound)
}

func TestSuperadminRoleIsProtected(t *testing.T) {
	f := newFixture(t)
	role, err := f.svc.Repository().FindRoleByName(f.ctx, enums.RoleSuperadmin)
	if err != nil {
		t.Fatalf("load superadmin role: %v", err)
	}

	renamed := "root"
	_, err = f.svc.UpdateRole(f.ctx, role.ID, UpdateRoleInput{Name: &renamed})
	requireCode(t, err, pkgerrors.CodeForbidden)
	requireCode(t, f.svc.DeleteRole(f.ctx, role.ID), pkgerrors.CodeForbidden)

	desc := "Owners"
	none := []string{}
	updated, err := f.svc.UpdateRole(f.ctx, role.ID, UpdateRoleInput{Description: &desc, Permissions: &none})
	if err != nil {
		t.Fatalf("superadmin description/permissions should be editable: %v", err)
	}
	if updated.Name != enums.RoleSuperadmin || updated.Description != "Owners" || len(updated.Permissions) != 0 {
		t.Fatalf("unexpected role %+v", updated)
	}

	admin := f.admin(t)
	for _, p := range enums.PermissionNames() {
		ok, err := f.svc.HasPermission(f.ctx, admin.ID, p)
		if err != nil || !ok {
			t.Fatalf("superadmin must implicitly hold %s (err=%v)", p, err)
		}
	}
}

func TestHasPermissionUnknownUser(t *testing.T) {
	f := newFixture(t)
	ok, err := f.svc.HasPermission(f.ctx, 4242, enums.PermissionViewDashboard)
	if err != nil || ok {
		t.Fatalf("unknown users hold nothing, got ok=%v err=%v", ok, err)
	}
}
