package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/logger"
)

// DefaultPermissionCacheTTL bounds how stale a cached grant set can be.
const DefaultPermissionCacheTTL = 30 * time.Second

// Cache is the subset of the redis client used for permission caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	PermissionsKey(userID uint) string
}

type userLoader interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Access is the resolved authorization state of one user.
type Access struct {
	UserID      uint          `json:"user_id"`
	Permissions PermissionSet `json:"-"`
	Superadmin  bool          `json:"superadmin"`
	IsActive    bool          `json:"is_active"`
	IsApproved  bool          `json:"is_approved"`
}

type cachedAccess struct {
	Access
	Names []string `json:"permissions"`
}

// PermissionResolver turns a user id into its Access, caching results for a short TTL.
type PermissionResolver struct {
	users userLoader
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewPermissionResolver builds a resolver. A nil cache disables cross-request caching.
func NewPermissionResolver(users userLoader, cache Cache, ttl time.Duration, logg *logger.Logger) *PermissionResolver {
	if ttl <= 0 {
		ttl = DefaultPermissionCacheTTL
	}
	return &PermissionResolver{users: users, cache: cache, ttl: ttl, logg: logg}
}

// Resolve returns the user's access. Unknown users yield NotFound.
func (r *PermissionResolver) Resolve(ctx context.Context, userID uint) (*Access, error) {
	if access, ok := r.fromCache(ctx, userID); ok {
		return access, nil
	}

	user, err := r.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user grants")
	}
	access := AccessFor(*user)
	r.store(ctx, access)
	return access, nil
}

// Invalidate drops cached grants for the given users.
func (r *PermissionResolver) Invalidate(ctx context.Context, userIDs ...uint) {
	if r == nil || r.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, r.cache.PermissionsKey(id))
	}
	if err := r.cache.Del(ctx, keys...); err != nil {
		r.warn(ctx, "permission cache invalidation failed", err)
	}
}

// AccessFor derives Access from a user with preloaded roles and permissions.
func AccessFor(user models.User) *Access {
	return &Access{
		UserID:      user.ID,
		Permissions: Grants(user),
		Superadmin:  IsSuperadmin(user),
		IsActive:    user.IsActive,
		IsApproved:  user.IsApproved,
	}
}

func (r *PermissionResolver) fromCache(ctx context.Context, userID uint) (*Access, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, r.cache.PermissionsKey(userID))
	if err != nil {
		return nil, false
	}
	var cached cachedAccess
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		r.warn(ctx, "discarding malformed permission cache entry", err)
		return nil, false
	}
	access := cached.Access
	access.Permissions = PermissionSet{}
	for _, name := range cached.Names {
		access.Permissions[enums.PermissionName(name)] = struct{}{}
	}
	return &access, true
}

func (r *PermissionResolver) store(ctx context.Context, access *Access) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(cachedAccess{Access: *access, Names: access.Permissions.Names()})
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.PermissionsKey(access.UserID), string(payload), r.ttl); err != nil {
		r.warn(ctx, "permission cache write failed", err)
	}
}

func (r *PermissionResolver) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), msg)
}
