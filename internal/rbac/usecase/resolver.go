package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	apperrors "github.com/allisson/docvault/internal/errors"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

type overrideKey struct {
	role       rbacDomain.Role
	permission rbacDomain.Permission
}

// overrideSnapshot is an immutable view of the override table.
type overrideSnapshot struct {
	decisions   map[overrideKey]bool
	fingerprint rbacDomain.OverrideFingerprint
	loadedAt    time.Time
}

// Config controls the resolver.
type Config struct {
	// OverridesEnabled is false when the deployment has no permission_overrides table;
	// the resolver then uses the defaults only.
	OverridesEnabled bool
	CacheTTL         time.Duration
}

// resolver caches the override table for at most CacheTTL. Each check compares the
// table fingerprint with the cached one, so writes made by another process (the CLI or
// the external admin interface) force a reload on the next check. Concurrent misses of
// the same cache generation share one load through singleflight. Every local write bumps
// the generation, so a load that started before the write can neither repopulate the
// cache nor answer a check made after it.
type resolver struct {
	overrideRepo OverrideRepository
	auditUseCase auditUseCase.AuditUseCase
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time

	group      singleflight.Group
	mu         sync.RWMutex
	snapshot   *overrideSnapshot
	generation uint64
}

func (r *resolver) HasPermission(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
) (bool, error) {
	if !permission.Known() || !role.Valid() {
		return false, nil
	}

	if r.cfg.OverridesEnabled {
		snapshot, err := r.overrides(ctx)
		if err != nil {
			return false, err
		}
		if allowed, ok := snapshot.decisions[overrideKey{role: role, permission: permission}]; ok {
			return allowed, nil
		}
	}

	return role.AtLeast(rbacDomain.DefaultMinRole[permission]), nil
}

func (r *resolver) RequirePermission(ctx context.Context, permission rbacDomain.Permission) error {
	principal, ok := rbacDomain.PrincipalFromContext(ctx)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	allowed, err := r.HasPermission(ctx, principal.Role, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Wrapf(apperrors.ErrForbidden, "role %s lacks %s", principal.Role, permission)
	}
	return nil
}

func (r *resolver) overrides(ctx context.Context) (*overrideSnapshot, error) {
	r.mu.RLock()
	snapshot, generation := r.snapshot, r.generation
	r.mu.RUnlock()
	if snapshot != nil && r.now().Sub(snapshot.loadedAt) < r.cfg.CacheTTL {
		fp, err := r.overrideRepo.Fingerprint(ctx)
		if err != nil {
			// The cached view is still inside its TTL.
			r.logger.Warn("permission override fingerprint failed, using cached overrides",
				slog.Any("error", err))
			return snapshot, nil
		}
		if fp.Equal(snapshot.fingerprint) {
			return snapshot, nil
		}
	}

	v, err, _ := r.group.Do(strconv.FormatUint(generation, 10), func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		// Fingerprint before listing: a write in between leaves a stale fingerprint,
		// which only costs one extra reload.
		fp, err := r.overrideRepo.Fingerprint(loadCtx)
		if err != nil {
			return nil, err
		}
		rows, err := r.overrideRepo.List(loadCtx)
		if err != nil {
			return nil, err
		}
		loaded := &overrideSnapshot{
			decisions:   make(map[overrideKey]bool, len(rows)),
			fingerprint: fp,
			loadedAt:    r.now(),
		}
		for _, o := range rows {
			loaded.decisions[overrideKey{role: o.Role, permission: o.Permission}] = o.Allowed
		}

		r.mu.Lock()
		if r.generation == generation {
			r.snapshot = loaded
		}
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load permission overrides")
	}
	return v.(*overrideSnapshot), nil
}

func (r *resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	r.generation++
}

func (r *resolver) SetOverride(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
	allowed bool,
) (*rbacDomain.Override, error) {
	if !r.cfg.OverridesEnabled {
		return nil, rbacDomain.ErrOverridesDisabled
	}
	if !role.Valid() {
		return nil, rbacDomain.ErrUnknownRole
	}
	if !permission.Known() {
		return nil, rbacDomain.ErrUnknownPermission
	}

	override := &rbacDomain.Override{
		Role:       role,
		Permission: permission,
		Allowed:    allowed,
		UpdatedAt:  r.now().UTC(),
	}
	if err := r.overrideRepo.Upsert(ctx, override); err != nil {
		return nil, err
	}
	r.Invalidate()

	r.logger.Warn("permission override set",
		slog.String("role", string(role)),
		slog.String("permission", string(permission)),
		slog.Bool("allowed", allowed),
	)
	_, err := r.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamPermissions,
		Action:    auditDomain.ActionPermissionOverride,
		Subject:   string(role) + ":" + string(permission),
		Payload: map[string]any{
			"role":       string(role),
			"permission": string(permission),
			"allowed":    allowed,
			"default":    role.AtLeast(rbacDomain.DefaultMinRole[permission]),
		},
	})
	if err != nil {
		return nil, err
	}
	return override, nil
}

func (r *resolver) DeleteOverride(ctx context.Context, role rbacDomain.Role, permission rbacDomain.Permission) error {
	if !r.cfg.OverridesEnabled {
		return rbacDomain.ErrOverridesDisabled
	}
	if err := r.overrideRepo.Delete(ctx, role, permission); err != nil {
		return err
	}
	r.Invalidate()

	r.logger.Warn("permission override deleted",
		slog.String("role", string(role)),
		slog.String("permission", string(permission)),
	)
	_, err := r.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamPermissions,
		Action:    auditDomain.ActionPermissionOverrideRm,
		Subject:   string(role) + ":" + string(permission),
		Payload:   map[string]any{"role": string(role), "permission": string(permission)},
	})
	return err
}

func (r *resolver) ListOverrides(ctx context.Context) ([]*rbacDomain.Override, error) {
	if !r.cfg.OverridesEnabled {
		return []*rbacDomain.Override{}, nil
	}
	return r.overrideRepo.List(ctx)
}

// NewPermissionResolver creates a new PermissionResolver. overrideRepo may be nil when
// overrides are disabled.
func NewPermissionResolver(
	overrideRepo OverrideRepository,
	auditUseCase auditUseCase.AuditUseCase,
	cfg Config,
	logger *slog.Logger,
) PermissionResolver {
	return &resolver{
		overrideRepo: overrideRepo,
		auditUseCase: auditUseCase,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}
