package authz

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tracelens-io/tracelens/internal/cache"
	"github.com/tracelens-io/tracelens/internal/config"
	"github.com/tracelens-io/tracelens/internal/storage"
)

const (
	defaultScopeTTL = 60 * time.Second
	defaultTeamTTL  = 300 * time.Second
)

type (
	// Directory answers the membership lookups scope resolution needs.
	// Implemented by storage.DirectoryStore.
	Directory interface {
		WorkspaceIDsForUser(ctx context.Context, userID string) ([]string, error)
		AllWorkspaceIDs(ctx context.Context) ([]string, error)
		EmployeeByUser(ctx context.Context, userID string) (*storage.Employee, error)
		TeamEmployeeIDs(ctx context.Context, teamID string) ([]string, error)
	}

	// Resolver computes workspace scopes for principals. Results are held in
	// a shared cache (scope 60s, team membership 300s by default) and
	// recomputation is collapsed through singleflight, so a burst of requests
	// for the same principal after a cache expiry issues one directory query,
	// not one per request. A cache outage degrades to direct queries.
	Resolver struct {
		directory Directory
		scopes    *cache.Typed[[]string]
		team      *cache.Typed[[]string]
		group     singleflight.Group
		scopeTTL  time.Duration
		teamTTL   time.Duration
		logger    *slog.Logger
	}
)

// NewResolver creates a scope resolver. TTLs are read from
// TRACELENS_SCOPE_CACHE_TTL and TRACELENS_TEAM_CACHE_TTL.
func NewResolver(directory Directory, store cache.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		scopes:    cache.NewTyped[[]string](store, "authz:workspaces"),
		team:      cache.NewTyped[[]string](store, "authz:team"),
		scopeTTL:  config.GetEnvDuration("TRACELENS_SCOPE_CACHE_TTL", defaultScopeTTL),
		teamTTL:   config.GetEnvDuration("TRACELENS_TEAM_CACHE_TTL", defaultTeamTTL),
		logger:    logger.With(slog.String("component", "authz")),
	}
}

// NewContext creates a per-request permission context for a principal.
func (r *Resolver) NewContext(principal Principal) *PermissionContext {
	return &PermissionContext{
		resolver:  r,
		principal: principal,
	}
}

// Invalidate drops a principal's cached scope and, when the principal is an
// employee, their cached team membership. Write paths call this after
// membership changes so the next request sees fresh scope.
func (r *Resolver) Invalidate(ctx context.Context, userID, employeeID string) {
	if err := r.scopes.Delete(ctx, userID); err != nil {
		r.logger.Warn("scope invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if employeeID == "" {
		return
	}

	if err := r.team.Delete(ctx, employeeID); err != nil {
		r.logger.Warn("team invalidation failed",
			slog.String("employee_id", employeeID),
			slog.String("error", err.Error()),
		)
	}
}

// cachedOrCompute looks up a list in the shared cache and computes it on a
// miss, collapsing concurrent computations for the same key. Cache errors
// are logged and treated as misses.
func (r *Resolver) cachedOrCompute(
	ctx context.Context,
	typed *cache.Typed[[]string],
	key string,
	ttl time.Duration,
	compute func() ([]string, error),
) ([]string, error) {
	result, err, _ := r.group.Do(typed.Key(key), func() (interface{}, error) {
		cached, err := typed.Get(ctx, key)
		if err != nil {
			r.logger.Warn("cache read failed, falling back to direct query",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		} else if cached != nil {
			return *cached, nil
		}

		values, err := compute()
		if err != nil {
			return nil, err
		}

		if err := typed.Set(ctx, key, &values, ttl); err != nil {
			r.logger.Warn("cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}

		return values, nil
	})
	if err != nil {
		return nil, err
	}

	values, _ := result.([]string)

	return values, nil
}

// PermissionContext memoizes role and scope lookups for the lifetime of one
// request, so a handler can ask the same question repeatedly at the cost of
// a single resolution. Not safe for concurrent use; create one per request.
type PermissionContext struct {
	resolver  *Resolver
	principal Principal

	employee       *storage.Employee
	employeeLoaded bool

	role       Role
	roleLoaded bool

	workspaces       map[string]struct{}
	workspacesLoaded bool

	teamIDs    []string
	teamLoaded bool
}

// Principal returns the principal this context was created for.
func (p *PermissionContext) Principal() Principal {
	return p.principal
}

// Employee returns the principal's employee record, or nil when the
// principal is not an employee. The directory lookup happens at most once.
func (p *PermissionContext) Employee(ctx context.Context) (*storage.Employee, error) {
	if p.employeeLoaded {
		return p.employee, nil
	}

	if !p.principal.Authenticated {
		p.employeeLoaded = true

		return nil, nil
	}

	employee, err := p.resolver.directory.EmployeeByUser(ctx, p.principal.UserID)
	if err != nil {
		return nil, err
	}

	p.employee = employee
	p.employeeLoaded = true

	return employee, nil
}

// Role resolves the principal's effective role. Employee records win over
// the admin flag: an admin who is also an employee acts with the employee's
// role and scope.
func (p *PermissionContext) Role(ctx context.Context) (Role, error) {
	if p.roleLoaded {
		return p.role, nil
	}

	role := RoleAnonymous

	if p.principal.Authenticated {
		employee, err := p.Employee(ctx)
		if err != nil {
			return "", err
		}

		switch {
		case employee != nil:
			role = Role(employee.Role)
		case p.principal.Admin:
			role = RoleAdmin
		default:
			role = RoleUser
		}
	}

	p.role = role
	p.roleLoaded = true

	return role, nil
}

// WorkspaceIDs returns the set of workspaces the principal may read.
// Anonymous principals have empty scope. Admins see every workspace,
// employees see their own workspace, and users see the workspaces they are
// members of.
func (p *PermissionContext) WorkspaceIDs(ctx context.Context) (map[string]struct{}, error) {
	if p.workspacesLoaded {
		return p.workspaces, nil
	}

	if !p.principal.Authenticated {
		p.workspaces = map[string]struct{}{}
		p.workspacesLoaded = true

		return p.workspaces, nil
	}

	role, err := p.Role(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := p.resolver.cachedOrCompute(ctx, p.resolver.scopes, p.principal.UserID, p.resolver.scopeTTL,
		func() ([]string, error) {
			switch role {
			case RoleAdmin:
				return p.resolver.directory.AllWorkspaceIDs(ctx)
			case RoleAgent, RoleTeamLead:
				employee, err := p.Employee(ctx)
				if err != nil {
					return nil, err
				}

				return []string{employee.WorkspaceID}, nil
			default:
				return p.resolver.directory.WorkspaceIDsForUser(ctx, p.principal.UserID)
			}
		})
	if err != nil {
		return nil, err
	}

	workspaces := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		workspaces[id] = struct{}{}
	}

	p.workspaces = workspaces
	p.workspacesLoaded = true

	return workspaces, nil
}

// CanAccessWorkspace reports whether the workspace is inside the
// principal's scope.
func (p *PermissionContext) CanAccessWorkspace(ctx context.Context, workspaceID string) (bool, error) {
	workspaces, err := p.WorkspaceIDs(ctx)
	if err != nil {
		return false, err
	}

	_, ok := workspaces[workspaceID]

	return ok, nil
}

// TeamEmployeeIDs returns the employees visible to a team lead. Non-leads
// and leads without a team get an empty slice.
func (p *PermissionContext) TeamEmployeeIDs(ctx context.Context) ([]string, error) {
	if p.teamLoaded {
		return p.teamIDs, nil
	}

	role, err := p.Role(ctx)
	if err != nil {
		return nil, err
	}

	if role != RoleTeamLead {
		p.teamLoaded = true

		return nil, nil
	}

	employee, err := p.Employee(ctx)
	if err != nil {
		return nil, err
	}

	if employee.TeamID == nil {
		p.teamLoaded = true

		return nil, nil
	}

	ids, err := p.resolver.cachedOrCompute(ctx, p.resolver.team, employee.ID, p.resolver.teamTTL,
		func() ([]string, error) {
			return p.resolver.directory.TeamEmployeeIDs(ctx, *employee.TeamID)
		})
	if err != nil {
		return nil, err
	}

	p.teamIDs = ids
	p.teamLoaded = true

	return ids, nil
}
