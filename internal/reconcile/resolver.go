package reconcile

import (
	"context"

	"github.com/danmuck/rolectl/internal/roles"
	"github.com/rs/zerolog/log"
)

// Catalog returns the raw tool lines for one role.
type Catalog interface {
	Fetch(ctx context.Context, role string) ([]string, error)
}

// RoleFailure records a role whose tool list could not be fetched.
type RoleFailure struct {
	Role   string `json:"role" yaml:"role"`
	Reason string `json:"reason" yaml:"reason"`
	Err    error  `json:"-" yaml:"-"`
}

func (f RoleFailure) Error() string {
	return "role " + f.Role + ": " + f.Reason
}

func (f RoleFailure) Unwrap() error { return f.Err }

// Resolution is the union of tools for the roles that resolved, plus the
// roles that did not.
type Resolution struct {
	Tools   roles.Set
	Skipped []RoleFailure
}

// Complete reports whether every requested role resolved.
func (r Resolution) Complete() bool { return len(r.Skipped) == 0 }

// Resolver maps roles to tools through a Catalog. Results are memoized for
// the lifetime of the Resolver, which is one command.
type Resolver struct {
	catalog Catalog
	tools   map[string]roles.Set
	failed  map[string]error
}

// NewResolver returns a Resolver with an empty per-run memo.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		tools:   make(map[string]roles.Set),
		failed:  make(map[string]error),
	}
}

// Resolve fetches each role in order and unions the results. A role whose
// fetch fails is skipped and reported; the remaining roles still resolve.
func (r *Resolver) Resolve(ctx context.Context, roleNames []string) Resolution {
	if len(roleNames) == 0 {
		return Resolution{}
	}
	var (
		all     roles.Set
		skipped []RoleFailure
		seen    = make(map[string]struct{}, len(roleNames))
	)
	for _, raw := range roleNames {
		role := roles.NormalizeRole(raw)
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}

		tools, err := r.role(ctx, role)
		if err != nil {
			skipped = append(skipped, RoleFailure{Role: role, Reason: err.Error(), Err: err})
			continue
		}
		all = all.Union(tools)
	}
	return Resolution{Tools: all, Skipped: skipped}
}

// ResolveSet is Resolve over a role set.
func (r *Resolver) ResolveSet(ctx context.Context, set roles.Set) Resolution {
	return r.Resolve(ctx, set.Slice())
}

func (r *Resolver) role(ctx context.Context, role string) (roles.Set, error) {
	if tools, ok := r.tools[role]; ok {
		return tools, nil
	}
	if err, ok := r.failed[role]; ok {
		return roles.Set{}, err
	}
	lines, err := r.catalog.Fetch(ctx, role)
	if err != nil {
		log.Warn().Err(err).Str("role", role).Msg("role skipped: catalog fetch failed")
		r.failed[role] = err
		return roles.Set{}, err
	}
	tools := roles.ToolsFromLines(lines)
	if tools.Empty() {
		log.Info().Str("role", role).Msg("catalog lists no tools for role")
	}
	r.tools[role] = tools
	return tools, nil
}
