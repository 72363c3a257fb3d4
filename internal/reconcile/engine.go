package reconcile

import (
	"context"

	"github.com/danmuck/rolectl/internal/roles"
	"github.com/rs/zerolog/log"
)

// Op names the reconciliation step a Plan describes.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Plan is one reconciliation step: the role set to persist and the tool
// deltas to apply.
type Plan struct {
	Op               Op            `json:"op" yaml:"op"`
	PreviousRoles    roles.Set     `json:"previous_roles" yaml:"previous_roles"`
	ResultingRoles   roles.Set     `json:"resulting_roles" yaml:"resulting_roles"`
	RemovedRoles     roles.Set     `json:"removed_roles" yaml:"removed_roles"`
	ToolsToInstall   roles.Set     `json:"tools_to_install" yaml:"tools_to_install"`
	ToolsToUninstall roles.Set     `json:"tools_to_uninstall" yaml:"tools_to_uninstall"`
	SkippedRoles     []RoleFailure `json:"skipped_roles,omitempty" yaml:"skipped_roles,omitempty"`
	// Withheld is set when a retained role failed to resolve, so the tools it
	// still needs are unknown and nothing is uninstalled.
	Withheld bool `json:"withheld,omitempty" yaml:"withheld,omitempty"`
}

// Changed reports whether the step alters the role set or any tool.
func (p Plan) Changed() bool {
	return !p.PreviousRoles.Equal(p.ResultingRoles) ||
		!p.ToolsToInstall.Empty() ||
		!p.ToolsToUninstall.Empty()
}

// UpdatePlan moves the role set to exactly Target: Add runs first, then
// Remove, so no tool the target needs is removed and reinstalled.
type UpdatePlan struct {
	Target roles.Set `json:"target" yaml:"target"`
	Add    Plan      `json:"add" yaml:"add"`
	Remove Plan      `json:"remove" yaml:"remove"`
}

// Engine computes reconciliation plans. It never fails: catalog failures are
// carried in Plan.SkippedRoles.
type Engine struct {
	resolver *Resolver
}

// NewEngine plans over resolver.
func NewEngine(resolver *Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Add plans persisted ∪ requested and installs every tool the resulting role
// set needs.
func (e *Engine) Add(ctx context.Context, persisted roles.Set, requested []string) Plan {
	resulting := persisted.Union(roles.RolesFrom(requested))
	return e.add(ctx, persisted, resulting, resulting)
}

func (e *Engine) add(ctx context.Context, persisted, resulting, installScope roles.Set) Plan {
	res := e.resolver.ResolveSet(ctx, installScope)
	plan := Plan{
		Op:             OpAdd,
		PreviousRoles:  persisted,
		ResultingRoles: resulting,
		ToolsToInstall: res.Tools,
		SkippedRoles:   res.Skipped,
	}
	log.Debug().
		Strs("resulting_roles", resulting.Slice()).
		Int("tools_to_install", res.Tools.Len()).
		Int("skipped_roles", len(res.Skipped)).
		Msg("reconcile add planned")
	return plan
}

// Remove plans persisted \ requested and uninstalls the tools that only the
// removed roles required.
func (e *Engine) Remove(ctx context.Context, persisted roles.Set, requested []string) Plan {
	return e.remove(ctx, persisted, roles.RolesFrom(requested))
}

func (e *Engine) remove(ctx context.Context, persisted, requested roles.Set) Plan {
	kept := persisted.Difference(requested)
	removed := persisted.Intersect(requested)
	plan := Plan{
		Op:             OpRemove,
		PreviousRoles:  persisted,
		ResultingRoles: kept,
		RemovedRoles:   removed,
	}
	if removed.Empty() {
		log.Debug().Strs("requested", requested.Slice()).Msg("reconcile remove: no requested role is configured")
		return plan
	}

	keptRes := e.resolver.ResolveSet(ctx, kept)
	removedRes := e.resolver.ResolveSet(ctx, removed)
	plan.SkippedRoles = append(plan.SkippedRoles, keptRes.Skipped...)
	plan.SkippedRoles = append(plan.SkippedRoles, removedRes.Skipped...)

	if !keptRes.Complete() {
		plan.Withheld = true
		log.Warn().
			Int("unresolved_kept_roles", len(keptRes.Skipped)).
			Msg("reconcile remove: retained roles did not resolve; uninstall withheld")
		return plan
	}
	plan.ToolsToUninstall = removedRes.Tools.Difference(keptRes.Tools)
	log.Debug().
		Strs("removed_roles", removed.Slice()).
		Strs("tools_to_uninstall", plan.ToolsToUninstall.Slice()).
		Msg("reconcile remove planned")
	return plan
}

// Update plans the two steps that move persisted to exactly target.
func (e *Engine) Update(ctx context.Context, persisted roles.Set, target []string) UpdatePlan {
	targetSet := roles.RolesFrom(target)
	afterAdd := persisted.Union(targetSet)
	addPlan := e.add(ctx, persisted, afterAdd, targetSet)
	removePlan := e.remove(ctx, afterAdd, persisted.Difference(targetSet))
	return UpdatePlan{
		Target: targetSet,
		Add:    addPlan,
		Remove: removePlan,
	}
}
