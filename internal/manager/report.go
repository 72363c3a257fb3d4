package manager

import (
	"github.com/danmuck/rolectl/internal/journal"
	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/reconcile"
	"github.com/danmuck/rolectl/internal/roles"
)

// Step is one executed (or, on dry runs, planned) reconciliation step.
type Step struct {
	Plan      reconcile.Plan `json:"plan" yaml:"plan"`
	Install   *pkgmgr.Result `json:"install,omitempty" yaml:"install,omitempty"`
	Uninstall *pkgmgr.Result `json:"uninstall,omitempty" yaml:"uninstall,omitempty"`
	Saved     bool           `json:"saved" yaml:"saved"`
}

// Report is the outcome of one mutating command.
type Report struct {
	Command     string    `json:"command" yaml:"command"`
	Args        []string  `json:"args" yaml:"args"`
	DryRun      bool      `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	RolesBefore roles.Set `json:"roles_before" yaml:"roles_before"`
	RolesAfter  roles.Set `json:"roles_after" yaml:"roles_after"`
	Steps       []Step    `json:"steps" yaml:"steps"`
	LoadError   string    `json:"load_error,omitempty" yaml:"load_error,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	RunID       string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// Results returns every package-manager result in execution order.
func (r Report) Results() []pkgmgr.Result {
	var out []pkgmgr.Result
	for _, s := range r.Steps {
		if s.Install != nil {
			out = append(out, *s.Install)
		}
		if s.Uninstall != nil {
			out = append(out, *s.Uninstall)
		}
	}
	return out
}

// FailedTools returns every tool that failed in any step.
func (r Report) FailedTools() roles.Set {
	var out roles.Set
	for _, res := range r.Results() {
		out = out.Union(res.Failed)
	}
	return out
}

// SkippedRoles returns the distinct roles that could not be resolved.
func (r Report) SkippedRoles() []reconcile.RoleFailure {
	seen := make(map[string]struct{})
	var out []reconcile.RoleFailure
	for _, s := range r.Steps {
		for _, f := range s.Plan.SkippedRoles {
			if _, ok := seen[f.Role]; ok {
				continue
			}
			seen[f.Role] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// Withheld reports whether any step withheld its uninstall set.
func (r Report) Withheld() bool {
	for _, s := range r.Steps {
		if s.Plan.Withheld {
			return true
		}
	}
	return false
}

// Status classifies the run for the journal and the exit summary.
func (r Report) Status() journal.Status {
	switch {
	case r.Error != "":
		return journal.StatusFailed
	case r.DryRun:
		return journal.StatusDryRun
	case !r.FailedTools().Empty() || len(r.SkippedRoles()) > 0 || r.Withheld() || r.LoadError != "":
		return journal.StatusPartial
	default:
		return journal.StatusOK
	}
}
