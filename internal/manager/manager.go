package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/rolectl/internal/catalog"
	"github.com/danmuck/rolectl/internal/journal"
	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/reconcile"
	"github.com/danmuck/rolectl/internal/roles"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoRoles     = errors.New("manager: at least one role is required")
	ErrInvalidRole = errors.New("manager: invalid role argument")
	ErrMissingDeps = errors.New("manager: catalog, store and executor are required")
)

// RoleStore loads and saves the persisted role set.
type RoleStore interface {
	Load() (roles.Set, error)
	Save(roles.Set) error
}

// Applier applies one verb to a tool set.
type Applier interface {
	Apply(ctx context.Context, verb pkgmgr.Verb, tools roles.Set) (pkgmgr.Result, error)
}

// Journal records finished runs.
type Journal interface {
	Begin(command string, args []string) journal.Entry
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Config wires a Manager. Journal is optional.
type Config struct {
	Catalog  catalog.Catalog
	Store    RoleStore
	Executor Applier
	Journal  Journal
	DryRun   bool
}

// Manager runs rolectl commands.
type Manager struct {
	catalog  catalog.Catalog
	store    RoleStore
	executor Applier
	journal  Journal
	dryRun   bool
}

// New validates cfg and builds a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Catalog == nil || cfg.Store == nil || cfg.Executor == nil {
		return nil, ErrMissingDeps
	}
	return &Manager{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		executor: cfg.Executor,
		journal:  cfg.Journal,
		dryRun:   cfg.DryRun,
	}, nil
}

// ValidateRoles trims and checks role arguments.
func ValidateRoles(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, ErrNoRoles
	}
	out := make([]string, 0, len(args))
	for i, arg := range args {
		role, err := roles.ValidateRole(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", ErrInvalidRole, i+1, err)
		}
		out = append(out, role)
	}
	return out, nil
}

// Add configures requested roles and installs every tool the resulting role
// set needs.
func (m *Manager) Add(ctx context.Context, requested []string) (Report, error) {
	return m.run(ctx, "add", requested, func(ctx context.Context, r *run) error {
		plan := r.engine.Add(ctx, r.report.RolesBefore, r.args)
		return r.step(ctx, plan)
	})
}

// Remove drops requested roles and uninstalls the tools only they needed.
func (m *Manager) Remove(ctx context.Context, requested []string) (Report, error) {
	return m.run(ctx, "remove", requested, func(ctx context.Context, r *run) error {
		plan := r.engine.Remove(ctx, r.report.RolesBefore, r.args)
		return r.step(ctx, plan)
	})
}

// Update sets the configured roles to exactly target. The add step runs and
// is persisted before the remove step starts.
func (m *Manager) Update(ctx context.Context, target []string) (Report, error) {
	return m.run(ctx, "update", target, func(ctx context.Context, r *run) error {
		plan := r.engine.Update(ctx, r.report.RolesBefore, r.args)
		if err := r.step(ctx, plan.Add); err != nil {
			return err
		}
		return r.step(ctx, plan.Remove)
	})
}

// Current returns the persisted role set.
func (m *Manager) Current() (roles.Set, error) {
	return m.store.Load()
}

// RoleListing is one catalog role with its tools.
type RoleListing struct {
	Role  string    `json:"role" yaml:"role"`
	Tools roles.Set `json:"tools" yaml:"tools"`
	Error string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// ListRoles returns the catalog's role index.
func (m *Manager) ListRoles(ctx context.Context) ([]string, error) {
	return m.catalog.Index(ctx)
}

// ListAll returns every indexed role with its tools. A role whose list cannot
// be fetched is returned with Error set.
func (m *Manager) ListAll(ctx context.Context) ([]RoleListing, error) {
	names, err := m.catalog.Index(ctx)
	if err != nil {
		return nil, err
	}
	resolver := reconcile.NewResolver(m.catalog)
	out := make([]RoleListing, 0, len(names))
	for _, name := range names {
		res := resolver.Resolve(ctx, []string{name})
		listing := RoleListing{Role: name, Tools: res.Tools}
		if !res.Complete() {
			listing.Error = res.Skipped[0].Reason
		}
		out = append(out, listing)
	}
	return out, nil
}

type run struct {
	manager *Manager
	engine  *reconcile.Engine
	args    []string
	report  *Report
}

func (m *Manager) run(ctx context.Context, command string, rawArgs []string, body func(context.Context, *run) error) (Report, error) {
	args, err := ValidateRoles(rawArgs)
	if err != nil {
		return Report{Command: command, Args: rawArgs}, err
	}

	report := &Report{Command: command, Args: args, DryRun: m.dryRun}
	var entry journal.Entry
	if m.journal != nil && !m.dryRun {
		entry = m.journal.Begin(command, args)
	}

	before, loadErr := m.store.Load()
	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("could not read configured roles; starting from an empty set")
		report.LoadError = loadErr.Error()
		before = roles.NewSet()
	}
	report.RolesBefore = before
	report.RolesAfter = before

	r := &run{
		manager: m,
		engine:  reconcile.NewEngine(reconcile.NewResolver(m.catalog)),
		args:    args,
		report:  report,
	}
	runErr := body(ctx, r)
	if runErr != nil {
		report.Error = runErr.Error()
	}

	if m.journal != nil && !m.dryRun {
		entry.Status = report.Status()
		entry.RolesBefore = report.RolesBefore
		entry.RolesAfter = report.RolesAfter
		entry.Results = report.Results()
		for _, f := range report.SkippedRoles() {
			entry.SkippedRoles = append(entry.SkippedRoles, f.Role)
		}
		entry.Error = report.Error
		recorded, err := m.journal.Record(context.WithoutCancel(ctx), entry)
		if err != nil {
			log.Warn().Err(err).Msg("run not recorded in journal")
		} else {
			report.RunID = recorded.ID
		}
	}
	return *report, runErr
}

// step applies one plan: installs, then uninstalls, then persists the
// resulting role set whatever the tool outcomes were.
func (r *run) step(ctx context.Context, plan reconcile.Plan) error {
	step := Step{Plan: plan}
	if r.manager.dryRun {
		r.report.Steps = append(r.report.Steps, step)
		r.report.RolesAfter = plan.ResultingRoles
		return nil
	}

	var launchErr error
	if !plan.ToolsToInstall.Empty() {
		res, err := r.manager.executor.Apply(ctx, pkgmgr.VerbInstall, plan.ToolsToInstall)
		step.Install = &res
		launchErr = errors.Join(launchErr, err)
	}
	if launchErr == nil && !plan.ToolsToUninstall.Empty() {
		res, err := r.manager.executor.Apply(ctx, pkgmgr.VerbUninstall, plan.ToolsToUninstall)
		step.Uninstall = &res
		launchErr = errors.Join(launchErr, err)
	}

	if err := r.manager.store.Save(plan.ResultingRoles); err != nil {
		r.report.Steps = append(r.report.Steps, step)
		return errors.Join(launchErr, err)
	}
	step.Saved = true
	r.report.RolesAfter = plan.ResultingRoles
	r.report.Steps = append(r.report.Steps, step)
	return launchErr
}
