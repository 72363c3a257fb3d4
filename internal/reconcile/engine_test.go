package reconcile

import (
	"context"
	"testing"

	"github.com/danmuck/rolectl/internal/roles"
	"github.com/danmuck/rolectl/internal/testutil/testlog"
)

func TestAddScenarioDeduplicatesAcrossRoles(t *testing.T) {
	testlog.Start(t)
	e := NewEngine(NewResolver(teamCatalog()))
	plan := e.Add(context.Background(), roles.NewSet("blue-teamer"), []string{"red-teamer"})

	if !plan.ResultingRoles.Equal(roles.NewSet("blue-teamer", "red-teamer")) {
		t.Fatalf("unexpected resulting roles: %v", plan.ResultingRoles)
	}
	if !plan.ToolsToInstall.Equal(roles.NewSet("metasploit", "nmap", "wireshark")) {
		t.Fatalf("unexpected install set: %v", plan.ToolsToInstall)
	}
	if !plan.ToolsToUninstall.Empty() {
		t.Fatalf("add must never uninstall: %v", plan.ToolsToUninstall)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	requested := []string{"red-teamer", "x"}
	for _, start := range []roles.Set{roles.NewSet(), roles.NewSet("blue-teamer"), roles.NewSet("x", "y")} {
		e := NewEngine(NewResolver(teamCatalog()))
		once := e.Add(ctx, start, requested)
		twice := e.Add(ctx, once.ResultingRoles, requested)
		if !once.ResultingRoles.Equal(twice.ResultingRoles) {
			t.Fatalf("start=%v: roles changed on second add: %v vs %v", start, once.ResultingRoles, twice.ResultingRoles)
		}
		if !once.ToolsToInstall.Equal(twice.ToolsToInstall) {
			t.Fatalf("start=%v: tools changed on second add: %v vs %v", start, once.ToolsToInstall, twice.ToolsToInstall)
		}
	}
}

func TestRemoveScenarioKeepsSharedTools(t *testing.T) {
	testlog.Start(t)
	e := NewEngine(NewResolver(teamCatalog()))
	plan := e.Remove(context.Background(), roles.NewSet("blue-teamer", "red-teamer"), []string{"blue-teamer"})

	if !plan.ResultingRoles.Equal(roles.NewSet("red-teamer")) {
		t.Fatalf("unexpected kept roles: %v", plan.ResultingRoles)
	}
	if !plan.RemovedRoles.Equal(roles.NewSet("blue-teamer")) {
		t.Fatalf("unexpected removed roles: %v", plan.RemovedRoles)
	}
	if !plan.ToolsToUninstall.Equal(roles.NewSet("wireshark")) {
		t.Fatalf("unexpected uninstall set: %v", plan.ToolsToUninstall)
	}
	if !plan.ToolsToInstall.Empty() {
		t.Fatalf("remove must never install: %v", plan.ToolsToInstall)
	}
}

func TestRemoveUnknownRoleIsNoop(t *testing.T) {
	testlog.Start(t)
	cat := teamCatalog()
	e := NewEngine(NewResolver(cat))
	plan := e.Remove(context.Background(), roles.NewSet("red-teamer"), []string{"blue-teamer"})
	if plan.Changed() {
		t.Fatalf("expected no-op plan: %+v", plan)
	}
	if !plan.ResultingRoles.Equal(roles.NewSet("red-teamer")) {
		t.Fatalf("kept roles must be re-persisted unchanged: %v", plan.ResultingRoles)
	}
	if len(cat.calls) != 0 {
		t.Fatalf("no-op remove must not touch the catalog: %v", cat.calls)
	}
}

func TestRemoveNeverOrphansRetainedTools(t *testing.T) {
	testlog.Start(t)
	all := []string{"blue-teamer", "red-teamer", "x", "y"}
	cat := teamCatalog()
	for mask := 0; mask < 1<<len(all); mask++ {
		for rmask := 0; rmask < 1<<len(all); rmask++ {
			var persisted, requested []string
			for i, role := range all {
				if mask&(1<<i) != 0 {
					persisted = append(persisted, role)
				}
				if rmask&(1<<i) != 0 {
					requested = append(requested, role)
				}
			}
			e := NewEngine(NewResolver(cat))
			plan := e.Remove(context.Background(), roles.NewSet(persisted...), requested)
			retained := NewResolver(cat).ResolveSet(context.Background(), plan.ResultingRoles).Tools
			if orphan := plan.ToolsToUninstall.Intersect(retained); !orphan.Empty() {
				t.Fatalf("persisted=%v requested=%v: uninstall would orphan %v", persisted, requested, orphan)
			}
		}
	}
}

func TestRemoveWithholdsUninstallWhenRetainedRoleFails(t *testing.T) {
	testlog.Start(t)
	cat := teamCatalog()
	cat.fail["red-teamer"] = errUnreachable
	e := NewEngine(NewResolver(cat))
	plan := e.Remove(context.Background(), roles.NewSet("blue-teamer", "red-teamer"), []string{"blue-teamer"})

	if !plan.Withheld {
		t.Fatalf("expected withheld uninstall")
	}
	if !plan.ToolsToUninstall.Empty() {
		t.Fatalf("nothing may be uninstalled when retained tools are unknown: %v", plan.ToolsToUninstall)
	}
	if !plan.ResultingRoles.Equal(roles.NewSet("red-teamer")) {
		t.Fatalf("role set still changes: %v", plan.ResultingRoles)
	}
	if len(plan.SkippedRoles) != 1 || plan.SkippedRoles[0].Role != "red-teamer" {
		t.Fatalf("unexpected skipped roles: %+v", plan.SkippedRoles)
	}
}

func TestRemoveSkipsUnresolvableRemovedRole(t *testing.T) {
	testlog.Start(t)
	cat := teamCatalog()
	cat.fail["y"] = errUnreachable
	e := NewEngine(NewResolver(cat))
	plan := e.Remove(context.Background(), roles.NewSet("x", "y", "blue-teamer"), []string{"x", "y"})

	if !plan.ToolsToUninstall.Equal(roles.NewSet("shared", "x-only")) {
		t.Fatalf("unexpected uninstall set: %v", plan.ToolsToUninstall)
	}
	if plan.Withheld {
		t.Fatalf("removed-role failures must not withhold the rest")
	}
}

func TestUpdateScenarioInstallsTargetThenRemovesUnique(t *testing.T) {
	testlog.Start(t)
	cat := teamCatalog()
	e := NewEngine(NewResolver(cat))
	plan := e.Update(context.Background(), roles.NewSet("x", "y"), []string{"x"})

	if !plan.Target.Equal(roles.NewSet("x")) {
		t.Fatalf("unexpected target: %v", plan.Target)
	}
	if !plan.Add.ToolsToInstall.Equal(roles.NewSet("shared", "x-only")) {
		t.Fatalf("add step must only cover the target's tools: %v", plan.Add.ToolsToInstall)
	}
	if !plan.Add.ResultingRoles.Equal(roles.NewSet("x", "y")) {
		t.Fatalf("add step must not add new roles here: %v", plan.Add.ResultingRoles)
	}
	if !plan.Remove.RemovedRoles.Equal(roles.NewSet("y")) {
		t.Fatalf("unexpected removed roles: %v", plan.Remove.RemovedRoles)
	}
	if !plan.Remove.ToolsToUninstall.Equal(roles.NewSet("y-only")) {
		t.Fatalf("unexpected uninstall set: %v", plan.Remove.ToolsToUninstall)
	}
	if !plan.Remove.ResultingRoles.Equal(roles.NewSet("x")) {
		t.Fatalf("unexpected final roles: %v", plan.Remove.ResultingRoles)
	}
	for _, role := range []string{"x", "y"} {
		n := 0
		for _, c := range cat.calls {
			if c == role {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("role %s fetched %d times", role, n)
		}
	}
}

func TestUpdateAddsNewRolesBeforeRemoving(t *testing.T) {
	testlog.Start(t)
	e := NewEngine(NewResolver(teamCatalog()))
	plan := e.Update(context.Background(), roles.NewSet("blue-teamer"), []string{"red-teamer"})

	if !plan.Add.ResultingRoles.Equal(roles.NewSet("blue-teamer", "red-teamer")) {
		t.Fatalf("intermediate role set should be the union: %v", plan.Add.ResultingRoles)
	}
	if !plan.Add.ToolsToInstall.Equal(roles.NewSet("metasploit", "nmap")) {
		t.Fatalf("unexpected install set: %v", plan.Add.ToolsToInstall)
	}
	if !plan.Remove.ToolsToUninstall.Equal(roles.NewSet("wireshark")) {
		t.Fatalf("nmap is still required by the target: %v", plan.Remove.ToolsToUninstall)
	}
	if !plan.Remove.ResultingRoles.Equal(roles.NewSet("red-teamer")) {
		t.Fatalf("unexpected final roles: %v", plan.Remove.ResultingRoles)
	}
}
