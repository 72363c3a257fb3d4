package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/danmuck/rolectl/internal/manager"
	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/reconcile"
	"github.com/danmuck/rolectl/internal/roles"
)

func init() {
	ConfigureColor(true)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q)=(%q,%v) want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestRenderResultNamesFailures(t *testing.T) {
	var buf bytes.Buffer
	RenderResult(&buf, pkgmgr.Result{
		Verb:      pkgmgr.VerbInstall,
		Mode:      pkgmgr.ModeIndividual,
		Succeeded: roles.NewSet("a", "c"),
		Failed:    roles.NewSet("b"),
		Errors:    map[string]string{"b": "target not found: b"},
	})
	out := buf.String()
	for _, want := range []string{"2 succeeded, 1 failed", "succeeded: a, c", "failed:    b", "target not found: b", "per package"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderReportListsSkippedRoles(t *testing.T) {
	install := pkgmgr.Result{Verb: pkgmgr.VerbInstall, Mode: pkgmgr.ModeBulk, Succeeded: roles.NewSet("nmap")}
	report := manager.Report{
		Command:     "add",
		RolesBefore: roles.NewSet(),
		RolesAfter:  roles.NewSet("blue-teamer", "red-teamer"),
		Steps: []manager.Step{{
			Plan: reconcile.Plan{
				Op:             reconcile.OpAdd,
				ResultingRoles: roles.NewSet("blue-teamer", "red-teamer"),
				ToolsToInstall: roles.NewSet("nmap"),
				SkippedRoles:   []reconcile.RoleFailure{{Role: "blue-teamer", Reason: "404 Not Found"}},
			},
			Install: &install,
			Saved:   true,
		}},
	}
	var buf bytes.Buffer
	RenderReport(&buf, report)
	out := buf.String()
	for _, want := range []string{"Role blue-teamer skipped: 404 Not Found", "install: 1 succeeded", "blue-teamer, red-teamer"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestEncodeStructured(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FormatJSON, map[string]roles.Set{"roles": roles.NewSet("b", "a")}); err != nil {
		t.Fatalf("encode json: %v", err)
	}
	var decoded map[string][]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if strings.Join(decoded["roles"], ",") != "a,b" {
		t.Fatalf("unexpected json: %s", buf.String())
	}

	buf.Reset()
	if err := Encode(&buf, FormatYAML, map[string]roles.Set{"roles": roles.NewSet("b", "a")}); err != nil {
		t.Fatalf("encode yaml: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "roles:\n") || !strings.Contains(out, "- a") || strings.Index(out, "- a") > strings.Index(out, "- b") || !strings.Contains(out, "- b") {
		t.Fatalf("unexpected yaml: %q", out)
	}
}

func TestRenderReportAddWithoutNewRoles(t *testing.T) {
	report := manager.Report{
		Command:     "update",
		RolesBefore: roles.NewSet("x", "y"),
		RolesAfter:  roles.NewSet("x"),
		Steps: []manager.Step{{
			Plan: reconcile.Plan{
				Op:             reconcile.OpAdd,
				PreviousRoles:  roles.NewSet("x", "y"),
				ResultingRoles: roles.NewSet("x", "y"),
			},
			Saved: true,
		}},
	}
	var buf bytes.Buffer
	RenderReport(&buf, report)
	out := buf.String()
	if !strings.Contains(out, "Add: requested roles already configured.") {
		t.Fatalf("expected neutral add line:\n%s", out)
	}
	if strings.Contains(out, "Add: (none)") {
		t.Fatalf("empty add list rendered:\n%s", out)
	}
}

func TestRenderEscapesControlCharacters(t *testing.T) {
	evil := "nmap\x1b]0;owned\x07"
	var buf bytes.Buffer
	RenderResult(&buf, pkgmgr.Result{
		Verb:      pkgmgr.VerbInstall,
		Mode:      pkgmgr.ModeIndividual,
		Succeeded: roles.NewSet("ok\x1b[2J"),
		Failed:    roles.NewSet(evil),
		Errors:    map[string]string{evil: "error: target not found: \x1b[31mnmap"},
	})
	RenderReport(&buf, manager.Report{
		Steps: []manager.Step{{Plan: reconcile.Plan{
			Op:           reconcile.OpAdd,
			SkippedRoles: []reconcile.RoleFailure{{Role: "r\x1bole", Reason: "bad\u202ereason"}},
		}}},
	})
	out := buf.String()
	if strings.ContainsAny(out, "\x1b\x07\u202e") {
		t.Fatalf("control characters reached the output: %q", out)
	}
	if !strings.Contains(out, `"nmap\x1b]0;owned\a"`) {
		t.Fatalf("expected quoted tool name: %q", out)
	}
}

func TestCleanLeavesPrintableNames(t *testing.T) {
	for _, name := range []string{"nmap", "python-pip", "lib32-glibc", "ünïcode"} {
		if got := Clean(name); got != name {
			t.Fatalf("Clean(%q)=%q", name, got)
		}
	}
}
