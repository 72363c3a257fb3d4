package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/rolectl/internal/testutil/testlog"
)

type fixture struct {
	dir    string
	config string
	state  string
}

// newFixture lays out a local catalog mirror and a config that runs install
// as installCmd without a privilege helper.
func newFixture(t *testing.T, installCmd string) fixture {
	t.Helper()
	if _, err := exec.LookPath(installCmd); err != nil {
		t.Skipf("%s not available: %v", installCmd, err)
	}
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("ROLECTL_CONFIG", "")

	catalogDir := filepath.Join(dir, "catalog")
	if err := os.MkdirAll(catalogDir, 0o755); err != nil {
		t.Fatalf("mkdir catalog: %v", err)
	}
	docs := map[string]string{
		"role_names":  "red-teamer\nblue-teamer\n",
		"red-teamer":  "nmap\nwireshark,\n",
		"blue-teamer": "wireshark\nsuricata\n",
	}
	for name, body := range docs {
		if err := os.WriteFile(filepath.Join(catalogDir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	f := fixture{
		dir:    dir,
		config: filepath.Join(dir, "rolectl.toml"),
		state:  filepath.Join(dir, "state", "roles.cnf"),
	}
	body := fmt.Sprintf(`state_file = %q
journal_file = %q

[catalog]
base_url = %q

[package_manager]
install = %q
uninstall = "true"
privilege = ""
`, f.state, filepath.Join(dir, "state", "journal.db"), "file://"+catalogDir, installCmd)
	if err := os.WriteFile(f.config, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return f
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", f.config, "--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f fixture) stateLines(t *testing.T) []string {
	t.Helper()
	raw, err := os.ReadFile(f.state)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	return strings.Fields(string(raw))
}

func TestAddPersistsRolesAndReportsBatch(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "true")

	out, err := f.run(t, "add", "red-teamer", "no-such-role")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	for _, want := range []string{"Role no-such-role skipped", "install: 2 succeeded", "nmap, wireshark"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if got := strings.Join(f.stateLines(t), ","); got != "no-such-role,red-teamer" {
		t.Fatalf("unexpected state %q", got)
	}

	out, err = f.run(t, "current", "-o", "json")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	var current struct {
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal([]byte(out), &current); err != nil {
		t.Fatalf("decode current: %v\n%s", err, out)
	}
	if strings.Join(current.Roles, ",") != "no-such-role,red-teamer" {
		t.Fatalf("unexpected current roles %v", current.Roles)
	}
}

func TestFailedToolsDoNotFailCommand(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "false")

	out, err := f.run(t, "add", "red-teamer")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	for _, want := range []string{"0 succeeded, 2 failed", "failed:    nmap", "failed:    wireshark"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if got := strings.Join(f.stateLines(t), ","); got != "red-teamer" {
		t.Fatalf("role set should be saved despite failures, got %q", got)
	}
}

func TestDryRunLeavesStateUntouched(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "true")

	if out, err := f.run(t, "add", "red-teamer", "blue-teamer"); err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	out, err := f.run(t, "remove", "--dry-run", "red-teamer")
	if err != nil {
		t.Fatalf("remove: %v\n%s", err, out)
	}
	if !strings.Contains(out, "would uninstall: nmap") {
		t.Fatalf("dry run should plan nmap only:\n%s", out)
	}
	if strings.Contains(out, "would uninstall: nmap, wireshark") {
		t.Fatalf("wireshark is still needed by blue-teamer:\n%s", out)
	}
	if got := strings.Join(f.stateLines(t), ","); got != "blue-teamer,red-teamer" {
		t.Fatalf("dry run changed state to %q", got)
	}
}

func TestHistoryListsRecordedRuns(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "true")

	if out, err := f.run(t, "add", "red-teamer"); err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if out, err := f.run(t, "update", "blue-teamer"); err != nil {
		t.Fatalf("update: %v\n%s", err, out)
	}
	if out, err := f.run(t, "remove", "--dry-run", "blue-teamer"); err != nil {
		t.Fatalf("dry run: %v\n%s", err, out)
	}

	out, err := f.run(t, "history", "-o", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []struct {
		Command string `json:"command"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 recorded runs, got %+v", entries)
	}
	if entries[0].Command != "update" || entries[1].Command != "add" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if got := strings.Join(f.stateLines(t), ","); got != "blue-teamer" {
		t.Fatalf("unexpected state %q", got)
	}
}

func TestListAllShowsToolsPerRole(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "true")

	out, err := f.run(t, "list-all", "-o", "yaml")
	if err != nil {
		t.Fatalf("list-all: %v", err)
	}
	for _, want := range []string{"role: red-teamer", "- nmap", "role: blue-teamer", "- suricata"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}

	out, err = f.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out != "red-teamer\nblue-teamer\n" {
		t.Fatalf("unexpected list output %q", out)
	}
}

func TestRejectsInvalidRoleArguments(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "true")

	if _, err := f.run(t, "add", "red teamer"); err == nil {
		t.Fatalf("expected whitespace role to be rejected")
	}
	if _, err := f.run(t, "add"); err == nil {
		t.Fatalf("expected missing roles to be rejected")
	}
	if _, err := os.Stat(f.state); !os.IsNotExist(err) {
		t.Fatalf("state file should not be written, stat err=%v", err)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t, "true")
	f.config = filepath.Join(f.dir, "missing.toml")

	if _, err := f.run(t, "current"); err == nil {
		t.Fatalf("expected missing explicit config to fail")
	}
}
