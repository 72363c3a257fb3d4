package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmuck/rolectl/internal/journal"
	"github.com/danmuck/rolectl/internal/manager"
	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/reconcile"
	"github.com/danmuck/rolectl/internal/roles"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", raw)
	}
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("ui: %q is not a structured format", format)
	}
}

// RenderRoles writes the configured role set.
func RenderRoles(w io.Writer, set roles.Set) {
	if set.Empty() {
		fmt.Fprintln(w, InfoMsg("No roles configured."))
		return
	}
	fmt.Fprintln(w, InfoMsg("Current roles:"))
	for _, role := range set.Slice() {
		fmt.Fprintf(w, "  %s\n", Clean(role))
	}
}

// RenderListings writes each catalog role with its tools.
func RenderListings(w io.Writer, listings []manager.RoleListing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, WarnMsg("No roles are defined in the catalog index."))
		return
	}
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		names := l.Tools.Slice()
		for i, name := range names {
			names[i] = Clean(name)
		}
		tools := strings.Join(names, " ")
		switch {
		case l.Error != "":
			tools = ErrorStyle.Render("error: " + Clean(l.Error))
		case l.Tools.Empty():
			tools = Muted("no tools listed")
		}
		rows = append(rows, []string{Clean(l.Role), fmt.Sprint(l.Tools.Len()), tools})
	}
	fmt.Fprintln(w, Table([]string{"ROLE", "TOOLS", "PACKAGES"}, rows))
}

// RenderReport writes a human summary of a mutating command. Every skipped
// role and failed tool is named.
func RenderReport(w io.Writer, r manager.Report) {
	if r.LoadError != "" {
		fmt.Fprintln(w, WarnMsg("Could not read configured roles (%s); started from an empty set.", r.LoadError))
	}
	if r.DryRun {
		fmt.Fprintln(w, InfoMsg("Dry run: nothing was installed, removed or saved."))
	}
	for _, f := range r.SkippedRoles() {
		fmt.Fprintln(w, WarnMsg("Role %s skipped: %s", Bold(Clean(f.Role)), Clean(f.Reason)))
	}

	for _, step := range r.Steps {
		renderStep(w, step, r.DryRun)
	}

	fmt.Fprint(w, KeyValues("  ",
		KV("Roles before", List(r.RolesBefore.Slice())),
		KV("Roles after", List(r.RolesAfter.Slice())),
	))
	if r.RunID != "" {
		fmt.Fprintln(w, Muted("  run "+r.RunID))
	}
}

func renderStep(w io.Writer, step manager.Step, dryRun bool) {
	plan := step.Plan
	switch plan.Op {
	case reconcile.OpAdd:
		if added := plan.ResultingRoles.Difference(plan.PreviousRoles); added.Empty() {
			fmt.Fprintln(w, InfoMsg("Add: requested roles already configured."))
		} else {
			fmt.Fprintln(w, InfoMsg("Add: %s", List(added.Slice())))
		}
	case reconcile.OpRemove:
		if plan.RemovedRoles.Empty() {
			fmt.Fprintln(w, InfoMsg("Remove: none of the requested roles are configured."))
		} else {
			fmt.Fprintln(w, InfoMsg("Remove: %s", List(plan.RemovedRoles.Slice())))
		}
	}
	if plan.Withheld {
		fmt.Fprintln(w, WarnMsg("Uninstall withheld: tools needed by retained roles could not be resolved."))
	}
	if dryRun {
		if !plan.ToolsToInstall.Empty() {
			fmt.Fprintf(w, "  would install:   %s\n", List(plan.ToolsToInstall.Slice()))
		}
		if !plan.ToolsToUninstall.Empty() {
			fmt.Fprintf(w, "  would uninstall: %s\n", List(plan.ToolsToUninstall.Slice()))
		}
		return
	}
	if step.Install != nil {
		RenderResult(w, *step.Install)
	}
	if step.Uninstall != nil {
		RenderResult(w, *step.Uninstall)
	}
	if plan.ToolsToInstall.Empty() && plan.ToolsToUninstall.Empty() {
		fmt.Fprintln(w, Muted("  no package changes"))
	}
}

// RenderResult writes the succeeded/failed summary of one batch.
func RenderResult(w io.Writer, res pkgmgr.Result) {
	label := string(res.Verb)
	if res.Mode == pkgmgr.ModeIndividual {
		label += " (per package)"
	}
	if res.OK() {
		fmt.Fprintln(w, "  "+SuccessMsg("%s: %d succeeded", label, res.Succeeded.Len()))
	} else {
		fmt.Fprintln(w, "  "+ErrorMsg("%s: %d succeeded, %d failed", label, res.Succeeded.Len(), res.Failed.Len()))
	}
	if !res.Succeeded.Empty() {
		fmt.Fprintf(w, "    succeeded: %s\n", List(res.Succeeded.Slice()))
	}
	for _, tool := range res.Failed.Slice() {
		name := ErrorStyle.Render(Clean(tool))
		reason := res.Errors[tool]
		if reason == "" {
			fmt.Fprintf(w, "    failed:    %s\n", name)
			continue
		}
		fmt.Fprintf(w, "    failed:    %s %s\n", name, Muted("("+Clean(reason)+")"))
	}
}

// RenderHistory writes journal entries as a table.
func RenderHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, InfoMsg("No recorded runs."))
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		failed := 0
		for _, res := range e.Results {
			failed += res.Failed.Len()
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format(time.DateTime),
			e.Command,
			Clean(strings.Join(e.Args, " ")),
			statusText(e.Status),
			fmt.Sprint(failed),
			List(e.RolesAfter.Slice()),
		})
	}
	fmt.Fprintln(w, Table([]string{"STARTED", "COMMAND", "ARGS", "STATUS", "FAILED", "ROLES AFTER"}, rows))
}

func statusText(s journal.Status) string {
	switch s {
	case journal.StatusOK:
		return Success(string(s))
	case journal.StatusPartial:
		return Warn(string(s))
	case journal.StatusFailed:
		return ErrorStyle.Render(string(s))
	default:
		return Muted(string(s))
	}
}
