// Package manager runs rolectl commands end to end.
//
// Ownership boundary:
// - role argument validation
//
// - load -> plan -> apply -> persist sequencing per command
//
//   - error escalation: only a failed save or a package manager that cannot be
//     launched at all fails a command; per-role and per-tool failures are
//     carried in the Report
//
// Lifecycle order for update:
// - add step (install target tools, persist persisted ∪ target)
//
// - remove step (uninstall tools unique to dropped roles, persist target)
package manager
