// Package pkgmgr applies tool sets to the host package manager.
//
// Ownership boundary:
// - package-manager argv construction (privilege helper, verb template, tools)
//
// - bulk attempt with per-tool fallback
//
// - partial-success result aggregation
//
// Invocations are strictly sequential; two package-manager processes are
// never in flight at once.
package pkgmgr
