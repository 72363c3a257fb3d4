// Package roles owns the role and tool value model.
//
// Ownership boundary:
// - role and tool name normalization
//
// - sorted, deduplicated set algebra shared by reconcile, store and pkgmgr
//
// Roles and tools are opaque, case-sensitive identifiers. Nothing in this
// package touches the network, the filesystem or the package manager.
package roles
