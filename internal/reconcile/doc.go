// Package reconcile turns role changes into tool changes.
//
// Ownership boundary:
// - role -> tool resolution with per-role failure isolation
//
// - Add / Remove / Update planning over the persisted role set
//
//   - the no-orphan rule: a tool still required by a retained role is never
//     planned for removal
//
// Planning is pure; executing a plan and persisting its role set belong to
// the manager package.
package reconcile
