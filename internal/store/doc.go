// Package store persists the configured role set.
//
// Ownership boundary:
// - state file path resolution
//
// - one-role-per-line encoding, sorted and deduplicated
//
// - atomic replacement on save
//
// No locking is performed; two concurrent runs can race on read-modify-write.
package store
