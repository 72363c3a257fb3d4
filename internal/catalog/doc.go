// Package catalog fetches role tool lists from the remote role catalog.
//
// Ownership boundary:
// - role and index URL construction
//
// - HTTP status classification and bounded retries
//
// - splitting documents into raw lines (normalization belongs to roles)
//
// The catalog is treated as untrusted input: nothing fetched here is ever
// interpreted by a shell.
package catalog
