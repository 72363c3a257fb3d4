// Package tools provides the host command execution boundary.
//
// Ownership boundary:
// - child process execution
//
// - exit status versus launch failure classification
//
// Callers never go through a shell; arguments reach the child process
// verbatim.
package tools
