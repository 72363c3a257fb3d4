// Package config loads rolectl settings from TOML.
//
// Ownership boundary:
// - default locations under ~/.roles
//
// - file overrides on top of defaults, key by key
//
// - validation of catalog and package-manager settings
package config
