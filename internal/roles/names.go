package roles

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrEmptyRole   = errors.New("roles: empty role name")
	ErrInvalidRole = errors.New("roles: invalid role name")
)

// NormalizeRole trims surrounding whitespace from a role identifier.
func NormalizeRole(raw string) string {
	return strings.TrimSpace(raw)
}

// ValidateRole rejects empty role names and names with embedded whitespace.
func ValidateRole(raw string) (string, error) {
	role := NormalizeRole(raw)
	if role == "" {
		return "", ErrEmptyRole
	}
	if strings.IndexFunc(role, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidRole, role)
	}
	return role, nil
}

// NormalizeTool cleans one catalog line into a tool name.
// An empty result means the line carries no tool.
func NormalizeTool(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimSuffix(s, ",")
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return s
}

// ToolsFromLines normalizes catalog lines, dropping blanks.
func ToolsFromLines(lines []string) Set {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if tool := NormalizeTool(line); tool != "" {
			out = append(out, tool)
		}
	}
	return NewSet(out...)
}

// RolesFrom normalizes raw role names into a set, dropping blanks.
func RolesFrom(raw []string) Set {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, NormalizeRole(r))
	}
	return NewSet(out...)
}
