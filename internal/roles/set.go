package roles

import (
	"encoding/json"
	"slices"
	"strings"
)

// Set is an immutable sorted collection of unique, non-empty names.
// The zero value is the empty set.
type Set struct {
	items []string
}

// NewSet builds a set from names, dropping empty entries and duplicates.
func NewSet(names ...string) Set {
	items := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		items = append(items, name)
	}
	slices.Sort(items)
	return Set{items: slices.Compact(items)}
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.items) }

// Empty reports whether the set has no members.
func (s Set) Empty() bool { return len(s.items) == 0 }

// Slice returns a sorted copy of the members.
func (s Set) Slice() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports membership by exact string equality.
func (s Set) Contains(name string) bool {
	_, ok := slices.BinarySearch(s.items, name)
	return ok
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.items, other.items)
}

// Union returns s ∪ other.
func (s Set) Union(other Set) Set {
	merged := make([]string, 0, len(s.items)+len(other.items))
	merged = append(merged, s.items...)
	merged = append(merged, other.items...)
	return NewSet(merged...)
}

// Difference returns s \ other.
func (s Set) Difference(other Set) Set {
	out := make([]string, 0, len(s.items))
	for _, name := range s.items {
		if !other.Contains(name) {
			out = append(out, name)
		}
	}
	return Set{items: out}
}

// Intersect returns s ∩ other.
func (s Set) Intersect(other Set) Set {
	out := make([]string, 0, min(len(s.items), len(other.items)))
	for _, name := range s.items {
		if other.Contains(name) {
			out = append(out, name)
		}
	}
	return Set{items: out}
}

// IsSubset reports whether every member of s is in other.
func (s Set) IsSubset(other Set) bool {
	for _, name := range s.items {
		if !other.Contains(name) {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	return "[" + strings.Join(s.items, " ") + "]"
}

// MarshalJSON encodes the set as a sorted string array; the empty set
// encodes as [] rather than null.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes a string array, normalizing it into a set.
func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewSet(names...)
	return nil
}

// MarshalYAML encodes the set as a sorted sequence.
func (s Set) MarshalYAML() (any, error) {
	return s.Slice(), nil
}
