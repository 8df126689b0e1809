// Package defines derives the ordered preprocessor define set for a shader variant from mesh,
// material and renderer state. The joined define set is half of the effect cache key, so every
// operation here preserves insertion order and keeps exactly one entry per define name.
package defines

import (
	"strings"

	"cogentcore.org/core/base/keylist"
)

// directive is the preprocessor prefix every emitted define line carries.
const directive = "#define "

// Set is an ordered, name-unique list of preprocessor defines. A define is either a flag
// ("#define FOG") or a valued define ("#define NUM_BONE_INFLUENCERS 4"). Re-adding a name
// replaces the value of the existing entry without moving it.
//
// The zero value is an empty set ready for use.
type Set struct {
	entries keylist.List[string, string]
}

// NewSet creates a Set pre-populated with the given define lines, in order.
//
// Parameters:
//   - lines: define lines with or without the "#define " prefix
//
// Returns:
//   - *Set: the populated set
func NewSet(lines ...string) *Set {
	s := &Set{}
	for _, l := range lines {
		s.Add(l)
	}
	return s
}

// ParseDefine splits a define line into its name and value. The "#define " prefix is optional
// and surrounding whitespace is ignored. Flags return an empty value.
//
// Parameters:
//   - line: the define line, e.g. "#define NUM_BONE_INFLUENCERS 4" or "FOG"
//
// Returns:
//   - string: the define name
//   - string: the define value, or "" for a flag
func ParseDefine(line string) (string, string) {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimPrefix(line, strings.TrimSpace(directive)))
	name, value, _ := strings.Cut(line, " ")
	return name, strings.TrimSpace(value)
}

// Add parses a define line and inserts it, replacing the value of an existing entry of the same name.
// Empty lines are ignored.
//
// Parameters:
//   - line: the define line with or without the "#define " prefix
func (s *Set) Add(line string) {
	name, value := ParseDefine(line)
	if name == "" {
		return
	}
	s.entries.Set(name, value)
}

// Flag inserts a plain flag define.
//
// Parameters:
//   - name: the define name
func (s *Set) Flag(name string) {
	s.entries.Set(name, "")
}

// SetValue inserts a valued define, replacing the value of an existing entry of the same name.
//
// Parameters:
//   - name: the define name
//   - value: the define value
func (s *Set) SetValue(name, value string) {
	s.entries.Set(name, value)
}

// Remove deletes the define with the given name.
//
// Parameters:
//   - name: the define name
//
// Returns:
//   - bool: true if the define was present
func (s *Set) Remove(name string) bool {
	return s.entries.DeleteByKey(name)
}

// Has reports whether a define with the given name is present.
func (s *Set) Has(name string) bool {
	_, ok := s.entries.AtTry(name)
	return ok
}

// Value returns the value of the named define and whether it is present.
func (s *Set) Value(name string) (string, bool) {
	return s.entries.AtTry(name)
}

// Len returns the number of defines in the set.
func (s *Set) Len() int {
	return s.entries.Len()
}

// Names returns the define names in order.
func (s *Set) Names() []string {
	out := make([]string, len(s.entries.Keys))
	copy(out, s.entries.Keys)
	return out
}

// Entries returns the full define lines in order, each prefixed with "#define ".
//
// Returns:
//   - []string: the define lines
func (s *Set) Entries() []string {
	out := make([]string, 0, s.entries.Len())
	for i, name := range s.entries.Keys {
		out = append(out, formatDefine(name, s.entries.Values[i]))
	}
	return out
}

// Join returns the define lines joined with newlines. Two sets with equal Join output
// resolve to the same effect.
func (s *Set) Join() string {
	return strings.Join(s.Entries(), "\n")
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	c := &Set{}
	for i, name := range s.entries.Keys {
		c.entries.Set(name, s.entries.Values[i])
	}
	return c
}

// Equal reports whether both sets contain the same defines in the same order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i, name := range s.entries.Keys {
		if o.entries.Keys[i] != name || o.entries.Values[i] != s.entries.Values[i] {
			return false
		}
	}
	return true
}

func formatDefine(name, value string) string {
	if value == "" {
		return directive + name
	}
	return directive + name + " " + value
}
