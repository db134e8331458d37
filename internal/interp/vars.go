package interp

import (
	"regexp"
	"sort"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name is a legal variable identifier
func ValidName(name string) bool {
	return identRe.MatchString(name)
}

// Vars is the variable table shared by substitution and conditionals
type Vars struct {
	values map[string]string
}

// NewVars creates an empty table
func NewVars() *Vars {
	return &Vars{values: make(map[string]string)}
}

// Set stores value under name, overwriting any previous value
func (v *Vars) Set(name, value string) {
	v.values[name] = value
}

// Lookup returns the value and whether name is defined
func (v *Vars) Lookup(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Get returns the value of name, or "" when undefined
func (v *Vars) Get(name string) string {
	return v.values[name]
}

// Names returns the defined names in sorted order
func (v *Vars) Names() []string {
	names := make([]string, 0, len(v.values))
	for name := range v.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of defined variables
func (v *Vars) Len() int {
	return len(v.values)
}
