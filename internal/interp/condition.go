package interp

import "strings"

// falsyLiterals are values that read as false in a condition
var falsyLiterals = map[string]bool{
	"false": true,
	"0":     true,
	"no":    true,
	"off":   true,
}

// Condition is "${Name}" or "not ${Name}"
type Condition struct {
	Name   string
	Negate bool
}

// Truthy reports whether a stored value counts as true. Undefined and
// empty values are false.
func Truthy(value string, defined bool) bool {
	if !defined {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(value))
	return v != "" && !falsyLiterals[v]
}

// Eval evaluates the condition against vars
func (c Condition) Eval(vars *Vars) bool {
	value, ok := vars.Lookup(c.Name)
	return Truthy(value, ok) != c.Negate
}

func (c Condition) String() string {
	if c.Negate {
		return "not ${" + c.Name + "}"
	}
	return "${" + c.Name + "}"
}
