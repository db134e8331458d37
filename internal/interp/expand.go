package interp

import "regexp"

var tokenRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// conditionalHeadRe matches "if [not] ${name} then " at the start of a line.
// The head is kept unexpanded so the condition sees the variable itself.
var conditionalHeadRe = regexp.MustCompile(`(?i)^\s*if\s+(?:not\s+)?\$\{[A-Za-z_][A-Za-z0-9_]*\}\s+then(?:\s+|$)`)

// Expand replaces each ${name} in line with its value, or "" when undefined.
// Replacement text is not scanned again, and malformed tokens are left as is.
func Expand(line string, vars *Vars) string {
	return tokenRe.ReplaceAllStringFunc(line, func(tok string) string {
		return vars.Get(tok[2 : len(tok)-1])
	})
}

// expandLine expands a raw input line before parsing, leaving the head of a
// conditional untouched
func expandLine(line string, vars *Vars) string {
	if loc := conditionalHeadRe.FindStringIndex(line); loc != nil {
		return line[:loc[1]] + Expand(line[loc[1]:], vars)
	}
	return Expand(line, vars)
}
