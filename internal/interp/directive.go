package interp

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Mode selects how lines that match no directive form are treated
type Mode int

const (
	// ModeInteractive treats any other line as a chat message
	ModeInteractive Mode = iota
	// ModeScript requires chat messages to use "chat --> text"
	ModeScript
)

// DirectiveKind tags a parsed line
type DirectiveKind int

const (
	Comment DirectiveKind = iota
	Assignment
	Conditional
	Wait
	SlashCommand
	ChatUtterance
)

var directiveNames = map[DirectiveKind]string{
	Comment:       "comment",
	Assignment:    "assignment",
	Conditional:   "conditional",
	Wait:          "wait",
	SlashCommand:  "command",
	ChatUtterance: "chat",
}

func (k DirectiveKind) String() string {
	if name, ok := directiveNames[k]; ok {
		return name
	}
	return "unknown"
}

// Directive is one parsed line. Only the fields for its Kind are set.
// Source is the line handed to Parse; Interpreter.Exec replaces it with the
// line as typed, before substitution.
type Directive struct {
	Kind   DirectiveKind
	Source string

	// Assignment
	Name  string
	Value string

	// Conditional
	Cond Condition
	Then *Directive

	// Wait
	Seconds float64

	// SlashCommand: Command is lower-case without the slash
	Command string
	Args    string

	// ChatUtterance
	Text string
}

var (
	assignRe = regexp.MustCompile(`(?i)^set\s+([^=\s]+)\s*=\s*(.*)$`)
	condRe   = regexp.MustCompile(`(?i)^if\s+(not\s+)?\$\{([^}]*)\}\s+then(?:\s+(.*))?$`)
	waitRe   = regexp.MustCompile(`(?i)^wait(?:\s+(\S+))?$`)
	chatRe   = regexp.MustCompile(`(?i)^chat\s*-->(.*)$`)
)

// Parse classifies one line. It keeps no state; substitution must already
// have been applied by the caller.
func Parse(line string, mode Mode) (Directive, error) {
	return parse(line, mode, false)
}

func parse(line string, mode Mode, inConditional bool) (Directive, error) {
	trimmed := strings.TrimSpace(line)
	d := Directive{Source: line}

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		d.Kind = Comment
		return d, nil
	}

	if strings.HasPrefix(trimmed, "/") {
		d.Kind = SlashCommand
		d.Command, d.Args = splitCommand(trimmed)
		return d, nil
	}

	if m := chatRe.FindStringSubmatch(trimmed); m != nil {
		text := strings.TrimSpace(m[1])
		if text == "" {
			return d, parseError("empty chat message")
		}
		d.Kind = ChatUtterance
		d.Text = text
		return d, nil
	}

	switch strings.ToLower(strings.Fields(trimmed)[0]) {
	case "set":
		if m := assignRe.FindStringSubmatch(trimmed); m != nil {
			if !ValidName(m[1]) {
				return d, parseError("invalid variable name %q", m[1])
			}
			d.Kind = Assignment
			d.Name = m[1]
			d.Value = unquote(strings.TrimSpace(m[2]))
			return d, nil
		}
		if mode == ModeScript {
			return d, parseError("expected 'set <name> = <value>'")
		}

	case "if":
		if inConditional {
			return d, parseError("nested conditionals are not supported")
		}
		if m := condRe.FindStringSubmatch(trimmed); m != nil {
			return parseConditional(d, m, mode)
		}
		// Interactive prose such as "if it rains then ..." is chat
		if mode == ModeScript || strings.Contains(trimmed, "${") {
			return d, parseError("malformed conditional, expected 'if [not] ${name} then <directive>'")
		}

	case "wait":
		m := waitRe.FindStringSubmatch(trimmed)
		if m != nil && (mode == ModeScript || isNumber(m[1])) {
			seconds, msg := parseSeconds(m[1])
			if msg != "" {
				return d, parseError("%s", msg)
			}
			d.Kind = Wait
			d.Seconds = seconds
			return d, nil
		}
		if mode == ModeScript {
			return d, parseError("expected 'wait <seconds>'")
		}
	}

	if mode == ModeInteractive {
		d.Kind = ChatUtterance
		d.Text = trimmed
		return d, nil
	}
	return d, parseError("unrecognized directive (chat lines in scripts start with 'chat -->')")
}

func parseConditional(d Directive, m []string, mode Mode) (Directive, error) {
	name := m[2]
	if !ValidName(name) {
		return d, parseError("invalid variable name %q in condition", name)
	}
	rest := strings.TrimSpace(m[3])
	if rest == "" {
		return d, parseError("missing directive after 'then'")
	}

	then, err := parse(rest, mode, true)
	if err != nil {
		return d, err
	}

	d.Kind = Conditional
	d.Cond = Condition{Name: name, Negate: m[1] != ""}
	d.Then = &then
	return d, nil
}

// parseSeconds returns the duration or a message describing why arg is invalid
func parseSeconds(arg string) (float64, string) {
	if arg == "" {
		return 0, "wait requires a number of seconds"
	}
	seconds, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, "wait argument must be a number, got " + strconv.Quote(arg)
	}
	if seconds < 0 {
		return 0, "wait argument must not be negative"
	}
	if seconds >= maxWaitSeconds {
		return 0, fmt.Sprintf("wait argument must be below %.0f seconds", maxWaitSeconds)
	}
	return seconds, ""
}

// maxWaitSeconds bounds waits to what a time.Duration can hold
var maxWaitSeconds = float64(math.MaxInt64) / float64(time.Second)

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// parseError reports a malformed line; the location is attached by the caller
func parseError(format string, args ...any) *Error {
	return newError(ParseError, format, args...)
}

// splitCommand splits "/name args" on the first whitespace
func splitCommand(line string) (name, args string) {
	body := line[1:]
	idx := strings.IndexFunc(body, unicode.IsSpace)
	if idx < 0 {
		return strings.ToLower(body), ""
	}
	return strings.ToLower(body[:idx]), strings.TrimSpace(body[idx:])
}

// unquote strips one pair of matching surrounding quotes
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
