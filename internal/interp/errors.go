package interp

import (
	"errors"
	"fmt"
)

// Kind classifies interpreter errors. A Kind is itself an error so callers
// can write errors.Is(err, interp.UnknownCommand).
type Kind int

const (
	ParseError Kind = iota + 1
	UnknownCommand
	MissingArgument
	InvalidArgument
	FileNotFound
	PermissionDenied
	UnknownModel
	CyclicScriptInclusion
	APIError
)

var kindNames = map[Kind]string{
	ParseError:            "parse error",
	UnknownCommand:        "unknown command",
	MissingArgument:       "missing argument",
	InvalidArgument:       "invalid argument",
	FileNotFound:          "file not found",
	PermissionDenied:      "permission denied",
	UnknownModel:          "unknown model",
	CyclicScriptInclusion: "cyclic script inclusion",
	APIError:              "API error",
}

// String returns the human-readable kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Error() string { return k.String() }

// Error is a directive failure. Source is the offending line or a
// "path:line" location when the directive came from a script.
type Error struct {
	Kind   Kind
	Msg    string
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return e.Source + ": " + e.Msg
	}
	return e.Msg
}

// Unwrap returns the collaborator error, if any
func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind target
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		msg = err.Error()
	} else {
		msg += ": " + err.Error()
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind carried by err, if it is an interpreter error
func KindOf(err error) (Kind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// sourced sets Source on an interpreter error that has none yet. Long
// sources are cut to the file preview length.
func sourced(err error, source string) error {
	var ie *Error
	if source == "" || !errors.As(err, &ie) || ie.Source != "" {
		return err
	}
	return withSource(err, preview(source, false))
}

// withSource returns a copy of err annotated with a location
func withSource(err error, source string) error {
	var ie *Error
	if errors.As(err, &ie) {
		annotated := *ie
		annotated.Source = source
		return &annotated
	}
	return fmt.Errorf("%s: %w", source, err)
}
