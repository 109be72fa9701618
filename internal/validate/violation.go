package validate

import (
	"fmt"
	"strings"
)

// FailureKind classifies a Violation.
type FailureKind int

const (
	TypeMismatch FailureKind = iota
	OutOfRange
	PatternMismatch
	DisallowedValue
	UnknownKey
	MissingKey
	Malformed
)

var failureNames = [...]string{
	TypeMismatch:    "type_mismatch",
	OutOfRange:      "out_of_range",
	PatternMismatch: "pattern_mismatch",
	DisallowedValue: "disallowed_value",
	UnknownKey:      "unknown_key",
	MissingKey:      "missing_key",
	Malformed:       "malformed",
}

func (k FailureKind) String() string {
	if k < 0 || int(k) >= len(failureNames) {
		return "unknown"
	}
	return failureNames[k]
}

// MarshalText renders the kind by name in JSON payloads.
func (k FailureKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Violation is one path-qualified reason a document was rejected.
type Violation struct {
	Path   string      `json:"path"`   // "" is the document root
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"` // reads after the path, e.g. "must be a boolean"
}

func (v Violation) String() string {
	return displayPath(v.Path) + " " + v.Reason
}

// Result is the outcome of one validation pass.  A nil or empty Violations
// slice means the document is valid.
type Result struct {
	Violations []Violation
}

// Valid reports whether no violations were found.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// Paths lists violation paths in report order.
func (r Result) Paths() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Path
	}
	return out
}

// Err returns nil for a valid result, otherwise an error listing every
// violation.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Violations: r.Violations}
}

// Error carries violations through APIs that speak error.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0].String()
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(lines), strings.Join(lines, "\n  - "))
}

//
// path helpers
//

func child(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

func displayPath(p string) string {
	if p == "" {
		return "document"
	}
	return p
}
