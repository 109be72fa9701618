// internal/validate/engine.go
//
// Validation engine: document tree × schema tree → Result.
//
// Context
// -------
// `Validate` walks a normalized document (see internal/document) and a
// schema.Node in lock-step.  It never returns an error and never stops at
// the first problem: every violation in the document is collected so the
// operator sees all of them in a single pass.
//
// Ordering
// --------
// Violations are appended in document pre-order.  Object fields are visited
// in schema declaration order, then undeclared keys in lexical order.
// Sequence elements are visited by index.  The same input therefore always
// yields the same list.
//
// Notes
// -----
//   - No coercion.  The string "1" is not an integer, and 1.0 is not one
//     either.
//   - Within a Scalar only the first failing constraint is reported.
//   - The engine holds no state; it is safe to call from any number of
//     goroutines against the same schema.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yanizio/dogcfg/internal/document"
	"github.com/yanizio/dogcfg/internal/schema"
)

// Validate checks doc against root.  A nil doc is an empty mapping.
func Validate(doc any, root schema.Node) Result {
	if doc == nil {
		if _, ok := root.(*schema.Object); ok {
			doc = map[string]any{}
		}
	}
	w := &walker{}
	w.node("", doc, root)
	return Result{Violations: w.out}
}

// Text parses raw YAML and validates it.  A parse failure is reported as a
// single Malformed violation at the document root.
func Text(raw string, root schema.Node) Result {
	doc, err := document.Parse(raw)
	if err != nil {
		return ParseFailure(err)
	}
	return Validate(doc, root)
}

// ParseFailure is the Result for text that did not parse.
func ParseFailure(err error) Result {
	return Result{Violations: []Violation{{
		Path:   "",
		Kind:   Malformed,
		Reason: "is not valid YAML (" + parseDetail(err) + ")",
	}}}
}

type walker struct {
	out []Violation
}

func (w *walker) add(path string, kind FailureKind, reason string) {
	w.out = append(w.out, Violation{Path: path, Kind: kind, Reason: reason})
}

func (w *walker) node(path string, v any, n schema.Node) {
	switch n := n.(type) {
	case *schema.Scalar:
		w.scalar(path, v, n)
	case *schema.Object:
		w.object(path, v, n)
	case *schema.Sequence:
		w.sequence(path, v, n)
	case *schema.OneOf:
		w.oneOf(path, v, n)
	default:
		w.add(path, TypeMismatch, fmt.Sprintf("has no validator (%T)", n))
	}
}

//
// Scalars
//

func (w *walker) scalar(path string, v any, s *schema.Scalar) {
	if !scalarKindMatches(s.Type, document.KindOf(v)) {
		w.add(path, TypeMismatch, mismatch(describe(s), v))
		return
	}
	for _, c := range s.Constraints {
		if kind, reason, ok := check(c, v); !ok {
			w.add(path, kind, reason)
			return
		}
	}
}

func scalarKindMatches(t schema.Type, k document.Kind) bool {
	switch t {
	case schema.Integer:
		return k == document.Integer
	case schema.String:
		return k == document.String
	case schema.Boolean:
		return k == document.Boolean
	default:
		return false
	}
}

// check applies one constraint to a value already known to have the right
// primitive kind.  Constraints that do not apply to the kind pass.
func check(c schema.Constraint, v any) (FailureKind, string, bool) {
	switch c := c.(type) {
	case schema.Min:
		if n, ok := v.(int64); ok && n < c.Value {
			return OutOfRange, fmt.Sprintf("must be at least %d", c.Value), false
		}
	case schema.Max:
		if n, ok := v.(int64); ok && n > c.Value {
			return OutOfRange, fmt.Sprintf("must be at most %d", c.Value), false
		}
	case schema.Pattern:
		if s, ok := v.(string); ok && !c.Re.MatchString(s) {
			reason := c.Reason
			if reason == "" {
				reason = fmt.Sprintf("must match /%s/", c.Re.String())
			}
			return PatternMismatch, reason, false
		}
	case schema.Enum:
		if s, ok := v.(string); ok && !contains(c.Values, s) {
			return DisallowedValue,
				fmt.Sprintf("%q is not one of: %s", s, strings.Join(c.Values, ", ")), false
		}
	}
	return 0, "", true
}

//
// Objects
//

func (w *walker) object(path string, v any, o *schema.Object) {
	m, ok := v.(map[string]any)
	if !ok {
		w.add(path, TypeMismatch, mismatch("mapping", v))
		return
	}

	for _, f := range o.Fields {
		val, present := m[f.Name]
		if !present {
			if f.Required {
				w.add(child(path, f.Name), MissingKey, "is required")
			}
			continue
		}
		w.node(child(path, f.Name), val, f.Node)
	}

	if o.Unknown != schema.RejectUnknown {
		return
	}
	var unknown []string
	for k := range m {
		if _, declared := o.Lookup(k); !declared {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		w.add(child(path, k), UnknownKey, "is not a recognized key")
	}
}

//
// Sequences
//

func (w *walker) sequence(path string, v any, s *schema.Sequence) {
	items, ok := v.([]any)
	if !ok {
		w.add(path, TypeMismatch, mismatch("sequence", v))
		return
	}
	for i, item := range items {
		w.node(index(path, i), item, s.Element)
	}
}

//
// OneOf
//

// oneOf tries each variant in order and keeps the first clean pass.  When
// every variant fails, the violations of the last variant whose primitive
// kind matches the input are reported.  If no variant matches the input's
// kind at all, one TypeMismatch naming the accepted shapes is reported.
func (w *walker) oneOf(path string, v any, o *schema.OneOf) {
	kind := document.KindOf(v)
	var chosen []Violation
	for _, variant := range o.Variants {
		trial := &walker{}
		trial.node(path, v, variant)
		if len(trial.out) == 0 {
			return
		}
		if kindMatches(variant, kind) {
			chosen = trial.out
		}
	}
	if chosen != nil {
		w.out = append(w.out, chosen...)
		return
	}
	w.add(path, TypeMismatch, mismatch(describe(o), v))
}

func kindMatches(n schema.Node, k document.Kind) bool {
	switch n := n.(type) {
	case *schema.Scalar:
		return scalarKindMatches(n.Type, k)
	case *schema.Object:
		return k == document.Mapping
	case *schema.Sequence:
		return k == document.Sequence
	case *schema.OneOf:
		for _, variant := range n.Variants {
			if kindMatches(variant, k) {
				return true
			}
		}
	}
	return false
}

//
// reason helpers
//

// describe names the shape a node accepts, for type-mismatch reasons.
func describe(n schema.Node) string {
	switch n := n.(type) {
	case *schema.Scalar:
		if n.Label != "" {
			return n.Label
		}
		return n.Type.String()
	case *schema.Object:
		return "mapping"
	case *schema.Sequence:
		return "sequence"
	case *schema.OneOf:
		names := make([]string, len(n.Variants))
		for i, variant := range n.Variants {
			names[i] = describe(variant)
		}
		return strings.Join(names, " or ")
	default:
		return "value"
	}
}

func mismatch(want string, got any) string {
	return fmt.Sprintf("must be %s %s, got %s", article(want), want, document.KindOf(got))
}

// consonantSound lists vowel-led prefixes that are spoken with a leading
// consonant ("a user ID", "a one-off").
var consonantSound = []string{"one", "uni", "use", "usu", "uti", "eu"}

func article(noun string) string {
	lower := strings.ToLower(noun)
	for _, p := range consonantSound {
		if strings.HasPrefix(lower, p) {
			return "a"
		}
	}
	if lower != "" && strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an"
	}
	return "a"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// parseDetail trims the package prefix from a parse error.
func parseDetail(err error) string {
	return strings.TrimPrefix(err.Error(), "invalid YAML: ")
}
