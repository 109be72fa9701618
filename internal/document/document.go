// internal/document/document.go
//
// YAML text → untyped document tree.
//
// Context
// -------
// Guild configuration is stored and edited as raw YAML text.  Before the
// validation engine can inspect it, the text is decoded into a plain tree
// built from six Go types only:
//
//	map[string]any   mapping
//	[]any            sequence
//	int64            integer
//	float64          floating-point number
//	string, bool     scalars
//	nil              YAML null (or an empty document)
//
// yaml.v3 already produces most of these, but integers arrive as `int` or
// `uint64` and mappings with non-string keys arrive as `map[any]any`.
// `normalize` folds every variant into the set above so callers never need
// to type-switch on decoder details.
//
// Notes
// -----
//   - Timestamps stay strings.  yaml.v3 would decode an unquoted date into
//     time.Time, so `Parse` retags every !!timestamp scalar as !!str and the
//     tree keeps the source text ("2020-01-02", not a formatted instant).
//   - Only the first YAML document in a stream is read.
//   - Oxford commas, two spaces after periods.
package document

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError reports malformed YAML.  It wraps the decoder error, which
// already carries line information.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "invalid YAML: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes raw YAML into a normalized tree.  Blank text yields nil.
func Parse(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, &ParseError{Err: err}
	}
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return nil, nil
	}
	keepTimestamps(&node)

	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	return normalize(raw), nil
}

// keepTimestamps retags timestamp scalars as strings.  Aliases are not
// followed; their anchors are reached through the tree itself.
func keepTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
		return
	}
	for _, c := range n.Content {
		keepTimestamps(c)
	}
}

// Kind classifies a node of a normalized tree.
type Kind int

const (
	Null Kind = iota
	Boolean
	Integer
	Float
	String
	Mapping
	Sequence
	Unknown
)

var kindNames = [...]string{
	Null:     "null",
	Boolean:  "boolean",
	Integer:  "integer",
	Float:    "number",
	String:   "string",
	Mapping:  "mapping",
	Sequence: "sequence",
	Unknown:  "unknown",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// KindOf reports the Kind of a normalized value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case int64:
		return Integer
	case float64:
		return Float
	case string:
		return String
	case map[string]any:
		return Mapping
	case []any:
		return Sequence
	default:
		return Unknown
	}
}

// normalize rewrites decoder output into the canonical tree types.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int:
		return int64(t)
	case int64:
		return t
	case uint64:
		if t > math.MaxInt64 {
			return float64(t)
		}
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
