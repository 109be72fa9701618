// internal/schema/node.go
//
// Validator node types.
//
// Context
// -------
// A schema is a tree of Nodes.  There are exactly four variants:
//
//	Scalar    one primitive value plus ordered constraints
//	OneOf     ordered alternatives, first match wins
//	Object    ordered named fields plus an unknown-key policy
//	Sequence  every element matches one element node
//
// Nodes are plain data.  They carry no behaviour beyond Kind() and hold no
// references to documents, so one tree can validate many documents at once.
// Trees are built with the constructors below and must be treated as
// read-only afterwards.
//
// Notes
// -----
//   - Patterns are compiled at construction; a bad pattern panics during
//     registry build, never while validating.
//   - Oxford commas, two spaces after periods.
package schema

import "regexp"

// Kind identifies a Node variant.
type Kind int

const (
	KindScalar Kind = iota
	KindOneOf
	KindObject
	KindSequence
)

// Node is implemented by *Scalar, *OneOf, *Object, and *Sequence.
type Node interface {
	Kind() Kind
}

//
// Scalars
//

// Type is the primitive kind a Scalar accepts.
type Type int

const (
	Integer Type = iota
	String
	Boolean
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Scalar accepts one primitive value.  Constraints run in declaration order.
type Scalar struct {
	Type        Type
	Label       string // optional noun used in reasons, e.g. "user ID"
	Constraints []Constraint
}

func (*Scalar) Kind() Kind { return KindScalar }

// Constraint is one check applied to a Scalar value of the right Type.
// Implemented by Min, Max, Pattern, and Enum.
type Constraint interface {
	constraint()
}

// Min is an inclusive lower bound for integers.
type Min struct{ Value int64 }

// Max is an inclusive upper bound for integers.
type Max struct{ Value int64 }

// Pattern requires a string to match Re.  Reason overrides the default
// message when set.
type Pattern struct {
	Re     *regexp.Regexp
	Reason string
}

// Enum restricts a string to a fixed set of values.
type Enum struct{ Values []string }

func (Min) constraint()     {}
func (Max) constraint()     {}
func (Pattern) constraint() {}
func (Enum) constraint()    {}

// Int returns an integer Scalar.
func Int(cs ...Constraint) *Scalar { return &Scalar{Type: Integer, Constraints: cs} }

// Str returns a string Scalar.
func Str(cs ...Constraint) *Scalar { return &Scalar{Type: String, Constraints: cs} }

// Bool returns a boolean Scalar.
func Bool() *Scalar { return &Scalar{Type: Boolean} }

// Labeled sets the Label of s and returns it.  Call only during construction.
func (s *Scalar) Labeled(label string) *Scalar {
	s.Label = label
	return s
}

// AtLeast is shorthand for Min{n}.
func AtLeast(n int64) Constraint { return Min{Value: n} }

// AtMost is shorthand for Max{n}.
func AtMost(n int64) Constraint { return Max{Value: n} }

// Matches compiles expr into a Pattern.  It panics on a bad expression.
func Matches(expr, reason string) Constraint {
	return Pattern{Re: regexp.MustCompile(expr), Reason: reason}
}

// OneOfValues is shorthand for Enum.
func OneOfValues(values ...string) Constraint { return Enum{Values: values} }

//
// Composites
//

// OneOf accepts a value matching any Variant, tried in order.
type OneOf struct {
	Variants []Node
}

func (*OneOf) Kind() Kind { return KindOneOf }

// Either returns a OneOf over variants.
func Either(variants ...Node) *OneOf { return &OneOf{Variants: variants} }

// UnknownPolicy decides what happens to keys an Object does not declare.
type UnknownPolicy int

const (
	RejectUnknown UnknownPolicy = iota
	IgnoreUnknown
)

// Field is one named entry of an Object.
type Field struct {
	Name     string
	Node     Node
	Required bool
}

// Object accepts a mapping.  Fields keep declaration order.
type Object struct {
	Fields  []Field
	Unknown UnknownPolicy
}

func (*Object) Kind() Kind { return KindObject }

// Lookup returns the declared field called name.
func (o *Object) Lookup(name string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Strict returns an Object that rejects unknown keys.
func Strict(fields ...Field) *Object {
	return &Object{Fields: fields, Unknown: RejectUnknown}
}

// Loose returns an Object that ignores unknown keys.
func Loose(fields ...Field) *Object {
	return &Object{Fields: fields, Unknown: IgnoreUnknown}
}

// Optional declares an optional field.
func Optional(name string, n Node) Field { return Field{Name: name, Node: n} }

// Required declares a required field.
func Required(name string, n Node) Field { return Field{Name: name, Node: n, Required: true} }

// Extend returns a new Object with o's fields followed by extra.  o is not
// modified.
func (o *Object) Extend(extra ...Field) *Object {
	fields := make([]Field, 0, len(o.Fields)+len(extra))
	fields = append(fields, o.Fields...)
	fields = append(fields, extra...)
	return &Object{Fields: fields, Unknown: o.Unknown}
}

// Sequence accepts a list whose every element matches Element.
type Sequence struct {
	Element Node
}

func (*Sequence) Kind() Kind { return KindSequence }

// ListOf returns a Sequence of elem.
func ListOf(elem Node) *Sequence { return &Sequence{Element: elem} }
