// Package gultype holds the structural type-term algebra shared by the
// semantic analyzer, the ownership checker, the code generator, and both
// runtimes. Terms are compared by value (two List(Int) terms are Equal
// regardless of where they were constructed), matching the "structural and
// compared by value" rule of spec §3.
package gultype

import "fmt"

// Kind discriminates the term variants of a Type.
type Kind int

const (
	Unknown Kind = iota
	Int
	Float
	String
	Bool
	List
	Dict
	Set
	Tuple
	Option
	Unit
	Function
	Any
)

// Type is a single structural type term. Only the fields relevant to Kind
// are populated; the rest are zero. This mirrors the discriminant-plus-
// payload shape gultype's sibling package gulvalue uses for runtime values,
// which is itself grounded on tunascript/syntax's Value struct.
type Type struct {
	Kind Kind

	// Elem is the element type for List and Option, and the value type for
	// Dict.
	Elem *Type

	// Key is the key type for Dict.
	Key *Type

	// Members is the component types for Tuple, and the parameter types for
	// Function.
	Members []Type

	// Result is the return type for Function.
	Result *Type

	// Name is the declared name for Unit (a struct type).
	Name string
}

func Of(k Kind) Type { return Type{Kind: k} }

func NewList(elem Type) Type { return Type{Kind: List, Elem: &elem} }

func NewDict(key, val Type) Type { return Type{Kind: Dict, Key: &key, Elem: &val} }

func NewSet(elem Type) Type { return Type{Kind: Set, Elem: &elem} }

func NewTuple(members ...Type) Type { return Type{Kind: Tuple, Members: members} }

func NewOption(elem Type) Type { return Type{Kind: Option, Elem: &elem} }

func NewUnit(name string) Type { return Type{Kind: Unit, Name: name} }

func NewFunction(params []Type, result Type) Type {
	return Type{Kind: Function, Members: params, Result: &result}
}

// IsNumeric returns whether t is Int or Float, the two types arithmetic
// operators accept without an explicit coercion rule.
func (t Type) IsNumeric() bool {
	return t.Kind == Int || t.Kind == Float
}

// Equal reports whether t and o denote the same structural type. Unknown is
// only ever Equal to Unknown: it is a placeholder, not a wildcard.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}

	switch t.Kind {
	case List, Set, Option:
		return t.Elem.Equal(*o.Elem)
	case Dict:
		return t.Key.Equal(*o.Key) && t.Elem.Equal(*o.Elem)
	case Tuple:
		if len(t.Members) != len(o.Members) {
			return false
		}
		for i := range t.Members {
			if !t.Members[i].Equal(o.Members[i]) {
				return false
			}
		}
		return true
	case Unit:
		return t.Name == o.Name
	case Function:
		if len(t.Members) != len(o.Members) {
			return false
		}
		for i := range t.Members {
			if !t.Members[i].Equal(o.Members[i]) {
				return false
			}
		}
		return t.Result.Equal(*o.Result)
	default:
		return true
	}
}

// String gives a human-readable rendering of t, used in diagnostics.
func (t Type) String() string {
	switch t.Kind {
	case Unknown:
		return "Unknown"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Bool:
		return "Bool"
	case Any:
		return "Any"
	case List:
		return fmt.Sprintf("List(%s)", t.Elem)
	case Set:
		return fmt.Sprintf("Set(%s)", t.Elem)
	case Option:
		return fmt.Sprintf("Option(%s)", t.Elem)
	case Dict:
		return fmt.Sprintf("Dict(%s,%s)", t.Key, t.Elem)
	case Tuple:
		return fmt.Sprintf("Tuple(%v)", t.Members)
	case Unit:
		return t.Name
	case Function:
		return fmt.Sprintf("Function(%v->%s)", t.Members, t.Result)
	default:
		return "?"
	}
}
