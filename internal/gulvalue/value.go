// Package gulvalue holds the runtime Value tagged union shared by the
// ownership-aware VM and the tree-walk interpreter (spec §3, "Runtime
// value"). It is grounded on tunascript/syntax's Value struct: a
// discriminant field plus one populated field per Kind, rather than an
// interface{} or a NaN-boxed representation, matching spec §9's "(b)
// discriminated struct for clarity" choice.
package gulvalue

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Int
	Float
	String
	Bool
	List
	Dict
	Set
	Object
	Function
	NativeFunction
	Lambda
	Dual
)

// NativeFn is the Go implementation behind a NativeFunction value, such as
// a built-in the interpreter exposes (print, len, push, ...).
type NativeFn func(args []Value) (Value, error)

// Value is a single dynamically-typed runtime value. Only the field(s)
// belonging to Kind are meaningful; the rest hold their zero value.
//
// Value deliberately has no comparable-map-key representation: a List or
// Dict value holds other Values by slice, which makes the Go built-in map
// type unusable with Value as a key. Dict instead stores its pairs as an
// ordered slice of DictEntry, addressed by the same key-identity rule spec
// §4.5/§9 gives the native code generator's linear scan (strcmp for String
// keys, 64-bit identity otherwise) via keyID, so the VM, the interpreter,
// and the code generator all agree on what "the same key" means.
type Value struct {
	Kind Kind

	i      int64
	f      float64
	s      string
	b      bool
	list   []Value
	dict   []DictEntry
	object *ObjectData
	fn     *FuncData
	native NativeFn
	dual   *DualData
}

// DictEntry is one key/value pair of a Dict value.
type DictEntry struct {
	Key Value
	Val Value
}

// keyID returns the canonical identity string spec §9's "dict key
// identity" design note assigns to a key: strcmp-equivalent for String
// keys, 64-bit bit-pattern identity (as a formatted integer) otherwise,
// so two Float keys with the same bits compare equal and two with
// different bits never accidentally collide through string formatting.
func keyID(k Value) string {
	switch k.Kind {
	case String:
		return "s:" + k.s
	case Float:
		return fmt.Sprintf("n:%d", int64(math.Float64bits(k.f)))
	default:
		return fmt.Sprintf("n:%d", k.Int())
	}
}

// ObjectData is the field map backing an Object value, keyed by struct type
// name.
type ObjectData struct {
	TypeName string
	Fields   map[string]Value
}

// FuncData backs both Function and Lambda values: a list of parameter
// names, the body to evaluate, and the defining environment for closures.
// Body is declared as interface{} here because gulvalue sits below the AST
// package in the import graph; the interpreter type-asserts it back to an
// *ast.FuncDecl or *ast.Lambda before executing it.
type FuncData struct {
	Params []string
	Body   interface{}
	Env    interface{}
}

// DualData backs a Dual value used by forward-mode automatic
// differentiation: a value paired with its derivative with respect to the
// single parameter grad() is tracking.
type DualData struct {
	Value      float64
	Derivative float64
}

func NewNull() Value                { return Value{Kind: Null} }
func NewInt(i int64) Value          { return Value{Kind: Int, i: i} }
func NewFloat(f float64) Value      { return Value{Kind: Float, f: f} }
func NewString(s string) Value      { return Value{Kind: String, s: s} }
func NewBool(b bool) Value          { return Value{Kind: Bool, b: b} }
func NewList(items []Value) Value   { return Value{Kind: List, list: items} }
func NewSet(items []Value) Value    { return Value{Kind: Set, list: items} }
func NewNative(fn NativeFn) Value   { return Value{Kind: NativeFunction, native: fn} }

func NewDict(entries []DictEntry) Value {
	return Value{Kind: Dict, dict: entries}
}

// DictGet looks up key using the keyID identity rule, returning the stored
// value and whether it was present.
func (v Value) DictGet(key Value) (Value, bool) {
	id := keyID(key)
	for _, e := range v.dict {
		if keyID(e.Key) == id {
			return e.Val, true
		}
	}
	return NewNull(), false
}

// DictSet returns a new Dict value with key bound to val, replacing any
// existing entry with the same identity (append-or-replace, matching the
// native code generator's linear-scan semantics).
func (v Value) DictSet(key, val Value) Value {
	id := keyID(key)
	entries := make([]DictEntry, 0, len(v.dict)+1)
	replaced := false
	for _, e := range v.dict {
		if keyID(e.Key) == id {
			entries = append(entries, DictEntry{Key: key, Val: val})
			replaced = true
		} else {
			entries = append(entries, e)
		}
	}
	if !replaced {
		entries = append(entries, DictEntry{Key: key, Val: val})
	}
	return NewDict(entries)
}

func NewObject(typeName string, fields map[string]Value) Value {
	return Value{Kind: Object, object: &ObjectData{TypeName: typeName, Fields: fields}}
}

func NewFunction(params []string, body, env interface{}) Value {
	return Value{Kind: Function, fn: &FuncData{Params: params, Body: body, Env: env}}
}

func NewLambda(params []string, body, env interface{}) Value {
	return Value{Kind: Lambda, fn: &FuncData{Params: params, Body: body, Env: env}}
}

func NewDual(value, derivative float64) Value {
	return Value{Kind: Dual, dual: &DualData{Value: value, Derivative: derivative}}
}

func (v Value) Int() int64 {
	switch v.Kind {
	case Float:
		return int64(v.f)
	case Bool:
		if v.b {
			return 1
		}
		return 0
	case Dual:
		return int64(v.dual.Value)
	default:
		return v.i
	}
}

func (v Value) Float() float64 {
	switch v.Kind {
	case Int:
		return float64(v.i)
	case Bool:
		if v.b {
			return 1
		}
		return 0
	case Dual:
		return v.dual.Value
	default:
		return v.f
	}
}

func (v Value) Bool() bool {
	switch v.Kind {
	case Int:
		return v.i != 0
	case Float:
		return v.f != 0
	case String:
		return v.s != ""
	case Null:
		return false
	default:
		return v.b
	}
}

func (v Value) Str() string {
	switch v.Kind {
	case String:
		return v.s
	case Int:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return fmt.Sprintf("%g", v.f)
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Null:
		return "null"
	case List, Set:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Str()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Dict:
		return v.dictString()
	case Object:
		return v.object.TypeName + "{...}"
	case Dual:
		return fmt.Sprintf("%g", v.dual.Value)
	default:
		return fmt.Sprintf("<%s>", v.KindName())
	}
}

func (v Value) dictString() string {
	entries := append([]DictEntry(nil), v.dict...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key.Str() < entries[j].Key.Str() })

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s: %s", e.Key.Str(), e.Val.Str())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (v Value) List() []Value { return v.list }

// SetList replaces the backing slice of a List or Set value. Used by
// collection built-ins (push, pop, insertbefore, ...) that must rebuild the
// slice without allocating a brand new tagged Value.
func (v *Value) SetList(items []Value) { v.list = items }

// Dict returns the dict's entries in insertion order.
func (v Value) Dict() []DictEntry { return v.dict }

// SetDict replaces the backing entries of a Dict value.
func (v *Value) SetDict(entries []DictEntry) { v.dict = entries }

func (v Value) Object() *ObjectData { return v.object }

func (v Value) Func() *FuncData { return v.fn }

func (v Value) Native() NativeFn { return v.native }

func (v Value) DualParts() (value, derivative float64) {
	if v.Kind == Dual {
		return v.dual.Value, v.dual.Derivative
	}
	return v.Float(), 0
}

func (v Value) KindName() string {
	switch v.Kind {
	case Null:
		return "Null"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Bool:
		return "Bool"
	case List:
		return "List"
	case Dict:
		return "Dict"
	case Set:
		return "Set"
	case Object:
		return "Object"
	case Function:
		return "Function"
	case NativeFunction:
		return "NativeFunction"
	case Lambda:
		return "Lambda"
	case Dual:
		return "Dual"
	default:
		return "?"
	}
}

// Equal implements structural equality on matching tags, per spec §3: two
// Values are Equal only if their Kind matches and their payload matches.
// No implicit coercion is performed here (that's EqualTo, used by the
// interpreter's `==` operator, which coerces the way tunascript's Value.
// EqualTo does).
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Null:
		return true
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case String:
		return v.s == o.s
	case Bool:
		return v.b == o.b
	case List, Set:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case Dict:
		if len(v.dict) != len(o.dict) {
			return false
		}
		for _, e := range v.dict {
			oval, ok := o.DictGet(e.Key)
			if !ok || !e.Val.Equal(oval) {
				return false
			}
		}
		return true
	case Object:
		if v.object == o.object {
			return true
		}
		if v.object == nil || o.object == nil {
			return false
		}
		if v.object.TypeName != o.object.TypeName {
			return false
		}
		if len(v.object.Fields) != len(o.object.Fields) {
			return false
		}
		for name, val := range v.object.Fields {
			oval, ok := o.object.Fields[name]
			if !ok || !val.Equal(oval) {
				return false
			}
		}
		return true
	case Dual:
		return v.dual.Value == o.dual.Value && v.dual.Derivative == o.dual.Derivative
	default:
		return v.fn == o.fn
	}
}

// EqualTo applies gul's `==` coercion rule: comparisons always happen in
// the type of the left operand, exactly as tunascript.Value.EqualTo does.
func (v Value) EqualTo(o Value) Value {
	switch v.Kind {
	case String:
		return NewBool(v.Str() == o.Str())
	case Bool:
		return NewBool(v.Bool() == o.Bool())
	case Float:
		return NewBool(v.Float() == o.Float())
	default:
		return NewBool(v.Int() == o.Int())
	}
}
