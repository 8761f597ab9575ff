// Package codegen lowers an annotated AST into a relocatable object
// module (spec §4.5). The "low-level SSA-style builder" is a hand-rolled
// internal SSA form — basic blocks of three-address instructions — that
// emits a textual module (one line per instruction, LLVM-IR-flavored but
// not LLVM-compatible) as its object-file artifact, since the retrieval
// pack has no Go binding to a real object-file emitter or SSA backend
// and spec.md's Non-goals exclude "the specific native library chosen
// for code emission" (see DESIGN.md).
package codegen

import (
	"fmt"
	"strings"
)

// Module is one compiled object file: function bodies, the interned
// string-literal cache, and the fixed runtime data/import declarations
// spec §4.5 calls for.
type Module struct {
	Functions []*Function
	Literals  []Literal

	litIDs map[string]int
}

// Literal is one interned string-literal data symbol.
type Literal struct {
	ID    int
	Value string
}

// NewModule creates an empty module ready to receive function bodies.
func NewModule() *Module {
	return &Module{litIDs: make(map[string]int)}
}

// InternString returns the data symbol name for s, declaring it on first
// use (spec §4.5: "interned in a per-module cache literal -> data_id").
func (m *Module) InternString(s string) string {
	if id, ok := m.litIDs[s]; ok {
		return literalSymbol(id)
	}
	id := len(m.Literals)
	m.litIDs[s] = id
	m.Literals = append(m.Literals, Literal{ID: id, Value: s})
	return literalSymbol(id)
}

func literalSymbol(id int) string { return fmt.Sprintf("@.str.%d", id) }

// Function is one compiled function: its basic blocks in emission
// order.
type Function struct {
	Name    string
	Params  []FuncParam
	Blocks  []*Block
}

// FuncParam is one lowered function parameter: its register name and
// native kind (spec §4.5: "Float -> f64, everything else -> i64/pointer").
type FuncParam struct {
	Name string
	Kind NativeKind
}

// NativeKind is the native ABI representation an SSA value is carried
// in.
type NativeKind int

const (
	KindI64 NativeKind = iota
	KindF64
)

func (k NativeKind) String() string {
	if k == KindF64 {
		return "f64"
	}
	return "i64"
}

// Block is one labeled basic block of instructions.
type Block struct {
	Label        string
	Instructions []string
	Terminated   bool
}

func (b *Block) emit(instr string) {
	b.Instructions = append(b.Instructions, instr)
}

func (b *Block) terminate(instr string) {
	b.Instructions = append(b.Instructions, instr)
	b.Terminated = true
}

// Runtime imported symbols, per spec §4.5's "External runtime
// interface". These are declared once at the top of every emitted
// module regardless of whether a given function uses all of them, the
// same way a real backend declares extern prototypes up front.
var runtimeDeclarations = []string{
	"declare i32 @printf(i8*, ...)",
	"declare i8* @malloc(i64)",
	"declare i8* @realloc(i8*, i64)",
	"declare i8* @memmove(i8*, i8*, i64)",
	"declare i32 @strcmp(i8*, i8*)",
	"declare i8* @gul_string_concat(i8*, i8*)",
	"declare i8* @gul_int_to_string(i64)",
	"declare i8* @gul_float_to_string(f64)",
	"declare i32 @gul_print_float(f64)",
}

var runtimeDataSymbols = []string{
	`@.fmt.int = constant [5 x i8] c"%ld\0A\00"`,
	`@.fmt.str = constant [4 x i8] c"%s\0A\00"`,
	`@.bool.true = constant [5 x i8] c"true\00"`,
	`@.bool.false = constant [6 x i8] c"false\00"`,
}

// String renders the module as the textual object-file artifact spec
// §4.5 describes: a flat, linear listing of declarations, data symbols,
// then function bodies, in that order, each function's blocks in
// emission order.
func (m *Module) String() string {
	var sb strings.Builder
	for _, d := range runtimeDeclarations {
		sb.WriteString(d)
		sb.WriteByte('\n')
	}
	for _, d := range runtimeDataSymbols {
		sb.WriteString(d)
		sb.WriteByte('\n')
	}
	for _, lit := range m.Literals {
		fmt.Fprintf(&sb, "%s = constant [%d x i8] c%q\n", literalSymbol(lit.ID), len(lit.Value)+1, lit.Value+"\x00")
	}
	for _, fn := range m.Functions {
		sb.WriteByte('\n')
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = fmt.Sprintf("%s %%%s", p.Kind, p.Name)
		}
		fmt.Fprintf(&sb, "define i64 @%s(%s) {\n", fn.Name, strings.Join(params, ", "))
		for _, b := range fn.Blocks {
			fmt.Fprintf(&sb, "%s:\n", b.Label)
			for _, instr := range b.Instructions {
				sb.WriteString("  ")
				sb.WriteString(instr)
				sb.WriteByte('\n')
			}
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
