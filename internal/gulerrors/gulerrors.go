// Package gulerrors defines the error taxonomy shared by every pass of the
// gul toolchain: lexer, parser, semantic analyzer, ownership checker, code
// generator, and the two runtimes (VM and interpreter).
//
// Each kind is its own type rather than a single generic "CompileError" so
// that a caller can use errors.As to recover the structured fields specific
// to that pass (line/column for the front end, node/port for ownership
// errors, and so on). Format renders any of them as the CLI's
// "<Kind>: <detail> [at LINE:COL or node:port]" diagnostic; a detail
// longer than diagWidth columns is wrapped onto further lines.
package gulerrors

import (
	"fmt"

	"github.com/dekarrin/rosed"
)

// diagWidth is the terminal width diagnostics are wrapped to before being
// handed to the CLI.
const diagWidth = 80

// LexicalError is an error produced while scanning source text into tokens:
// an unterminated string literal, an unexpected character, or an
// indentation level that does not match any open level on the stack.
type LexicalError struct {
	Line   int
	Col    int
	Detail string
}

func Lexical(line, col int, format string, a ...interface{}) *LexicalError {
	return &LexicalError{Line: line, Col: col, Detail: fmt.Sprintf(format, a...)}
}

func (e *LexicalError) Error() string {
	return Format("LexicalError", e.Detail, fmt.Sprintf("%d:%d", e.Line, e.Col))
}

// SyntaxError is an error produced while parsing a token stream into an
// AST: an unexpected token or a missing required keyword or operator.
type SyntaxError struct {
	Line   int
	Col    int
	Detail string
}

func Syntax(line, col int, format string, a ...interface{}) *SyntaxError {
	return &SyntaxError{Line: line, Col: col, Detail: fmt.Sprintf(format, a...)}
}

func (e *SyntaxError) Error() string {
	return Format("SyntaxError", e.Detail, fmt.Sprintf("%d:%d", e.Line, e.Col))
}

// SemanticError is an error found during scope resolution or type
// inference: an undefined symbol, await outside an async function, a
// duplicate binding, or a type mismatch against an annotation.
type SemanticError struct {
	Line   int
	Col    int
	Detail string
}

func Semantic(line, col int, format string, a ...interface{}) *SemanticError {
	return &SemanticError{Line: line, Col: col, Detail: fmt.Sprintf(format, a...)}
}

func (e *SemanticError) Error() string {
	return Format("SemanticError", e.Detail, fmt.Sprintf("%d:%d", e.Line, e.Col))
}

// OwnershipCode is one of the four fixed ownership-checker diagnostic codes
// from spec §4.4/§7.
type OwnershipCode string

const (
	// E001 marks an Own output port with no outgoing edge (mandatory
	// consumption violated).
	E001 OwnershipCode = "E001"
	// E002 marks a second ownership-moving edge leaving a port already moved
	// (double move).
	E002 OwnershipCode = "E002"
	// E003 marks a non-moving edge reading a port whose value was already
	// moved (use-after-move).
	E003 OwnershipCode = "E003"
	// E201 marks a graph that is not a DAG.
	E201 OwnershipCode = "E201"
)

// OwnershipError is a violation of the IR's ownership invariants, always
// anchored at a specific node and (when applicable) a specific port on it.
type OwnershipError struct {
	Code       OwnershipCode
	Node       string
	Port       string
	Suggestion string
}

func Ownership(code OwnershipCode, node, port, suggestion string) *OwnershipError {
	return &OwnershipError{Code: code, Node: node, Port: port, Suggestion: suggestion}
}

func (e *OwnershipError) Error() string {
	detail := string(e.Code) + ": " + e.detailMessage()
	if e.Suggestion != "" {
		detail += " (" + e.Suggestion + ")"
	}
	loc := e.Node
	if e.Port != "" {
		loc += ":" + e.Port
	}
	return Format("OwnershipError", detail, loc)
}

func (e *OwnershipError) detailMessage() string {
	switch e.Code {
	case E001:
		return "owned output has no outgoing edge"
	case E002:
		return "output moved twice"
	case E003:
		return "borrow of a value after it was moved"
	case E201:
		return "graph contains cycles"
	default:
		return "ownership violation"
	}
}

// CodegenError is a failure to lower an annotated AST to the low-level SSA
// builder: a symbol declaration failure, malformed control flow, or a call
// site the code generator has no lowering for.
type CodegenError struct {
	Function string
	Detail   string
}

func Codegen(function, format string, a ...interface{}) *CodegenError {
	return &CodegenError{Function: function, Detail: fmt.Sprintf(format, a...)}
}

func (e *CodegenError) Error() string {
	return Format("CodegenError", e.Detail, e.Function)
}

// RuntimeError is a failure during execution of either the VM or the
// interpreter: division by zero, an undefined dynamic-scope variable, a
// type mismatch at a built-in, or an out-of-range index.
type RuntimeError struct {
	Detail string
	wrap   error
}

func Runtime(format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{Detail: fmt.Sprintf(format, a...)}
}

// WrapRuntime returns a RuntimeError that wraps a lower-level error, such as
// one or more worker errors collected from a parallel `for`.
func WrapRuntime(err error, format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{Detail: fmt.Sprintf(format, a...), wrap: err}
}

func (e *RuntimeError) Error() string {
	return Format("RuntimeError", e.Detail, "")
}

func (e *RuntimeError) Unwrap() error {
	return e.wrap
}

// Format renders a diagnostic in the CLI's form:
//
//	<Kind>: <detail> [at LOCATION]
//
// detail is word-wrapped to diagWidth before being placed in the message,
// so a detail longer than diagWidth makes the diagnostic span several
// lines; location is omitted entirely when empty.
func Format(kind, detail, location string) string {
	wrapped := rosed.Edit(detail).Wrap(diagWidth).String()
	if location == "" {
		return fmt.Sprintf("%s: %s", kind, wrapped)
	}
	return fmt.Sprintf("%s: %s [at %s]", kind, wrapped, location)
}
