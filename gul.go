// Package gul contains the front-end pipeline (lex, parse, analyze)
// shared by the gulc compiler and the guli interpreter/REPL, and a
// Session type for running gul source incrementally the way
// tunaq.Engine runs a game from an interactive shell.
package gul

import (
	"fmt"
	"io"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/codegen"
	"github.com/dekarrin/gul/internal/interp"
	"github.com/dekarrin/gul/internal/parser"
	"github.com/dekarrin/gul/internal/sema"
)

// Parse runs the lex/parse/analyze pipeline over src (parser.Parse
// lexes internally) and returns the type-annotated AST. The first
// front-end error encountered (lexical, syntactic, or the first of any
// semantic errors) is returned; semantic analysis collects all of its
// errors but only the first is surfaced here; callers that need the
// full batch should call sema.Analyze themselves.
func Parse(src string) (*ast.Program, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}

	if errs := sema.Analyze(prog); len(errs) > 0 {
		return nil, errs[0]
	}

	return prog, nil
}

// Compile runs the full front end and lowers the result through the
// native code generator, returning the rendered module text.
func Compile(src string) (string, error) {
	prog, err := Parse(src)
	if err != nil {
		return "", err
	}
	mod, err := codegen.Generate(prog)
	if err != nil {
		return "", err
	}
	return mod.String(), nil
}

// Session runs gul source incrementally against one persistent
// interpreter, the way tunaq.Engine advances one game.State across many
// player commands: functions and struct declarations submitted in one
// chunk stay visible to every later chunk, each chunk's `mn:` block runs
// in its own fresh scope under the shared global frame.
type Session struct {
	interp *interp.Interpreter
}

// NewSession creates a Session whose interpreter writes program output
// to out.
func NewSession(out io.Writer) *Session {
	return &Session{interp: interp.New(out)}
}

// Eval parses src and runs it against the session's interpreter. A
// front-end error is returned without touching the running session.
func (s *Session) Eval(src string) error {
	prog, err := Parse(src)
	if err != nil {
		return err
	}
	return s.interp.Run(prog)
}

// Run parses and interprets a full source program in one shot, as guli
// does for a FILE argument.
func Run(src string, out io.Writer) error {
	return NewSession(out).Eval(src)
}

// FormatDiagnostic renders err as the CLI's "error: " diagnostic, shared
// by gulc and guli so both binaries report errors identically.
func FormatDiagnostic(err error) string {
	return fmt.Sprintf("error: %s", err.Error())
}
