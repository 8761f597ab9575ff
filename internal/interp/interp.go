// Package interp implements gul's tree-walk interpreter (spec §4.7): it
// executes the annotated AST directly, with two features the static
// path lacks — data-parallel for (also_for) and forward-mode automatic
// differentiation (grad).
package interp

import (
	"fmt"
	"io"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

// flowKind discriminates the ControlFlow values of spec §4.7.
type flowKind int

const (
	flowNext flowKind = iota
	flowReturn
	flowBreak
	flowContinue
)

// ControlFlow is the value every statement-executing method returns:
// one of Next, Return(v), Break, Continue (spec §4.7).
type ControlFlow struct {
	kind  flowKind
	value gulvalue.Value
}

var cfNext = ControlFlow{kind: flowNext}
var cfBreak = ControlFlow{kind: flowBreak}
var cfContinue = ControlFlow{kind: flowContinue}

func cfReturn(v gulvalue.Value) ControlFlow { return ControlFlow{kind: flowReturn, value: v} }

func (c ControlFlow) IsReturn() bool   { return c.kind == flowReturn }
func (c ControlFlow) IsBreak() bool    { return c.kind == flowBreak }
func (c ControlFlow) IsContinue() bool { return c.kind == flowContinue }
func (c ControlFlow) IsNext() bool     { return c.kind == flowNext }
func (c ControlFlow) Value() gulvalue.Value { return c.value }

// thrown is an internal control-transfer error used to implement
// throw/try/catch without threading an extra return value through every
// exec method; it is always unwrapped at the nearest enclosing Try.
type thrown struct {
	value gulvalue.Value
}

func (t *thrown) Error() string { return "uncaught throw: " + t.value.Str() }

// Interpreter holds the global frame and program-wide declarations
// (functions and struct shapes) needed to execute a Program.
type Interpreter struct {
	global  *Frame
	funcs   map[string]*ast.FuncDecl
	structs map[string]*ast.StructDecl
	out     io.Writer
}

// New creates an Interpreter that writes print() output to out.
func New(out io.Writer) *Interpreter {
	in := &Interpreter{
		global:  NewFrame(nil),
		funcs:   make(map[string]*ast.FuncDecl),
		structs: make(map[string]*ast.StructDecl),
		out:     out,
	}
	in.registerBuiltins()
	return in
}

// Run executes prog's top-level declarations and its mn: block. Per
// spec §4.7's failure policy, the first runtime error halts execution.
func (in *Interpreter) Run(prog *ast.Program) error {
	var mainBlocks []*ast.MainBlock
	for _, s := range prog.Statements {
		switch n := s.(type) {
		case *ast.FuncDecl:
			in.funcs[n.Name] = n
		case *ast.StructDecl:
			in.structs[n.Name] = n
		case *ast.MainBlock:
			mainBlocks = append(mainBlocks, n)
		}
	}

	for _, mn := range mainBlocks {
		frame := NewFrame(in.global)
		cf, err := in.execBlock(mn.Body, frame)
		if err != nil {
			return err
		}
		if cf.IsReturn() {
			break
		}
	}
	return nil
}

func (in *Interpreter) execBlock(stmts []ast.Stmt, frame *Frame) (ControlFlow, error) {
	for _, s := range stmts {
		cf, err := in.execStmt(s, frame)
		if err != nil {
			return cfNext, err
		}
		if !cf.IsNext() {
			return cf, nil
		}
	}
	return cfNext, nil
}

func (in *Interpreter) execStmt(s ast.Stmt, frame *Frame) (ControlFlow, error) {
	switch n := s.(type) {
	case *ast.VarDecl:
		v, err := in.eval(n.Value, frame)
		if err != nil {
			return cfNext, err
		}
		frame.Declare(n.Name, v)
		return cfNext, nil

	case *ast.Assign:
		v, err := in.eval(n.Value, frame)
		if err != nil {
			return cfNext, err
		}
		if !frame.Set(n.Name, v) {
			return cfNext, gulerrors.Runtime("undefined variable %q in dynamic scope", n.Name)
		}
		return cfNext, nil

	case *ast.IndexAssign:
		return in.execIndexAssign(n, frame)

	case *ast.ExprStmt:
		_, err := in.eval(n.X, frame)
		return cfNext, err

	case *ast.FuncDecl, *ast.StructDecl, *ast.Import:
		return cfNext, nil

	case *ast.MainBlock:
		return in.execBlock(n.Body, NewFrame(frame))

	case *ast.If:
		return in.execIf(n, frame)

	case *ast.While:
		for {
			cond, err := in.eval(n.Cond, frame)
			if err != nil {
				return cfNext, err
			}
			if !cond.Bool() {
				break
			}
			cf, err := in.execBlock(n.Body, NewFrame(frame))
			if err != nil {
				return cfNext, err
			}
			if cf.IsBreak() {
				break
			}
			if cf.IsReturn() {
				return cf, nil
			}
		}
		return cfNext, nil

	case *ast.Loop:
		for {
			cf, err := in.execBlock(n.Body, NewFrame(frame))
			if err != nil {
				return cfNext, err
			}
			if cf.IsBreak() {
				break
			}
			if cf.IsReturn() {
				return cf, nil
			}
		}
		return cfNext, nil

	case *ast.For:
		return in.execFor(n, frame)

	case *ast.Match:
		return in.execMatch(n, frame)

	case *ast.Break:
		return cfBreak, nil
	case *ast.Continue:
		return cfContinue, nil

	case *ast.Return:
		if n.Value == nil {
			return cfReturn(gulvalue.NewNull()), nil
		}
		v, err := in.eval(n.Value, frame)
		if err != nil {
			return cfNext, err
		}
		return cfReturn(v), nil

	case *ast.Try:
		return in.execTry(n, frame)

	case *ast.Throw:
		v, err := in.eval(n.Value, frame)
		if err != nil {
			return cfNext, err
		}
		return cfNext, &thrown{value: v}

	case *ast.ForeignBlock:
		return cfNext, in.execForeign(n)

	default:
		return cfNext, gulerrors.Runtime("internal: unhandled statement kind %T", s)
	}
}

func (in *Interpreter) execIf(n *ast.If, frame *Frame) (ControlFlow, error) {
	cond, err := in.eval(n.Cond, frame)
	if err != nil {
		return cfNext, err
	}
	if cond.Bool() {
		return in.execBlock(n.Then, NewFrame(frame))
	}
	for _, el := range n.Elifs {
		c, err := in.eval(el.Cond, frame)
		if err != nil {
			return cfNext, err
		}
		if c.Bool() {
			return in.execBlock(el.Body, NewFrame(frame))
		}
	}
	if n.HasElse {
		return in.execBlock(n.Else, NewFrame(frame))
	}
	return cfNext, nil
}

func (in *Interpreter) execIndexAssign(n *ast.IndexAssign, frame *Frame) (ControlFlow, error) {
	target, err := in.eval(n.Target, frame)
	if err != nil {
		return cfNext, err
	}
	key, err := in.eval(n.Key, frame)
	if err != nil {
		return cfNext, err
	}
	val, err := in.eval(n.Value, frame)
	if err != nil {
		return cfNext, err
	}

	switch target.Kind {
	case gulvalue.List, gulvalue.Set:
		idx := int(key.Int())
		items := target.List()
		if idx < 0 || idx >= len(items) {
			return cfNext, gulerrors.Runtime("index %d out of range", idx)
		}
		items[idx] = val
	case gulvalue.Dict:
		updated := target.DictSet(key, val)
		target.SetDict(updated.Dict())
	default:
		return cfNext, gulerrors.Runtime("cannot index-assign into a %s", target.KindName())
	}

	if ident, ok := n.Target.(*ast.Ident); ok {
		frame.Set(ident.Name, target)
	}
	return cfNext, nil
}

func (in *Interpreter) execTry(n *ast.Try, frame *Frame) (ControlFlow, error) {
	cf, err := in.execBlock(n.Body, NewFrame(frame))

	if t, ok := err.(*thrown); ok && n.HasCatch {
		catchFrame := NewFrame(frame)
		catchFrame.Declare(n.CatchName, t.value)
		cf, err = in.execBlock(n.CatchBody, catchFrame)
	} else if err != nil {
		if _, isThrow := err.(*thrown); !isThrow {
			// a RuntimeError also recovers into catch, per spec §4.7:
			// "try/catch recovers" is not limited to throw.
			if n.HasCatch {
				catchFrame := NewFrame(frame)
				catchFrame.Declare(n.CatchName, gulvalue.NewString(err.Error()))
				cf, err = in.execBlock(n.CatchBody, catchFrame)
			}
		}
	}

	if n.HasFinally {
		fcf, ferr := in.execBlock(n.FinallyBody, NewFrame(frame))
		if ferr != nil {
			return cfNext, ferr
		}
		if !fcf.IsNext() {
			return fcf, nil
		}
	}

	return cf, err
}

func (in *Interpreter) execForeign(n *ast.ForeignBlock) error {
	return runForeign(n.Language, n.Code, in.out)
}

func (in *Interpreter) registerBuiltins() {
	in.global.Declare("print", gulvalue.NewNative(in.builtinPrint))
}

func (in *Interpreter) builtinPrint(args []gulvalue.Value) (gulvalue.Value, error) {
	for _, a := range args {
		fmt.Fprintln(in.out, a.Str())
	}
	return gulvalue.NewNull(), nil
}
