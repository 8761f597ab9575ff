// Package sema implements gul's semantic analyzer (spec §4.3): scope
// resolution and bottom-up type inference over a parsed Program,
// producing an annotated AST (each Expr's type slot filled in) plus a
// batch of diagnostics.
//
// The bottom-up walk — each node's type computed from its already-typed
// children — is grounded on internal/ictiobus/translation's synthesized-
// attribute evaluation over a parse tree (now dropped from the tree; the
// idiom is re-expressed here directly over the AST rather than an SDTS).
package sema

import (
	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
	"github.com/dekarrin/gul/internal/util"
)

// symbol is what a scope binds a name to.
type symbol struct {
	Type      gultype.Type
	IsMutable bool
}

// scope is one flat frame of the lexical scope stack.
type scope struct {
	names util.SVSet[symbol]
}

func newScope() *scope { return &scope{names: util.NewSVSet[symbol]()} }

// Analyzer walks a Program, filling in Expr type slots and collecting
// diagnostics. Per spec §4.3, "the analyzer returns all errors at once":
// a failed check never stops the walk early.
type Analyzer struct {
	scopes  []*scope
	errs    []error
	inAsync []bool
	structs map[string]*ast.StructDecl
	funcs   map[string]*ast.FuncDecl
}

// Analyze runs the semantic analyzer over prog, returning the batch of
// diagnostics found (empty if the program is sound).
func Analyze(prog *ast.Program) []error {
	a := &Analyzer{
		structs: make(map[string]*ast.StructDecl),
		funcs:   make(map[string]*ast.FuncDecl),
	}
	a.pushScope()
	a.registerBuiltins()

	// top-level struct/fn declarations are visible to each other and to
	// mn regardless of source order, so collect their signatures first.
	for _, s := range prog.Statements {
		switch n := s.(type) {
		case *ast.StructDecl:
			a.structs[n.Name] = n
		case *ast.FuncDecl:
			a.funcs[n.Name] = n
			a.declareFunc(n)
		}
	}

	for _, s := range prog.Statements {
		a.walkStmt(s)
	}

	a.popScope()
	return a.errs
}

func (a *Analyzer) error(err error) { a.errs = append(a.errs, err) }

func (a *Analyzer) pushScope() { a.scopes = append(a.scopes, newScope()) }
func (a *Analyzer) popScope()  { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *Analyzer) top() *scope { return a.scopes[len(a.scopes)-1] }

// declare binds name in the current scope. Duplicate binding within the
// same scope is an error (spec §4.3).
func (a *Analyzer) declare(pos ast.Position, name string, ty gultype.Type, mutable bool) {
	s := a.top()
	if s.names.Has(name) {
		a.error(gulerrors.Semantic(pos.Line, pos.Col, "%q is already declared in this scope", name))
		return
	}
	s.names.Set(name, symbol{Type: ty, IsMutable: mutable})
}

// lookup walks the scope stack top-down, per spec §4.3.
func (a *Analyzer) lookup(name string) (symbol, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if a.scopes[i].names.Has(name) {
			return a.scopes[i].names.Get(name), true
		}
	}
	return symbol{}, false
}

func (a *Analyzer) declareFunc(fn *ast.FuncDecl) {
	params := make([]gultype.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type
	}
	result := gultype.Of(gultype.Unknown)
	if fn.HasResult {
		result = fn.Result
	}
	a.declare(fn.Pos(), fn.Name, gultype.NewFunction(params, result), false)
}

// builtinSignatures lists the fixed-return-type built-ins spec §4.3
// calls out ("unless the callee is a known built-in with a fixed return
// type"). print returns Unit; len-style accessors the interpreter
// exposes as methods are resolved through Member, not here.
var builtinSignatures = map[string]gultype.Type{
	"print": gultype.Of(gultype.Unit),
	"car":   gultype.Of(gultype.Unknown),
	"cdr":   gultype.Of(gultype.Unknown),
	"cons":  gultype.Of(gultype.Unknown),
	"grad":  gultype.Of(gultype.Float),
}

func (a *Analyzer) registerBuiltins() {
	for name, ty := range builtinSignatures {
		a.declare(ast.Position{}, name, gultype.NewFunction(nil, ty), false)
	}
}

func (a *Analyzer) inAsyncFn() bool {
	return len(a.inAsync) > 0 && a.inAsync[len(a.inAsync)-1]
}

// ---- Statements ----

func (a *Analyzer) walkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		a.walkExpr(n.Value)
		ty := n.Value.ExprType()
		if n.HasAnnotation {
			if !n.Annotated.Equal(ty) && ty.Kind != gultype.Unknown {
				a.error(gulerrors.Semantic(n.Pos().Line, n.Pos().Col,
					"cannot assign %s to variable %q annotated %s", ty, n.Name, n.Annotated))
			}
			ty = n.Annotated
		}
		a.declare(n.Pos(), n.Name, ty, n.Mutable)

	case *ast.Assign:
		sym, ok := a.lookup(n.Name)
		if !ok {
			a.error(gulerrors.Semantic(n.Pos().Line, n.Pos().Col, "undefined symbol %q", n.Name))
		} else if !sym.IsMutable {
			a.error(gulerrors.Semantic(n.Pos().Line, n.Pos().Col, "cannot assign to immutable binding %q", n.Name))
		}
		a.walkExpr(n.Value)

	case *ast.IndexAssign:
		a.walkExpr(n.Target)
		a.walkExpr(n.Key)
		a.walkExpr(n.Value)

	case *ast.ExprStmt:
		a.walkExpr(n.X)

	case *ast.FuncDecl:
		a.pushScope()
		a.inAsync = append(a.inAsync, n.Async)
		for _, p := range n.Params {
			a.declare(n.Pos(), p.Name, p.Type, false)
		}
		for _, body := range n.Body {
			a.walkStmt(body)
		}
		a.inAsync = a.inAsync[:len(a.inAsync)-1]
		a.popScope()

	case *ast.MainBlock:
		a.pushScope()
		a.inAsync = append(a.inAsync, false)
		for _, body := range n.Body {
			a.walkStmt(body)
		}
		a.inAsync = a.inAsync[:len(a.inAsync)-1]
		a.popScope()

	case *ast.StructDecl:
		for _, m := range n.Methods {
			a.walkStmt(m)
		}

	case *ast.Import:
		// nothing to resolve at the semantic layer; module resolution is
		// a build-graph concern outside the analyzer's scope.

	case *ast.If:
		a.walkExpr(n.Cond)
		a.walkBlock(n.Then)
		for _, el := range n.Elifs {
			a.walkExpr(el.Cond)
			a.walkBlock(el.Body)
		}
		if n.HasElse {
			a.walkBlock(n.Else)
		}

	case *ast.While:
		a.walkExpr(n.Cond)
		a.walkBlock(n.Body)

	case *ast.Loop:
		a.walkBlock(n.Body)

	case *ast.For:
		a.walkExpr(n.Iterable)
		a.pushScope()
		elemTy := gultype.Of(gultype.Unknown)
		if it := n.Iterable.ExprType(); it.Kind == gultype.List || it.Kind == gultype.Set {
			elemTy = *it.Elem
		}
		a.declare(n.Pos(), n.Var, elemTy, false)
		for _, body := range n.Body {
			a.walkStmt(body)
		}
		a.popScope()

	case *ast.Match:
		a.walkExpr(n.Subject)
		for _, arm := range n.Arms {
			a.pushScope()
			if arm.PatternIdent != "" {
				a.declare(n.Pos(), arm.PatternIdent, n.Subject.ExprType(), false)
			}
			if arm.Pattern != nil {
				a.walkExpr(arm.Pattern)
			}
			for _, body := range arm.Body {
				a.walkStmt(body)
			}
			a.popScope()
		}

	case *ast.Break, *ast.Continue:
		// no symbol resolution needed

	case *ast.Return:
		if n.Value != nil {
			a.walkExpr(n.Value)
		}

	case *ast.Try:
		a.walkBlock(n.Body)
		if n.HasCatch {
			a.pushScope()
			a.declare(n.Pos(), n.CatchName, gultype.Of(gultype.Any), false)
			for _, body := range n.CatchBody {
				a.walkStmt(body)
			}
			a.popScope()
		}
		if n.HasFinally {
			a.walkBlock(n.FinallyBody)
		}

	case *ast.Throw:
		a.walkExpr(n.Value)

	case *ast.ForeignBlock:
		// opaque to the analyzer, per spec §3/§4.2.

	default:
		a.error(gulerrors.Semantic(s.Pos().Line, s.Pos().Col, "internal: unhandled statement kind %T", s))
	}
}

func (a *Analyzer) walkBlock(stmts []ast.Stmt) {
	a.pushScope()
	for _, s := range stmts {
		a.walkStmt(s)
	}
	a.popScope()
}

// ---- Expressions ----

func (a *Analyzer) walkExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLit:
		n.SetExprType(gultype.Of(gultype.Int))
	case *ast.FloatLit:
		n.SetExprType(gultype.Of(gultype.Float))
	case *ast.StringLit:
		n.SetExprType(gultype.Of(gultype.String))
	case *ast.BoolLit:
		n.SetExprType(gultype.Of(gultype.Bool))

	case *ast.Ident:
		if sym, ok := a.lookup(n.Name); ok {
			n.SetExprType(sym.Type)
		} else {
			a.error(gulerrors.Semantic(n.Pos().Line, n.Pos().Col, "undefined symbol %q", n.Name))
			n.SetExprType(gultype.Of(gultype.Unknown))
		}

	case *ast.BinaryOp:
		a.walkExpr(n.Left)
		a.walkExpr(n.Right)
		n.SetExprType(inferBinary(n.Op, n.Left.ExprType(), n.Right.ExprType()))

	case *ast.UnaryOp:
		a.walkExpr(n.X)
		if n.Op == "not" {
			n.SetExprType(gultype.Of(gultype.Bool))
		} else {
			n.SetExprType(n.X.ExprType())
		}

	case *ast.Call:
		a.walkExpr(n.Callee)
		for _, arg := range n.Args {
			a.walkExpr(arg)
		}
		n.SetExprType(inferCallType(n.Callee))

	case *ast.Member:
		a.walkExpr(n.X)
		n.SetExprType(inferMemberType(n.X.ExprType(), n.Name))

	case *ast.Index:
		a.walkExpr(n.X)
		a.walkExpr(n.Key)
		xt := n.X.ExprType()
		switch xt.Kind {
		case gultype.List:
			n.SetExprType(*xt.Elem)
		case gultype.Dict:
			n.SetExprType(*xt.Elem)
		default:
			n.SetExprType(gultype.Of(gultype.Unknown))
		}

	case *ast.ListLit:
		elem := gultype.Of(gultype.Unknown)
		for i, el := range n.Elems {
			a.walkExpr(el)
			if i == 0 {
				elem = el.ExprType()
			} else if !elem.Equal(el.ExprType()) {
				elem = gultype.Of(gultype.Unknown)
			}
		}
		n.SetExprType(gultype.NewList(elem))

	case *ast.SetLit:
		elem := gultype.Of(gultype.Unknown)
		for i, el := range n.Elems {
			a.walkExpr(el)
			if i == 0 {
				elem = el.ExprType()
			} else if !elem.Equal(el.ExprType()) {
				elem = gultype.Of(gultype.Unknown)
			}
		}
		n.SetExprType(gultype.NewSet(elem))

	case *ast.DictLit:
		keyTy := gultype.Of(gultype.Unknown)
		valTy := gultype.Of(gultype.Unknown)
		for i, entry := range n.Entries {
			a.walkExpr(entry.Key)
			a.walkExpr(entry.Val)
			if i == 0 {
				keyTy = entry.Key.ExprType()
				valTy = entry.Val.ExprType()
			} else {
				if !keyTy.Equal(entry.Key.ExprType()) {
					keyTy = gultype.Of(gultype.Unknown)
				}
				if !valTy.Equal(entry.Val.ExprType()) {
					valTy = gultype.Of(gultype.Unknown)
				}
			}
		}
		n.SetExprType(gultype.NewDict(keyTy, valTy))

	case *ast.Lambda:
		a.pushScope()
		for _, p := range n.Params {
			a.declare(n.Pos(), p, gultype.Of(gultype.Unknown), false)
		}
		a.walkExpr(n.Body)
		a.popScope()
		n.SetExprType(gultype.NewFunction(nil, n.Body.ExprType()))

	case *ast.TypedWrapper:
		a.walkExpr(n.X)
		n.SetExprType(n.Annotation)

	case *ast.OwnershipWrapper:
		a.walkExpr(n.X)
		n.SetExprType(n.X.ExprType())

	case *ast.ListOp:
		for _, arg := range n.Args {
			a.walkExpr(arg)
		}
		n.SetExprType(inferListOpType(n.Op, n.Args))

	case *ast.Await:
		if !a.inAsyncFn() {
			a.error(gulerrors.Semantic(n.Pos().Line, n.Pos().Col, "await used outside an async function"))
		}
		a.walkExpr(n.X)
		n.SetExprType(n.X.ExprType())

	default:
		a.error(gulerrors.Semantic(e.Pos().Line, e.Pos().Col, "internal: unhandled expression kind %T", e))
	}
}

// inferBinary implements spec §4.3's binary-op inference table:
// homogeneous numerics preserve the operand type, comparisons produce
// Bool, String+ANY (or reverse) yields String, mixed numeric operands
// resolve to Float.
func inferBinary(op string, l, r gultype.Type) gultype.Type {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=", "and", "or":
		return gultype.Of(gultype.Bool)
	}

	if op == "+" && (l.Kind == gultype.String || r.Kind == gultype.String) {
		return gultype.Of(gultype.String)
	}

	if l.Kind == gultype.Int && r.Kind == gultype.Int {
		return gultype.Of(gultype.Int)
	}
	if l.IsNumeric() && r.IsNumeric() {
		return gultype.Of(gultype.Float)
	}
	if l.Equal(r) {
		return l
	}
	return gultype.Of(gultype.Unknown)
}

// inferCallType produces a fixed return type for known built-ins, else
// Unknown, per spec §4.3.
func inferCallType(callee ast.Expr) gultype.Type {
	if ident, ok := callee.(*ast.Ident); ok {
		if ft := ident.ExprType(); ft.Kind == gultype.Function {
			return *ft.Result
		}
	}
	return gultype.Of(gultype.Unknown)
}

func inferMemberType(xt gultype.Type, name string) gultype.Type {
	if name == "len" {
		return gultype.Of(gultype.Int)
	}
	return gultype.Of(gultype.Unknown)
}

func inferListOpType(op ast.ListOpKind, args []ast.Expr) gultype.Type {
	switch op {
	case ast.ListOpCar:
		if len(args) > 0 {
			if lt := args[0].ExprType(); lt.Kind == gultype.List {
				return *lt.Elem
			}
		}
	case ast.ListOpCdr, ast.ListOpCons, ast.ListOpSlice:
		if len(args) > 0 {
			if lt := args[0].ExprType(); lt.Kind == gultype.List {
				return lt
			}
		}
	}
	return gultype.Of(gultype.Unknown)
}
