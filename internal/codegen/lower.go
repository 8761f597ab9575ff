package codegen

import (
	"fmt"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
)

// Generate lowers every top-level fn declaration of an annotated
// Program (sema.Analyze must have run first so every Expr's type slot
// is filled in) into a Module (spec §4.5).
func Generate(prog *ast.Program) (*Module, error) {
	mod := NewModule()
	for _, s := range prog.Statements {
		fn, ok := s.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if err := lowerFunction(mod, fn); err != nil {
			return nil, err
		}
	}
	return mod, nil
}

func lowerFunction(mod *Module, decl *ast.FuncDecl) error {
	fn := &Function{Name: decl.Name}
	for _, p := range decl.Params {
		fn.Params = append(fn.Params, FuncParam{Name: p.Name, Kind: nativeKindOf(p.Type)})
	}
	mod.Functions = append(mod.Functions, fn)

	b := newFuncBuilder(mod, fn)
	b.startBlock("entry")

	for _, p := range decl.Params {
		s := b.allocSlot(p.Name, nativeKindOf(p.Type))
		b.store(s, "%"+p.Name)
	}

	terminated, err := b.lowerBlock(decl.Body)
	if err != nil {
		return gulerrors.Codegen(decl.Name, "%s", err)
	}
	if !terminated {
		// "A synthetic return 0 is appended if the function falls through."
		b.cur.terminate("ret i64 0")
	}
	return nil
}

// lowerBlock lowers a sequence of statements, returning whether control
// fell off the end already terminated (e.g. via return/break/continue).
func (b *funcBuilder) lowerBlock(stmts []ast.Stmt) (bool, error) {
	for _, s := range stmts {
		terminated, err := b.lowerStmt(s)
		if err != nil {
			return false, err
		}
		if terminated {
			return true, nil
		}
	}
	return false, nil
}

func (b *funcBuilder) lowerStmt(s ast.Stmt) (bool, error) {
	switch n := s.(type) {
	case *ast.VarDecl:
		val, kind, err := b.lowerExpr(n.Value)
		if err != nil {
			return false, err
		}
		slot := b.allocSlot(n.Name, kind)
		b.store(slot, val)
		return false, nil

	case *ast.Assign:
		val, _, err := b.lowerExpr(n.Value)
		if err != nil {
			return false, err
		}
		slot, ok := b.slots[n.Name]
		if !ok {
			return false, fmt.Errorf("assignment to undeclared slot %q", n.Name)
		}
		b.store(slot, val)
		return false, nil

	case *ast.IndexAssign:
		return false, b.lowerIndexAssign(n)

	case *ast.ExprStmt:
		_, _, err := b.lowerExpr(n.X)
		return false, err

	case *ast.FuncDecl, *ast.StructDecl, *ast.Import:
		return false, nil

	case *ast.Return:
		if n.Value == nil {
			b.cur.terminate("ret i64 0")
			return true, nil
		}
		val, kind, err := b.lowerExpr(n.Value)
		if err != nil {
			return false, err
		}
		if kind == KindF64 {
			widened := b.newReg()
			b.emit("%s = bitcast f64 %s to i64", widened, val)
			val = widened
		}
		b.cur.terminate(fmt.Sprintf("ret i64 %s", val))
		return true, nil

	case *ast.If:
		return b.lowerIf(n)

	case *ast.While:
		return b.lowerWhile(n)

	case *ast.Loop:
		return b.lowerLoop(n)

	case *ast.Match:
		return b.lowerMatch(n)

	case *ast.Break:
		if len(b.loops) == 0 {
			return false, fmt.Errorf("break outside of a loop")
		}
		b.cur.terminate("br label %" + b.loops[len(b.loops)-1].exit)
		return true, nil

	case *ast.Continue:
		if len(b.loops) == 0 {
			return false, fmt.Errorf("continue outside of a loop")
		}
		b.cur.terminate("br label %" + b.loops[len(b.loops)-1].header)
		return true, nil

	case *ast.For, *ast.Try, *ast.Throw, *ast.ForeignBlock:
		// The native code generator targets the static compilation path
		// (spec §2/§5: "static path single-threaded"); also_for,
		// try/catch, and foreign blocks are interpreter-only surface
		// (spec §1's "two language features the static path lacks" plus
		// the interpreter-only exception/foreign-block machinery), so a
		// program using them is compiled only through the interpreter,
		// never through gulc.
		return false, gulerrors.Codegen(b.fn.Name, "%T is not supported by the native code generator; run it with the interpreter instead", s)

	default:
		return false, fmt.Errorf("internal: unhandled statement kind %T", s)
	}
}

func (b *funcBuilder) lowerIf(n *ast.If) (bool, error) {
	cond, _, err := b.lowerExpr(n.Cond)
	if err != nil {
		return false, err
	}
	thenLbl := b.newLabel("if.then")
	elseLbl := b.newLabel("if.else")
	mergeLbl := b.newLabel("if.merge")

	hasElse := n.HasElse || len(n.Elifs) > 0
	elseTarget := mergeLbl
	if hasElse {
		elseTarget = elseLbl
	}
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cond, thenLbl, elseTarget))

	b.startBlock(thenLbl)
	thenTerm, err := b.lowerBlock(n.Then)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		b.cur.terminate("br label %" + mergeLbl)
	}

	allTerminated := thenTerm
	if hasElse {
		b.startBlock(elseLbl)
		elseTerm, err := b.lowerElseChain(n.Elifs, n.Else, n.HasElse, mergeLbl)
		if err != nil {
			return false, err
		}
		allTerminated = allTerminated && elseTerm
	} else {
		allTerminated = false
	}

	b.startBlock(mergeLbl)
	return allTerminated, nil
}

func (b *funcBuilder) lowerElseChain(elifs []ast.ElifClause, elseBody []ast.Stmt, hasElse bool, mergeLbl string) (bool, error) {
	if len(elifs) == 0 {
		if !hasElse {
			b.cur.terminate("br label %" + mergeLbl)
			return false, nil
		}
		term, err := b.lowerBlock(elseBody)
		if err != nil {
			return false, err
		}
		if !term {
			b.cur.terminate("br label %" + mergeLbl)
		}
		return term, nil
	}

	head := elifs[0]
	cond, _, err := b.lowerExpr(head.Cond)
	if err != nil {
		return false, err
	}
	thenLbl := b.newLabel("elif.then")
	nextLbl := b.newLabel("elif.else")
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cond, thenLbl, nextLbl))

	b.startBlock(thenLbl)
	thenTerm, err := b.lowerBlock(head.Body)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		b.cur.terminate("br label %" + mergeLbl)
	}

	b.startBlock(nextLbl)
	restTerm, err := b.lowerElseChain(elifs[1:], elseBody, hasElse, mergeLbl)
	if err != nil {
		return false, err
	}
	return thenTerm && restTerm, nil
}

func (b *funcBuilder) lowerWhile(n *ast.While) (bool, error) {
	headerLbl := b.newLabel("while.header")
	bodyLbl := b.newLabel("while.body")
	exitLbl := b.newLabel("while.exit")

	b.cur.terminate("br label %" + headerLbl)
	b.startBlock(headerLbl)
	cond, _, err := b.lowerExpr(n.Cond)
	if err != nil {
		return false, err
	}
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cond, bodyLbl, exitLbl))

	b.loops = append(b.loops, loopCtx{header: headerLbl, exit: exitLbl})
	b.startBlock(bodyLbl)
	term, err := b.lowerBlock(n.Body)
	if err != nil {
		return false, err
	}
	if !term {
		b.cur.terminate("br label %" + headerLbl)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.startBlock(exitLbl)
	return false, nil
}

func (b *funcBuilder) lowerLoop(n *ast.Loop) (bool, error) {
	headerLbl := b.newLabel("loop.header")
	exitLbl := b.newLabel("loop.exit")

	b.cur.terminate("br label %" + headerLbl)
	b.loops = append(b.loops, loopCtx{header: headerLbl, exit: exitLbl})
	b.startBlock(headerLbl)
	term, err := b.lowerBlock(n.Body)
	if err != nil {
		return false, err
	}
	if !term {
		b.cur.terminate("br label %" + headerLbl)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.startBlock(exitLbl)
	return false, nil
}

// lowerMatch compiles each arm left to right as a chain of
// comparison-and-branch blocks terminating in an unconditional merge
// (spec §4.5's match-lowering paragraph).
func (b *funcBuilder) lowerMatch(n *ast.Match) (bool, error) {
	subject, subjectKind, err := b.lowerExpr(n.Subject)
	if err != nil {
		return false, err
	}
	mergeLbl := b.newLabel("match.merge")
	return b.lowerMatchArms(n.Arms, subject, subjectKind, n.Subject.ExprType(), mergeLbl)
}

func (b *funcBuilder) lowerMatchArms(arms []ast.MatchArm, subject string, subjectKind NativeKind, subjectType gultype.Type, mergeLbl string) (bool, error) {
	if len(arms) == 0 {
		b.cur.terminate("br label %" + mergeLbl)
		b.startBlock(mergeLbl)
		return false, nil
	}

	arm := arms[0]
	bodyLbl := b.newLabel("match.arm")
	nextLbl := b.newLabel("match.next")

	if arm.IsWildcard || arm.PatternIdent != "" {
		if arm.PatternIdent != "" {
			s := b.allocSlot(arm.PatternIdent, subjectKind)
			b.store(s, subject)
		}
		b.cur.terminate("br label %" + bodyLbl)
		b.startBlock(bodyLbl)
		term, err := b.lowerBlock(arm.Body)
		if err != nil {
			return false, err
		}
		if !term {
			b.cur.terminate("br label %" + mergeLbl)
		}
		b.startBlock(mergeLbl)
		return false, nil
	}

	patVal, _, err := b.lowerExpr(arm.Pattern)
	if err != nil {
		return false, err
	}
	cmp := b.newReg()
	if subjectType.Kind == gultype.String {
		eq := b.newReg()
		b.emit("%s = call i32 @strcmp(i8* %s, i8* %s)", eq, subject, patVal)
		b.emit("%s = icmp eq i32 %s, 0", cmp, eq)
	} else if subjectKind == KindF64 {
		b.emit("%s = fcmp oeq f64 %s, %s", cmp, subject, patVal)
	} else {
		b.emit("%s = icmp eq i64 %s, %s", cmp, subject, patVal)
	}
	b.cur.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cmp, bodyLbl, nextLbl))

	b.startBlock(bodyLbl)
	term, err := b.lowerBlock(arm.Body)
	if err != nil {
		return false, err
	}
	if !term {
		b.cur.terminate("br label %" + mergeLbl)
	}

	b.startBlock(nextLbl)
	return b.lowerMatchArms(arms[1:], subject, subjectKind, subjectType, mergeLbl)
}
