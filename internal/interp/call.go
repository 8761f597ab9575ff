package interp

import (
	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

func (in *Interpreter) evalArgs(args []ast.Expr, frame *Frame) ([]gulvalue.Value, error) {
	vals := make([]gulvalue.Value, len(args))
	for i, a := range args {
		v, err := in.eval(a, frame)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (in *Interpreter) evalCall(n *ast.Call, frame *Frame) (gulvalue.Value, error) {
	if member, ok := n.Callee.(*ast.Member); ok {
		return in.evalMethodCall(member, n.Args, frame)
	}

	if ident, ok := n.Callee.(*ast.Ident); ok {
		switch ident.Name {
		case "print":
			args, err := in.evalArgs(n.Args, frame)
			if err != nil {
				return gulvalue.NewNull(), err
			}
			return in.builtinPrint(args)
		case "grad":
			return in.evalGrad(n.Args, frame)
		}
		// a user function is called directly only when no variable of the
		// same name is visible from frame, local or global.
		if _, shadowed := frame.Get(ident.Name); !shadowed {
			if fn, ok := in.funcs[ident.Name]; ok {
				args, err := in.evalArgs(n.Args, frame)
				if err != nil {
					return gulvalue.NewNull(), err
				}
				return in.callFunc(fn, args, in.global)
			}
		}
	}

	callee, err := in.eval(n.Callee, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	args, err := in.evalArgs(n.Args, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	return in.callValue(callee, args)
}

func (in *Interpreter) callValue(callee gulvalue.Value, args []gulvalue.Value) (gulvalue.Value, error) {
	switch callee.Kind {
	case gulvalue.NativeFunction:
		return callee.Native()(args)
	case gulvalue.Function, gulvalue.Lambda:
		data := callee.Func()
		closure, _ := data.Env.(*Frame)
		switch body := data.Body.(type) {
		case *ast.FuncDecl:
			return in.callFunc(body, args, closure)
		case *ast.Lambda:
			return in.callLambda(body, args, closure)
		default:
			return gulvalue.NewNull(), gulerrors.Runtime("internal: unrecognised callable body %T", body)
		}
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("cannot call a %s", callee.KindName())
	}
}

func (in *Interpreter) callFunc(fn *ast.FuncDecl, args []gulvalue.Value, closure *Frame) (gulvalue.Value, error) {
	frame := NewFrame(closure)
	for i, p := range fn.Params {
		var v gulvalue.Value
		if i < len(args) {
			v = args[i]
		} else {
			v = gulvalue.NewNull()
		}
		frame.Declare(p.Name, v)
	}
	cf, err := in.execBlock(fn.Body, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	if cf.IsReturn() {
		return cf.Value(), nil
	}
	return gulvalue.NewNull(), nil
}

func (in *Interpreter) callLambda(lam *ast.Lambda, args []gulvalue.Value, closure *Frame) (gulvalue.Value, error) {
	frame := NewFrame(closure)
	for i, p := range lam.Params {
		var v gulvalue.Value
		if i < len(args) {
			v = args[i]
		} else {
			v = gulvalue.NewNull()
		}
		frame.Declare(p, v)
	}
	return in.eval(lam.Body, frame)
}

// evalMethodCall implements the fixed collection-method surface spec §4.7
// exposes on List/Set/Dict values: push, add, insertbefore, insertafter,
// pop, remove, clear, contains. Mutating methods write the new backing
// slice back into the variable the receiver came from, matching the
// by-reference mutation semantics of a gul identifier bound to a
// collection.
func (in *Interpreter) evalMethodCall(member *ast.Member, argExprs []ast.Expr, frame *Frame) (gulvalue.Value, error) {
	recv, err := in.eval(member.X, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	args, err := in.evalArgs(argExprs, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}

	result, mutated, err := applyCollectionMethod(&recv, member.Name, args)
	if err != nil {
		return gulvalue.NewNull(), err
	}

	if mutated {
		if ident, ok := member.X.(*ast.Ident); ok {
			frame.Set(ident.Name, recv)
		}
	}
	return result, nil
}
