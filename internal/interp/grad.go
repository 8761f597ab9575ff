package interp

import (
	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

// evalGrad implements grad(f, x), spec §4.7's forward-mode automatic
// differentiation built-in: f is called once with x lifted to a Dual
// seeded with derivative 1, and the Dual arithmetic in applyBinary
// propagates df/dx through every add/sub/mul/div the function body
// performs. The result's derivative component is grad's return value
// (sema.builtinSignatures fixes grad's declared return type to Float).
func (in *Interpreter) evalGrad(argExprs []ast.Expr, frame *Frame) (gulvalue.Value, error) {
	if len(argExprs) != 2 {
		return gulvalue.NewNull(), gulerrors.Runtime("grad expects (fn, x)")
	}
	fn, err := in.eval(argExprs[0], frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	x, err := in.eval(argExprs[1], frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}

	seed := gulvalue.NewDual(x.Float(), 1)
	result, err := in.callValue(fn, []gulvalue.Value{seed})
	if err != nil {
		return gulvalue.NewNull(), err
	}

	_, derivative := result.DualParts()
	return gulvalue.NewFloat(derivative), nil
}
