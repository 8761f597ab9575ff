package interp

import (
	"math"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

func (in *Interpreter) evalBinary(n *ast.BinaryOp, frame *Frame) (gulvalue.Value, error) {
	l, err := in.eval(n.Left, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}

	switch n.Op {
	case "and":
		if !l.Bool() {
			return gulvalue.NewBool(false), nil
		}
		r, err := in.eval(n.Right, frame)
		if err != nil {
			return gulvalue.NewNull(), err
		}
		return gulvalue.NewBool(r.Bool()), nil
	case "or":
		if l.Bool() {
			return gulvalue.NewBool(true), nil
		}
		r, err := in.eval(n.Right, frame)
		if err != nil {
			return gulvalue.NewNull(), err
		}
		return gulvalue.NewBool(r.Bool()), nil
	}

	r, err := in.eval(n.Right, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	return applyBinary(n.Op, l, r)
}

// applyBinary implements spec §4.3's binary-op table at runtime, plus
// dual-number arithmetic for forward-mode autodiff (spec §4.7): when
// either operand is Dual, the other is lifted to Dual(n, 0) and the
// four rules (add/sub/mul/div) are applied to (value, derivative) pairs.
func applyBinary(op string, l, r gulvalue.Value) (gulvalue.Value, error) {
	if l.Kind == gulvalue.Dual || r.Kind == gulvalue.Dual {
		if isDualArith(op) {
			return applyDualBinary(op, l, r)
		}
		return applyBinary(op, gulvalue.NewFloat(l.Float()), gulvalue.NewFloat(r.Float()))
	}

	switch op {
	case "==":
		return l.EqualTo(r), nil
	case "!=":
		return gulvalue.NewBool(!l.EqualTo(r).Bool()), nil
	case "<":
		return compare(l, r, func(c int) bool { return c < 0 })
	case "<=":
		return compare(l, r, func(c int) bool { return c <= 0 })
	case ">":
		return compare(l, r, func(c int) bool { return c > 0 })
	case ">=":
		return compare(l, r, func(c int) bool { return c >= 0 })
	}

	if op == "+" && (l.Kind == gulvalue.String || r.Kind == gulvalue.String) {
		return gulvalue.NewString(l.Str() + r.Str()), nil
	}

	if op == "in" {
		switch r.Kind {
		case gulvalue.List, gulvalue.Set:
			return gulvalue.NewBool(containsValue(r.List(), l)), nil
		case gulvalue.Dict:
			_, ok := r.DictGet(l)
			return gulvalue.NewBool(ok), nil
		default:
			return gulvalue.NewNull(), gulerrors.Runtime("cannot use 'in' on a %s", r.KindName())
		}
	}

	if isBitwise(op) {
		return applyBitwise(op, l, r)
	}

	if l.Kind == gulvalue.Int && r.Kind == gulvalue.Int {
		return applyIntArith(op, l.Int(), r.Int())
	}
	return applyFloatArith(op, l.Float(), r.Float())
}

func isDualArith(op string) bool {
	switch op {
	case "+", "-", "*", "/":
		return true
	}
	return false
}

func applyDualBinary(op string, l, r gulvalue.Value) (gulvalue.Value, error) {
	a, da := l.DualParts()
	b, db := r.DualParts()
	switch op {
	case "+":
		return gulvalue.NewDual(a+b, da+db), nil
	case "-":
		return gulvalue.NewDual(a-b, da-db), nil
	case "*":
		return gulvalue.NewDual(a*b, da*b+a*db), nil
	case "/":
		if b == 0 {
			return gulvalue.NewNull(), gulerrors.Runtime("division by zero")
		}
		return gulvalue.NewDual(a/b, (da*b-a*db)/(b*b)), nil
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("operator %q not supported on Dual values", op)
	}
}

func isBitwise(op string) bool {
	switch op {
	case "&", "|", "^", "<<", ">>":
		return true
	}
	return false
}

func applyBitwise(op string, l, r gulvalue.Value) (gulvalue.Value, error) {
	a, b := l.Int(), r.Int()
	switch op {
	case "&":
		return gulvalue.NewInt(a & b), nil
	case "|":
		return gulvalue.NewInt(a | b), nil
	case "^":
		return gulvalue.NewInt(a ^ b), nil
	case "<<":
		return gulvalue.NewInt(a << uint(b)), nil
	case ">>":
		return gulvalue.NewInt(a >> uint(b)), nil
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("unknown bitwise operator %q", op)
	}
}

func applyIntArith(op string, a, b int64) (gulvalue.Value, error) {
	switch op {
	case "+":
		return gulvalue.NewInt(a + b), nil
	case "-":
		return gulvalue.NewInt(a - b), nil
	case "*":
		return gulvalue.NewInt(a * b), nil
	case "/":
		if b == 0 {
			return gulvalue.NewNull(), gulerrors.Runtime("integer division by zero")
		}
		return gulvalue.NewInt(a / b), nil
	case "%":
		if b == 0 {
			return gulvalue.NewNull(), gulerrors.Runtime("integer division by zero")
		}
		return gulvalue.NewInt(a % b), nil
	case "**":
		return gulvalue.NewInt(intPow(a, b)), nil
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("unknown operator %q", op)
	}
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

func applyFloatArith(op string, a, b float64) (gulvalue.Value, error) {
	switch op {
	case "+":
		return gulvalue.NewFloat(a + b), nil
	case "-":
		return gulvalue.NewFloat(a - b), nil
	case "*":
		return gulvalue.NewFloat(a * b), nil
	case "/":
		// float division follows IEEE 754 (spec §4.7): b == 0 yields ±Inf
		// or NaN rather than a runtime error.
		return gulvalue.NewFloat(a / b), nil
	case "%":
		return gulvalue.NewFloat(math.Mod(a, b)), nil
	case "**":
		return gulvalue.NewFloat(math.Pow(a, b)), nil
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("unknown operator %q", op)
	}
}

func compare(l, r gulvalue.Value, ok func(int) bool) (gulvalue.Value, error) {
	switch {
	case l.Kind == gulvalue.String || r.Kind == gulvalue.String:
		a, b := l.Str(), r.Str()
		switch {
		case a < b:
			return gulvalue.NewBool(ok(-1)), nil
		case a > b:
			return gulvalue.NewBool(ok(1)), nil
		default:
			return gulvalue.NewBool(ok(0)), nil
		}
	default:
		a, b := l.Float(), r.Float()
		switch {
		case a < b:
			return gulvalue.NewBool(ok(-1)), nil
		case a > b:
			return gulvalue.NewBool(ok(1)), nil
		default:
			return gulvalue.NewBool(ok(0)), nil
		}
	}
}
