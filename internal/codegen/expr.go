package codegen

import (
	"fmt"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
)

// lowerExpr lowers e to an operand (an immediate literal or an SSA
// register name) and its native kind.
func (b *funcBuilder) lowerExpr(e ast.Expr) (operand string, kind NativeKind, err error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%d", n.Value), KindI64, nil
	case *ast.FloatLit:
		return fmt.Sprintf("%g", n.Value), KindF64, nil
	case *ast.BoolLit:
		if n.Value {
			return "1", KindI64, nil
		}
		return "0", KindI64, nil
	case *ast.StringLit:
		if n.IsFormat {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "format-string literals are interpreter-only")
		}
		return b.mod.InternString(n.Value), KindI64, nil

	case *ast.Ident:
		s, ok := b.slots[n.Name]
		if !ok {
			// a bare reference to a sibling function name: pass its
			// pointer (its declared symbol) through unresolved; the
			// linker resolves it (spec §4.5's "no name mangling").
			return "@" + n.Name, KindI64, nil
		}
		return b.load(s), s.kind, nil

	case *ast.BinaryOp:
		return b.lowerBinary(n)

	case *ast.UnaryOp:
		return b.lowerUnary(n)

	case *ast.Call:
		return b.lowerCall(n)

	case *ast.Member:
		return b.lowerMember(n)

	case *ast.Index:
		return b.lowerIndex(n)

	case *ast.ListLit:
		return b.lowerListLit(n)

	case *ast.SetLit:
		return b.lowerSetLit(n)

	case *ast.DictLit:
		return b.lowerDictLit(n)

	case *ast.TypedWrapper:
		return b.lowerCast(n)

	case *ast.OwnershipWrapper:
		// An ownership wrapper is a source-level annotation with no
		// native-code counterpart; codegen lowers the wrapped expression
		// and performs no ownership check of its own.
		return b.lowerExpr(n.X)

	default:
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "%T has no native code generator lowering; this construct is interpreter-only", e)
	}
}

func (b *funcBuilder) lowerUnary(n *ast.UnaryOp) (string, NativeKind, error) {
	val, kind, err := b.lowerExpr(n.X)
	if err != nil {
		return "", KindI64, err
	}
	reg := b.newReg()
	switch n.Op {
	case "not":
		b.emit("%s = xor i64 %s, 1", reg, val)
		return reg, KindI64, nil
	case "-":
		if kind == KindF64 {
			b.emit("%s = fneg f64 %s", reg, val)
			return reg, KindF64, nil
		}
		b.emit("%s = sub i64 0, %s", reg, val)
		return reg, KindI64, nil
	case "~":
		b.emit("%s = xor i64 %s, -1", reg, val)
		return reg, KindI64, nil
	default:
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "unknown unary operator %q", n.Op)
	}
}

func (b *funcBuilder) lowerCast(n *ast.TypedWrapper) (string, NativeKind, error) {
	val, kind, err := b.lowerExpr(n.X)
	if err != nil {
		return "", KindI64, err
	}
	target := nativeKindOf(n.Annotation)
	if target == kind {
		return val, kind, nil
	}
	reg := b.newReg()
	if target == KindF64 {
		b.emit("%s = sitofp i64 %s to f64", reg, val)
		return reg, KindF64, nil
	}
	b.emit("%s = fptosi f64 %s to i64", reg, val)
	return reg, KindI64, nil
}

// lowerBinary implements spec §4.5's binary-operator lowering: promote
// to Float if either operand is Float, dispatch to the matching
// arithmetic opcode, lower comparisons via icmp/fcmp+select, and
// auto-convert+concatenate when either side of `+` is a String.
func (b *funcBuilder) lowerBinary(n *ast.BinaryOp) (string, NativeKind, error) {
	if n.Op == "+" && (n.Left.ExprType().Kind == gultype.String || n.Right.ExprType().Kind == gultype.String) {
		return b.lowerStringConcat(n)
	}

	l, lk, err := b.lowerExpr(n.Left)
	if err != nil {
		return "", KindI64, err
	}
	r, rk, err := b.lowerExpr(n.Right)
	if err != nil {
		return "", KindI64, err
	}

	isCompare := map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}[n.Op]
	isFloat := lk == KindF64 || rk == KindF64

	if isFloat {
		if lk != KindF64 {
			l = b.convertToFloat(l)
		}
		if rk != KindF64 {
			r = b.convertToFloat(r)
		}
	}

	if isCompare {
		return b.lowerCompare(n.Op, l, r, isFloat)
	}

	reg := b.newReg()
	if isFloat {
		op, ok := floatArithOp[n.Op]
		if !ok {
			return "", KindI64, gulerrors.Codegen(b.fn.Name, "unsupported float operator %q", n.Op)
		}
		b.emit("%s = %s f64 %s, %s", reg, op, l, r)
		return reg, KindF64, nil
	}
	op, ok := intArithOp[n.Op]
	if !ok {
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "unsupported integer operator %q", n.Op)
	}
	b.emit("%s = %s i64 %s, %s", reg, op, l, r)
	return reg, KindI64, nil
}

var intArithOp = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "sdiv", "%": "srem",
	"&": "and", "|": "or", "^": "xor", "<<": "shl", ">>": "ashr",
}

var floatArithOp = map[string]string{
	"+": "fadd", "-": "fsub", "*": "fmul", "/": "fdiv",
}

func (b *funcBuilder) convertToFloat(operand string) string {
	reg := b.newReg()
	b.emit("%s = sitofp i64 %s to f64", reg, operand)
	return reg
}

func (b *funcBuilder) lowerCompare(op, l, r string, isFloat bool) (string, NativeKind, error) {
	pred, ok := comparePredicate[op]
	if !ok {
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "unsupported comparison operator %q", op)
	}
	cmp := b.newReg()
	if isFloat {
		b.emit("%s = fcmp %s f64 %s, %s", cmp, pred, l, r)
	} else {
		b.emit("%s = icmp %s i64 %s, %s", cmp, pred, l, r)
	}
	result := b.newReg()
	b.emit("%s = select i1 %s, i64 1, i64 0", result, cmp)
	return result, KindI64, nil
}

var comparePredicate = map[string]string{
	"==": "eq", "!=": "ne", "<": "lt", "<=": "le", ">": "gt", ">=": "ge",
}

func (b *funcBuilder) lowerStringConcat(n *ast.BinaryOp) (string, NativeKind, error) {
	l, lk, err := b.lowerExpr(n.Left)
	if err != nil {
		return "", KindI64, err
	}
	r, rk, err := b.lowerExpr(n.Right)
	if err != nil {
		return "", KindI64, err
	}
	lStr := b.toStringOperand(l, lk, n.Left.ExprType())
	rStr := b.toStringOperand(r, rk, n.Right.ExprType())
	reg := b.newReg()
	b.emit("%s = call i8* @gul_string_concat(i8* %s, i8* %s)", reg, lStr, rStr)
	return reg, KindI64, nil
}

func (b *funcBuilder) toStringOperand(operand string, kind NativeKind, t gultype.Type) string {
	if t.Kind == gultype.String {
		return operand
	}
	reg := b.newReg()
	if kind == KindF64 {
		b.emit("%s = call i8* @gul_float_to_string(f64 %s)", reg, operand)
	} else {
		b.emit("%s = call i8* @gul_int_to_string(i64 %s)", reg, operand)
	}
	return reg
}
