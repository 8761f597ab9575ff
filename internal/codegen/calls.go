package codegen

import (
	"fmt"
	"strings"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
)

func (b *funcBuilder) lowerCall(n *ast.Call) (string, NativeKind, error) {
	if member, ok := n.Callee.(*ast.Member); ok {
		return b.lowerMethodCall(member, n.Args)
	}

	ident, ok := n.Callee.(*ast.Ident)
	if !ok {
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "call target is not a simple name; not supported by the native code generator")
	}

	if ident.Name == "print" {
		return b.lowerPrint(n.Args)
	}

	return b.lowerGenericCall(ident.Name, n.Args)
}

// lowerPrint implements spec §4.5's print(x) dispatch: Float delegates
// to gul_print_float, Bool selects a true/false data pointer and
// formats with %s, String formats with %s, everything else (int or
// pointer) formats with %ld.
func (b *funcBuilder) lowerPrint(args []ast.Expr) (string, NativeKind, error) {
	if len(args) != 1 {
		return "", KindI64, gulerrors.Codegen(b.fn.Name, "print expects exactly one argument")
	}
	val, kind, err := b.lowerExpr(args[0])
	if err != nil {
		return "", KindI64, err
	}
	argType := args[0].ExprType()

	result := b.newReg()
	switch {
	case kind == KindF64:
		b.emit("%s = call i32 @gul_print_float(f64 %s)", result, val)
	case argType.Kind == gultype.Bool:
		sel := b.newReg()
		b.emit("%s = select i1 %s, i8* @.bool.true, i8* @.bool.false", sel, truthy(val))
		b.emit("%s = call i32 (i8*, ...) @printf(i8* @.fmt.str, i8* %s)", result, sel)
	case argType.Kind == gultype.String:
		b.emit("%s = call i32 (i8*, ...) @printf(i8* @.fmt.str, i8* %s)", result, val)
	default:
		b.emit("%s = call i32 (i8*, ...) @printf(i8* @.fmt.int, i64 %s)", result, val)
	}
	return result, KindI64, nil
}

func truthy(val string) string {
	return fmt.Sprintf("icmp ne i64 %s, 0", val)
}

// lowerGenericCall declares the callee by name with a signature mirroring
// the argument kinds, emits the call, and returns the first result (or
// 0 if the function is void), per spec §4.5.
func (b *funcBuilder) lowerGenericCall(name string, argExprs []ast.Expr) (string, NativeKind, error) {
	args := make([]string, len(argExprs))
	for i, a := range argExprs {
		val, kind, err := b.lowerExpr(a)
		if err != nil {
			return "", KindI64, err
		}
		args[i] = fmt.Sprintf("%s %s", kind, val)
	}
	reg := b.newReg()
	b.emit("%s = call i64 @%s(%s)", reg, name, strings.Join(args, ", "))
	return reg, KindI64, nil
}
