package codegen

import (
	"testing"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gultype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strLit(v string) *ast.StringLit {
	n := &ast.StringLit{Value: v}
	n.SetExprType(gultype.Of(gultype.String))
	return n
}

func intLitExpr(v int64) *ast.IntLit {
	n := &ast.IntLit{Value: v}
	n.SetExprType(gultype.Of(gultype.Int))
	return n
}

func dictIdent(name string, keyType, valType gultype.Type) *ast.Ident {
	n := &ast.Ident{Name: name}
	n.SetExprType(gultype.NewDict(keyType, valType))
	return n
}

func dictMethodCall(recv ast.Expr, method string, args ...ast.Expr) *ast.Call {
	return &ast.Call{Callee: &ast.Member{X: recv, Name: method}, Args: args}
}

func funcWithDictBody(paramName string, body []ast.Stmt) *ast.Program {
	decl := &ast.FuncDecl{
		Name:   "f",
		Params: []ast.Param{{Name: paramName, Type: gultype.NewDict(gultype.Of(gultype.String), gultype.Of(gultype.Int))}},
		Body:   body,
	}
	return &ast.Program{Statements: []ast.Stmt{decl}}
}

// Test_Generate_dictPushWritesSixteenBytePair confirms the Dict branch of
// push/add writes its key/value pair using the 16-byte-pair stride
// rather than the 8-byte-per-element stride used for List/Set.
func Test_Generate_dictPushWritesSixteenBytePair(t *testing.T) {
	recv := dictIdent("d", gultype.Of(gultype.String), gultype.Of(gultype.Int))
	call := dictMethodCall(recv, "push", strLit("k"), intLitExpr(5))
	prog := funcWithDictBody("d", []ast.Stmt{&ast.ExprStmt{X: call}})

	mod, err := Generate(prog)
	require.NoError(t, err)

	out := mod.String()
	assert.Contains(t, out, "mul i64 %r", "dict push should compute a pair offset via multiplication")
	assert.Contains(t, out, ", 16")
	assert.Contains(t, out, "@realloc")
}

// Test_Generate_dictPushRejectsSingleArg confirms push/add on a Dict
// requires the 2-argument (key, value) form.
func Test_Generate_dictPushRejectsSingleArg(t *testing.T) {
	recv := dictIdent("d", gultype.Of(gultype.String), gultype.Of(gultype.Int))
	call := dictMethodCall(recv, "push", strLit("k"))
	prog := funcWithDictBody("d", []ast.Stmt{&ast.ExprStmt{X: call}})

	_, err := Generate(prog)
	assert.Error(t, err)
}

// Test_Generate_dictPopIsRejected confirms pop has no Dict lowering,
// matching the interpreter's "Dict has no method" behavior instead of
// reusing flat-array arithmetic.
func Test_Generate_dictPopIsRejected(t *testing.T) {
	recv := dictIdent("d", gultype.Of(gultype.String), gultype.Of(gultype.Int))
	call := dictMethodCall(recv, "pop")
	prog := funcWithDictBody("d", []ast.Stmt{&ast.ExprStmt{X: call}})

	_, err := Generate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no method")
}

// Test_Generate_dictContainsUsesStrcmpForStringKeys confirms contains on
// a string-keyed Dict compares keys with strcmp rather than icmp eq.
func Test_Generate_dictContainsUsesStrcmpForStringKeys(t *testing.T) {
	recv := dictIdent("d", gultype.Of(gultype.String), gultype.Of(gultype.Int))
	call := dictMethodCall(recv, "contains", strLit("k"))
	prog := funcWithDictBody("d", []ast.Stmt{&ast.ExprStmt{X: call}})

	mod, err := Generate(prog)
	require.NoError(t, err)
	assert.Contains(t, mod.String(), "@strcmp")
}

// Test_Generate_dictRemoveReturnsRealFlag confirms remove's return value
// comes from the found-flag slot rather than a hardcoded literal.
func Test_Generate_dictRemoveReturnsRealFlag(t *testing.T) {
	recv := dictIdent("d", gultype.Of(gultype.String), gultype.Of(gultype.Int))
	call := dictMethodCall(recv, "remove", strLit("k"))
	prog := funcWithDictBody("d", []ast.Stmt{&ast.Return{Value: call}})

	mod, err := Generate(prog)
	require.NoError(t, err)

	out := mod.String()
	assert.Contains(t, out, "@memmove")
	assert.Contains(t, out, "remove_found", "remove should return the tracked found-flag slot, not a hardcoded constant")
}
