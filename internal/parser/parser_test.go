package parser

import (
	"reflect"
	"testing"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_Parse_isDeterministic exercises spec §4.2's parser-determinism
// property: parsing the same source text repeatedly must produce
// structurally identical ASTs every time, since the parser keeps no
// state beyond the token slice it was given.
func Test_Parse_isDeterministic(t *testing.T) {
	sources := []string{
		"let x = 1\n",
		"fn add(a, b) -> int:\n    return a + b\n",
		"fn f():\n    if x:\n        let y = 1\n    elif z:\n        let y = 2\n    else:\n        let y = 3\n",
		"mn:\n    let x = 1\n    let y = x + 2\n    print(y)\n",
	}
	for _, src := range sources {
		first, err := Parse(src)
		require.NoError(t, err, src)

		for i := 0; i < 5; i++ {
			again, err := Parse(src)
			require.NoError(t, err, src)
			assert.True(t, reflect.DeepEqual(first, again), "parse %d of %q diverged from the first parse", i, src)
		}
	}
}

func Test_Parse_varDeclShape(t *testing.T) {
	prog, err := Parse("let x = 1\n")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	decl, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Name)
	assert.False(t, decl.Mutable)
}

func Test_Parse_varMutableShape(t *testing.T) {
	prog, err := Parse("var x = 1\n")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	decl, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.True(t, decl.Mutable)
}

func Test_Parse_funcDeclShape(t *testing.T) {
	prog, err := Parse("fn add(a, b) -> int:\n    return a + b\n")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	fn, ok := prog.Statements[0].(*ast.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	assert.True(t, fn.HasResult)
	require.Len(t, fn.Body, 1)
}

func Test_Parse_mainBlockShape(t *testing.T) {
	prog, err := Parse("mn:\n    let x = 1\n")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	_, ok := prog.Statements[0].(*ast.MainBlock)
	assert.True(t, ok)
}

func Test_Parse_unexpectedTokenIsError(t *testing.T) {
	_, err := Parse("let = 1\n")
	assert.Error(t, err)
}
