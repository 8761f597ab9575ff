package gul

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factorialProgram = `fn fact(n):
	var r = 1
	var i = 1
	while i <= n:
		r = r * i
		i = i + 1
	return r

mn:
	print(fact(5))
`

func Test_Parse_validProgram(t *testing.T) {
	prog, err := Parse(factorialProgram)
	require.NoError(t, err)
	require.NotNil(t, prog)
}

func Test_Parse_syntaxError(t *testing.T) {
	_, err := Parse("fn (:\n")
	assert.Error(t, err)
}

func Test_Parse_semanticError(t *testing.T) {
	_, err := Parse("mn:\n\tprint(undefinedName)\n")
	assert.Error(t, err)
}

func Test_Compile_rendersModuleText(t *testing.T) {
	mod, err := Compile(factorialProgram)
	require.NoError(t, err)
	assert.Contains(t, mod, "fact")
}

func Test_Run_printsToWriter(t *testing.T) {
	var out strings.Builder
	err := Run(factorialProgram, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "120")
}

func Test_Session_persistsDeclarationsAcrossChunks(t *testing.T) {
	var out strings.Builder
	sess := NewSession(&out)

	require.NoError(t, sess.Eval("fn fact(n):\n\tvar r = 1\n\tvar i = 1\n\twhile i <= n:\n\t\tr = r * i\n\t\ti = i + 1\n\treturn r\n"))
	require.NoError(t, sess.Eval("mn:\n\tprint(fact(3))\n"))
	require.NoError(t, sess.Eval("mn:\n\tprint(fact(4))\n"))

	assert.Contains(t, out.String(), "6")
	assert.Contains(t, out.String(), "24")
}

func Test_Session_frontEndErrorLeavesSessionUsable(t *testing.T) {
	var out strings.Builder
	sess := NewSession(&out)

	err := sess.Eval("mn:\n\tprint(undefinedName)\n")
	assert.Error(t, err)

	require.NoError(t, sess.Eval("mn:\n\tprint(1)\n"))
	assert.Contains(t, out.String(), "1")
}

func Test_FormatDiagnostic(t *testing.T) {
	_, err := Parse("fn (:\n")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(FormatDiagnostic(err), "error: "))
}
