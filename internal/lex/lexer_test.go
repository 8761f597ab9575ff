package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indentBalance returns the running total of INDENT tokens minus DEDENT
// tokens; a well-formed token stream must end at zero (spec §4.1's
// indentation stack always unwinds back to its initial [0] by EOF).
func indentBalance(toks []Token) int {
	balance := 0
	for _, t := range toks {
		switch t.Kind {
		case INDENT:
			balance++
		case DEDENT:
			balance--
		}
	}
	return balance
}

func Test_Lex_indentDedentBalance(t *testing.T) {
	sources := []string{
		"",
		"let x = 1\n",
		"fn f()\n    let x = 1\n    return x\n",
		"fn f()\n    if x\n        let y = 1\n    else\n        let y = 2\n",
		"fn f()\n    for x in xs\n        if x\n            let y = 1\n",
	}
	for _, src := range sources {
		toks, err := Lex(src)
		require.NoError(t, err, src)
		assert.Equal(t, 0, indentBalance(toks), src)
		assert.Equal(t, EOF, toks[len(toks)-1].Kind, src)
	}
}

func Test_Lex_eachIndentHasMatchingDedent(t *testing.T) {
	src := "fn f()\n    if x\n        let y = 1\n    let z = 2\n"
	toks, err := Lex(src)
	require.NoError(t, err)

	var depth, maxDepth int
	for _, tok := range toks {
		switch tok.Kind {
		case INDENT:
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case DEDENT:
			depth--
			require.GreaterOrEqual(t, depth, 0, "DEDENT must never drop below the initial indentation level")
		}
	}
	assert.Equal(t, 0, depth)
	assert.Equal(t, 2, maxDepth)
}

func Test_Lex_mismatchedDedentIsLexicalError(t *testing.T) {
	src := "fn f()\n    if x\n        let y = 1\n      let z = 2\n"
	_, err := Lex(src)
	assert.Error(t, err)
}

func Test_Lex_keywordsAndIdentsDistinguished(t *testing.T) {
	toks, err := Lex("let letter = 1\n")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, KwLet, toks[0].Kind)
	assert.Equal(t, IDENT, toks[1].Kind)
	assert.Equal(t, "letter", toks[1].Lexeme)
}

func Test_Lex_stringEscapes(t *testing.T) {
	toks, err := Lex(`"a\nb"` + "\n")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, STRING, toks[0].Kind)
	assert.Equal(t, "a\nb", toks[0].Lexeme)
}

func Test_Lex_unterminatedStringIsError(t *testing.T) {
	_, err := Lex(`"unterminated`)
	assert.Error(t, err)
}

func Test_Lex_floatVsIntLiteral(t *testing.T) {
	toks, err := Lex("1 1.5\n")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, INT, toks[0].Kind)
	assert.Equal(t, FLOAT, toks[1].Kind)
}
