// Package lex turns gul source text into a buffered stream of tokens,
// synthesizing INDENT/DEDENT markers from changes in leading whitespace
// (spec §4.1). Token below is a plain struct of kind, lexeme, line and
// column, a simplification of internal/ictiobus/lex's Token/TokenClass
// interfaces; the scanning
// algorithm itself is hand-rolled, in the manner of the teacher's older
// tunascript lexer, because indentation bookkeeping needs per-line
// look-ahead state a table-driven regex lexer has no place to keep.
package lex

import "fmt"

// Kind identifies the category of a Token.
type Kind int

const (
	EOF Kind = iota
	NEWLINE
	INDENT
	DEDENT

	INT
	FLOAT
	STRING
	FSTRING
	BOOL
	IDENT
	DECORATOR // unrecognized @-prefixed token

	// keywords
	KwLet
	KwVar
	KwFn
	KwMn
	KwAsync
	KwAwait
	KwIf
	KwElif
	KwElse
	KwFor
	KwWhile
	KwLoop
	KwBreak
	KwContinue
	KwReturn
	KwMatch
	KwStruct
	KwImport
	KwTry
	KwCatch
	KwFinally
	KwThrow
	KwIn

	// type-annotation tokens
	TypeInt
	TypeFloat
	TypeStr
	TypeBool
	TypeList
	TypeDict
	TypeSet
	TypeTuple
	TypeOption
	TypeBox

	// foreign-block openers
	AtPython
	AtRust
	AtSql
	AtC
	AtJs

	// operators and punctuation
	OpPlus
	OpMinus
	OpStar
	OpSlash
	OpPercent
	OpStarStar
	OpAssign
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpArrow
	OpFatArrow
	OpShl
	OpShr
	OpPlusEq
	OpMinusEq
	OpStarEq
	OpSlashEq
	OpPercentEq
	OpAmp
	OpPipe
	OpCaret
	OpTilde
	OpQuestion
	OpDollar
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Semicolon
	Colon
	Dot
)

// keywords is the closed table of reserved words, looked up once an
// identifier-shaped run of characters has been scanned.
var keywords = map[string]Kind{
	"let": KwLet, "var": KwVar, "fn": KwFn, "mn": KwMn,
	"async": KwAsync, "await": KwAwait, "if": KwIf, "elif": KwElif,
	"else": KwElse, "for": KwFor, "while": KwWhile, "loop": KwLoop,
	"break": KwBreak, "continue": KwContinue, "return": KwReturn,
	"match": KwMatch, "struct": KwStruct, "import": KwImport,
	"try": KwTry, "catch": KwCatch, "finally": KwFinally,
	"throw": KwThrow, "in": KwIn,
}

// typeAnnotations is the closed table of `@`-prefixed type tokens; any
// other `@word` lexes as DECORATOR, and `@python`/`@rust`/`@sql`/`@c`/`@js`
// open foreign-code blocks instead of being type annotations.
var typeAnnotations = map[string]Kind{
	"int": TypeInt, "float": TypeFloat, "str": TypeStr, "bool": TypeBool,
	"list": TypeList, "dict": TypeDict, "set": TypeSet, "tuple": TypeTuple,
	"option": TypeOption, "box": TypeBox,
}

var foreignBlocks = map[string]Kind{
	"python": AtPython, "rust": AtRust, "sql": AtSql, "c": AtC, "js": AtJs,
}

// Token is a single lexed unit: its kind, the exact source text it was
// scanned from, and its starting line/column (both 1-based).
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Col    int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Lexeme, t.Line, t.Col)
}

// kindNames gives a human-readable name for each Kind, used in diagnostics
// and in String().
var kindNames = map[Kind]string{
	EOF: "EOF", NEWLINE: "NEWLINE", INDENT: "INDENT", DEDENT: "DEDENT",
	INT: "INT", FLOAT: "FLOAT", STRING: "STRING", FSTRING: "FSTRING",
	BOOL: "BOOL", IDENT: "IDENT", DECORATOR: "DECORATOR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	for name, kw := range keywords {
		if kw == k {
			return "kw:" + name
		}
	}
	for name, ty := range typeAnnotations {
		if ty == k {
			return "@" + name
		}
	}
	return "OP"
}
