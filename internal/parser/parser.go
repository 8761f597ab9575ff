// Package parser implements gul's recursive-descent, operator-precedence
// parser (spec §4.2). It is hand-written rather than table-driven: the
// teacher's LR/LL(1) table generators (internal/ictiobus/parse, now
// dropped — see DESIGN.md) build grammars from BNF productions, but
// spec §4.2 calls for "recursive-descent with operator-precedence", a
// style the teacher itself uses for TunaScript's older hand-written
// front end before it migrated to generated tables.
package parser

import (
	"strconv"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
	"github.com/dekarrin/gul/internal/lex"
)

// Parser consumes a fixed token slice (the lexer already ran to
// completion) and builds a Program. The parser reports the first error
// and halts, per spec §4.2 ("no resynchronization is required").
type Parser struct {
	toks []lex.Token
	pos  int
}

// Parse lexes and parses src in one call.
func Parse(src string) (*ast.Program, error) {
	toks, err := lex.Lex(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks)
}

// ParseTokens parses an already-lexed token stream.
func ParseTokens(toks []lex.Token) (*ast.Program, error) {
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() lex.Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool     { return p.cur().Kind == lex.EOF }
func (p *Parser) curPos() ast.Position {
	t := p.cur()
	return ast.Position{Line: t.Line, Col: t.Col}
}

func (p *Parser) advance() lex.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k lex.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k lex.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k lex.Kind, what string) (lex.Token, error) {
	if !p.check(k) {
		t := p.cur()
		return lex.Token{}, gulerrors.Syntax(t.Line, t.Col, "expected %s, found %s", what, t.Kind)
	}
	return p.advance(), nil
}

// skipNewlines consumes any run of blank NEWLINE tokens, which can appear
// between statements and before DEDENT.
func (p *Parser) skipNewlines() {
	for p.check(lex.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()
	for !p.atEnd() {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		p.skipNewlines()
	}
	return prog, nil
}

// block parses `INDENT stmt+ DEDENT` (spec §4.2: "A block is an INDENT,
// one or more statements, DEDENT").
func (p *Parser) block() ([]ast.Stmt, error) {
	if _, err := p.expect(lex.NEWLINE, "newline before indented block"); err != nil {
		// some constructs (e.g. a same-line arm) may not have a preceding
		// newline token already consumed by the caller; tolerate its
		// absence here only if INDENT is already current.
		if !p.check(lex.INDENT) {
			return nil, err
		}
	}
	p.skipNewlines()
	if _, err := p.expect(lex.INDENT, "indented block"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	p.skipNewlines()
	for !p.check(lex.DEDENT) && !p.atEnd() {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.skipNewlines()
	}
	if _, err := p.expect(lex.DEDENT, "end of indented block"); err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		t := p.cur()
		return nil, gulerrors.Syntax(t.Line, t.Col, "block must contain at least one statement")
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	pos := p.curPos()
	switch p.cur().Kind {
	case lex.KwLet, lex.KwVar:
		return p.parseVarDecl()
	case lex.KwFn:
		return p.parseFuncDecl()
	case lex.KwMn:
		return p.parseMainBlock()
	case lex.KwStruct:
		return p.parseStructDecl()
	case lex.KwImport:
		return p.parseImport()
	case lex.KwIf:
		return p.parseIf()
	case lex.KwWhile:
		return p.parseWhile()
	case lex.KwLoop:
		return p.parseLoop()
	case lex.KwFor:
		return p.parseFor(false)
	case lex.KwMatch:
		return p.parseMatch()
	case lex.KwBreak:
		p.advance()
		return &ast.Break{Position: pos}, nil
	case lex.KwContinue:
		p.advance()
		return &ast.Continue{Position: pos}, nil
	case lex.KwReturn:
		return p.parseReturn()
	case lex.KwTry:
		return p.parseTry()
	case lex.KwThrow:
		return p.parseThrow()
	case lex.AtPython, lex.AtRust, lex.AtSql, lex.AtC, lex.AtJs:
		return p.parseForeignBlock()
	case lex.IDENT:
		return p.parseIdentLedStmt()
	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Position: pos, X: x}, nil
	}
}

// parseIdentLedStmt disambiguates `NAME = EXPR`, `NAME[KEY] = EXPR`,
// `also_for NAME in EXPR: BLOCK` (the parallel-for keyword, which is a
// contextual identifier rather than a reserved word) from a bare
// expression statement.
func (p *Parser) parseIdentLedStmt() (ast.Stmt, error) {
	if p.cur().Lexeme == "also_for" {
		return p.parseFor(true)
	}

	start := p.pos
	pos := p.curPos()
	name := p.advance().Lexeme

	if p.check(lex.OpAssign) {
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Position: pos, Name: name, Value: val}, nil
	}

	if p.check(lex.LBracket) {
		p.advance()
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RBracket, "]"); err != nil {
			return nil, err
		}
		if p.check(lex.OpAssign) {
			p.advance()
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			target := ast.NewIdent(pos, name)
			return &ast.IndexAssign{Position: pos, Target: target, Key: key, Value: val}, nil
		}
	}

	// not an assignment after all: back up and parse as a full expression
	// statement (handles calls, member/index chains used for side effect).
	p.pos = start
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Position: pos, X: x}, nil
}

func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	pos := p.curPos()
	mutable := p.cur().Kind == lex.KwVar
	p.advance()

	name, err := p.expect(lex.IDENT, "variable name")
	if err != nil {
		return nil, err
	}

	decl := &ast.VarDecl{Position: pos, Name: name.Lexeme, Mutable: mutable}

	if p.match(lex.Colon) {
		ty, err := p.parseTypeAnnotation()
		if err != nil {
			return nil, err
		}
		decl.Annotated = ty
		decl.HasAnnotation = true
	}

	if _, err := p.expect(lex.OpAssign, "="); err != nil {
		return nil, err
	}

	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	decl.Value = val
	return decl, nil
}

func (p *Parser) parseTypeAnnotation() (gultype.Type, error) {
	t := p.cur()
	switch t.Kind {
	case lex.TypeInt:
		p.advance()
		return gultype.Of(gultype.Int), nil
	case lex.TypeFloat:
		p.advance()
		return gultype.Of(gultype.Float), nil
	case lex.TypeStr:
		p.advance()
		return gultype.Of(gultype.String), nil
	case lex.TypeBool:
		p.advance()
		return gultype.Of(gultype.Bool), nil
	case lex.TypeList:
		p.advance()
		elem, err := p.parseBracketedTypeArg()
		if err != nil {
			return gultype.Type{}, err
		}
		return gultype.NewList(elem), nil
	case lex.TypeSet:
		p.advance()
		elem, err := p.parseBracketedTypeArg()
		if err != nil {
			return gultype.Type{}, err
		}
		return gultype.NewSet(elem), nil
	case lex.TypeOption:
		p.advance()
		elem, err := p.parseBracketedTypeArg()
		if err != nil {
			return gultype.Type{}, err
		}
		return gultype.NewOption(elem), nil
	case lex.TypeBox:
		p.advance()
		elem, err := p.parseBracketedTypeArg()
		if err != nil {
			return gultype.Type{}, err
		}
		return elem, nil
	case lex.TypeDict:
		p.advance()
		if _, err := p.expect(lex.LBracket, "["); err != nil {
			return gultype.Type{}, err
		}
		key, err := p.parseTypeAnnotation()
		if err != nil {
			return gultype.Type{}, err
		}
		if _, err := p.expect(lex.Comma, ","); err != nil {
			return gultype.Type{}, err
		}
		val, err := p.parseTypeAnnotation()
		if err != nil {
			return gultype.Type{}, err
		}
		if _, err := p.expect(lex.RBracket, "]"); err != nil {
			return gultype.Type{}, err
		}
		return gultype.NewDict(key, val), nil
	case lex.TypeTuple:
		p.advance()
		if _, err := p.expect(lex.LBracket, "["); err != nil {
			return gultype.Type{}, err
		}
		var members []gultype.Type
		for !p.check(lex.RBracket) {
			m, err := p.parseTypeAnnotation()
			if err != nil {
				return gultype.Type{}, err
			}
			members = append(members, m)
			if !p.match(lex.Comma) {
				break
			}
		}
		if _, err := p.expect(lex.RBracket, "]"); err != nil {
			return gultype.Type{}, err
		}
		return gultype.NewTuple(members...), nil
	case lex.IDENT:
		p.advance()
		return gultype.NewUnit(t.Lexeme), nil
	default:
		return gultype.Type{}, gulerrors.Syntax(t.Line, t.Col, "expected type annotation, found %s", t.Kind)
	}
}

func (p *Parser) parseBracketedTypeArg() (gultype.Type, error) {
	if _, err := p.expect(lex.LBracket, "["); err != nil {
		return gultype.Type{}, err
	}
	elem, err := p.parseTypeAnnotation()
	if err != nil {
		return gultype.Type{}, err
	}
	if _, err := p.expect(lex.RBracket, "]"); err != nil {
		return gultype.Type{}, err
	}
	return elem, nil
}

func (p *Parser) parseFuncDecl() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'fn'

	name, err := p.expect(lex.IDENT, "function name")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lex.LParen, "("); err != nil {
		return nil, err
	}

	var params []ast.Param
	for !p.check(lex.RParen) {
		pn, err := p.expect(lex.IDENT, "parameter name")
		if err != nil {
			return nil, err
		}
		param := ast.Param{Name: pn.Lexeme}
		if p.match(lex.Colon) {
			ty, err := p.parseTypeAnnotation()
			if err != nil {
				return nil, err
			}
			param.Type = ty
		}
		params = append(params, param)
		if !p.match(lex.Comma) {
			break
		}
	}
	if _, err := p.expect(lex.RParen, ")"); err != nil {
		return nil, err
	}

	decl := &ast.FuncDecl{Position: pos, Name: name.Lexeme, Params: params}

	if p.match(lex.OpArrow) {
		ty, err := p.parseTypeAnnotation()
		if err != nil {
			return nil, err
		}
		decl.Result = ty
		decl.HasResult = true
	}

	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

func (p *Parser) parseMainBlock() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'mn'
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.MainBlock{Position: pos, Body: body}, nil
}

func (p *Parser) parseStructDecl() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'struct'
	name, err := p.expect(lex.IDENT, "struct name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.NEWLINE, "newline"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lex.INDENT, "indented struct body"); err != nil {
		return nil, err
	}

	decl := &ast.StructDecl{Position: pos, Name: name.Lexeme}
	p.skipNewlines()
	for !p.check(lex.DEDENT) && !p.atEnd() {
		if p.check(lex.KwFn) {
			method, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, method.(*ast.FuncDecl))
		} else {
			fname, err := p.expect(lex.IDENT, "field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lex.Colon, ":"); err != nil {
				return nil, err
			}
			ty, err := p.parseTypeAnnotation()
			if err != nil {
				return nil, err
			}
			decl.Fields = append(decl.Fields, ast.StructField{Name: fname.Lexeme, Type: ty})
		}
		p.skipNewlines()
	}
	if _, err := p.expect(lex.DEDENT, "end of struct body"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseImport() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'import'
	name, err := p.expect(lex.IDENT, "import path")
	if err != nil {
		return nil, err
	}
	return &ast.Import{Position: pos, Path: name.Lexeme}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	n := &ast.If{Position: pos, Cond: cond, Then: body}

	for p.check(lex.KwElif) {
		p.advance()
		ec, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.Colon, ":"); err != nil {
			return nil, err
		}
		eb, err := p.block()
		if err != nil {
			return nil, err
		}
		n.Elifs = append(n.Elifs, ast.ElifClause{Cond: ec, Body: eb})
	}

	if p.check(lex.KwElse) {
		p.advance()
		if _, err := p.expect(lex.Colon, ":"); err != nil {
			return nil, err
		}
		eb, err := p.block()
		if err != nil {
			return nil, err
		}
		n.Else = eb
		n.HasElse = true
	}

	return n, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.While{Position: pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseLoop() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance()
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.Loop{Position: pos, Body: body}, nil
}

func (p *Parser) parseFor(isParallel bool) (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'for' or 'also_for'
	name, err := p.expect(lex.IDENT, "loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.KwIn, "in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.For{Position: pos, Var: name.Lexeme, Iterable: iter, Body: body, IsParallel: isParallel}, nil
}

func (p *Parser) parseMatch() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'match'
	subj, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.NEWLINE, "newline"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lex.INDENT, "indented match arms"); err != nil {
		return nil, err
	}

	m := &ast.Match{Position: pos, Subject: subj}
	p.skipNewlines()
	for !p.check(lex.DEDENT) && !p.atEnd() {
		arm, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		m.Arms = append(m.Arms, arm)
		p.skipNewlines()
	}
	if _, err := p.expect(lex.DEDENT, "end of match arms"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseMatchArm() (ast.MatchArm, error) {
	var arm ast.MatchArm

	if p.cur().Lexeme == "_" && p.check(lex.IDENT) {
		p.advance()
		arm.IsWildcard = true
	} else if p.check(lex.IDENT) {
		// an identifier pattern binds the scrutinee; a literal pattern is
		// parsed as an ordinary expression for comparison.
		arm.PatternIdent = p.advance().Lexeme
	} else {
		pat, err := p.parseExpr()
		if err != nil {
			return arm, err
		}
		arm.Pattern = pat
	}

	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return arm, err
	}
	body, err := p.block()
	if err != nil {
		return arm, err
	}
	arm.Body = body
	return arm, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance()
	if p.check(lex.NEWLINE) || p.check(lex.DEDENT) || p.atEnd() {
		return &ast.Return{Position: pos}, nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Position: pos, Value: val}, nil
}

func (p *Parser) parseTry() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance() // 'try'
	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	n := &ast.Try{Position: pos, Body: body}

	if p.check(lex.KwCatch) {
		p.advance()
		name, err := p.expect(lex.IDENT, "caught error name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.Colon, ":"); err != nil {
			return nil, err
		}
		cb, err := p.block()
		if err != nil {
			return nil, err
		}
		n.CatchName = name.Lexeme
		n.CatchBody = cb
		n.HasCatch = true
	}

	if p.check(lex.KwFinally) {
		p.advance()
		if _, err := p.expect(lex.Colon, ":"); err != nil {
			return nil, err
		}
		fb, err := p.block()
		if err != nil {
			return nil, err
		}
		n.FinallyBody = fb
		n.HasFinally = true
	}

	return n, nil
}

func (p *Parser) parseThrow() (ast.Stmt, error) {
	pos := p.curPos()
	p.advance()
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Throw{Position: pos, Value: val}, nil
}

// parseForeignBlock captures a `@python`/`@rust`/`@sql`/`@c`/`@js` region
// as opaque text, per spec §4.2: "the block is captured as {language,
// code} and not otherwise parsed by the core." The raw source text
// between the opener and the matching DEDENT was not retained by the
// lexer (it tokenizes normally), so the code is reconstructed from the
// original lexemes rather than sliced out of the source buffer; this
// loses exact original whitespace inside the block but preserves its
// token content, which is all the interpreter's out-of-process execution
// (spec §4.7) needs.
func (p *Parser) parseForeignBlock() (ast.Stmt, error) {
	pos := p.curPos()
	langTok := p.advance()
	language := langTok.Lexeme[1:] // strip leading '@'

	if _, err := p.expect(lex.Colon, ":"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.NEWLINE, "newline"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(lex.INDENT, "indented foreign block"); err != nil {
		return nil, err
	}

	var code []string
	depth := 1
	for depth > 0 && !p.atEnd() {
		t := p.cur()
		switch t.Kind {
		case lex.INDENT:
			depth++
			p.advance()
			continue
		case lex.DEDENT:
			depth--
			p.advance()
			continue
		case lex.NEWLINE:
			code = append(code, "\n")
			p.advance()
			continue
		}
		code = append(code, t.Lexeme)
		p.advance()
	}

	raw := ""
	for _, c := range code {
		if c == "\n" {
			raw += "\n"
		} else {
			if raw != "" && raw[len(raw)-1] != '\n' {
				raw += " "
			}
			raw += c
		}
	}

	return &ast.ForeignBlock{Position: pos, Language: language, Code: raw}, nil
}

// ---- Expressions ----
//
// Precedence, loosest to tightest, per spec §4.2:
// assignment < ternary ?: < or < and < bit-or < bit-xor < bit-and <
// equality < comparisons < shifts < add/sub < mul/div/mod < power < unary.
//
// Assignment itself is handled at the statement level (parseIdentLedStmt),
// so parseExpr begins at the ternary tier.

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseTernary()
}

func (p *Parser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.match(lex.OpQuestion) {
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.Colon, ":"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		pos := cond.Pos()
		return ast.NewCall(pos, ast.NewIdent(pos, "__ternary__"), []ast.Expr{cond, then, els}), nil
	}
	return cond, nil
}

func (p *Parser) parseLeftAssoc(kinds []lex.Kind, next func(*Parser) (ast.Expr, error)) (ast.Expr, error) {
	left, err := next(p)
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, k := range kinds {
			if p.check(k) {
				op := p.advance()
				right, err := next(p)
				if err != nil {
					return nil, err
				}
				left = ast.NewBinaryOp(left.Pos(), op.Lexeme, left, right)
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *Parser) parseOr() (ast.Expr, error) {
	return p.parseBoolBinary("or", p.parseAnd)
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	return p.parseBoolBinary("and", p.parseBitOr)
}

// parseBoolBinary handles the `and`/`or` keyword-style binary operators,
// which lex as identifiers rather than dedicated operator tokens.
func (p *Parser) parseBoolBinary(word string, next func() (ast.Expr, error)) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.check(lex.IDENT) && p.cur().Lexeme == word {
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(left.Pos(), word, left, right)
	}
	return left, nil
}

func (p *Parser) parseBitOr() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpPipe}, (*Parser).parseBitXor)
}

func (p *Parser) parseBitXor() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpCaret}, (*Parser).parseBitAnd)
}

func (p *Parser) parseBitAnd() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpAmp}, (*Parser).parseEquality)
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpEq, lex.OpNe}, (*Parser).parseComparison)
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpLt, lex.OpLe, lex.OpGt, lex.OpGe}, (*Parser).parseShift)
}

func (p *Parser) parseShift() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpShl, lex.OpShr}, (*Parser).parseAddSub)
}

func (p *Parser) parseAddSub() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpPlus, lex.OpMinus}, (*Parser).parseMulDivMod)
}

func (p *Parser) parseMulDivMod() (ast.Expr, error) {
	return p.parseLeftAssoc([]lex.Kind{lex.OpStar, lex.OpSlash, lex.OpPercent}, (*Parser).parsePower)
}

func (p *Parser) parsePower() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.check(lex.OpStarStar) {
		op := p.advance()
		right, err := p.parsePower() // right-associative
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryOp(left.Pos(), op.Lexeme, left, right), nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	pos := p.curPos()
	switch p.cur().Kind {
	case lex.OpMinus, lex.OpTilde:
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(pos, op.Lexeme, x), nil
	}
	if p.check(lex.IDENT) && p.cur().Lexeme == "not" {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(pos, "not", x), nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(lex.Dot):
			p.advance()
			name, err := p.expect(lex.IDENT, "member name")
			if err != nil {
				return nil, err
			}
			if p.check(lex.LParen) {
				args, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				x = ast.NewCall(x.Pos(), ast.NewMember(x.Pos(), x, name.Lexeme), args)
			} else {
				x = ast.NewMember(x.Pos(), x, name.Lexeme)
			}
		case p.check(lex.LBracket):
			p.advance()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lex.RBracket, "]"); err != nil {
				return nil, err
			}
			x = ast.NewIndex(x.Pos(), x, key)
		case p.check(lex.LParen):
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			x = ast.NewCall(x.Pos(), x, args)
		default:
			return x, nil
		}
	}
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if _, err := p.expect(lex.LParen, "("); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.check(lex.RParen) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.match(lex.Comma) {
			break
		}
	}
	if _, err := p.expect(lex.RParen, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

var listOpNames = map[string]ast.ListOpKind{
	"car": ast.ListOpCar, "cdr": ast.ListOpCdr, "cons": ast.ListOpCons,
	"map": ast.ListOpMap, "fold": ast.ListOpFold, "slice": ast.ListOpSlice,
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.curPos()
	t := p.cur()

	switch t.Kind {
	case lex.INT:
		p.advance()
		n, err := strconv.ParseInt(t.Lexeme, 10, 64)
		if err != nil {
			return nil, gulerrors.Syntax(t.Line, t.Col, "malformed integer literal %q", t.Lexeme)
		}
		return ast.NewIntLit(pos, n), nil
	case lex.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(t.Lexeme, 64)
		if err != nil {
			return nil, gulerrors.Syntax(t.Line, t.Col, "malformed float literal %q", t.Lexeme)
		}
		return ast.NewFloatLit(pos, f), nil
	case lex.STRING:
		p.advance()
		return ast.NewStringLit(pos, t.Lexeme, false), nil
	case lex.FSTRING:
		p.advance()
		return ast.NewStringLit(pos, t.Lexeme, true), nil
	case lex.BOOL:
		p.advance()
		return ast.NewBoolLit(pos, t.Lexeme == "true"), nil
	case lex.KwAwait:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewAwait(pos, x), nil
	case lex.LParen:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RParen, ")"); err != nil {
			return nil, err
		}
		return x, nil
	case lex.LBracket:
		return p.parseListLit(pos)
	case lex.LBrace:
		return p.parseSetOrDictLit(pos)
	case lex.TypeInt, lex.TypeFloat, lex.TypeStr, lex.TypeBool, lex.TypeList,
		lex.TypeDict, lex.TypeSet, lex.TypeTuple, lex.TypeOption, lex.TypeBox:
		return p.parseTypedWrapperOrCast(pos)
	case lex.IDENT:
		if kind, ok := listOpNames[t.Lexeme]; ok {
			return p.parseListOp(pos, kind)
		}
		return p.parseIdentOrLambda(pos)
	default:
		return nil, gulerrors.Syntax(t.Line, t.Col, "unexpected token %s", t.Kind)
	}
}

// parseIdentOrLambda handles both a bare identifier reference and a
// lambda whose parameter list happens to be a single bare name without
// parens, e.g. `x => x * x`.
func (p *Parser) parseIdentOrLambda(pos ast.Position) (ast.Expr, error) {
	name := p.advance().Lexeme
	if p.check(lex.OpFatArrow) {
		p.advance()
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewLambda(pos, []string{name}, body), nil
	}
	return ast.NewIdent(pos, name), nil
}

// parseListOp parses one of the fixed list-processing forms:
// `car(xs)`, `cdr(xs)`, `cons(x, xs)`, `map(xs, f)`, `fold(xs, init, f)`,
// `slice(xs, lo, hi)`.
func (p *Parser) parseListOp(pos ast.Position, kind ast.ListOpKind) (ast.Expr, error) {
	p.advance() // the op name
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return ast.NewListOp(pos, kind, args), nil
}

func (p *Parser) parseListLit(pos ast.Position) (ast.Expr, error) {
	p.advance() // '['
	var elems []ast.Expr
	for !p.check(lex.RBracket) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if !p.match(lex.Comma) {
			break
		}
	}
	if _, err := p.expect(lex.RBracket, "]"); err != nil {
		return nil, err
	}
	return ast.NewListLit(pos, elems), nil
}

// parseSetOrDictLit disambiguates `{1, 2, 3}` (a Set) from `{1: "a", 2:
// "b"}` (a Dict) by looking one expression ahead for a colon.
func (p *Parser) parseSetOrDictLit(pos ast.Position) (ast.Expr, error) {
	p.advance() // '{'
	if p.check(lex.RBrace) {
		p.advance()
		return ast.NewSetLit(pos, nil), nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.match(lex.Colon) {
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entries := []ast.DictEntry{{Key: first, Val: val}}
		for p.match(lex.Comma) {
			if p.check(lex.RBrace) {
				break
			}
			k, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lex.Colon, ":"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			entries = append(entries, ast.DictEntry{Key: k, Val: v})
		}
		if _, err := p.expect(lex.RBrace, "}"); err != nil {
			return nil, err
		}
		return ast.NewDictLit(pos, entries), nil
	}

	elems := []ast.Expr{first}
	for p.match(lex.Comma) {
		if p.check(lex.RBrace) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(lex.RBrace, "}"); err != nil {
		return nil, err
	}
	return ast.NewSetLit(pos, elems), nil
}

// parseTypedWrapperOrCast parses `@TYPE(expr)`, e.g. `@int(x)`, `@float(x)`.
func (p *Parser) parseTypedWrapperOrCast(pos ast.Position) (ast.Expr, error) {
	ty, err := p.parseTypeAnnotation()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.LParen, "("); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.RParen, ")"); err != nil {
		return nil, err
	}
	return ast.NewTypedWrapper(pos, ty, x), nil
}
