// Package ast defines the gul abstract syntax tree (spec §3, "AST"). A
// Program is an ordered sequence of Stmt; Expr nodes carry a mutable Type
// slot the semantic analyzer fills in (spec §3: "initially Unknown").
//
// The node shape (a closed interface implemented by small concrete
// structs, each exposing its own fields directly rather than the
// teacher's AsXNode()-per-variant accessor style) follows ordinary Go
// idiom for small ASTs; the teacher's tunascript/syntax.ASTNode favors
// accessor methods because it also needs to round-trip back to source
// text (Tunascript()), a concern gul's AST does not have.
package ast

import "github.com/dekarrin/gul/internal/gultype"

// Program is the root of a parsed source file.
type Program struct {
	Statements []Stmt
}

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	Pos() Position
}

// Expr is implemented by every expression node. Every Expr has a mutable
// type slot (spec §3) that starts Unknown and is filled in by the semantic
// analyzer.
type Expr interface {
	exprNode()
	Pos() Position
	ExprType() gultype.Type
	SetExprType(gultype.Type)
}

// Position is the source location a node was parsed from, used in
// diagnostics.
type Position struct {
	Line int
	Col  int
}

func (p Position) Pos() Position { return p }

// typed is embedded in every Expr implementation to provide the type slot
// uniformly.
type typed struct {
	Position
	Type gultype.Type
}

func (t *typed) ExprType() gultype.Type     { return t.Type }
func (t *typed) SetExprType(ty gultype.Type) { t.Type = ty }

// mk builds the embedded typed helper for a given position; its Type
// field starts Unknown (the zero Kind), matching spec §3.
func mk(pos Position) typed { return typed{Position: pos} }

// ---- Statements ----

// VarDecl is `let NAME [: TYPE] = EXPR` (Mutable=false) or `var NAME [:
// TYPE] = EXPR` (Mutable=true).
type VarDecl struct {
	Position
	Name        string
	Annotated   gultype.Type
	HasAnnotation bool
	Value       Expr
	Mutable     bool
}

func (*VarDecl) stmtNode() {}

// Assign is `NAME = EXPR`.
type Assign struct {
	Position
	Name  string
	Value Expr
}

func (*Assign) stmtNode() {}

// IndexAssign is `TARGET[KEY] = EXPR`.
type IndexAssign struct {
	Position
	Target Expr
	Key    Expr
	Value  Expr
}

func (*IndexAssign) stmtNode() {}

// ExprStmt is a bare expression used for its side effects, e.g. a call.
type ExprStmt struct {
	Position
	X Expr
}

func (*ExprStmt) stmtNode() {}

// Param is one function parameter.
type Param struct {
	Name string
	Type gultype.Type
}

// FuncDecl is `fn NAME(params) [-> TYPE]: BLOCK`.
type FuncDecl struct {
	Position
	Name      string
	Params    []Param
	HasResult bool
	Result    gultype.Type
	Body      []Stmt
	Async     bool
}

func (*FuncDecl) stmtNode() {}

// MainBlock is `mn: BLOCK`, the program entry point.
type MainBlock struct {
	Position
	Body []Stmt
}

func (*MainBlock) stmtNode() {}

// StructField is one field of a struct declaration.
type StructField struct {
	Name string
	Type gultype.Type
}

// StructDecl is `struct NAME: FIELDS METHODS`.
type StructDecl struct {
	Position
	Name    string
	Fields  []StructField
	Methods []*FuncDecl
}

func (*StructDecl) stmtNode() {}

// Import is `import NAME` / `@imp NAME`.
type Import struct {
	Position
	Path string
}

func (*Import) stmtNode() {}

// If is `if COND: BLOCK [elif COND: BLOCK]... [else: BLOCK]`.
type If struct {
	Position
	Cond   Expr
	Then   []Stmt
	Elifs  []ElifClause
	Else   []Stmt
	HasElse bool
}

// ElifClause is one `elif COND: BLOCK` arm.
type ElifClause struct {
	Cond Expr
	Body []Stmt
}

func (*If) stmtNode() {}

// While is `while COND: BLOCK`.
type While struct {
	Position
	Cond Expr
	Body []Stmt
}

func (*While) stmtNode() {}

// Loop is `loop: BLOCK`.
type Loop struct {
	Position
	Body []Stmt
}

func (*Loop) stmtNode() {}

// For is `for NAME in EXPR: BLOCK`. IsParallel marks `also_for`
// (spec §4.7's data-parallel for).
type For struct {
	Position
	Var        string
	Iterable   Expr
	Body       []Stmt
	IsParallel bool
}

func (*For) stmtNode() {}

// MatchArm is one `PATTERN: BLOCK` arm of a match statement. Pattern is
// nil for the wildcard `_` arm; PatternIdent is set when the pattern is a
// bare identifier that binds the scrutinee.
type MatchArm struct {
	Pattern      Expr
	PatternIdent string
	IsWildcard   bool
	Body         []Stmt
}

// Match is `match EXPR: ARMS`.
type Match struct {
	Position
	Subject Expr
	Arms    []MatchArm
}

func (*Match) stmtNode() {}

// Break is `break`.
type Break struct{ Position }

func (*Break) stmtNode() {}

// Continue is `continue`.
type Continue struct{ Position }

func (*Continue) stmtNode() {}

// Return is `return [EXPR]`.
type Return struct {
	Position
	Value Expr
}

func (*Return) stmtNode() {}

// Try is `try: BLOCK [catch NAME: BLOCK] [finally: BLOCK]`.
type Try struct {
	Position
	Body        []Stmt
	CatchName   string
	HasCatch    bool
	CatchBody   []Stmt
	HasFinally  bool
	FinallyBody []Stmt
}

func (*Try) stmtNode() {}

// Throw is `throw EXPR`.
type Throw struct {
	Position
	Value Expr
}

func (*Throw) stmtNode() {}

// ForeignBlock is an opaque `@python`/`@rust`/`@sql`/`@c`/`@js` region
// (spec §3: "{language, code}").
type ForeignBlock struct {
	Position
	Language string
	Code     string
}

func (*ForeignBlock) stmtNode() {}

// ---- Expressions ----

type IntLit struct {
	typed
	Value int64
}

func (*IntLit) exprNode() {}

type FloatLit struct {
	typed
	Value float64
}

func (*FloatLit) exprNode() {}

type StringLit struct {
	typed
	Value    string
	IsFormat bool
}

func (*StringLit) exprNode() {}

type BoolLit struct {
	typed
	Value bool
}

func (*BoolLit) exprNode() {}

type Ident struct {
	typed
	Name string
}

func (*Ident) exprNode() {}

type BinaryOp struct {
	typed
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryOp) exprNode() {}

type UnaryOp struct {
	typed
	Op string
	X  Expr
}

func (*UnaryOp) exprNode() {}

type Call struct {
	typed
	Callee Expr
	Args   []Expr
}

func (*Call) exprNode() {}

type Member struct {
	typed
	X    Expr
	Name string
}

func (*Member) exprNode() {}

type Index struct {
	typed
	X   Expr
	Key Expr
}

func (*Index) exprNode() {}

type ListLit struct {
	typed
	Elems []Expr
}

func (*ListLit) exprNode() {}

type SetLit struct {
	typed
	Elems []Expr
}

func (*SetLit) exprNode() {}

type DictEntry struct {
	Key Expr
	Val Expr
}

type DictLit struct {
	typed
	Entries []DictEntry
}

func (*DictLit) exprNode() {}

type Lambda struct {
	typed
	Params []string
	Body   Expr
}

func (*Lambda) exprNode() {}

// TypedWrapper is an expression explicitly annotated with one of the
// `@`-prefixed type tokens, e.g. `@int(x)`.
type TypedWrapper struct {
	typed
	Annotation gultype.Type
	X          Expr
}

func (*TypedWrapper) exprNode() {}

// OwnershipMode mirrors ir.Mode but lives here because it
// annotates source-level expressions (spec §3's "ownership wrapper"
// expression kind), before any IR exists.
type OwnershipMode int

const (
	ModeOwn OwnershipMode = iota
	ModeBorrow
	ModeRef
	ModeTake
	ModeGives
	ModeCopy
)

// OwnershipWrapper is an expression explicitly annotated with an
// ownership mode, e.g. a future extension's `take(x)`/`ref(x)` syntax.
type OwnershipWrapper struct {
	typed
	Mode OwnershipMode
	X    Expr
}

func (*OwnershipWrapper) exprNode() {}

// ListOpKind discriminates the fixed set of list-processing expression
// forms spec §3 lists by name (`car`/`cdr`/`cons`/`map`/`fold`/`slice`).
type ListOpKind int

const (
	ListOpCar ListOpKind = iota
	ListOpCdr
	ListOpCons
	ListOpMap
	ListOpFold
	ListOpSlice
)

// ListOp is one of the fixed built-in list operations.
type ListOp struct {
	typed
	Op   ListOpKind
	Args []Expr
}

func (*ListOp) exprNode() {}

// Await is `await EXPR`.
type Await struct {
	typed
	X Expr
}

func (*Await) exprNode() {}

// ---- Expression constructors ----
//
// typed is unexported so that every Expr's type slot starts Unknown
// uniformly; these constructors are the package's public seam for
// building expression nodes from outside (the parser), since a
// composite literal naming the unexported embedded field isn't legal
// from another package.

func NewIntLit(pos Position, v int64) *IntLit        { return &IntLit{mk(pos), v} }
func NewFloatLit(pos Position, v float64) *FloatLit   { return &FloatLit{mk(pos), v} }
func NewStringLit(pos Position, v string, isFormat bool) *StringLit {
	return &StringLit{mk(pos), v, isFormat}
}
func NewBoolLit(pos Position, v bool) *BoolLit { return &BoolLit{mk(pos), v} }
func NewIdent(pos Position, name string) *Ident { return &Ident{mk(pos), name} }

func NewBinaryOp(pos Position, op string, left, right Expr) *BinaryOp {
	return &BinaryOp{mk(pos), op, left, right}
}

func NewUnaryOp(pos Position, op string, x Expr) *UnaryOp {
	return &UnaryOp{mk(pos), op, x}
}

func NewCall(pos Position, callee Expr, args []Expr) *Call {
	return &Call{mk(pos), callee, args}
}

func NewMember(pos Position, x Expr, name string) *Member {
	return &Member{mk(pos), x, name}
}

func NewIndex(pos Position, x, key Expr) *Index {
	return &Index{mk(pos), x, key}
}

func NewListLit(pos Position, elems []Expr) *ListLit { return &ListLit{mk(pos), elems} }
func NewSetLit(pos Position, elems []Expr) *SetLit   { return &SetLit{mk(pos), elems} }
func NewDictLit(pos Position, entries []DictEntry) *DictLit {
	return &DictLit{mk(pos), entries}
}

func NewLambda(pos Position, params []string, body Expr) *Lambda {
	return &Lambda{mk(pos), params, body}
}

func NewTypedWrapper(pos Position, ann gultype.Type, x Expr) *TypedWrapper {
	return &TypedWrapper{mk(pos), ann, x}
}

func NewOwnershipWrapper(pos Position, mode OwnershipMode, x Expr) *OwnershipWrapper {
	return &OwnershipWrapper{mk(pos), mode, x}
}

func NewListOp(pos Position, op ListOpKind, args []Expr) *ListOp {
	return &ListOp{mk(pos), op, args}
}

func NewAwait(pos Position, x Expr) *Await { return &Await{mk(pos), x} }
