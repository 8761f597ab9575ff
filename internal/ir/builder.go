package ir

import (
	"fmt"

	"github.com/dekarrin/gul/internal/ast"
)

// Builder lifts an annotated AST into a Graph (spec §4.4: "the IR-builder
// traverses the program; each statement or expression is translated
// into one or more nodes with explicit input/output ports carrying
// ownership modes"). Every output port is Own. An input edge fed by a
// plain read of a let/var binding is Take on that binding's last
// remaining read and Ref on earlier reads (see modeFor); every other
// input edge is Ref unless an ownership wrapper supplies its mode. No
// input defaults to Borrow, and read-only sinks such as print get no
// special case.
type Builder struct {
	g         *Graph
	nextID    int
	bindings  map[string]portRef // variable name -> producing (node,port)
	remaining map[string]int     // variable name -> reads not yet consumed
}

type portRef struct {
	node string
	port string
}

// NewBuilder starts a fresh graph builder.
func NewBuilder() *Builder {
	return &Builder{g: &Graph{}, bindings: make(map[string]portRef), remaining: make(map[string]int)}
}

func (b *Builder) freshID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s%d", prefix, b.nextID)
}

func (b *Builder) addNode(n *Node) { b.g.Nodes = append(b.g.Nodes, n) }

func (b *Builder) addEdge(from portRef, to portRef, mode Mode) {
	b.g.Edges = append(b.g.Edges, Edge{FromNode: from.node, FromPort: from.port, ToNode: to.node, ToPort: to.port, Mode: mode})
}

// BuildFunction lowers one function body (a FuncDecl's or MainBlock's
// statement list) into a graph. Every top-level let/var binding's final
// producer becomes an exit node so mandatory consumption is satisfiable
// for values never otherwise read (spec §3: exit_nodes are read by the
// caller after execution).
func BuildFunction(body []ast.Stmt) *Graph {
	b := NewBuilder()
	b.remaining = countReads(body)
	for _, s := range body {
		b.buildStmt(s)
	}
	for _, ref := range b.bindings {
		b.g.ExitNodes = append(b.g.ExitNodes, ref.node+":"+ref.port)
	}
	return b.g
}

// countReads counts, for every name read as a plain identifier anywhere
// in body (not a VarDecl/Assign target), how many times it is read. The
// builder treats a read as a move point exactly when it is that name's
// last remaining read, per spec §4.4's move-point heuristic; since the
// builder does not version bindings across reassignment, the count is
// function-wide rather than per-generation.
func countReads(body []ast.Stmt) map[string]int {
	counts := make(map[string]int)

	var visitExpr func(e ast.Expr)
	visitExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Ident:
			counts[n.Name]++
		case *ast.BinaryOp:
			visitExpr(n.Left)
			visitExpr(n.Right)
		case *ast.Call:
			for _, arg := range n.Args {
				visitExpr(arg)
			}
		case *ast.OwnershipWrapper:
			visitExpr(n.X)
		case *ast.TypedWrapper:
			visitExpr(n.X)
		}
	}

	var visitStmt func(s ast.Stmt)
	visitStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.VarDecl:
			visitExpr(n.Value)
		case *ast.Assign:
			visitExpr(n.Value)
		case *ast.ExprStmt:
			visitExpr(n.X)
		case *ast.If:
			visitExpr(n.Cond)
			for _, st := range n.Then {
				visitStmt(st)
			}
			for _, el := range n.Elifs {
				visitExpr(el.Cond)
				for _, st := range el.Body {
					visitStmt(st)
				}
			}
			for _, st := range n.Else {
				visitStmt(st)
			}
		case *ast.While:
			visitExpr(n.Cond)
			for _, st := range n.Body {
				visitStmt(st)
			}
		case *ast.Loop:
			for _, st := range n.Body {
				visitStmt(st)
			}
		case *ast.For:
			visitExpr(n.Iterable)
			for _, st := range n.Body {
				visitStmt(st)
			}
		case *ast.Return:
			if n.Value != nil {
				visitExpr(n.Value)
			}
		}
	}

	for _, s := range body {
		visitStmt(s)
	}
	return counts
}

// modeFor picks the ownership mode a consumer input edge from e should
// carry: the last remaining read of a tracked local binding is a move
// point (Take), any earlier read is a Ref, and anything that is not a
// plain reference to a tracked binding (a literal, a nested call, a
// function parameter never registered in bindings) defaults to Ref.
func (b *Builder) modeFor(e ast.Expr) Mode {
	id, ok := e.(*ast.Ident)
	if !ok {
		return Ref
	}
	if _, bound := b.bindings[id.Name]; !bound {
		return Ref
	}
	b.remaining[id.Name]--
	if b.remaining[id.Name] <= 0 {
		return Take
	}
	return Ref
}

func (b *Builder) buildStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		ref := b.buildExpr(n.Value)
		b.bindings[n.Name] = ref

	case *ast.Assign:
		ref := b.buildExpr(n.Value)
		b.bindings[n.Name] = ref

	case *ast.ExprStmt:
		// a bare expression statement's value is used only for its side
		// effect (e.g. print(...)); it is still an Own output, so it is
		// registered as an exit node rather than left unconsumed, which
		// would otherwise spuriously trip E001's mandatory-consumption
		// check on every statement-level call.
		ref := b.buildExpr(n.X)
		b.g.ExitNodes = append(b.g.ExitNodes, ref.node+":"+ref.port)

	case *ast.If:
		b.buildExpr(n.Cond)
		for _, st := range n.Then {
			b.buildStmt(st)
		}
		for _, el := range n.Elifs {
			b.buildExpr(el.Cond)
			for _, st := range el.Body {
				b.buildStmt(st)
			}
		}
		for _, st := range n.Else {
			b.buildStmt(st)
		}

	case *ast.While:
		b.buildExpr(n.Cond)
		for _, st := range n.Body {
			b.buildStmt(st)
		}

	case *ast.Loop:
		for _, st := range n.Body {
			b.buildStmt(st)
		}

	case *ast.For:
		b.buildExpr(n.Iterable)
		for _, st := range n.Body {
			b.buildStmt(st)
		}

	case *ast.Return:
		if n.Value != nil {
			b.buildExpr(n.Value)
		}

	default:
		// statements with no data-flow payload (struct/fn/import/match/
		// break/continue/try/throw/foreign-block) don't need IR nodes
		// for the VM path; they are handled by the interpreter and the
		// native code generator instead.
	}
}

// buildExpr lowers e to one or more nodes and returns the (node, port)
// producing its value. Literal/identifier/call nodes get a single
// output port "out" with Own ownership, per spec §4.4's defaults.
func (b *Builder) buildExpr(e ast.Expr) portRef {
	switch n := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit:
		id := b.freshID("lit")
		b.addNode(&Node{
			ID:     id,
			Name:   "input",
			Output: []Port{{Name: "out", Type: e.ExprType(), Ownership: Own}},
		})
		return portRef{id, "out"}

	case *ast.Ident:
		if ref, ok := b.bindings[n.Name]; ok {
			return ref
		}
		id := b.freshID("ident")
		b.addNode(&Node{
			ID:     id,
			Name:   "input",
			Output: []Port{{Name: "out", Type: n.ExprType(), Ownership: Own}},
		})
		return portRef{id, "out"}

	case *ast.BinaryOp:
		left := b.buildExpr(n.Left)
		right := b.buildExpr(n.Right)
		leftMode := b.modeFor(n.Left)
		rightMode := b.modeFor(n.Right)
		id := b.freshID("op")
		name := binaryNodeName(n.Op)
		node := &Node{
			ID:   id,
			Name: name,
			Inputs: []Port{
				{Name: "a", Type: n.Left.ExprType(), Ownership: leftMode},
				{Name: "b", Type: n.Right.ExprType(), Ownership: rightMode},
			},
			Output: []Port{{Name: "out", Type: n.ExprType(), Ownership: Own}},
		}
		b.addNode(node)
		b.addEdge(left, portRef{id, "a"}, leftMode)
		b.addEdge(right, portRef{id, "b"}, rightMode)
		return portRef{id, "out"}

	case *ast.Call:
		id := b.freshID("call")
		argRefs := make([]portRef, len(n.Args))
		argModes := make([]Mode, len(n.Args))
		node := &Node{ID: id, Name: calleeNodeName(n.Callee)}
		for i, arg := range n.Args {
			argRefs[i] = b.buildExpr(arg)
			argModes[i] = b.modeFor(arg)
			portName := fmt.Sprintf("in%d", i)
			node.Inputs = append(node.Inputs, Port{Name: portName, Type: arg.ExprType(), Ownership: argModes[i]})
		}
		node.Output = []Port{{Name: "out", Type: n.ExprType(), Ownership: Own}}
		b.addNode(node)
		for i, ref := range argRefs {
			b.addEdge(ref, portRef{id, fmt.Sprintf("in%d", i)}, argModes[i])
		}
		return portRef{id, "out"}

	case *ast.OwnershipWrapper:
		inner := b.buildExpr(n.X)
		mode := ownershipMode(n.Mode)
		id := b.freshID("ownwrap")
		node := &Node{
			ID:     id,
			Name:   "pass",
			Inputs: []Port{{Name: "in", Type: n.X.ExprType(), Ownership: mode}},
			Output: []Port{{Name: "out", Type: n.ExprType(), Ownership: Own}},
		}
		b.addNode(node)
		b.addEdge(inner, portRef{id, "in"}, mode)
		return portRef{id, "out"}

	default:
		id := b.freshID("expr")
		b.addNode(&Node{
			ID:     id,
			Name:   "input",
			Output: []Port{{Name: "out", Type: e.ExprType(), Ownership: Own}},
		})
		return portRef{id, "out"}
	}
}

// ownershipMode translates an explicit source-level ownership annotation
// (spec §3's ownership wrapper expression) to its IR-level Mode.
func ownershipMode(m ast.OwnershipMode) Mode {
	switch m {
	case ast.ModeBorrow:
		return Borrow
	case ast.ModeRef:
		return Ref
	case ast.ModeTake:
		return Take
	case ast.ModeGives:
		return Gives
	case ast.ModeCopy:
		return Copy
	default:
		return Own
	}
}

func binaryNodeName(op string) string {
	switch op {
	case "+":
		return "add"
	case "*":
		return "multiply"
	default:
		return "pass"
	}
}

func calleeNodeName(callee ast.Expr) string {
	if id, ok := callee.(*ast.Ident); ok {
		switch id.Name {
		case "print":
			return "print"
		default:
			return id.Name
		}
	}
	return "call"
}
