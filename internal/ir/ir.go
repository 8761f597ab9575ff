// Package ir defines gul's data-flow IR graph (spec §3, "IR graph") and
// implements the ownership checker and topological scheduler over it
// (spec §4.4). The cycle-detection DFS and post-order topological sort
// are grounded on internal/ictiobus/automaton's state-graph traversal
// (recursive visit with a "currently on stack" set), repurposed here
// from DFA states to IR nodes.
package ir

import (
	"sort"

	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
)

// Mode is one of the six ownership modes of spec §3.
type Mode int

const (
	Own Mode = iota
	Borrow
	Ref
	Take
	Gives
	Copy
)

// Port is one named, typed, ownership-tagged port on a node.
type Port struct {
	Name      string
	Type      gultype.Type
	Ownership Mode
}

// Node is one IR graph node: an id, a dispatch name, its ports, and any
// trait tags callers attach (e.g. "pure", "sink").
type Node struct {
	ID     string
	Name   string
	Inputs []Port
	Output []Port
	Traits []string
}

// OutputPort finds node's output port by name.
func (n *Node) OutputPort(name string) (Port, bool) {
	for _, p := range n.Output {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Edge connects one producer's output port to one consumer's input port
// under a specific ownership mode.
type Edge struct {
	FromNode string
	FromPort string
	ToNode   string
	ToPort   string
	Mode     Mode
}

// Graph is the IR graph of spec §3: `{nodes, edges, entry_node?, exit_nodes[]}`.
type Graph struct {
	Nodes     []*Node
	Edges     []Edge
	EntryNode string
	ExitNodes []string
}

// NodeByID looks up a node by its id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

func (g *Graph) outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.FromNode == nodeID {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) outgoingFromPort(nodeID, port string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.FromNode == nodeID && e.FromPort == port {
			out = append(out, e)
		}
	}
	return out
}

func isMoving(m Mode) bool { return m == Take || m == Gives }

// Check runs the ownership checker's single pass (spec §4.4): cycle
// detection, single-move, use-after-move, and mandatory consumption.
// All discovered errors are returned together, except that a cycle is
// reported alone (spec: "emits E201 ... and stops the check"): Check
// returns as soon as it finds one, without running the move and
// mandatory-consumption checks.
func Check(g *Graph) []error {
	var errs []error

	if cyc := detectCycle(g); cyc {
		errs = append(errs, gulerrors.Ownership(gulerrors.E201, "", "", "break the cycle by routing through a structural loop construct instead of an IR cycle"))
		return errs
	}

	moved := make(map[[2]string]bool)

	// Pass order over edges must be deterministic and, for edges sharing
	// a (from_node, from_port), must process any ownership-moving edge
	// before non-moving edges: spec §4.4's S4 scenario requires that a
	// Take and a Ref from the same output always resolve to "moved
	// before borrowed" regardless of the edges' original list order
	// ("ordering Take before Ref in the edge list is irrelevant").
	edges := append([]Edge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.FromNode != b.FromNode {
			return a.FromNode < b.FromNode
		}
		if a.FromPort != b.FromPort {
			return a.FromPort < b.FromPort
		}
		if isMoving(a.Mode) != isMoving(b.Mode) {
			return isMoving(a.Mode) // moving edges sort first
		}
		if a.ToNode != b.ToNode {
			return a.ToNode < b.ToNode
		}
		return a.ToPort < b.ToPort
	})

	for _, e := range edges {
		key := [2]string{e.FromNode, e.FromPort}
		if isMoving(e.Mode) {
			if moved[key] {
				errs = append(errs, gulerrors.Ownership(gulerrors.E002, e.FromNode, e.FromPort,
					"use Borrow or Ref instead of a second moving edge"))
			} else {
				moved[key] = true
			}
		} else {
			if moved[key] {
				errs = append(errs, gulerrors.Ownership(gulerrors.E003, e.FromNode, e.FromPort,
					"this value was already moved by an earlier edge"))
			}
		}
	}

	exitPorts := make(map[string]bool, len(g.ExitNodes))
	for _, e := range g.ExitNodes {
		exitPorts[e] = true
	}

	for _, n := range g.Nodes {
		for _, p := range n.Output {
			if p.Ownership != Own {
				continue
			}
			if exitPorts[n.ID+":"+p.Name] {
				continue // read by the caller after execution, per spec §3's exit_nodes
			}
			if len(g.outgoingFromPort(n.ID, p.Name)) == 0 {
				errs = append(errs, gulerrors.Ownership(gulerrors.E001, n.ID, p.Name,
					"consume this output or change its ownership mode"))
			}
		}
	}

	return errs
}

// detectCycle runs DFS with a recursion stack, per spec §4.4's rule 1.
func detectCycle(g *Graph) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		color[n.ID] = white
	}

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, e := range g.outgoing(id) {
			switch color[e.ToNode] {
			case gray:
				return true // back-edge
			case white:
				if visit(e.ToNode) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// TopoSort computes a topological order via DFS post-order reversal,
// tie-broken by node id (spec §4.4: "a standard DFS post-order
// reversal ... tie-breaking is by node id (stable, deterministic)").
// The caller must ensure g is acyclic (Check would have reported E201
// otherwise); TopoSort does not re-validate.
func TopoSort(g *Graph) []string {
	visited := make(map[string]bool, len(g.Nodes))
	var order []string

	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)

	adjacency := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		outs := g.outgoing(n.ID)
		targets := make([]string, len(outs))
		for i, e := range outs {
			targets[i] = e.ToNode
		}
		sort.Strings(targets)
		adjacency[n.ID] = targets
	}

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		for _, next := range adjacency[id] {
			if !visited[next] {
				visit(next)
			}
		}
		order = append(order, id)
	}

	for _, id := range ids {
		if !visited[id] {
			visit(id)
		}
	}

	// reverse post-order
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
