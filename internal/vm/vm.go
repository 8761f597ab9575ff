// Package vm implements gul's ownership-aware IR executor (spec §4.6):
// a single-threaded, cooperative scheduler that runs an ir.Graph in
// topological order, enforcing the lock-state transitions of spec §5
// on every edge it resolves.
//
// The built-in node registry is organized behind a NodeHandler
// interface exactly as spec §9's "Polymorphic node dispatch" design
// note recommends, with built-ins in a static registry
// (internal/vm/builtins.go) and room for caller-registered handlers.
package vm

import (
	"fmt"
	"sort"

	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
	"github.com/dekarrin/gul/internal/ir"
	"github.com/google/uuid"
)

// LockState is the per-value lock state machine of spec §3/§5.
type LockState int

const (
	Unlocked LockState = iota
	SharedRead
	ExclusiveWrite
)

// valueCell is one entry of the VM's value_id → {data, owner_node,
// lock_state} map (spec §3, "VM state").
type valueCell struct {
	data       gulvalue.Value
	ownerNode  string
	lock       LockState
	sharedRefs int
}

// Machine holds per-execution VM state: the value table, its monotone
// id counter, and the graph being executed. SessionID is minted fresh
// per Machine (not per value — those stay integral per spec §3/§5) and
// is folded into every runtime error this Machine reports, so a host
// running many Machines concurrently can correlate a diagnostic back to
// the execution that produced it.
type Machine struct {
	g         *ir.Graph
	values    map[string]*valueCell // keyed by "node:port"
	nextID    int64
	handlers  map[string]NodeHandler
	SessionID uuid.UUID
}

// NewMachine prepares a Machine to execute g. Handlers not present in
// the static builtins registry default to pass-through, per spec §4.6
// ("unrecognised node names default to pass-through").
func NewMachine(g *ir.Graph) *Machine {
	return &Machine{
		g:         g,
		values:    make(map[string]*valueCell),
		handlers:  builtinHandlers(),
		SessionID: uuid.New(),
	}
}

// RegisterHandler installs a user-supplied NodeHandler under name,
// overriding or extending the static registry (spec §9: "user nodes
// added at graph-construction time").
func (m *Machine) RegisterHandler(name string, h NodeHandler) {
	m.handlers[name] = h
}

// Run executes every node of the graph in topological order and
// returns the outputs map spec §4.6 describes: "a map
// 'nodeName:portName' -> Value" collected from exit_nodes.
func (m *Machine) Run() (map[string]gulvalue.Value, error) {
	if errs := ir.Check(m.g); len(errs) > 0 {
		return nil, errs[0]
	}

	order := ir.TopoSort(m.g)
	for _, id := range order {
		node, ok := m.g.NodeByID(id)
		if !ok {
			continue
		}
		if err := m.executeNode(node); err != nil {
			return nil, err
		}
	}

	out := make(map[string]gulvalue.Value)
	for _, ref := range m.g.ExitNodes {
		if cell, ok := m.values[ref]; ok {
			out[ref] = cell.data
		}
	}
	return out, nil
}

// acquiredLock records one lock acquisition so executeNode can release
// it afterward, in reverse order, per spec §4.6 step 3.
type acquiredLock struct {
	key  string
	mode ir.Mode
}

// executeNode implements spec §4.6's three-step execute_node algorithm.
func (m *Machine) executeNode(n *ir.Node) error {
	inputs := make(map[string]gulvalue.Value, len(n.Inputs))
	var acquired []acquiredLock

	incoming := m.incomingEdges(n.ID)
	// deterministic acquisition order: by to_port name.
	sort.Slice(incoming, func(i, j int) bool { return incoming[i].ToPort < incoming[j].ToPort })

	for _, e := range incoming {
		key := e.FromNode + ":" + e.FromPort
		cell, ok := m.values[key]
		if !ok {
			cell = &valueCell{data: gulvalue.NewNull(), ownerNode: e.FromNode, lock: Unlocked}
			m.values[key] = cell
		}

		if err := acquireLock(cell, e.Mode); err != nil {
			return gulerrors.Runtime("E-LOCK [session %s]: %s", m.SessionID, err.Error())
		}
		if e.Mode != ir.Gives && e.Mode != ir.Copy {
			acquired = append(acquired, acquiredLock{key: key, mode: e.Mode})
		}

		if e.Mode == ir.Take || e.Mode == ir.Gives {
			cell.ownerNode = n.ID
		}

		inputs[e.ToPort] = cell.data
	}

	handler := m.handlers[n.Name]
	if handler == nil {
		handler = passThroughHandler{}
	}
	outputs := handler.Execute(n, inputs)

	for _, p := range n.Output {
		key := n.ID + ":" + p.Name
		v, ok := outputs[p.Name]
		if !ok {
			v = gulvalue.NewNull()
		}
		m.nextID++
		m.values[key] = &valueCell{data: v, ownerNode: n.ID, lock: Unlocked}
	}

	for _, a := range acquired {
		cell := m.values[a.key]
		releaseLock(cell, a.mode)
	}

	return nil
}

func (m *Machine) incomingEdges(nodeID string) []ir.Edge {
	var in []ir.Edge
	for _, e := range m.g.Edges {
		if e.ToNode == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// acquireLock implements spec §4.6 step 1's lock-acquisition table.
func acquireLock(cell *valueCell, mode ir.Mode) error {
	switch mode {
	case ir.Ref:
		switch cell.lock {
		case Unlocked:
			cell.lock = SharedRead
			cell.sharedRefs = 1
		case SharedRead:
			cell.sharedRefs++
		case ExclusiveWrite:
			return fmt.Errorf("cannot Ref a value held ExclusiveWrite")
		}
	case ir.Borrow, ir.Take:
		if cell.lock != Unlocked {
			return fmt.Errorf("cannot %s a value that is not Unlocked", modeName(mode))
		}
		cell.lock = ExclusiveWrite
	case ir.Gives, ir.Copy:
		// no lock taken, per spec §4.6.
	}
	return nil
}

// releaseLock implements spec §4.6 step 3's release table.
func releaseLock(cell *valueCell, mode ir.Mode) {
	switch mode {
	case ir.Ref:
		cell.sharedRefs--
		if cell.sharedRefs <= 0 {
			cell.lock = Unlocked
			cell.sharedRefs = 0
		}
	case ir.Borrow, ir.Take:
		cell.lock = Unlocked
	}
}

// ParallelSafe implements spec §5's parallel-safety predicate. The VM
// itself never runs nodes concurrently — it only exposes this predicate
// for a host that wants to batch-execute independent nodes itself.
//
// Two nodes a and b are safe to run concurrently iff, for every node P
// that directly produces an input of both a and b, every edge P emits
// uses a mode that neither moves ownership nor mutates (Ref or Copy). A
// single Take, Gives, or Borrow edge leaving a shared producer forbids
// concurrent execution of a and b.
func ParallelSafe(g *ir.Graph, a, b string) bool {
	producersOf := func(id string) map[string]bool {
		set := make(map[string]bool)
		for _, e := range g.Edges {
			if e.ToNode == id {
				set[e.FromNode] = true
			}
		}
		return set
	}

	aProducers := producersOf(a)
	bProducers := producersOf(b)

	for p := range aProducers {
		if !bProducers[p] {
			continue
		}
		for _, e := range g.Edges {
			if e.FromNode != p {
				continue
			}
			if e.Mode != ir.Ref && e.Mode != ir.Copy {
				return false
			}
		}
	}
	return true
}

// modeName renders an ir.Mode for error messages; ir.Mode has no String
// method of its own.
func modeName(mode ir.Mode) string {
	names := [...]string{"Own", "Borrow", "Ref", "Take", "Gives", "Copy"}
	if int(mode) < len(names) {
		return names[mode]
	}
	return "?"
}
