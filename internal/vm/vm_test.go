package vm

import (
	"testing"

	"github.com/dekarrin/gul/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoInputGraph(mode1, mode2 ir.Mode) *ir.Graph {
	return &ir.Graph{
		Nodes: []*ir.Node{
			{ID: "src", Name: "input", Output: []ir.Port{{Name: "out", Ownership: ir.Own}}},
			{ID: "a", Name: "double", Inputs: []ir.Port{{Name: "in", Ownership: mode1}}, Output: []ir.Port{{Name: "out", Ownership: ir.Own}}},
			{ID: "b", Name: "double", Inputs: []ir.Port{{Name: "in", Ownership: mode2}}, Output: []ir.Port{{Name: "out", Ownership: ir.Own}}},
		},
		Edges: []ir.Edge{
			{FromNode: "src", FromPort: "out", ToNode: "a", ToPort: "in", Mode: mode1},
			{FromNode: "src", FromPort: "out", ToNode: "b", ToPort: "in", Mode: mode2},
		},
		ExitNodes: []string{"a:out", "b:out"},
	}
}

func Test_ParallelSafe_bothRefIsSafe(t *testing.T) {
	g := twoInputGraph(ir.Ref, ir.Ref)
	assert.True(t, ParallelSafe(g, "a", "b"))
}

func Test_ParallelSafe_oneTakeIsUnsafe(t *testing.T) {
	g := twoInputGraph(ir.Take, ir.Ref)
	assert.False(t, ParallelSafe(g, "a", "b"))
}

func Test_ParallelSafe_copyIsSafe(t *testing.T) {
	g := twoInputGraph(ir.Copy, ir.Copy)
	assert.True(t, ParallelSafe(g, "a", "b"))
}

func Test_ParallelSafe_noSharedProducerIsSafe(t *testing.T) {
	g := &ir.Graph{
		Nodes: []*ir.Node{
			{ID: "s1", Name: "input", Output: []ir.Port{{Name: "out", Ownership: ir.Own}}},
			{ID: "s2", Name: "input", Output: []ir.Port{{Name: "out", Ownership: ir.Own}}},
			{ID: "a", Name: "double", Inputs: []ir.Port{{Name: "in", Ownership: ir.Take}}},
			{ID: "b", Name: "double", Inputs: []ir.Port{{Name: "in", Ownership: ir.Take}}},
		},
		Edges: []ir.Edge{
			{FromNode: "s1", FromPort: "out", ToNode: "a", ToPort: "in", Mode: ir.Take},
			{FromNode: "s2", FromPort: "out", ToNode: "b", ToPort: "in", Mode: ir.Take},
		},
	}
	assert.True(t, ParallelSafe(g, "a", "b"))
}

// Test_Machine_Run_sharedRefsCanBothAcquireAndRelease exercises the lock
// invariant directly: two Ref consumers of the same producer must both
// be able to acquire SharedRead and release back to Unlocked.
func Test_Machine_Run_sharedRefsCanBothAcquireAndRelease(t *testing.T) {
	g := twoInputGraph(ir.Ref, ir.Ref)
	m := NewMachine(g)
	out, err := m.Run()
	require.NoError(t, err)
	assert.Contains(t, out, "a:out")
	assert.Contains(t, out, "b:out")

	cell := m.values["src:out"]
	require.NotNil(t, cell)
	assert.Equal(t, Unlocked, cell.lock)
	assert.Equal(t, 0, cell.sharedRefs)
}

// Test_Machine_acquireLock_refAgainstExclusiveFails confirms the VM's own
// lock-state machine rejects a Ref against an already-ExclusiveWrite
// value, independent of the static ownership checker that would also
// catch this graph as E003 before Run ever reaches executeNode.
func Test_Machine_acquireLock_refAgainstExclusiveFails(t *testing.T) {
	cell := &valueCell{lock: ExclusiveWrite}
	err := acquireLock(cell, ir.Ref)
	assert.Error(t, err)
}

func Test_Machine_acquireLock_takeAgainstUnlockedSucceeds(t *testing.T) {
	cell := &valueCell{lock: Unlocked}
	err := acquireLock(cell, ir.Take)
	require.NoError(t, err)
	assert.Equal(t, ExclusiveWrite, cell.lock)
}

func Test_Machine_SessionID_unique(t *testing.T) {
	g := &ir.Graph{}
	m1 := NewMachine(g)
	m2 := NewMachine(g)
	assert.NotEqual(t, m1.SessionID, m2.SessionID)
}
