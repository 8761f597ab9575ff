package codegen

import (
	"fmt"

	"github.com/dekarrin/gul/internal/gultype"
)

// loopCtx records the header/exit block labels for break/continue
// inside the innermost enclosing while/loop (spec §4.5: "a loop_stack
// records {header, exit} for break/continue").
type loopCtx struct {
	header string
	exit   string
}

// slot is one mutable local cell: the pseudo-alloca's register name and
// its native kind.
type slot struct {
	reg  string
	kind NativeKind
}

// funcBuilder lowers one function's body into a sequence of Blocks,
// tracking the current insertion block, the next free register/label
// ids, the variable-to-slot map, and the loop-target stack.
type funcBuilder struct {
	mod   *Module
	fn    *Function
	cur   *Block
	regID int
	lblID int
	slots map[string]slot
	loops []loopCtx
}

func newFuncBuilder(mod *Module, fn *Function) *funcBuilder {
	return &funcBuilder{mod: mod, fn: fn, slots: make(map[string]slot)}
}

func (b *funcBuilder) newReg() string {
	b.regID++
	return fmt.Sprintf("%%r%d", b.regID)
}

func (b *funcBuilder) newLabel(prefix string) string {
	b.lblID++
	return fmt.Sprintf("%s.%d", prefix, b.lblID)
}

// startBlock appends a new block with the given label and makes it the
// active insertion point.
func (b *funcBuilder) startBlock(label string) *Block {
	blk := &Block{Label: label}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
	return blk
}

func (b *funcBuilder) emit(format string, a ...interface{}) {
	b.cur.emit(fmt.Sprintf(format, a...))
}

// allocSlot declares a fresh mutable local cell for name, emitting its
// pseudo-alloca, and records it in the slot map (spec §4.5: "allocate or
// reuse a slot of the appropriate type").
func (b *funcBuilder) allocSlot(name string, kind NativeKind) slot {
	reg := fmt.Sprintf("%%slot.%s", name)
	b.emit("%s = alloca %s", reg, kind)
	s := slot{reg: reg, kind: kind}
	b.slots[name] = s
	return s
}

func (b *funcBuilder) store(s slot, valueReg string) {
	b.emit("store %s %s, %s* %s", s.kind, valueReg, s.kind, s.reg)
}

func (b *funcBuilder) load(s slot) string {
	reg := b.newReg()
	b.emit("%s = load %s, %s* %s", reg, s.kind, s.kind, s.reg)
	return reg
}

func nativeKindOf(t gultype.Type) NativeKind {
	if t.Kind == gultype.Float {
		return KindF64
	}
	return KindI64
}
