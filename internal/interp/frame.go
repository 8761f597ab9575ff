package interp

import "github.com/dekarrin/gul/internal/gulvalue"

// Frame is one activation record of the interpreter's call stack: a
// flat variable map plus a lexical parent pointer for closures. Per
// spec.md §9's "Global mutable state" design note, the interpreter
// carries a proper frame stack rather than a single flat map so that
// recursive calls and closures don't alias each other's locals; this
// changes no observable behavior of a correct program, only removes
// the aliasing hazard the design note calls out.
type Frame struct {
	parent *Frame
	vars   map[string]gulvalue.Value
}

// NewFrame creates a frame lexically parented to parent (nil for the
// global frame).
func NewFrame(parent *Frame) *Frame {
	return &Frame{parent: parent, vars: make(map[string]gulvalue.Value)}
}

// Get walks the lexical parent chain looking for name.
func (f *Frame) Get(name string) (gulvalue.Value, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if v, ok := fr.vars[name]; ok {
			return v, true
		}
	}
	return gulvalue.Value{}, false
}

// Declare binds name in this frame specifically (shadowing any outer
// binding of the same name).
func (f *Frame) Declare(name string, v gulvalue.Value) {
	f.vars[name] = v
}

// Set walks the lexical parent chain and assigns to the frame that
// already declares name, returning false if no such frame exists.
func (f *Frame) Set(name string, v gulvalue.Value) bool {
	for fr := f; fr != nil; fr = fr.parent {
		if _, ok := fr.vars[name]; ok {
			fr.vars[name] = v
			return true
		}
	}
	return false
}

// Clone makes a deep, independent copy of the frame chain down to (and
// including) the global frame, for also_for's per-worker isolation
// (spec.md §5: "each worker owns a deep copy of the visible environment
// snapshot at entry; no shared mutable state is permitted"). Cloning a
// Value by struct-copy alone still shares its list/dict backing array, so
// every variable is routed through deepCopyValue, which copies List and
// Dict contents (recursively, since either can hold nested Lists/Dicts)
// into fresh backing storage before the worker ever sees it.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	clone := &Frame{parent: f.parent.Clone(), vars: make(map[string]gulvalue.Value, len(f.vars))}
	for k, v := range f.vars {
		clone.vars[k] = deepCopyValue(v)
	}
	return clone
}

// deepCopyValue returns a copy of v whose List/Dict contents (if any) do
// not alias v's backing array, recursing into nested elements so a List
// of Lists or a Dict of Dicts is fully independent too.
func deepCopyValue(v gulvalue.Value) gulvalue.Value {
	switch v.Kind {
	case gulvalue.List, gulvalue.Set:
		items := v.List()
		cp := make([]gulvalue.Value, len(items))
		for i, item := range items {
			cp[i] = deepCopyValue(item)
		}
		v.SetList(cp)
	case gulvalue.Dict:
		entries := v.Dict()
		cp := make([]gulvalue.DictEntry, len(entries))
		for i, e := range entries {
			cp[i] = gulvalue.DictEntry{Key: deepCopyValue(e.Key), Val: deepCopyValue(e.Val)}
		}
		v.SetDict(cp)
	}
	return v
}
