package interp

import (
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

// applyCollectionMethod implements the fixed List/Set/Dict method surface
// of spec §4.7: push, add, insertbefore, insertafter, pop, remove, clear,
// contains. recv is addressable so mutating methods can rewrite its
// backing slice in place; mutated reports whether the caller should write
// recv back to the binding it came from.
func applyCollectionMethod(recv *gulvalue.Value, name string, args []gulvalue.Value) (result gulvalue.Value, mutated bool, err error) {
	switch recv.Kind {
	case gulvalue.List:
		return applyListMethod(recv, name, args)
	case gulvalue.Set:
		return applySetMethod(recv, name, args)
	case gulvalue.Dict:
		return applyDictMethod(recv, name, args)
	default:
		return gulvalue.NewNull(), false, gulerrors.Runtime("%s has no method %q", recv.KindName(), name)
	}
}

func applyListMethod(recv *gulvalue.Value, name string, args []gulvalue.Value) (gulvalue.Value, bool, error) {
	items := recv.List()
	switch name {
	case "push", "add":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("%s expects exactly one argument", name)
		}
		items = append(items, args[0])
		recv.SetList(items)
		return gulvalue.NewNull(), true, nil

	case "insertbefore", "insertafter":
		if len(args) != 2 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("%s expects (index, value)", name)
		}
		idx := int(args[0].Int())
		if name == "insertafter" {
			idx++
		}
		if idx < 0 || idx > len(items) {
			return gulvalue.NewNull(), false, gulerrors.Runtime("index %d out of range (len %d)", idx, len(items))
		}
		next := make([]gulvalue.Value, 0, len(items)+1)
		next = append(next, items[:idx]...)
		next = append(next, args[1])
		next = append(next, items[idx:]...)
		recv.SetList(next)
		return gulvalue.NewNull(), true, nil

	case "pop":
		if len(items) == 0 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("pop from an empty list")
		}
		last := items[len(items)-1]
		recv.SetList(items[:len(items)-1])
		return last, true, nil

	case "remove":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("remove expects exactly one argument")
		}
		idx := int(args[0].Int())
		if idx < 0 || idx >= len(items) {
			return gulvalue.NewNull(), false, gulerrors.Runtime("index %d out of range (len %d)", idx, len(items))
		}
		removed := items[idx]
		next := make([]gulvalue.Value, 0, len(items)-1)
		next = append(next, items[:idx]...)
		next = append(next, items[idx+1:]...)
		recv.SetList(next)
		return removed, true, nil

	case "clear":
		recv.SetList(nil)
		return gulvalue.NewNull(), true, nil

	case "contains":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("contains expects exactly one argument")
		}
		return gulvalue.NewBool(containsValue(items, args[0])), false, nil

	default:
		return gulvalue.NewNull(), false, gulerrors.Runtime("List has no method %q", name)
	}
}

func applySetMethod(recv *gulvalue.Value, name string, args []gulvalue.Value) (gulvalue.Value, bool, error) {
	items := recv.List()
	switch name {
	case "add":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("add expects exactly one argument")
		}
		if !containsValue(items, args[0]) {
			recv.SetList(append(items, args[0]))
			return gulvalue.NewNull(), true, nil
		}
		return gulvalue.NewNull(), false, nil

	case "remove":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("remove expects exactly one argument")
		}
		next := make([]gulvalue.Value, 0, len(items))
		removed := false
		for _, it := range items {
			if !removed && it.Equal(args[0]) {
				removed = true
				continue
			}
			next = append(next, it)
		}
		recv.SetList(next)
		return gulvalue.NewBool(removed), true, nil

	case "clear":
		recv.SetList(nil)
		return gulvalue.NewNull(), true, nil

	case "contains":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("contains expects exactly one argument")
		}
		return gulvalue.NewBool(containsValue(items, args[0])), false, nil

	default:
		return gulvalue.NewNull(), false, gulerrors.Runtime("Set has no method %q", name)
	}
}

func applyDictMethod(recv *gulvalue.Value, name string, args []gulvalue.Value) (gulvalue.Value, bool, error) {
	switch name {
	case "push", "add":
		if len(args) != 2 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("%s on a Dict expects (key, value)", name)
		}
		updated := recv.DictSet(args[0], args[1])
		recv.SetDict(updated.Dict())
		return gulvalue.NewNull(), true, nil

	case "remove":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("remove expects exactly one argument")
		}
		entries := recv.Dict()
		next := make([]gulvalue.DictEntry, 0, len(entries))
		removed := false
		for _, e := range entries {
			if !removed && e.Key.Equal(args[0]) {
				removed = true
				continue
			}
			next = append(next, e)
		}
		recv.SetDict(next)
		return gulvalue.NewBool(removed), true, nil

	case "clear":
		recv.SetDict(nil)
		return gulvalue.NewNull(), true, nil

	case "contains":
		if len(args) != 1 {
			return gulvalue.NewNull(), false, gulerrors.Runtime("contains expects exactly one argument")
		}
		_, ok := recv.DictGet(args[0])
		return gulvalue.NewBool(ok), false, nil

	default:
		return gulvalue.NewNull(), false, gulerrors.Runtime("Dict has no method %q", name)
	}
}
