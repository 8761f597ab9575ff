package interp

import (
	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

// evalListOp implements the fixed list-processing forms of spec §3/§4.3:
// car, cdr, cons, map, fold, slice.
func (in *Interpreter) evalListOp(n *ast.ListOp, frame *Frame) (gulvalue.Value, error) {
	args, err := in.evalArgs(n.Args, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}

	switch n.Op {
	case ast.ListOpCar:
		if len(args) != 1 {
			return gulvalue.NewNull(), gulerrors.Runtime("car expects exactly one argument")
		}
		items := args[0].List()
		if len(items) == 0 {
			return gulvalue.NewNull(), gulerrors.Runtime("car of an empty list")
		}
		return items[0], nil

	case ast.ListOpCdr:
		if len(args) != 1 {
			return gulvalue.NewNull(), gulerrors.Runtime("cdr expects exactly one argument")
		}
		items := args[0].List()
		if len(items) == 0 {
			return gulvalue.NewList(nil), nil
		}
		rest := make([]gulvalue.Value, len(items)-1)
		copy(rest, items[1:])
		return gulvalue.NewList(rest), nil

	case ast.ListOpCons:
		if len(args) != 2 {
			return gulvalue.NewNull(), gulerrors.Runtime("cons expects (value, list)")
		}
		items := args[1].List()
		next := make([]gulvalue.Value, 0, len(items)+1)
		next = append(next, args[0])
		next = append(next, items...)
		return gulvalue.NewList(next), nil

	case ast.ListOpMap:
		if len(args) != 2 {
			return gulvalue.NewNull(), gulerrors.Runtime("map expects (list, fn)")
		}
		items := args[0].List()
		out := make([]gulvalue.Value, len(items))
		for i, item := range items {
			v, err := in.callValue(args[1], []gulvalue.Value{item})
			if err != nil {
				return gulvalue.NewNull(), err
			}
			out[i] = v
		}
		return gulvalue.NewList(out), nil

	case ast.ListOpFold:
		if len(args) != 3 {
			return gulvalue.NewNull(), gulerrors.Runtime("fold expects (list, initial, fn)")
		}
		acc := args[1]
		for _, item := range args[0].List() {
			v, err := in.callValue(args[2], []gulvalue.Value{acc, item})
			if err != nil {
				return gulvalue.NewNull(), err
			}
			acc = v
		}
		return acc, nil

	case ast.ListOpSlice:
		if len(args) != 3 {
			return gulvalue.NewNull(), gulerrors.Runtime("slice expects (list, start, end)")
		}
		items := args[0].List()
		start, end := int(args[1].Int()), int(args[2].Int())
		if start < 0 {
			start = 0
		}
		if end > len(items) {
			end = len(items)
		}
		if start > end {
			return gulvalue.NewList(nil), nil
		}
		out := make([]gulvalue.Value, end-start)
		copy(out, items[start:end])
		return gulvalue.NewList(out), nil

	default:
		return gulvalue.NewNull(), gulerrors.Runtime("internal: unhandled list op %v", n.Op)
	}
}
