package interp

import (
	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gultype"
	"github.com/dekarrin/gul/internal/gulvalue"
)

func (in *Interpreter) eval(e ast.Expr, frame *Frame) (gulvalue.Value, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return gulvalue.NewInt(n.Value), nil
	case *ast.FloatLit:
		return gulvalue.NewFloat(n.Value), nil
	case *ast.StringLit:
		if n.IsFormat {
			return in.evalFormatString(n.Value, frame)
		}
		return gulvalue.NewString(n.Value), nil
	case *ast.BoolLit:
		return gulvalue.NewBool(n.Value), nil

	case *ast.Ident:
		if v, ok := frame.Get(n.Name); ok {
			return v, nil
		}
		if fn, ok := in.funcs[n.Name]; ok {
			return gulvalue.NewFunction(paramNames(fn.Params), fn, frame), nil
		}
		return gulvalue.NewNull(), gulerrors.Runtime("undefined symbol %q", n.Name)

	case *ast.BinaryOp:
		return in.evalBinary(n, frame)

	case *ast.UnaryOp:
		return in.evalUnary(n, frame)

	case *ast.Call:
		return in.evalCall(n, frame)

	case *ast.Member:
		return in.evalMember(n, frame)

	case *ast.Index:
		return in.evalIndex(n, frame)

	case *ast.ListLit:
		items := make([]gulvalue.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := in.eval(el, frame)
			if err != nil {
				return gulvalue.NewNull(), err
			}
			items[i] = v
		}
		return gulvalue.NewList(items), nil

	case *ast.SetLit:
		items := make([]gulvalue.Value, 0, len(n.Elems))
		for _, el := range n.Elems {
			v, err := in.eval(el, frame)
			if err != nil {
				return gulvalue.NewNull(), err
			}
			if !containsValue(items, v) {
				items = append(items, v)
			}
		}
		return gulvalue.NewSet(items), nil

	case *ast.DictLit:
		dict := gulvalue.NewDict(nil)
		for _, e := range n.Entries {
			k, err := in.eval(e.Key, frame)
			if err != nil {
				return gulvalue.NewNull(), err
			}
			v, err := in.eval(e.Val, frame)
			if err != nil {
				return gulvalue.NewNull(), err
			}
			dict = dict.DictSet(k, v)
		}
		return dict, nil

	case *ast.Lambda:
		return gulvalue.NewLambda(n.Params, n, frame), nil

	case *ast.TypedWrapper:
		v, err := in.eval(n.X, frame)
		if err != nil {
			return gulvalue.NewNull(), err
		}
		return castValue(v, n.Annotation)

	case *ast.OwnershipWrapper:
		// ownership modes are a static-path concern; the interpreter runs
		// the wrapped expression unchanged (spec §5 scopes the interpreter
		// to sequential/parallel semantics, not ownership enforcement).
		return in.eval(n.X, frame)

	case *ast.ListOp:
		return in.evalListOp(n, frame)

	case *ast.Await:
		// the interpreter evaluates async functions synchronously; await
		// simply yields the already-computed value (spec §4.7 does not
		// require real concurrency for async/await, only for also_for).
		return in.eval(n.X, frame)

	default:
		return gulvalue.NewNull(), gulerrors.Runtime("internal: unhandled expression kind %T", e)
	}
}

func paramNames(params []ast.Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func containsValue(items []gulvalue.Value, v gulvalue.Value) bool {
	for _, it := range items {
		if it.Equal(v) {
			return true
		}
	}
	return false
}

func (in *Interpreter) evalFormatString(template string, frame *Frame) (gulvalue.Value, error) {
	// a format string interpolates `{name}` placeholders against the
	// current frame, per spec §3's "format string" literal kind.
	var out []byte
	i := 0
	for i < len(template) {
		c := template[i]
		if c == '{' {
			end := i + 1
			for end < len(template) && template[end] != '}' {
				end++
			}
			if end < len(template) {
				name := template[i+1 : end]
				v, ok := frame.Get(name)
				if !ok {
					return gulvalue.NewNull(), gulerrors.Runtime("undefined symbol %q in format string", name)
				}
				out = append(out, v.Str()...)
				i = end + 1
				continue
			}
		}
		out = append(out, c)
		i++
	}
	return gulvalue.NewString(string(out)), nil
}

func castValue(v gulvalue.Value, ann gultype.Type) (gulvalue.Value, error) {
	switch ann.Kind {
	case gultype.Int:
		return gulvalue.NewInt(v.Int()), nil
	case gultype.Float:
		return gulvalue.NewFloat(v.Float()), nil
	case gultype.String:
		return gulvalue.NewString(v.Str()), nil
	case gultype.Bool:
		return gulvalue.NewBool(v.Bool()), nil
	default:
		return v, nil
	}
}

func (in *Interpreter) evalUnary(n *ast.UnaryOp, frame *Frame) (gulvalue.Value, error) {
	v, err := in.eval(n.X, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	switch n.Op {
	case "not":
		return gulvalue.NewBool(!v.Bool()), nil
	case "-":
		if v.Kind == gulvalue.Dual {
			val, der := v.DualParts()
			return gulvalue.NewDual(-val, -der), nil
		}
		if v.Kind == gulvalue.Float {
			return gulvalue.NewFloat(-v.Float()), nil
		}
		return gulvalue.NewInt(-v.Int()), nil
	case "~":
		return gulvalue.NewInt(^v.Int()), nil
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("unknown unary operator %q", n.Op)
	}
}

func (in *Interpreter) evalMember(n *ast.Member, frame *Frame) (gulvalue.Value, error) {
	v, err := in.eval(n.X, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	switch n.Name {
	case "len":
		switch v.Kind {
		case gulvalue.List, gulvalue.Set:
			return gulvalue.NewInt(int64(len(v.List()))), nil
		case gulvalue.Dict:
			return gulvalue.NewInt(int64(len(v.Dict()))), nil
		case gulvalue.String:
			return gulvalue.NewInt(int64(len(v.Str()))), nil
		default:
			return gulvalue.NewNull(), gulerrors.Runtime("%s has no .len", v.KindName())
		}
	default:
		if v.Kind == gulvalue.Object {
			if fv, ok := v.Object().Fields[n.Name]; ok {
				return fv, nil
			}
		}
		return gulvalue.NewNull(), gulerrors.Runtime("no member %q on %s", n.Name, v.KindName())
	}
}

func (in *Interpreter) evalIndex(n *ast.Index, frame *Frame) (gulvalue.Value, error) {
	v, err := in.eval(n.X, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	key, err := in.eval(n.Key, frame)
	if err != nil {
		return gulvalue.NewNull(), err
	}
	switch v.Kind {
	case gulvalue.List, gulvalue.Set:
		idx := int(key.Int())
		items := v.List()
		if idx < 0 || idx >= len(items) {
			return gulvalue.NewNull(), gulerrors.Runtime("index %d out of range (len %d)", idx, len(items))
		}
		return items[idx], nil
	case gulvalue.Dict:
		val, ok := v.DictGet(key)
		if !ok {
			return gulvalue.NewNull(), gulerrors.Runtime("key %s not found in dict", key.Str())
		}
		return val, nil
	case gulvalue.String:
		idx := int(key.Int())
		s := v.Str()
		if idx < 0 || idx >= len(s) {
			return gulvalue.NewNull(), gulerrors.Runtime("index %d out of range (len %d)", idx, len(s))
		}
		return gulvalue.NewString(string(s[idx])), nil
	default:
		return gulvalue.NewNull(), gulerrors.Runtime("cannot index a %s", v.KindName())
	}
}
