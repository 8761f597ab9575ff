package vm

import (
	"github.com/dekarrin/gul/internal/gulvalue"
	"github.com/dekarrin/gul/internal/ir"
)

// NodeHandler is the dispatch interface spec §9's "Polymorphic node
// dispatch" design note recommends in place of string-keyed branching:
// "register each node kind behind a small handler interface
// { inputs; outputs; execute(inputs) -> outputs }".
type NodeHandler interface {
	Execute(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value
}

// HandlerFunc adapts a plain function to NodeHandler.
type HandlerFunc func(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value

func (f HandlerFunc) Execute(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
	return f(n, inputs)
}

// passThroughHandler is the fallback for unrecognised node names, per
// spec §4.6: "each named input becomes an identically named output".
type passThroughHandler struct{}

func (passThroughHandler) Execute(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
	out := make(map[string]gulvalue.Value, len(inputs))
	for name, v := range inputs {
		out[name] = v
	}
	return out
}

// builtinHandlers constructs the static registry of built-in node
// logic from spec §4.6: input, add/sum, multiply/mul, double,
// print/output.
func builtinHandlers() map[string]NodeHandler {
	reg := map[string]NodeHandler{
		"input": HandlerFunc(func(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
			return map[string]gulvalue.Value{"out": gulvalue.NewInt(0)}
		}),
		"add": HandlerFunc(sumHandler),
		"sum": HandlerFunc(sumHandler),
		"multiply": HandlerFunc(productHandler),
		"mul":      HandlerFunc(productHandler),
		"double": HandlerFunc(func(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
			first := firstInput(n, inputs)
			return map[string]gulvalue.Value{"out": gulvalue.NewInt(first.Int() * 2)}
		}),
	}
	sink := HandlerFunc(func(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
		return passThroughHandler{}.Execute(n, inputs)
	})
	reg["print"] = sink
	reg["output"] = sink
	return reg
}

// firstInput returns the value bound to a node's first declared input
// port (input port order is meaningful per spec §3: "ordered input
// ports").
func firstInput(n *ir.Node, inputs map[string]gulvalue.Value) gulvalue.Value {
	if len(n.Inputs) == 0 {
		return gulvalue.NewNull()
	}
	return inputs[n.Inputs[0].Name]
}

func sumHandler(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
	var total int64
	isFloat := false
	var ftotal float64
	for _, p := range n.Inputs {
		v := inputs[p.Name]
		if v.Kind == gulvalue.Float {
			isFloat = true
		}
	}
	if isFloat {
		for _, p := range n.Inputs {
			ftotal += inputs[p.Name].Float()
		}
		return map[string]gulvalue.Value{"out": gulvalue.NewFloat(ftotal)}
	}
	for _, p := range n.Inputs {
		total += inputs[p.Name].Int()
	}
	return map[string]gulvalue.Value{"out": gulvalue.NewInt(total)}
}

func productHandler(n *ir.Node, inputs map[string]gulvalue.Value) map[string]gulvalue.Value {
	isFloat := false
	for _, p := range n.Inputs {
		if inputs[p.Name].Kind == gulvalue.Float {
			isFloat = true
		}
	}
	if isFloat {
		product := 1.0
		for _, p := range n.Inputs {
			product *= inputs[p.Name].Float()
		}
		return map[string]gulvalue.Value{"out": gulvalue.NewFloat(product)}
	}
	product := int64(1)
	for _, p := range n.Inputs {
		product *= inputs[p.Name].Int()
	}
	return map[string]gulvalue.Value{"out": gulvalue.NewInt(product)}
}
