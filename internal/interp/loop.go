package interp

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dekarrin/gul/internal/ast"
	"github.com/dekarrin/gul/internal/gulerrors"
	"github.com/dekarrin/gul/internal/gulvalue"
)

func iterationItems(v gulvalue.Value) ([]gulvalue.Value, error) {
	switch v.Kind {
	case gulvalue.List, gulvalue.Set:
		return v.List(), nil
	case gulvalue.Dict:
		entries := v.Dict()
		keys := make([]gulvalue.Value, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		return keys, nil
	default:
		return nil, gulerrors.Runtime("cannot iterate a %s", v.KindName())
	}
}

func (in *Interpreter) execFor(n *ast.For, frame *Frame) (ControlFlow, error) {
	iterable, err := in.eval(n.Iterable, frame)
	if err != nil {
		return cfNext, err
	}
	items, err := iterationItems(iterable)
	if err != nil {
		return cfNext, err
	}

	if n.IsParallel {
		return cfNext, in.execParallelFor(n, items, frame)
	}
	return in.execSequentialFor(n, items, frame)
}

func (in *Interpreter) execSequentialFor(n *ast.For, items []gulvalue.Value, frame *Frame) (ControlFlow, error) {
	for _, item := range items {
		iterFrame := NewFrame(frame)
		iterFrame.Declare(n.Var, item)
		cf, err := in.execBlock(n.Body, iterFrame)
		if err != nil {
			return cfNext, err
		}
		if cf.IsBreak() {
			break
		}
		if cf.IsReturn() {
			return cf, nil
		}
		// Continue just falls through to the next item.
	}
	return cfNext, nil
}

// execParallelFor implements also_for (spec §5): each worker owns a deep
// copy of the visible environment snapshot at entry, with no shared
// mutable state between workers. Results are discarded (also_for bodies
// run for side effects performed through their own isolated frame, not
// for a return value); any runtime errors raised by workers are
// collected and reported together rather than racing each other to
// return first.
func (in *Interpreter) execParallelFor(n *ast.For, items []gulvalue.Value, frame *Frame) error {
	type workerErr struct {
		index int
		err   error
	}

	var wg sync.WaitGroup
	errCh := make(chan workerErr, len(items))

	for i, item := range items {
		wg.Add(1)
		go func(i int, item gulvalue.Value) {
			defer wg.Done()
			workerFrame := NewFrame(frame.Clone())
			workerFrame.Declare(n.Var, item)
			if _, err := in.execBlock(n.Body, workerFrame); err != nil {
				errCh <- workerErr{index: i, err: err}
			}
		}(i, item)
	}

	wg.Wait()
	close(errCh)

	var collected []workerErr
	for we := range errCh {
		collected = append(collected, we)
	}
	if len(collected) == 0 {
		return nil
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	var msg string
	for i, we := range collected {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("worker %d: %s", we.index, we.err.Error())
	}
	return gulerrors.WrapRuntime(collected[0].err, "also_for: %d worker(s) failed: %s", len(collected), msg)
}

func (in *Interpreter) execMatch(n *ast.Match, frame *Frame) (ControlFlow, error) {
	subject, err := in.eval(n.Subject, frame)
	if err != nil {
		return cfNext, err
	}

	for _, arm := range n.Arms {
		matchFrame := NewFrame(frame)
		matched := arm.IsWildcard

		if !matched && arm.PatternIdent != "" {
			matchFrame.Declare(arm.PatternIdent, subject)
			matched = true
		} else if !matched && arm.Pattern != nil {
			patVal, err := in.eval(arm.Pattern, matchFrame)
			if err != nil {
				return cfNext, err
			}
			matched = subject.Equal(patVal)
		}

		if matched {
			return in.execBlock(arm.Body, matchFrame)
		}
	}
	return cfNext, nil
}
