package vm

import (
	"fmt"

	"github.com/smoynes/idio/internal/continuation"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// regularCall dispatches Func against PendingFrame: a Primitive runs immediately, a Closure
// becomes the new call frame. See the calling convention note in frameops.go.
type regularCall struct{ tail bool }

func (op regularCall) Execute(rt *Runtime, th *Thread) error {
	typ, payload := rt.Heap.Object(th.Func)

	switch typ {
	case value.TypePrimitive:
		return callPrimitive(rt, th, payload.(*Primitive))
	case value.TypeClosure:
		return callClosure(rt, th, payload.(*Closure), op.tail)
	default:
		return fmt.Errorf("vm: cannot call non-procedure %s", th.Func)
	}
}

// fastCall is CALL0-3's handler: it requires Func to already be a Primitive, skipping the
// frame-linking and return-bracketing a Closure call needs.
type fastCall struct{ arity int }

func (op fastCall) Execute(rt *Runtime, th *Thread) error {
	typ, payload := rt.Heap.Object(th.Func)
	if typ != value.TypePrimitive {
		return fmt.Errorf("vm: CALL%d target is not a primitive: %s", op.arity, th.Func)
	}

	return callPrimitive(rt, th, payload.(*Primitive))
}

func callPrimitive(rt *Runtime, th *Thread, p *Primitive) error {
	args, err := frameArgs(rt.Heap, th.PendingFrame)
	if err != nil {
		return err
	}

	if err := checkArity(p.Name, p.Arity, p.Variadic, len(args)); err != nil {
		return err
	}

	result, err := p.Fn(rt, th, args)
	if err != nil {
		return err
	}

	th.Val = result
	th.PendingFrame = value.Nil

	return nil
}

func callClosure(rt *Runtime, th *Thread, c *Closure, tail bool) error {
	if !tail {
		pushReturnInfo(th)
	}

	f := asFrame(rt.Heap, th.PendingFrame)
	f.Parent = c.Frame
	f.Closure = th.Func

	th.Frame = th.PendingFrame
	th.Module = c.Module
	th.Unit = c.CodeUnit
	th.PC = c.Entry
	th.PendingFrame = value.Nil

	return nil
}

func frameArgs(h *gc.Heap, frame value.Value) ([]value.Value, error) {
	typ, payload := h.Object(frame)
	if typ != value.TypeFrame {
		return nil, fmt.Errorf("vm: not a frame: %s", frame)
	}

	f := payload.(*Frame)
	args := make([]value.Value, len(f.Slots))
	copy(args, f.Slots)

	return args, nil
}

func checkArity(name string, arity int, variadic bool, got int) error {
	if variadic && got < arity {
		return fmt.Errorf("vm: %s: expected at least %d arguments, got %d", name, arity, got)
	}

	if !variadic && got != arity {
		return fmt.Errorf("vm: %s: expected %d arguments, got %d", name, arity, got)
	}

	return nil
}

// Apply invokes fn (a Closure, Primitive, or Continuation) against args from Go code: from a
// primitive that takes a procedure argument (e.g. a hypothetical `map`), from call/cc, and from
// trap/escaper handler dispatch. A Closure call runs a nested instruction cycle bracketed by its
// own return information, restoring the caller's PC/Unit/Frame/Module once the nested RETURN pops
// back down to the depth Apply started at.
//
// Invoking a Continuation is a non-local jump, not a call: it overwrites the thread's entire
// execution state from the captured snapshot and returns. A continuation invoked from inside a
// Closure call that Apply itself is running a nested cycle for -- e.g. a continuation captured
// and later invoked from within a callback passed to a Go-implemented primitive -- escapes that
// nested cycle's bookkeeping rather than unwinding through it; such a callback will not see Apply
// return normally. This is a known limitation, not a general call/cc host-call integration.
func Apply(rt *Runtime, th *Thread, fn value.Value, args []value.Value) (value.Value, error) {
	typ, payload := rt.Heap.Object(fn)

	switch typ {
	case value.TypePrimitive:
		p := payload.(*Primitive)
		if err := checkArity(p.Name, p.Arity, p.Variadic, len(args)); err != nil {
			return value.Value(0), err
		}

		return p.Fn(rt, th, args)

	case value.TypeClosure:
		return applyClosure(rt, th, payload.(*Closure), args)

	case value.TypeContinuation:
		c := continuation.As(rt.Heap, fn)

		th.Stack = append([]value.Value{}, c.Stack...)
		th.Frame = c.Frame
		th.Module = c.Module
		th.Environ = c.Environ
		th.Holes = append([]int{}, c.Holes...)
		th.Unit = c.Unit
		th.PC = c.PC

		if len(args) > 0 {
			th.Val = args[0]
		} else {
			th.Val = value.Unspec
		}

		return th.Val, nil

	default:
		return value.Value(0), fmt.Errorf("vm: cannot apply non-procedure %s", fn)
	}
}

func applyClosure(rt *Runtime, th *Thread, c *Closure, args []value.Value) (value.Value, error) {
	if err := checkArity("closure", c.Arity, c.Variadic, len(args)); err != nil {
		return value.Value(0), err
	}

	frame := NewFrame(rt.Heap, len(args), c.Frame, value.Nil)
	for i, a := range args {
		if err := ArgSet(rt.Heap, frame, i, a); err != nil {
			return value.Value(0), err
		}
	}

	callerPC, callerUnit, callerFrame, callerModule := th.PC, th.Unit, th.Frame, th.Module
	baseDepth := th.Depth()

	pushReturnInfo(th)

	th.Frame = frame
	th.Module = c.Module
	th.Unit = c.CodeUnit
	th.PC = c.Entry

	for th.Depth() > baseDepth && !th.Halted {
		if err := rt.Step(th); err != nil {
			return value.Value(0), err
		}
	}

	result := th.Val
	th.PC, th.Unit, th.Frame, th.Module = callerPC, callerUnit, callerFrame, callerModule

	return result, nil
}
