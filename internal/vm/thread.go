package vm

import (
	"errors"
	"fmt"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// ErrStackUnderflow is a fatal VM error: a pop (or a marker check) found an empty stack.
var ErrStackUnderflow = errors.New("vm: stack underflow")

// ErrMarkerMismatch is a fatal VM error (spec.md §3.5): a restore operation found a stack marker
// other than the one it expected.
var ErrMarkerMismatch = errors.New("vm: stack marker mismatch")

// Thread is the entire execution state of one (cooperatively-scheduled, spec.md §5) strand of
// control: program counter, current code unit, operand/control stack, current frame, current
// module, the value/func/reg1/reg2 registers, delimited-continuation prompt holes, and the
// thread's I/O handles (spec.md §3.4).
type Thread struct {
	PC   int
	Unit int // Index into Runtime.Units: which code array PC addresses.

	Stack []value.Value

	Frame  value.Value
	Module value.Value

	// PendingFrame is the frame under construction between ALLOCATE-FRAME and the call
	// operation that consumes it (REGULAR-CALL, TR-REGULAR-CALL, FIX-LET, TR-FIX-LET, CALL0-3).
	PendingFrame value.Value

	Val  value.Value
	Func value.Value
	Reg1 value.Value
	Reg2 value.Value

	// Dynamics holds the current stack-discipline bindings of dynamic (fluid) variables,
	// indexed the same way as the global tables.
	Dynamics map[int][]value.Value

	Environ value.Value // Current environ-variable hash, or Nil.

	SourceExpr value.Value

	Stdin, Stdout, Stderr value.Value // Handles; Nil if unset.

	// Holes records, as stack depths, the active delimited-continuation prompts: see
	// internal/continuation and spec.md §4.4.
	Holes []int

	Halted bool
	Result value.Value
}

func (t *Thread) Type() value.Type { return value.TypeThread }

func (t *Thread) References() []value.Value {
	refs := append([]value.Value{}, t.Stack...)
	refs = append(refs, t.Frame, t.Module, t.PendingFrame, t.Val, t.Func, t.Reg1, t.Reg2, t.SourceExpr,
		t.Stdin, t.Stdout, t.Stderr, t.Environ)

	for _, vs := range t.Dynamics {
		refs = append(refs, vs...)
	}

	return refs
}

// NewThread allocates a fresh thread rooted at module, executing unit starting at pc.
func NewThread(h *gc.Heap, module value.Value, unit, pc int) value.Value {
	return h.Alloc(value.TypeThread, nil, &Thread{
		PC: pc, Unit: unit, Module: module, Frame: value.Nil, PendingFrame: value.Nil,
		Val: value.Unspec, Func: value.Nil, Reg1: value.Nil, Reg2: value.Nil,
		SourceExpr: value.Nil, Stdin: value.Nil, Stdout: value.Nil, Stderr: value.Nil,
		Environ: value.Nil, Dynamics: make(map[int][]value.Value),
	})
}

// AsThread returns the Thread payload behind v.
func AsThread(h *gc.Heap, v value.Value) *Thread {
	typ, payload := h.Object(v)
	if typ != value.TypeThread {
		panic("vm: not a thread: " + v.String())
	}

	return payload.(*Thread)
}

// Push pushes v onto the operand stack.
func (t *Thread) Push(v value.Value) {
	t.Stack = append(t.Stack, v)
}

// Pop pops and returns the top of the operand stack.
func (t *Thread) Pop() (value.Value, error) {
	n := len(t.Stack)
	if n == 0 {
		return value.Value(0), ErrStackUnderflow
	}

	v := t.Stack[n-1]
	t.Stack = t.Stack[:n-1]

	return v, nil
}

// Top returns the top of the operand stack without popping it.
func (t *Thread) Top() (value.Value, error) {
	n := len(t.Stack)
	if n == 0 {
		return value.Value(0), ErrStackUnderflow
	}

	return t.Stack[n-1], nil
}

// PushMarker pushes a distinguished stack marker.
func (t *Thread) PushMarker(m value.Value) {
	t.Stack = append(t.Stack, m)
}

// PopMarker pops the stack and verifies it was exactly want, per spec.md §3.5's invariant that
// every bracketed save is matched by exactly the marker it pushed.
func (t *Thread) PopMarker(want value.Value) error {
	v, err := t.Pop()
	if err != nil {
		return err
	}

	if v != want {
		return fmt.Errorf("%w: expected %s, found %s", ErrMarkerMismatch, want, v)
	}

	return nil
}

// Depth returns the current operand stack depth.
func (t *Thread) Depth() int { return len(t.Stack) }

// TruncateTo pops the stack back down to depth n, used when unwinding to a captured continuation
// or escaper.
func (t *Thread) TruncateTo(n int) {
	if n < len(t.Stack) {
		t.Stack = t.Stack[:n]
	}
}
