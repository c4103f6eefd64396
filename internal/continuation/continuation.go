// Package continuation implements the Continuation heap object: a captured snapshot of a
// Thread's execution state (spec.md §3.4, §4.4). This package holds only the data and its gc
// wiring; capturing one from a live Thread, and restoring one back into a live Thread, is
// internal/vm's job, since only the executor owns Thread's fields. Keeping Continuation here
// (rather than as an unexported type inside internal/vm) mirrors spec.md's own layering, which
// lists continuations as part of the VM-state layer the executor manipulates, not the executor
// itself.
package continuation

import (
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Continuation is a captured Thread snapshot (spec.md §3.4): program counter, code-unit index, a
// copy of the operand stack, the current frame/module/environ, and the active delimited-
// continuation holes. Delimited distinguishes an escaper's capture (PUSH-ESCAPER) from a full one
// (call/cc): see spec.md §4.4.
type Continuation struct {
	PC      int
	Unit    int
	Stack   []value.Value
	Frame   value.Value
	Module  value.Value
	Environ value.Value
	Holes   []int

	Delimited bool
}

func (c *Continuation) Type() value.Type { return value.TypeContinuation }

func (c *Continuation) References() []value.Value {
	refs := append([]value.Value{}, c.Stack...)
	refs = append(refs, c.Frame, c.Module, c.Environ)

	return refs
}

// New captures a continuation. stack is copied so later thread mutation cannot observe through
// an already-captured continuation, matching "invoking uses... stack (a copy)" in spec.md §4.4.
func New(h *gc.Heap, pc, unit int, stack []value.Value, frame, module, environ value.Value,
	holes []int, delimited bool,
) value.Value {
	stackCopy := make([]value.Value, len(stack))
	copy(stackCopy, stack)

	holesCopy := make([]int, len(holes))
	copy(holesCopy, holes)

	return h.Alloc(value.TypeContinuation, nil, &Continuation{
		PC: pc, Unit: unit, Stack: stackCopy, Frame: frame, Module: module, Environ: environ,
		Holes: holesCopy, Delimited: delimited,
	})
}

// As returns the Continuation payload behind v. It panics if v is not a continuation.
func As(h *gc.Heap, v value.Value) *Continuation {
	typ, payload := h.Object(v)
	if typ != value.TypeContinuation {
		panic("continuation: not a continuation: " + v.String())
	}

	return payload.(*Continuation)
}
