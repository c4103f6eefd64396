package vm

import (
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/value"
)

// Calling convention.
//
// An operator expression evaluates into Val; ALLOCATE-FRAME n then saves it into Func (so
// argument evaluation, which also uses Val, cannot clobber it) and allocates a PendingFrame of n
// slots, unlinked until a call instruction attaches it. Each argument expression evaluates into
// Val in turn, followed by STORE-ARGUMENT rank (fixed arity) or CONS-ARGUMENT rank (variadic
// tail, consing onto whatever is already in that slot, so the compiler emits the rightmost
// variadic argument first). REGULAR-CALL / TR-REGULAR-CALL then dispatch on Func: a Primitive
// runs directly against the frame's slots; a Closure gets PendingFrame linked to its captured
// Frame and becomes the new current Frame, with Unit/PC switched to the closure's entry point
// -- after REGULAR-CALL additionally pushes return information (Module, Frame, Unit, PC,
// MarkerReturn) for RETURN to restore later; TR-REGULAR-CALL skips that push and reuses
// whatever return information the current frame was entered with, giving proper tail calls.
// FIX-LET / TR-FIX-LET are REGULAR-CALL's degenerate sibling for `let`: PendingFrame links
// directly to the current Frame (no closure, no entry jump -- the body is the following code)
// and only FIX-LET pushes return information, since TR-FIX-LET's body is itself in tail
// position. CALL0-3 are a fast path reserved for primitives: arity is fixed by the opcode
// itself, so the frame/closure machinery above is skipped entirely.

// allocateFrame saves the evaluated operator and opens a PendingFrame of n argument slots.
type allocateFrame struct{ n int }

func (op allocateFrame) Execute(rt *Runtime, th *Thread) error {
	th.Func = th.Val
	th.PendingFrame = NewFrame(rt.Heap, op.n, value.Nil, value.Nil)

	return nil
}

// storeArgument writes Val into PendingFrame slot rank.
type storeArgument struct{ rank int }

func (op storeArgument) Execute(rt *Runtime, th *Thread) error {
	return ArgSet(rt.Heap, th.PendingFrame, op.rank, th.Val)
}

// consArgument conses Val onto the list already occupying PendingFrame slot rank, building a
// variadic closure's rest-argument list from the last argument backwards.
type consArgument struct{ rank int }

func (op consArgument) Execute(rt *Runtime, th *Thread) error {
	rest, err := ArgRef(rt.Heap, th.PendingFrame, op.rank)
	if err != nil {
		return err
	}

	return ArgSet(rt.Heap, th.PendingFrame, op.rank, container.Cons(rt.Heap, th.Val, rest))
}

// fixLet attaches PendingFrame directly to the current Frame -- no closure, no jump -- and, unless
// tail, brackets it with return information so RETURN can unwind back out of the `let` body.
type fixLet struct {
	n    int
	tail bool
}

func (op fixLet) Execute(rt *Runtime, th *Thread) error {
	if !op.tail {
		pushReturnInfo(th)
	}

	f := asFrame(rt.Heap, th.PendingFrame)
	f.Parent = th.Frame

	th.Frame = th.PendingFrame
	th.PendingFrame = value.Nil

	return nil
}

// makeClosure captures the current Frame, Unit and Module as a closure's lexical environment.
type makeClosure struct {
	arity    int
	entry    int
	variadic bool
}

func (op makeClosure) Execute(rt *Runtime, th *Thread) error {
	th.Val = NewClosure(rt.Heap, th.Unit, op.entry, op.arity, op.variadic, th.Frame, th.Module, value.Nil)
	return nil
}

// pushReturnInfo brackets a non-tail call/let with enough state for RETURN to restore the caller.
func pushReturnInfo(th *Thread) {
	th.Push(th.Module)
	th.Push(th.Frame)
	th.Push(value.Fixnum(int64(th.Unit)))
	th.Push(value.Fixnum(int64(th.PC)))
	th.PushMarker(value.MarkerReturn)
}
