package vm

import (
	"fmt"

	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/continuation"
	"github.com/smoynes/idio/internal/value"
)

// pushTrap installs Val as the handler for the condition type named by the symbol at constant
// index ci, for the dynamic extent of the code that follows (spec.md §4.3 "Traps"). It brackets
// enough state -- Module, Frame, Unit, PC, the handler, and the condition-type symbol -- that a
// non-continuable raise can unwind straight back here and resume as though this trap's protected
// form had simply evaluated to the handler's result.
type pushTrap struct{ ci int }

func (op pushTrap) Execute(rt *Runtime, th *Thread) error {
	th.Push(th.Module)
	th.Push(th.Frame)
	th.Push(value.Fixnum(int64(th.Unit)))
	th.Push(value.Fixnum(int64(th.PC)))
	th.Push(th.Val)
	th.Push(rt.Constants[op.ci])
	th.PushMarker(value.MarkerTrap)

	return nil
}

// popTrap removes the trap installed by the matching pushTrap, when its protected form completes
// normally without ever raising.
type popTrap struct{}

func (op popTrap) Execute(rt *Runtime, th *Thread) error {
	if err := th.PopMarker(value.MarkerTrap); err != nil {
		return err
	}

	for i := 0; i < 6; i++ {
		if _, err := th.Pop(); err != nil {
			return err
		}
	}

	return nil
}

// pushEscaper captures a delimited, one-shot escape continuation -- an escape procedure -- whose
// invocation discards everything back to this point and resumes at target (spec.md §4.4
// "Escapers"). The escaper value itself is left in Val, for the compiled code to bind.
type pushEscaper struct{ target int }

func (op pushEscaper) Execute(rt *Runtime, th *Thread) error {
	tok := continuation.New(rt.Heap, op.target, th.Unit, th.Stack, th.Frame, th.Module, th.Environ,
		th.Holes, true)

	th.Push(value.Fixnum(int64(th.Depth())))
	th.PushMarker(value.MarkerEscaper)
	th.Val = tok

	return nil
}

// popEscaper removes the bracket installed by the matching pushEscaper.
type popEscaper struct{}

func (op popEscaper) Execute(rt *Runtime, th *Thread) error {
	if err := th.PopMarker(value.MarkerEscaper); err != nil {
		return err
	}

	_, err := th.Pop()

	return err
}

// pushPreserveState brackets a lightweight, compiler-internal save of the Environ register (e.g.
// around a dynamic-wind-style before/after pair), distinct from a full continuation snapshot.
type pushPreserveState struct{}

func (op pushPreserveState) Execute(rt *Runtime, th *Thread) error {
	th.Push(th.Environ)
	th.PushMarker(value.MarkerPreserveState)

	return nil
}

// restoreState restores the Environ register saved by the matching pushPreserveState.
type restoreState struct{}

func (op restoreState) Execute(rt *Runtime, th *Thread) error {
	if err := th.PopMarker(value.MarkerPreserveState); err != nil {
		return err
	}

	saved, err := th.Pop()
	if err != nil {
		return err
	}

	th.Environ = saved

	return nil
}

// pushPreserveAllState brackets a full-state checkpoint (Module, Frame, Unit, PC, Environ) around
// a region that may install a full continuation (spec.md §4.4 "call/cc"), distinct from the
// lighter pushPreserveState.
type pushPreserveAllState struct{}

func (op pushPreserveAllState) Execute(rt *Runtime, th *Thread) error {
	th.Push(th.Module)
	th.Push(th.Frame)
	th.Push(value.Fixnum(int64(th.Unit)))
	th.Push(value.Fixnum(int64(th.PC)))
	th.Push(th.Environ)
	th.PushMarker(value.MarkerPreserveContinuation)

	return nil
}

// restoreAllState restores the Environ register saved by the matching pushPreserveAllState; the
// rest of the bracketed state is only ever consulted by a continuation invocation unwinding
// through it, never by normal fall-through, so it is simply discarded here.
type restoreAllState struct{}

func (op restoreAllState) Execute(rt *Runtime, th *Thread) error {
	if err := th.PopMarker(value.MarkerPreserveContinuation); err != nil {
		return err
	}

	saved, err := th.Pop()
	if err != nil {
		return err
	}

	for i := 0; i < 4; i++ {
		if _, err := th.Pop(); err != nil {
			return err
		}
	}

	th.Environ = saved

	return nil
}

// raise performs the trap-stack walk spec.md §4.3 describes: search th's stack top-down for an
// installed trap whose condition type matches cond's, invoke its handler, and either resume right
// where the raise happened (continuable) or unwind back to the trap's installation point and
// resume there (non-continuable). A signal with no matching trap falls back to the condition
// registry's default handler, if any; otherwise the thread cannot continue and raise reports the
// condition as a Go error.
func (rt *Runtime) raise(th *Thread, continuable bool, cond value.Value) error {
	for i := len(th.Stack) - 1; i >= 6; i-- {
		if th.Stack[i] != value.MarkerTrap {
			continue
		}

		typeSym := th.Stack[i-1]
		handler := th.Stack[i-2]
		name := container.SymbolName(rt.Heap, typeSym)

		if !rt.Conditions.IsA(rt.Heap, cond, name) {
			continue
		}

		if continuable {
			result, err := Apply(rt, th, handler, []value.Value{cond})
			if err != nil {
				return err
			}

			th.Val = result

			return nil
		}

		savedModule := th.Stack[i-6]
		savedFrame := th.Stack[i-5]
		savedUnit := int(th.Stack[i-4].Fixnum())
		savedPC := int(th.Stack[i-3].Fixnum())

		th.TruncateTo(i - 6)

		result, err := Apply(rt, th, handler, []value.Value{cond})
		if err != nil {
			return err
		}

		th.Module, th.Frame, th.Unit, th.PC = savedModule, savedFrame, savedUnit, savedPC
		th.Val = result

		return nil
	}

	if handler, ok := rt.Conditions.LookupDefault(rt.Heap, cond); ok {
		_, err := Apply(rt, th, handler, []value.Value{cond})
		return err
	}

	return fmt.Errorf("vm: unhandled condition: %s", rt.Conditions.TypeOf(rt.Heap, cond))
}

// raiseUnbound is CHECKED-GLOBAL-REF's error path: spec.md §4.2 requires raising
// ^rt-variable-unbound-error rather than returning Undef. It returns the Raise directly, for
// Step's wrapper to catch and dispatch, the same as any other op-level error.
func (rt *Runtime) raiseUnbound(th *Thread, vi int) error {
	cond := rt.Conditions.NewCondition(rt.Heap, condition.RTVariableUnboundError, rt.symbolForGlobal(vi))
	return condition.NewRaise(condition.RTVariableUnboundError, false, cond)
}

// symbolForGlobal finds the symbol bound to toplevel/defined value-index vi, for error reporting.
// It scans every known module's symbol table, since the runtime keeps no reverse index.
func (rt *Runtime) symbolForGlobal(vi int) value.Value {
	for _, mod := range rt.Modules {
		m := asModule(rt.Heap, mod)

		for name, b := range m.Symbols {
			if b.Scope != ScopePredef && b.ValueIndex == vi {
				return rt.Interner.Intern(name)
			}
		}
	}

	return rt.Interner.Intern("<unknown>")
}
