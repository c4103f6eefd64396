package vm

import "github.com/smoynes/idio/internal/value"

// pushDynamic installs Val as the innermost binding of dynamic variable index, per the
// stack-discipline description in spec.md §4.2 ("Dynamics").
type pushDynamic struct{ index int }

func (op pushDynamic) Execute(rt *Runtime, th *Thread) error {
	th.Dynamics[op.index] = append(th.Dynamics[op.index], th.Val)
	return nil
}

// popDynamic removes dynamic variable index's innermost binding.
type popDynamic struct{ index int }

func (op popDynamic) Execute(rt *Runtime, th *Thread) error {
	stack := th.Dynamics[op.index]
	if len(stack) == 0 {
		return ErrStackUnderflow
	}

	th.Dynamics[op.index] = stack[:len(stack)-1]

	return nil
}

// dynamicRef reads dynamic variable index's innermost binding into Val.
type dynamicRef struct{ depth int }

func (op dynamicRef) Execute(rt *Runtime, th *Thread) error {
	stack := th.Dynamics[op.depth]
	if len(stack) == 0 {
		return ErrStackUnderflow
	}

	th.Val = stack[len(stack)-1]

	return nil
}

// pushEnviron pushes the current Environ hash onto the stack and replaces it with Val, the way an
// `environ-let` body's prologue does (spec.md §4.2 "Environ").
type pushEnviron struct{}

func (op pushEnviron) Execute(rt *Runtime, th *Thread) error {
	th.Push(th.Environ)
	th.PushMarker(value.MarkerEnviron)
	th.Environ = th.Val

	return nil
}

// popEnviron restores the Environ register saved by the matching pushEnviron.
type popEnviron struct{}

func (op popEnviron) Execute(rt *Runtime, th *Thread) error {
	if err := th.PopMarker(value.MarkerEnviron); err != nil {
		return err
	}

	saved, err := th.Pop()
	if err != nil {
		return err
	}

	th.Environ = saved

	return nil
}

// environRef reads the current Environ register into Val.
type environRef struct{}

func (op environRef) Execute(rt *Runtime, th *Thread) error {
	th.Val = th.Environ
	return nil
}
