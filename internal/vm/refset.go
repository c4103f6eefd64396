package vm

// shallowArgumentRef reads slot j of the current frame into Val (spec.md §4.2).
type shallowArgumentRef struct{ j int }

func (op shallowArgumentRef) Execute(rt *Runtime, th *Thread) error {
	v, err := ArgRef(rt.Heap, th.Frame, op.j)
	if err != nil {
		return err
	}

	th.Val = v

	return nil
}

// shallowArgumentSet writes Val into slot j of the current frame.
type shallowArgumentSet struct{ j int }

func (op shallowArgumentSet) Execute(rt *Runtime, th *Thread) error {
	return ArgSet(rt.Heap, th.Frame, op.j, th.Val)
}

// deepArgumentRef reads slot j of the frame i links up from the current one.
type deepArgumentRef struct{ i, j int }

func (op deepArgumentRef) Execute(rt *Runtime, th *Thread) error {
	v, err := frameRef(rt, th, op.i, op.j)
	if err != nil {
		return err
	}

	th.Val = v

	return nil
}

// deepArgumentSet writes Val into slot j of the frame i links up from the current one.
type deepArgumentSet struct{ i, j int }

func (op deepArgumentSet) Execute(rt *Runtime, th *Thread) error {
	f := DeepFrame(rt.Heap, th.Frame, op.i)
	return ArgSet(rt.Heap, f, op.j, th.Val)
}

// globalRef reads the toplevel/defined global at value-index vi, unconditionally.
type globalRef struct{ vi int }

func (op globalRef) Execute(rt *Runtime, th *Thread) error {
	th.Val = rt.Toplevel[op.vi]
	return nil
}

// globalSet writes Val into the toplevel/defined global at value-index vi, marking it defined.
type globalSet struct{ vi int }

func (op globalSet) Execute(rt *Runtime, th *Thread) error {
	rt.Toplevel[op.vi] = th.Val
	rt.Defined[op.vi] = true

	return nil
}

// checkedGlobalRef is globalRef's safe counterpart: it raises instead of handing back Undef for a
// global that was declared (by a relocation) but never given a value (spec.md §4.2 "A
// CHECKED-GLOBAL-REF against an unassigned global raises ^rt-variable-unbound-error").
type checkedGlobalRef struct{ vi int }

func (op checkedGlobalRef) Execute(rt *Runtime, th *Thread) error {
	if !rt.Defined[op.vi] {
		return rt.raiseUnbound(th, op.vi)
	}

	th.Val = rt.Toplevel[op.vi]

	return nil
}

// predefinedRef reads the predef table at value-index vi: the fast path for builtins, which are
// never reassigned so need no "defined" check (spec.md §4.2 "Predef").
type predefinedRef struct{ vi int }

func (op predefinedRef) Execute(rt *Runtime, th *Thread) error {
	th.Val = rt.Predef[op.vi]
	return nil
}

// constantOp loads a literal from the shared constants pool into Val.
type constantOp struct{ ci int }

func (op constantOp) Execute(rt *Runtime, th *Thread) error {
	th.Val = rt.Constants[op.ci]
	return nil
}
