package vm

import "github.com/smoynes/idio/internal/value"

// gotoOp transfers control unconditionally to pc.
type gotoOp struct{ pc int }

func (op gotoOp) Execute(rt *Runtime, th *Thread) error {
	th.PC = op.pc
	return nil
}

// alternative is the compiled `if`: Val (the test result) selects between falling through to the
// then-branch, already positioned right after this instruction, or jumping to elsePC. endPC is the
// then-branch's exit jump target, recorded here only for back-trace/disassembly purposes.
type alternative struct {
	elsePC, endPC int
}

func (op alternative) Execute(rt *Runtime, th *Thread) error {
	if !th.Val.IsTruthy() {
		th.PC = op.elsePC
	}

	return nil
}

// returnOp pops the most recent call's return information and resumes the caller. At the outermost
// frame, with no return information left on the stack, it halts the thread instead, Val becoming
// the thread's result (spec.md §3.5 "the outermost RETURN has nothing to pop to and halts").
type returnOp struct{}

func (op returnOp) Execute(rt *Runtime, th *Thread) error {
	if th.Depth() == 0 {
		th.Halted = true
		th.Result = th.Val

		return nil
	}

	if err := th.PopMarker(value.MarkerReturn); err != nil {
		return err
	}

	pc, err := th.Pop()
	if err != nil {
		return err
	}

	unit, err := th.Pop()
	if err != nil {
		return err
	}

	frame, err := th.Pop()
	if err != nil {
		return err
	}

	module, err := th.Pop()
	if err != nil {
		return err
	}

	th.PC = int(pc.Fixnum())
	th.Unit = int(unit.Fixnum())
	th.Frame = frame
	th.Module = module

	return nil
}
