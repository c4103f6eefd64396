package vm

// exec.go defines the instruction cycle: fetch an Instruction from the current code unit, decode
// it into an operation, execute it. This is the stack-machine counterpart of a hardware CPU's
// fetch/decode/execute cycle (see, historically, a register-machine simulator's Fetch/Decode/
// Execute/Writeback staging): there is no separate address-evaluation or writeback stage because
// every operand here lives on the thread's own stack, not in addressable memory.

import (
	"errors"
	"fmt"

	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/value"
)

// ErrHalted is returned by Step when the thread has already halted.
var ErrHalted = errors.New("vm: halted")

// operation is one decoded instruction, ready to execute against a Runtime and Thread.
type operation interface {
	Execute(rt *Runtime, th *Thread) error
}

// Step decodes and executes a single instruction, advancing th.PC (except for control-transfer
// operations, which set it directly).
func (rt *Runtime) Step(th *Thread) error {
	if th.Halted {
		return ErrHalted
	}

	code := rt.Units[th.Unit].code

	inst, nextPC, err := Decode(code, th.PC)
	if err != nil {
		return fmt.Errorf("vm: step: %w", err)
	}

	th.PC = nextPC

	op, err := rt.decodeOp(inst)
	if err != nil {
		return fmt.Errorf("vm: step: %w", err)
	}

	if err := op.Execute(rt, th); err != nil {
		if cond, ok := condition.AsRaise(err); ok {
			return rt.raise(th, cond.Continuable, cond.Condition)
		}

		return err
	}

	return nil
}

// Run steps th until it halts or an unhandled error occurs.
func (rt *Runtime) Run(th *Thread) error {
	for !th.Halted {
		if err := rt.Step(th); err != nil {
			return err
		}
	}

	return nil
}

// decodeOp turns a generic Instruction into the concrete operation it denotes.
func (rt *Runtime) decodeOp(in Instruction) (operation, error) {
	switch in.Op {
	case OpShallowArgumentRef:
		return shallowArgumentRef{j: int(in.Operands[0])}, nil
	case OpShallowArgumentSet:
		return shallowArgumentSet{j: int(in.Operands[0])}, nil
	case OpDeepArgumentRef:
		return deepArgumentRef{i: int(in.Operands[0]), j: int(in.Operands[1])}, nil
	case OpDeepArgumentSet:
		return deepArgumentSet{i: int(in.Operands[0]), j: int(in.Operands[1])}, nil
	case OpGlobalRef:
		return globalRef{vi: int(in.Operands[0])}, nil
	case OpGlobalSet:
		return globalSet{vi: int(in.Operands[0])}, nil
	case OpCheckedGlobalRef:
		return checkedGlobalRef{vi: int(in.Operands[0])}, nil
	case OpPredefined:
		return predefinedRef{vi: int(in.Operands[0])}, nil
	case OpConstant:
		return constantOp{ci: int(in.Operands[0])}, nil
	case OpGoto:
		return gotoOp{pc: int(in.Operands[0])}, nil
	case OpAlternative:
		return alternative{elsePC: int(in.Operands[0]), endPC: int(in.Operands[1])}, nil
	case OpReturn:
		return returnOp{}, nil
	case OpAllocateFrame:
		return allocateFrame{n: int(in.Operands[0])}, nil
	case OpStoreArgument:
		return storeArgument{rank: int(in.Operands[0])}, nil
	case OpConsArgument:
		return consArgument{rank: int(in.Operands[0])}, nil
	case OpRegularCall:
		return regularCall{tail: false}, nil
	case OpTRRegularCall:
		return regularCall{tail: true}, nil
	case OpCall0:
		return fastCall{arity: 0}, nil
	case OpCall1:
		return fastCall{arity: 1}, nil
	case OpCall2:
		return fastCall{arity: 2}, nil
	case OpCall3:
		return fastCall{arity: 3}, nil
	case OpFixLet:
		return fixLet{n: int(in.Operands[0]), tail: false}, nil
	case OpTRFixLet:
		return fixLet{n: int(in.Operands[0]), tail: true}, nil
	case OpFixClosure:
		return makeClosure{arity: int(in.Operands[0]), entry: int(in.Operands[1]), variadic: false}, nil
	case OpNaryClosure:
		return makeClosure{arity: int(in.Operands[0]), entry: int(in.Operands[1]), variadic: true}, nil
	case OpPushDynamic:
		return pushDynamic{index: int(in.Operands[0])}, nil
	case OpPopDynamic:
		return popDynamic{index: int(in.Operands[0])}, nil
	case OpDynamicRef:
		return dynamicRef{depth: int(in.Operands[0])}, nil
	case OpPushEnviron:
		return pushEnviron{}, nil
	case OpPopEnviron:
		return popEnviron{}, nil
	case OpEnvironRef:
		return environRef{}, nil
	case OpPushTrap:
		return pushTrap{ci: int(in.Operands[0])}, nil
	case OpPopTrap:
		return popTrap{}, nil
	case OpPushEscaper:
		return pushEscaper{target: int(in.Operands[0])}, nil
	case OpPopEscaper:
		return popEscaper{}, nil
	case OpPushPreserveState:
		return pushPreserveState{}, nil
	case OpRestoreState:
		return restoreState{}, nil
	case OpPushPreserveAllState:
		return pushPreserveAllState{}, nil
	case OpRestoreAllState:
		return restoreAllState{}, nil
	default:
		return nil, fmt.Errorf("%w: unhandled opcode %s", ErrDecode, in.Op)
	}
}

// frameRef resolves an argument slot i frames up from th.Frame.
func frameRef(rt *Runtime, th *Thread, i, j int) (value.Value, error) {
	f := DeepFrame(rt.Heap, th.Frame, i)
	return ArgRef(rt.Heap, f, j)
}
