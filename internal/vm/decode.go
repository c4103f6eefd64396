package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrDecode is returned when a code unit's byte stream cannot be decoded as a valid instruction
// stream (truncated operand, unknown opcode).
var ErrDecode = errors.New("vm: decode error")

// operandCounts gives each opcode's operand arity, so Decode knows how many varints to consume.
var operandCounts = [opcodeMax]int{
	OpShallowArgumentRef:   1, // j
	OpShallowArgumentSet:   1,
	OpDeepArgumentRef:      2, // i j
	OpDeepArgumentSet:      2,
	OpGlobalRef:            1, // value-index
	OpGlobalSet:            1,
	OpCheckedGlobalRef:     1,
	OpPredefined:           1,
	OpConstant:             1, // constant-index
	OpGoto:                 1, // pc
	OpAlternative:          2, // else-pc, end-pc (then branch falls through)
	OpReturn:               0,
	OpAllocateFrame:        1, // n
	OpStoreArgument:        1, // rank
	OpConsArgument:         1, // rank
	OpRegularCall:          0,
	OpTRRegularCall:        0,
	OpCall0:                0,
	OpCall1:                0,
	OpCall2:                0,
	OpCall3:                0,
	OpFixLet:               1, // frame size
	OpTRFixLet:              1,
	OpFixClosure:           2, // arity, body-pc
	OpNaryClosure:          2,
	OpPushDynamic:          1, // dynamic-variable index
	OpPopDynamic:           1,
	OpDynamicRef:           1, // dynamic-variable index
	OpPushEnviron:          0,
	OpPopEnviron:           0,
	OpEnvironRef:           0,
	OpPushTrap:             1, // constant-index of the condition-type symbol
	OpPopTrap:              0,
	OpPushEscaper:          1, // goto target on invoke
	OpPopEscaper:           0,
	OpPushPreserveState:    0,
	OpRestoreState:         0,
	OpPushPreserveAllState: 0,
	OpRestoreAllState:      0,
}

// Instruction is one decoded byte-code instruction: an opcode plus its operands.
type Instruction struct {
	Op       Opcode
	Operands []int64
}

func (in Instruction) String() string {
	return fmt.Sprintf("%s %v", in.Op, in.Operands)
}

// Decode reads one instruction from code starting at pc, returning it and the pc of the next
// instruction. Operands are zig-zag encoded, LEB128-style varints (stdlib encoding/binary.Varint
// — the variable-length integer encoding spec.md §4.2 calls for).
func Decode(code []byte, pc int) (Instruction, int, error) {
	if pc < 0 || pc >= len(code) {
		return Instruction{}, pc, fmt.Errorf("%w: pc %d out of range (len %d)", ErrDecode, pc, len(code))
	}

	op := Opcode(code[pc])
	pc++

	if !op.Valid() {
		return Instruction{}, pc, fmt.Errorf("%w: unknown opcode %d", ErrDecode, code[pc-1])
	}

	n := operandCounts[op]
	operands := make([]int64, n)

	for i := 0; i < n; i++ {
		v, size := binary.Varint(code[pc:])
		if size <= 0 {
			return Instruction{}, pc, fmt.Errorf("%w: truncated operand for %s", ErrDecode, op)
		}

		operands[i] = v
		pc += size
	}

	return Instruction{Op: op, Operands: operands}, pc, nil
}

// Encode appends op and its operands to code, in the same varint format Decode reads. It exists
// so tests (and, eventually, a code generator outside this package's scope) can hand-assemble
// byte-code without going through a file image.
func Encode(code []byte, op Opcode, operands ...int64) []byte {
	code = append(code, byte(op))

	var buf [binary.MaxVarintLen64]byte

	for _, v := range operands {
		n := binary.PutVarint(buf[:], v)
		code = append(code, buf[:n]...)
	}

	return code
}
