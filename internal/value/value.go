// Package value defines the universal Value type: the tagged representation shared by every
// object the virtual machine, garbage collector, and condition system operate on.
package value

import "fmt"

// Value is a machine word that is either an immediate datum or a reference to a heap object. The
// low two bits discriminate the four cases; see the Tag constants below for the layout.
//
// Unlike the C original, a Go Value cannot hold a raw pointer: the garbage collector would have no
// way to find and relocate it. Instead a pointer Value carries the index of its object in the
// [github.com/smoynes/idio/internal/gc] heap's object table. Callers never see the index directly;
// they go through [gc.Heap] methods.
type Value uint64

// Tag occupies the low two bits of every Value.
type Tag uint8

const (
	TagPointer  Tag = 0b00
	TagFixnum   Tag = 0b01
	TagConstant Tag = 0b10
	TagReserved Tag = 0b11

	tagMask  = Value(0b11)
	tagShift = 2
)

// Tag returns the discriminating tag of the value.
func (v Value) Tag() Tag {
	return Tag(v & tagMask)
}

func (v Value) String() string {
	switch v.Tag() {
	case TagPointer:
		return fmt.Sprintf("#<ref %#x>", uint64(v)>>tagShift)
	case TagFixnum:
		return fmt.Sprintf("%d", v.Fixnum())
	case TagConstant:
		return v.constantString()
	default:
		return fmt.Sprintf("#<reserved %#x>", uint64(v))
	}
}

// --- Pointers ----------------------------------------------------------

// ObjectID indexes an object in a GC heap's object table.
type ObjectID uint64

// Ref constructs a pointer Value referencing the object at id.
func Ref(id ObjectID) Value {
	return Value(id)<<tagShift | Value(TagPointer)
}

// IsPointer reports whether v references a heap object.
func (v Value) IsPointer() bool {
	return v.Tag() == TagPointer
}

// ObjectID returns the heap object index referenced by v. It panics if v is not a pointer.
func (v Value) ObjectID() ObjectID {
	if !v.IsPointer() {
		panic(fmt.Sprintf("value: %s is not a pointer", v))
	}

	return ObjectID(v >> tagShift)
}

// --- Fixnums -------------------------------------------------------------

// wordBits is the width, in bits, of the machine word backing a Value.
const wordBits = 64

// FixnumBits is the number of bits available to a fixnum's magnitude and sign, i.e. W-2.
const FixnumBits = wordBits - tagShift

// FixnumMax and FixnumMin bound the inclusive range of representable fixnums: [-2^(W-3), 2^(W-3)-1].
const (
	FixnumMax = int64(1)<<(FixnumBits-1) - 1
	FixnumMin = -(int64(1) << (FixnumBits - 1))
)

// Fixnum constructs an immediate integer Value. It panics if n is out of range; callers at the
// boundary (primitives, the reader) should check [InFixnumRange] first and fall back to a bignum
// otherwise.
func Fixnum(n int64) Value {
	if n < FixnumMin || n > FixnumMax {
		panic(fmt.Sprintf("value: %d overflows fixnum range", n))
	}

	return Value(uint64(n)<<tagShift&^uint64(tagMask)) | Value(TagFixnum)
}

// InFixnumRange reports whether n can be represented as a fixnum.
func InFixnumRange(n int64) bool {
	return n >= FixnumMin && n <= FixnumMax
}

// IsFixnum reports whether v is an immediate integer.
func (v Value) IsFixnum() bool {
	return v.Tag() == TagFixnum
}

// Fixnum returns the integer value of v, sign-extended from its packed width. It panics if v is not
// a fixnum.
func (v Value) Fixnum() int64 {
	if !v.IsFixnum() {
		panic(fmt.Sprintf("value: %s is not a fixnum", v))
	}

	shifted := int64(v) >> tagShift // arithmetic shift sign-extends.

	return shifted
}

// --- Constants -------------------------------------------------------------

// ConstKind is the 3-bit sub-tag of a TagConstant value.
type ConstKind uint8

const (
	ConstSingleton ConstKind = iota
	ConstReaderToken
	ConstOpcode
	ConstCodePoint

	constKindMask  = Value(0b111)
	constKindShift = tagShift + 3
	constPayload   = tagShift + 3
)

func (v Value) constKind() ConstKind {
	return ConstKind(v >> tagShift & constKindMask)
}

func constant(kind ConstKind, payload uint64) Value {
	return Value(payload)<<constPayload | Value(kind)<<tagShift | Value(TagConstant)
}

func (v Value) constPayload() uint64 {
	return uint64(v >> constPayload)
}

// Well-known singletons. These are distinct immediate values; no two are ever equal to one
// another or to any user-reachable value.
var (
	Nil       = constant(ConstSingleton, 0)
	Undef     = constant(ConstSingleton, 1)
	Unspec    = constant(ConstSingleton, 2)
	EOF       = constant(ConstSingleton, 3)
	True      = constant(ConstSingleton, 4)
	False     = constant(ConstSingleton, 5)
	Void      = constant(ConstSingleton, 6)
	NaN       = constant(ConstSingleton, 7)

	// VM stack markers. These bracket saved state on the thread's stack and must never appear in a
	// user-reachable position; see [StackMarker].
	MarkerPreserveState       = constant(ConstSingleton, 8)
	MarkerTrap                = constant(ConstSingleton, 9)
	MarkerEscaper             = constant(ConstSingleton, 10)
	MarkerReturn              = constant(ConstSingleton, 11)
	MarkerDynamic             = constant(ConstSingleton, 12)
	MarkerEnviron             = constant(ConstSingleton, 13)
	MarkerPreserveContinuation = constant(ConstSingleton, 14)
)

var singletonNames = map[Value]string{
	Nil: "nil", Undef: "undef", Unspec: "unspec", EOF: "eof",
	True: "true", False: "false", Void: "void", NaN: "NaN",
	MarkerPreserveState: "#[preserve-state]", MarkerTrap: "#[trap]",
	MarkerEscaper: "#[escaper]", MarkerReturn: "#[return]",
	MarkerDynamic: "#[dynamic]", MarkerEnviron: "#[environ]",
	MarkerPreserveContinuation: "#[preserve-continuation]",
}

// StackMarker reports whether v is one of the distinguished VM stack markers.
func (v Value) StackMarker() bool {
	if v.Tag() != TagConstant || v.constKind() != ConstSingleton {
		return false
	}

	_, marker := singletonNames[v]

	return marker && v.constPayload() >= 8
}

// Boolean converts a Go bool to the Idio True/False singleton.
func Boolean(b bool) Value {
	if b {
		return True
	}

	return False
}

// IsTruthy implements Idio's truthiness: every value is true except False.
func (v Value) IsTruthy() bool {
	return v != False
}

// CodePoint constructs a unicode code-point immediate.
func CodePoint(r rune) Value {
	return constant(ConstCodePoint, uint64(uint32(r)))
}

// IsCodePoint reports whether v is a unicode code-point immediate.
func (v Value) IsCodePoint() bool {
	return v.Tag() == TagConstant && v.constKind() == ConstCodePoint
}

// Rune returns the code point held by v. It panics if v is not a code point.
func (v Value) Rune() rune {
	if !v.IsCodePoint() {
		panic(fmt.Sprintf("value: %s is not a code point", v))
	}

	return rune(v.constPayload())
}

// ReaderToken constructs an immediate reader-token value, used internally by the (out of scope)
// reader to mark intermediate parse state; the VM treats these opaquely.
func ReaderToken(id uint64) Value {
	return constant(ConstReaderToken, id)
}

// OpcodeMarker constructs an immediate intermediate-opcode marker value used by the (out of scope) code
// generator; the VM treats these opaquely when they flow through constant pools.
func OpcodeMarker(id uint64) Value {
	return constant(ConstOpcode, id)
}

func (v Value) constantString() string {
	if name, ok := singletonNames[v]; ok {
		return name
	}

	switch v.constKind() {
	case ConstCodePoint:
		return fmt.Sprintf("#\\%c", v.Rune())
	case ConstReaderToken:
		return fmt.Sprintf("#[reader-token %d]", v.constPayload())
	case ConstOpcode:
		return fmt.Sprintf("#[opcode %d]", v.constPayload())
	default:
		return fmt.Sprintf("#[constant %d:%d]", v.constKind(), v.constPayload())
	}
}
