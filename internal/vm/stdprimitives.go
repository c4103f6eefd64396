package vm

import (
	"fmt"

	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// RegisterStandardPrimitives installs the arithmetic, string, array, and hash primitives every
// compiled image depends on without an explicit module import (spec.md §8's end-to-end scenarios:
// `(+ 1 2)`, `(string-length "héllo")`, `(/ 1 0)`), each one a thin wrapper over the matching
// internal/container operation, the same way RegisterCoreForms wraps internal/continuation for
// call/cc.
func (rt *Runtime) RegisterStandardPrimitives() {
	rt.registerArithmetic()
	rt.registerStringPrimitives()
	rt.registerArrayPrimitives()
	rt.registerHashPrimitives()
}

// raiseParamType builds and raises ^rt-parameter-type-error for a primitive that received a
// wrong-typed argument (spec.md §7 "Parameter type").
func (rt *Runtime) raiseParamType(name string, got value.Value, expected string) error {
	cond := rt.Conditions.NewCondition(rt.Heap, condition.RTParameterTypeError, got,
		container.NewStringFromUTF8(rt.Heap, []byte(expected)))

	return condition.NewRaise(condition.RTParameterTypeError, false, cond)
}

func (rt *Runtime) fixnumArg(name string, v value.Value) (int64, error) {
	if !v.IsFixnum() {
		return 0, rt.raiseParamType(name, v, "fixnum")
	}

	return v.Fixnum(), nil
}

func isStringValue(h *gc.Heap, v value.Value) bool {
	if !v.IsPointer() {
		return false
	}

	typ, _ := h.Object(v)

	return typ == value.TypeString || typ == value.TypeSubstring
}

func heapType(h *gc.Heap, v value.Value, want value.Type) bool {
	if !v.IsPointer() {
		return false
	}

	typ, _ := h.Object(v)

	return typ == want
}

// registerArithmetic installs +, -, *, /, quotient, remainder and the fixnum comparisons.
// Division and quotient/remainder raise ^rt-divide-by-zero-error on a zero divisor, the condition
// spec.md §8's trap scenario names explicitly.
func (rt *Runtime) registerArithmetic() {
	rt.DefinePrimitive("+", 0, true, "sum every fixnum argument",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			var sum int64

			for _, a := range args {
				n, err := rt.fixnumArg("+", a)
				if err != nil {
					return value.Undef, err
				}

				sum += n
			}

			return value.Fixnum(sum), nil
		})

	rt.DefinePrimitive("*", 0, true, "multiply every fixnum argument",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			product := int64(1)

			for _, a := range args {
				n, err := rt.fixnumArg("*", a)
				if err != nil {
					return value.Undef, err
				}

				product *= n
			}

			return value.Fixnum(product), nil
		})

	rt.DefinePrimitive("-", 1, true,
		"subtract every remaining argument from the first, or negate it alone",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			acc, err := rt.fixnumArg("-", args[0])
			if err != nil {
				return value.Undef, err
			}

			if len(args) == 1 {
				return value.Fixnum(-acc), nil
			}

			for _, a := range args[1:] {
				n, err := rt.fixnumArg("-", a)
				if err != nil {
					return value.Undef, err
				}

				acc -= n
			}

			return value.Fixnum(acc), nil
		})

	rt.DefinePrimitive("/", 2, false, "integer-divide the first argument by the second",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			return rt.divideFixnums("/", args[0], args[1], quotient)
		})

	rt.DefinePrimitive("quotient", 2, false, "truncating integer quotient of two fixnums",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			return rt.divideFixnums("quotient", args[0], args[1], quotient)
		})

	rt.DefinePrimitive("remainder", 2, false, "remainder of truncating integer division",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			return rt.divideFixnums("remainder", args[0], args[1], remainder)
		})

	rt.registerComparison("=", func(a, b int64) bool { return a == b })
	rt.registerComparison("<", func(a, b int64) bool { return a < b })
	rt.registerComparison("<=", func(a, b int64) bool { return a <= b })
	rt.registerComparison(">", func(a, b int64) bool { return a > b })
	rt.registerComparison(">=", func(a, b int64) bool { return a >= b })

	rt.DefinePrimitive("zero?", 1, false, "true if the fixnum argument is zero",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			n, err := rt.fixnumArg("zero?", args[0])
			if err != nil {
				return value.Undef, err
			}

			return value.Boolean(n == 0), nil
		})
}

func quotient(a, b int64) int64  { return a / b }
func remainder(a, b int64) int64 { return a % b }

// divideFixnums implements the shared arity/type/zero-divisor checking behind /, quotient, and
// remainder.
func (rt *Runtime) divideFixnums(name string, av, bv value.Value, op func(a, b int64) int64) (value.Value, error) {
	a, err := rt.fixnumArg(name, av)
	if err != nil {
		return value.Undef, err
	}

	b, err := rt.fixnumArg(name, bv)
	if err != nil {
		return value.Undef, err
	}

	if b == 0 {
		cond := rt.Conditions.NewCondition(rt.Heap, condition.RTDivideByZeroError)
		return value.Undef, condition.NewRaise(condition.RTDivideByZeroError, false, cond)
	}

	return value.Fixnum(op(a, b)), nil
}

// registerComparison installs name as a chain comparison (`(< 1 2 3)` is true iff each adjacent
// pair satisfies cmp), the usual Lisp arithmetic-comparison convention.
func (rt *Runtime) registerComparison(name string, cmp func(a, b int64) bool) {
	rt.DefinePrimitive(name, 2, true, fmt.Sprintf("chain comparison %s over fixnum arguments", name),
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			prev, err := rt.fixnumArg(name, args[0])
			if err != nil {
				return value.Undef, err
			}

			for _, a := range args[1:] {
				n, err := rt.fixnumArg(name, a)
				if err != nil {
					return value.Undef, err
				}

				if !cmp(prev, n) {
					return value.False, nil
				}

				prev = n
			}

			return value.True, nil
		})
}

// registerStringPrimitives installs string-length, string-ref, string-append and string=?,
// layered directly over internal/container's String/Substring operations.
func (rt *Runtime) registerStringPrimitives() {
	rt.DefinePrimitive("string-length", 1, false, "number of code points in a string",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !isStringValue(rt.Heap, args[0]) {
				return value.Undef, rt.raiseParamType("string-length", args[0], "string")
			}

			return value.Fixnum(int64(container.Length(rt.Heap, args[0]))), nil
		})

	rt.DefinePrimitive("string-ref", 2, false, "the code point at a 0-based index",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !isStringValue(rt.Heap, args[0]) {
				return value.Undef, rt.raiseParamType("string-ref", args[0], "string")
			}

			i, err := rt.fixnumArg("string-ref", args[1])
			if err != nil {
				return value.Undef, err
			}

			r, err := container.RuneAt(rt.Heap, args[0], int(i))
			if err != nil {
				return value.Undef, rt.raiseStringError("string-ref", err)
			}

			return value.CodePoint(r), nil
		})

	rt.DefinePrimitive("string-append", 0, true, "concatenate every string argument",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			var runes []rune

			for _, a := range args {
				if !isStringValue(rt.Heap, a) {
					return value.Undef, rt.raiseParamType("string-append", a, "string")
				}

				runes = append(runes, container.Runes(rt.Heap, a)...)
			}

			return container.NewString(rt.Heap, runes), nil
		})

	rt.DefinePrimitive("string=?", 2, false, "true if two strings have the same code points",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !isStringValue(rt.Heap, args[0]) {
				return value.Undef, rt.raiseParamType("string=?", args[0], "string")
			}

			if !isStringValue(rt.Heap, args[1]) {
				return value.Undef, rt.raiseParamType("string=?", args[1], "string")
			}

			return value.Boolean(container.Equal(rt.Heap, args[0], args[1])), nil
		})
}

// raiseStringError wraps a container string error (out-of-bounds index, width mismatch) as
// ^string-error, the way spec.md §6.3's StringError condition carries a free-form "reason".
func (rt *Runtime) raiseStringError(name string, err error) error {
	reason := container.NewStringFromUTF8(rt.Heap, []byte(fmt.Sprintf("%s: %s", name, err)))
	cond := rt.Conditions.NewCondition(rt.Heap, condition.StringError, reason)

	return condition.NewRaise(condition.StringError, false, cond)
}

// registerArrayPrimitives installs array-ref, array-set!, and array-length over
// internal/container's Array, raising ^rt-array-error on an out-of-range index (spec.md §8
// property 7).
func (rt *Runtime) registerArrayPrimitives() {
	rt.DefinePrimitive("array-ref", 2, false, "the element at a (possibly negative) index",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeArray) {
				return value.Undef, rt.raiseParamType("array-ref", args[0], "array")
			}

			i, err := rt.fixnumArg("array-ref", args[1])
			if err != nil {
				return value.Undef, err
			}

			v, err := container.ArrayRef(rt.Heap, args[0], int(i))
			if err != nil {
				return value.Undef, rt.raiseArrayError(args[0], i)
			}

			return v, nil
		})

	rt.DefinePrimitive("array-set!", 3, false, "replace the element at a (possibly negative) index",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeArray) {
				return value.Undef, rt.raiseParamType("array-set!", args[0], "array")
			}

			i, err := rt.fixnumArg("array-set!", args[1])
			if err != nil {
				return value.Undef, err
			}

			if err := container.ArraySet(rt.Heap, args[0], int(i), args[2]); err != nil {
				return value.Undef, rt.raiseArrayError(args[0], i)
			}

			return value.Unspec, nil
		})

	rt.DefinePrimitive("array-length", 1, false, "number of elements in an array",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeArray) {
				return value.Undef, rt.raiseParamType("array-length", args[0], "array")
			}

			return value.Fixnum(int64(container.Len(rt.Heap, args[0]))), nil
		})
}

func (rt *Runtime) raiseArrayError(a value.Value, index int64) error {
	bound := container.Len(rt.Heap, a)
	cond := rt.Conditions.NewCondition(rt.Heap, condition.RTArrayError,
		value.Fixnum(index), value.Fixnum(int64(bound)))

	return condition.NewRaise(condition.RTArrayError, false, cond)
}

// registerHashPrimitives installs hash-ref, hash-set!, hash-delete!, and hash-exists? over
// internal/container's Hash, raising ^rt-hash-key-not-found-error on a missing lookup.
func (rt *Runtime) registerHashPrimitives() {
	rt.DefinePrimitive("hash-ref", 2, false, "the value bound to key",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeHash) {
				return value.Undef, rt.raiseParamType("hash-ref", args[0], "hash")
			}

			v, err := container.HashRef(rt.Heap, args[0], args[1])
			if err != nil {
				cond := rt.Conditions.NewCondition(rt.Heap, condition.RTHashKeyNotFoundError, args[1])
				return value.Undef, condition.NewRaise(condition.RTHashKeyNotFoundError, false, cond)
			}

			return v, nil
		})

	rt.DefinePrimitive("hash-set!", 3, false, "bind key to val, replacing any existing binding",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeHash) {
				return value.Undef, rt.raiseParamType("hash-set!", args[0], "hash")
			}

			container.HashSet(rt.Heap, args[0], args[1], args[2])

			return value.Unspec, nil
		})

	rt.DefinePrimitive("hash-delete!", 2, false, "remove key, reporting whether it was present",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeHash) {
				return value.Undef, rt.raiseParamType("hash-delete!", args[0], "hash")
			}

			return value.Boolean(container.HashDelete(rt.Heap, args[0], args[1])), nil
		})

	rt.DefinePrimitive("hash-exists?", 2, false, "true if key is bound",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			if !heapType(rt.Heap, args[0], value.TypeHash) {
				return value.Undef, rt.raiseParamType("hash-exists?", args[0], "hash")
			}

			_, err := container.HashRef(rt.Heap, args[0], args[1])

			return value.Boolean(err == nil), nil
		})
}
