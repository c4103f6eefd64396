package container

import (
	"errors"
	"fmt"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Array is a dynamic vector. Negative indices address from the end; used size is the high-water
// mark, not necessarily len(data). Growth doubles capacity until 1024 elements, then grows by a
// flat 1024 thereafter (spec.md §3.3).
type Array struct {
	data []value.Value // len(data) == allocated size.
	used int
}

func (a *Array) Type() value.Type          { return value.TypeArray }
func (a *Array) References() []value.Value { return a.data[:a.used] }

// ErrArrayBounds is raised (as ^rt-array-error) when an index is out of range.
var ErrArrayBounds = errors.New("array: index out of bounds")

const arrayGrowThreshold = 1024

// NewArray allocates an array with the given initial used size, every slot set to value.Nil.
func NewArray(h *gc.Heap, size int) value.Value {
	data := make([]value.Value, size)
	for i := range data {
		data[i] = value.Nil
	}

	return h.Alloc(value.TypeArray, nil, &Array{data: data, used: size})
}

// ArrayFrom allocates an array from an existing slice of values.
func ArrayFrom(h *gc.Heap, vs []value.Value) value.Value {
	data := make([]value.Value, len(vs))
	copy(data, vs)

	return h.Alloc(value.TypeArray, nil, &Array{data: data, used: len(vs)})
}

// asArray returns the Array payload behind v.
func asArray(h *gc.Heap, v value.Value) *Array {
	typ, payload := h.Object(v)
	if typ != value.TypeArray {
		panic("container: not an array: " + v.String())
	}

	return payload.(*Array)
}

// Len returns the array's used size.
func Len(h *gc.Heap, v value.Value) int {
	return asArray(h, v).used
}

// resolveIndex turns a (possibly negative) index into a 0-based offset, or returns an error if out
// of [-len, len) range.
func resolveIndex(used, i int) (int, error) {
	orig := i
	if i < 0 {
		i += used
	}

	if i < 0 || i >= used {
		return 0, fmt.Errorf("%w: ref %d of %d", ErrArrayBounds, orig, used)
	}

	return i, nil
}

// ArrayRef reads element i (negative indices count from the end).
func ArrayRef(h *gc.Heap, v value.Value, i int) (value.Value, error) {
	a := asArray(h, v)

	idx, err := resolveIndex(a.used, i)
	if err != nil {
		return value.Value(0), err
	}

	return a.data[idx], nil
}

// ArraySet writes element i in place.
func ArraySet(h *gc.Heap, v value.Value, i int, val value.Value) error {
	a := asArray(h, v)

	idx, err := resolveIndex(a.used, i)
	if err != nil {
		return err
	}

	a.data[idx] = val

	return nil
}

// ArrayPush appends val, growing storage per the policy above.
func ArrayPush(h *gc.Heap, v value.Value, val value.Value) {
	a := asArray(h, v)

	if a.used == len(a.data) {
		a.data = append(a.data, make([]value.Value, growBy(len(a.data)))...)
	}

	a.data[a.used] = val
	a.used++
}

func growBy(allocated int) int {
	if allocated < arrayGrowThreshold {
		if allocated == 0 {
			return 1
		}

		return allocated // Doubling: append `allocated` more to double the slice.
	}

	return arrayGrowThreshold
}

// ArrayPop removes and returns the last element.
func ArrayPop(h *gc.Heap, v value.Value) (value.Value, error) {
	a := asArray(h, v)
	if a.used == 0 {
		return value.Value(0), fmt.Errorf("%w: pop of empty array", ErrArrayBounds)
	}

	a.used--
	val := a.data[a.used]
	a.data[a.used] = value.Nil

	return val, nil
}

// ArrayToSlice copies out the array's used elements.
func ArrayToSlice(h *gc.Heap, v value.Value) []value.Value {
	a := asArray(h, v)
	out := make([]value.Value, a.used)
	copy(out, a.data[:a.used])

	return out
}
