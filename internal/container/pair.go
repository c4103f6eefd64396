// Package container implements the universal data structures that both source code and shell
// argument lists are built from: pairs, strings, symbols, arrays, hashes, and structs.
package container

import (
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Pair is the universal two-element list cell.
type Pair struct {
	Head, Tail value.Value
}

func (p *Pair) Type() value.Type { return value.TypePair }

func (p *Pair) References() []value.Value {
	return []value.Value{p.Head, p.Tail}
}

// Cons allocates a new pair.
func Cons(h *gc.Heap, head, tail value.Value) value.Value {
	return h.Alloc(value.TypePair, nil, &Pair{Head: head, Tail: tail})
}

// AsPair returns the Pair payload behind v. It panics if v is not a pair.
func AsPair(h *gc.Heap, v value.Value) *Pair {
	typ, payload := h.Object(v)
	if typ != value.TypePair {
		panic("container: not a pair: " + v.String())
	}

	return payload.(*Pair)
}

// List allocates a proper list from vs, the way `list` would.
func List(h *gc.Heap, vs ...value.Value) value.Value {
	result := value.Nil

	for i := len(vs) - 1; i >= 0; i-- {
		result = Cons(h, vs[i], result)
	}

	return result
}

// Slice walks a proper list into a Go slice. It stops (without error) at the first non-pair tail,
// returning whatever was collected; callers that care about well-formedness should check the
// returned remainder against value.Nil.
func Slice(h *gc.Heap, list value.Value) (items []value.Value, remainder value.Value) {
	for list.IsPointer() {
		typ, payload := h.Object(list)
		if typ != value.TypePair {
			break
		}

		p := payload.(*Pair)
		items = append(items, p.Head)
		list = p.Tail
	}

	return items, list
}
