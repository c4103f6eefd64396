package vm

import (
	"fmt"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Frame is an activation record: an array of argument slots, a link to the enclosing frame, and
// bookkeeping for back-traces (spec.md §3.3).
type Frame struct {
	Slots       []value.Value
	Parent      value.Value // Nil, or another Frame.
	Closure     value.Value // The closure whose call created this frame.
	SourceIndex int         // Index into the constants pool of the calling source expression.
}

func (f *Frame) Type() value.Type { return value.TypeFrame }

func (f *Frame) References() []value.Value {
	refs := append([]value.Value{f.Parent, f.Closure}, f.Slots...)
	return refs
}

// NewFrame allocates a frame of n argument slots (all Nil) linked to parent.
func NewFrame(h *gc.Heap, n int, parent, closure value.Value) value.Value {
	slots := make([]value.Value, n)
	for i := range slots {
		slots[i] = value.Nil
	}

	return h.Alloc(value.TypeFrame, nil, &Frame{Slots: slots, Parent: parent, Closure: closure})
}

func asFrame(h *gc.Heap, v value.Value) *Frame {
	typ, payload := h.Object(v)
	if typ != value.TypeFrame {
		panic("vm: not a frame: " + v.String())
	}

	return payload.(*Frame)
}

// DeepFrame walks i frames up the parent chain from v.
func DeepFrame(h *gc.Heap, v value.Value, i int) value.Value {
	for ; i > 0; i-- {
		v = asFrame(h, v).Parent
	}

	return v
}

// ArgRef reads argument slot j of frame v.
func ArgRef(h *gc.Heap, v value.Value, j int) (value.Value, error) {
	f := asFrame(h, v)
	if j < 0 || j >= len(f.Slots) {
		return value.Value(0), fmt.Errorf("vm: frame slot %d out of range (size %d)", j, len(f.Slots))
	}

	return f.Slots[j], nil
}

// ArgSet writes argument slot j of frame v.
func ArgSet(h *gc.Heap, v value.Value, j int, val value.Value) error {
	f := asFrame(h, v)
	if j < 0 || j >= len(f.Slots) {
		return fmt.Errorf("vm: frame slot %d out of range (size %d)", j, len(f.Slots))
	}

	f.Slots[j] = val

	return nil
}
