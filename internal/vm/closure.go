package vm

import (
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Closure is a code-address range within a module's byte-code array, a captured frame chain (its
// lexical environment at creation time), and the module it was compiled in (spec.md §3.3).
type Closure struct {
	CodeUnit int // Index into Runtime.Units.
	Entry    int // pc of the closure's first instruction.
	Arity    int
	Variadic bool
	Frame    value.Value // Captured enclosing frame, or Nil for a toplevel closure.
	Module   value.Value
	Name     value.Value // Symbol, or Nil for an anonymous closure (used in back-traces).
}

func (c *Closure) Type() value.Type { return value.TypeClosure }

func (c *Closure) References() []value.Value {
	return []value.Value{c.Frame, c.Module, c.Name}
}

// NewClosure allocates a closure.
func NewClosure(h *gc.Heap, unit, entry, arity int, variadic bool, frame, module, name value.Value) value.Value {
	return h.Alloc(value.TypeClosure, nil, &Closure{
		CodeUnit: unit, Entry: entry, Arity: arity, Variadic: variadic,
		Frame: frame, Module: module, Name: name,
	})
}

func asClosure(h *gc.Heap, v value.Value) *Closure {
	typ, payload := h.Object(v)
	if typ != value.TypeClosure {
		panic("vm: not a closure: " + v.String())
	}

	return payload.(*Closure)
}

// Primitive is a native function: arity, a variadic flag, and the Go function implementing it
// (spec.md §3.3).
type Primitive struct {
	Name     string
	Arity    int
	Variadic bool
	Doc      string
	Fn       func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error)
}

func (p *Primitive) Type() value.Type          { return value.TypePrimitive }
func (p *Primitive) References() []value.Value { return nil }

// NewPrimitive allocates a primitive.
func NewPrimitive(h *gc.Heap, name string, arity int, variadic bool, doc string,
	fn func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error),
) value.Value {
	return h.Alloc(value.TypePrimitive, nil, &Primitive{Name: name, Arity: arity, Variadic: variadic, Doc: doc, Fn: fn})
}

func asPrimitive(h *gc.Heap, v value.Value) *Primitive {
	typ, payload := h.Object(v)
	if typ != value.TypePrimitive {
		panic("vm: not a primitive: " + v.String())
	}

	return payload.(*Primitive)
}
