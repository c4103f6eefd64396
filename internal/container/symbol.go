package container

import (
	"fmt"
	"sync/atomic"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Symbol is an interned identifier: two symbols with equal character sequences share one heap
// object, so symbol equality is pointer equality.
type Symbol struct {
	Name string
}

func (s *Symbol) Type() value.Type          { return value.TypeSymbol }
func (s *Symbol) References() []value.Value { return nil }

// Keyword is a symbol-like self-evaluating identifier, distinguished from a regular Symbol only by
// its heap type.
type Keyword struct {
	Name string
}

func (k *Keyword) Type() value.Type          { return value.TypeKeyword }
func (k *Keyword) References() []value.Value { return nil }

// Interner is the process-wide (or, in this port, Runtime-wide) symbol and keyword intern table.
// It is string-keyed precisely so that [Interner.Intern] can guarantee symbol uniqueness
// (spec.md §3.5, testable property 3): ∀ strings s, t with the same character sequence,
// intern(s) ≡ intern(t) pointer-equal.
type Interner struct {
	heap     *gc.Heap
	symbols  map[string]value.Value
	keywords map[string]value.Value
	gensym   uint64
}

// NewInterner creates an empty intern table backed by heap.
func NewInterner(heap *gc.Heap) *Interner {
	return &Interner{
		heap:     heap,
		symbols:  make(map[string]value.Value),
		keywords: make(map[string]value.Value),
	}
}

// Intern returns the unique Symbol for name, allocating it on first use.
func (in *Interner) Intern(name string) value.Value {
	if v, ok := in.symbols[name]; ok {
		return v
	}

	v := in.heap.Alloc(value.TypeSymbol, nil, &Symbol{Name: name})
	in.heap.ProtectAuto(v) // Interned symbols live for the process; see gc.Heap.ProtectAuto.
	in.symbols[name] = v

	return v
}

// InternKeyword returns the unique Keyword for name.
func (in *Interner) InternKeyword(name string) value.Value {
	if v, ok := in.keywords[name]; ok {
		return v
	}

	v := in.heap.Alloc(value.TypeKeyword, nil, &Keyword{Name: name})
	in.heap.ProtectAuto(v)
	in.keywords[name] = v

	return v
}

// Gensym mints a symbol guaranteed unique within the process run: it is never interned, so it is
// never `eq?` to any symbol obtained through Intern, including one with the same printed name.
func (in *Interner) Gensym(prefix string) value.Value {
	n := atomic.AddUint64(&in.gensym, 1)
	name := fmt.Sprintf("%s/%d", prefix, n)

	return in.heap.Alloc(value.TypeSymbol, nil, &Symbol{Name: name})
}

// SymbolName returns the printed name of a Symbol or Keyword.
func SymbolName(h *gc.Heap, v value.Value) string {
	typ, payload := h.Object(v)

	switch typ {
	case value.TypeSymbol:
		return payload.(*Symbol).Name
	case value.TypeKeyword:
		return payload.(*Keyword).Name
	default:
		panic("container: not a symbol: " + v.String())
	}
}
