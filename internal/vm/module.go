package vm

import (
	"github.com/smoynes/idio/internal/bytecode"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Scope distinguishes which of the three parallel global tables a binding lives in (spec.md
// §4.2 "Globals").
type Scope uint8

const (
	ScopePredef Scope = iota
	ScopeToplevel
	ScopeDefined
)

// Binding is a symbol's entry in a module's symbol table: which global table it lives in, its
// slot in the constants pool (for the symbol itself) and in the global value table, the module
// that owns it, and its doc string.
type Binding struct {
	Scope         Scope
	ConstantIndex int
	ValueIndex    int
	Module        value.Value
	Doc           string
}

// Module is a namespace: a name, an imports list (other modules searched when a name isn't
// locally bound), an exports list, and a symbol table mapping name to Binding (spec.md §4.2
// "Modules").
type Module struct {
	Name    value.Value
	Imports []value.Value // Other Module values.
	Exports []value.Value // Symbols.
	Symbols map[string]*Binding
}

func (m *Module) Type() value.Type { return value.TypeModule }

func (m *Module) References() []value.Value {
	refs := append([]value.Value{m.Name}, m.Imports...)
	refs = append(refs, m.Exports...)

	return refs
}

// NewModule allocates an empty module.
func NewModule(h *gc.Heap, name value.Value) value.Value {
	return h.Alloc(value.TypeModule, nil, &Module{Name: name, Symbols: make(map[string]*Binding)})
}

func asModule(h *gc.Heap, v value.Value) *Module {
	typ, payload := h.Object(v)
	if typ != value.TypeModule {
		panic("vm: not a module: " + v.String())
	}

	return payload.(*Module)
}

// Bind records name's binding in a module, local-first.
func Bind(h *gc.Heap, mod value.Value, name string, b *Binding) {
	asModule(h, mod).Symbols[name] = b
}

// Resolve looks up name in mod's own symbol table, then each import in order (spec.md §4.2:
// "module lookups are resolved at compile time... embedded as indices" — this is the runtime-side
// counterpart used when loading an image and reconciling its relocation table).
func Resolve(h *gc.Heap, mod value.Value, name string) (*Binding, bool) {
	m := asModule(h, mod)

	if b, ok := m.Symbols[name]; ok {
		return b, true
	}

	for _, imp := range m.Imports {
		if b, ok := Resolve(h, imp, name); ok {
			return b, true
		}
	}

	return nil, false
}

// fromSymbolKind converts a bytecode.SymbolKind (the compile-time notion) to a runtime Scope.
func fromSymbolKind(k bytecode.SymbolKind) Scope {
	switch k {
	case bytecode.SymPredef:
		return ScopePredef
	case bytecode.SymDefined:
		return ScopeDefined
	default:
		return ScopeToplevel
	}
}
