package vm

import (
	"fmt"

	"github.com/smoynes/idio/internal/bytecode"
	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/log"
	"github.com/smoynes/idio/internal/value"
)

// unit is one loaded, executable code array together with the module it runs in.
type unit struct {
	module value.Value
	code   []byte
}

// Runtime owns every process-wide piece of VM state: the heap, the symbol interner, the three
// parallel global-value tables (predef/toplevel/defined, spec.md §4.2), the module table, the
// loaded code units and their shared constants pool, and the live threads. Everything here used
// to be a process global in the original; per spec.md Design Notes §9 it is instead embedded in
// one owning struct, which itself registers as a gc.RootSource.
type Runtime struct {
	Heap     *gc.Heap
	Interner *container.Interner

	Predef   []value.Value
	Toplevel []value.Value
	Defined  []bool

	Modules map[string]value.Value

	Units     []unit
	Constants []value.Value

	Conditions *condition.Registry

	threads []value.Value

	log *log.Logger
}

// NewRuntime creates an empty runtime with its root module and condition hierarchy already
// registered.
func NewRuntime() *Runtime {
	h := gc.New(nil)
	in := container.NewInterner(h)
	rt := &Runtime{
		Heap:       h,
		Interner:   in,
		Modules:    make(map[string]value.Value),
		Conditions: condition.New(h, in),
		log:        log.DefaultLogger(),
	}

	h.AddRootSource(rt)

	root := NewModule(h, rt.Interner.Intern("idio"))
	rt.Modules["idio"] = root
	h.ProtectAuto(root)

	return rt
}

// GCRoots implements gc.RootSource.
func (rt *Runtime) GCRoots() []value.Value {
	roots := append([]value.Value{}, rt.Predef...)
	roots = append(roots, rt.Toplevel...)
	roots = append(roots, rt.Constants...)
	roots = append(roots, rt.threads...)

	for _, m := range rt.Modules {
		roots = append(roots, m)
	}

	return roots
}

// DefinePrimitive installs a native function in the predef table under name, visible from every
// module that imports root.
func (rt *Runtime) DefinePrimitive(name string, arity int, variadic bool, doc string,
	fn func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error),
) {
	sym := rt.Interner.Intern(name)
	prim := NewPrimitive(rt.Heap, name, arity, variadic, doc, fn)

	idx := len(rt.Predef)
	rt.Predef = append(rt.Predef, prim)

	root := rt.Modules["idio"]
	Bind(rt.Heap, root, name, &Binding{Scope: ScopePredef, ValueIndex: idx, Module: root, Doc: doc})
	root2 := asModule(rt.Heap, root)
	root2.Exports = append(root2.Exports, sym)
}

// Shutdown drops every module's GC protection and forces a full collection -- the CLI entry
// point's last act before os.Exit. Finalizers run only for objects unreachable at that point: the
// modules, the global tables and the constants pool remain roots through GCRoots, so nothing
// reachable from them is finalized, and there is no per-module finalizer hook.
func (rt *Runtime) Shutdown() {
	for _, m := range rt.Modules {
		rt.Heap.Expose(m)
	}

	rt.Heap.Collect(gc.Full)
}

// DefineToplevel installs a plain value (not a primitive) as a toplevel binding in the root
// module, the way a CLI entry point exposes process identity (pid, ppid, uid, gid, groups) and
// environment-derived globals before running user code.
func (rt *Runtime) DefineToplevel(name string, v value.Value) int {
	idx := len(rt.Toplevel)
	rt.Toplevel = append(rt.Toplevel, v)
	rt.Defined = append(rt.Defined, true)

	root := rt.Modules["idio"]
	Bind(rt.Heap, root, name, &Binding{Scope: ScopeToplevel, ValueIndex: idx, Module: root})

	return idx
}

// ToplevelValue looks up name in the root module and returns its current value, for a CLI entry
// point reading back a computed exit-status variable after a thread halts.
func (rt *Runtime) ToplevelValue(name string) (value.Value, bool) {
	root := rt.Modules["idio"]

	b, ok := Resolve(rt.Heap, root, name)
	if !ok || b.Scope != ScopeToplevel || b.ValueIndex >= len(rt.Toplevel) {
		return value.Undef, false
	}

	return rt.Toplevel[b.ValueIndex], true
}

// LoadImage materializes img's constants pool, registers its modules (creating any that don't
// already exist and merging symbol tables into existing ones of the same name), appends its code
// units, and allocates a fresh global value-table slot for every symbol the image declares. It
// does not apply the image's relocation table: GLOBAL-REF/GLOBAL-SET operands in the loaded code
// are used as runtime value-table indices exactly as compiled.
// It returns the index of the first newly appended unit, usable as an entry point.
func (rt *Runtime) LoadImage(img *bytecode.Image) (int, error) {
	consts, err := bytecode.Materialize(rt.Heap, rt.Interner, img)
	if err != nil {
		return 0, fmt.Errorf("vm: load image: %w", err)
	}

	constBase := len(rt.Constants)
	rt.Constants = append(rt.Constants, consts...)

	modRefs := make([]value.Value, len(img.Modules))

	for i, m := range img.Modules {
		mod, ok := rt.Modules[m.Name]
		if !ok {
			mod = NewModule(rt.Heap, rt.Interner.Intern(m.Name))
			rt.Modules[m.Name] = mod
			rt.Heap.ProtectAuto(mod)
		}

		modRefs[i] = mod
	}

	for i, m := range img.Modules {
		mm := asModule(rt.Heap, modRefs[i])

		for _, imp := range m.Imports {
			if impMod, ok := rt.Modules[imp]; ok {
				mm.Imports = append(mm.Imports, impMod)
			}
		}

		for _, exp := range m.Exports {
			mm.Exports = append(mm.Exports, rt.Interner.Intern(exp))
		}
	}

	// Allocate runtime value-table slots for every symbol-info entry before resolving
	// relocations, so a relocation referencing a forward-declared symbol in the same image
	// still finds a slot.
	for i, m := range img.Modules {
		for _, s := range m.Symbols {
			scope := fromSymbolKind(s.Kind)

			var idx int

			switch scope {
			case ScopePredef:
				idx = len(rt.Predef)
				rt.Predef = append(rt.Predef, value.Undef)
			default:
				idx = len(rt.Toplevel)
				rt.Toplevel = append(rt.Toplevel, value.Undef)
				rt.Defined = append(rt.Defined, false)
			}

			Bind(rt.Heap, modRefs[i], s.Name, &Binding{
				Scope: scope, ConstantIndex: constBase + s.CompileIndex, ValueIndex: idx, Module: modRefs[i],
			})
		}
	}

	unitBase := len(rt.Units)

	for _, u := range img.Units {
		rt.Units = append(rt.Units, unit{module: modRefs[u.ModuleIndex], code: u.Code})
	}

	// The relocation table is not applied: GLOBAL-REF/SET operands are not rewritten to the slots
	// allocated above, and img.Relocs is not kept.
	_ = img.Relocs

	return unitBase, nil
}

// NewThread creates a thread ready to execute unit starting at pc, in module's environment.
func (rt *Runtime) NewThread(unit, pc int) value.Value {
	if unit < 0 || unit >= len(rt.Units) {
		panic(fmt.Sprintf("vm: unit %d out of range", unit))
	}

	th := NewThread(rt.Heap, rt.Units[unit].module, unit, pc)
	rt.threads = append(rt.threads, th)
	rt.Heap.Protect(th)

	return th
}
