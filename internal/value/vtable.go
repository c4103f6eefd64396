package value

// Method is a polymorphic operation dispatched through a VTable. The receiver is passed as an
// Value so primitive-backed methods (->string, value-index, ...) can be installed uniformly across
// types.
type Method func(recv Value, args ...Value) (Value, error)

// VTable is a per-type method table: an ordered list of (name, method) entries, a parent for
// inheritance, and a generation counter used to invalidate caches.
//
// Lookup walks to the parent when a method isn't found locally; resolved parent methods are
// cached on the child as "inherited" entries so repeat lookups are O(1) until the chain changes.
type VTable struct {
	typeName string
	parent   *VTable
	gen      uint64

	methods   map[string]Method
	inherited map[string]inheritedMethod
}

type inheritedMethod struct {
	method Method
	gen    uint64
}

// Generation is bumped whenever any vtable anywhere is mutated, invalidating every cached
// "inherited" entry process-wide. This mirrors the "global generation counter" of spec.md §3.6; it
// is owned here, not as a package-level var, so a Runtime can reset it between independent VM
// instances (see Design Notes §9 on global mutable state). A single Generation is meant to be
// shared by every VTable belonging to one heap/runtime; [gc.Heap] holds the instance callers
// should use (see Heap.Generation).
type Generation struct {
	counter uint64
}

// NewGeneration creates a fresh generation counter, starting at zero.
func NewGeneration() *Generation {
	return &Generation{}
}

func (g *Generation) bump() uint64 {
	g.counter++
	return g.counter
}

// NewVTable creates a vtable for typeName, optionally inheriting from parent.
func NewVTable(gen *Generation, typeName string, parent *VTable) *VTable {
	return &VTable{
		typeName:  typeName,
		parent:    parent,
		gen:       gen.bump(),
		methods:   make(map[string]Method),
		inherited: make(map[string]inheritedMethod),
	}
}

// TypeName returns the vtable's declared type name, e.g. for the `typename` method.
func (vt *VTable) TypeName() string {
	return vt.typeName
}

// Define installs or overrides a method by name and bumps the generation counter, invalidating
// every cache downstream of this vtable.
func (vt *VTable) Define(gen *Generation, name string, m Method) {
	vt.methods[name] = m
	vt.gen = gen.bump()
	vt.inherited = make(map[string]inheritedMethod)
}

// Lookup resolves a method by name, walking to the parent chain when not found locally. A resolved
// parent method is cached as "inherited" until the generation counter changes.
func (vt *VTable) Lookup(gen *Generation, name string) (Method, bool) {
	if m, ok := vt.methods[name]; ok {
		return m, true
	}

	if cached, ok := vt.inherited[name]; ok && cached.gen == gen.counter {
		return cached.method, true
	}

	if vt.parent == nil {
		return nil, false
	}

	m, ok := vt.parent.Lookup(gen, name)
	if ok {
		vt.inherited[name] = inheritedMethod{method: m, gen: gen.counter}
	}

	return m, ok
}

// IsA reports whether vt is or descends from ancestor.
func (vt *VTable) IsA(ancestor *VTable) bool {
	for t := vt; t != nil; t = t.parent {
		if t == ancestor {
			return true
		}
	}

	return false
}

// Parent returns the vtable's parent, or nil at the root.
func (vt *VTable) Parent() *VTable {
	return vt.parent
}

// Standard method names every vtable is expected to provide, directly or by inheritance.
const (
	MethodTypeName        = "typename"
	MethodToString        = "->string"
	MethodValueIndex      = "value-index"
	MethodSetValueIndex    = "set-value-index!"
)
