// Package gc implements the tri-colour, generational mark-and-sweep collector that owns every
// heap [value.Value] in the runtime. Nothing outside this package is allowed to free a heap
// object; the rest of the system only ever holds Values or roots guarded through [Heap.Protect].
package gc

import (
	"fmt"

	"github.com/smoynes/idio/internal/log"
	"github.com/smoynes/idio/internal/value"
)

// Payload is the type-specific contents of a heap object. Every container type in
// internal/container implements it so the collector can enumerate outgoing references without
// knowing the concrete type.
type Payload interface {
	// Type returns the heap object type the payload represents.
	Type() value.Type

	// References returns every Value the payload directly refers to. The collector treats each
	// pointer Value in the result as an edge to trace; non-pointer Values (fixnums, constants) are
	// ignored.
	References() []value.Value
}

// Finalizer is called exactly once, by the collector, when an object becomes unreachable.
// Finalizer errors are caught and discarded; see spec.md §4.1 Failure semantics.
type Finalizer func(value.Value)

// object is the GC's bookkeeping record for one heap value.
type object struct {
	typ        value.Type
	colour     value.Colour
	free       bool
	sticky     bool
	generation uint8
	vtable     *value.VTable
	payload    Payload

	grey value.ObjectID // singly-linked grey worklist; 0 means "not queued".
	next value.ObjectID // threads every live object; 0 terminates.
}

// RootSource supplies additional GC roots: global value tables, module tables, the symbol intern
// table, thread registers and stacks, the VM constants pool, and so on. The heap itself knows
// about none of these; subsystems register themselves so collection sees everything they hold
// live. This is the Go analogue of spec.md Design Notes §9: "a systems-language port should embed
// [global mutable state] in a Runtime struct rather than as process globals" — here each root
// owner supplies its own roots instead of the GC reaching into globals.
type RootSource interface {
	GCRoots() []value.Value
}

// Collection selects how much of the heap a Collect call considers.
type Collection uint8

const (
	// NewGen collects only objects allocated since the last collection of either kind; objects
	// from older generations are treated as implicit roots.
	NewGen Collection = iota

	// Full collects the entire heap and resets generation bookkeeping.
	Full
)

// Heap is the collector and the sole owner of heap object storage.
type Heap struct {
	objects []object // index 0 is an unused sentinel so ObjectID zero can mean "no reference".
	free    []value.ObjectID

	live value.ObjectID // head of the "every live object" thread.
	grey value.ObjectID // head of the grey worklist.

	roots   map[value.ObjectID]int // protect/expose reference counts.
	autoRoot map[value.ObjectID]bool
	weak    map[value.ObjectID]bool
	finalizers map[value.ObjectID]Finalizer

	sources []RootSource

	currentGen uint8
	paused     int

	gen        *value.Generation
	stdVTables map[value.Type]*value.VTable

	// Abort is invoked when allocation cannot be satisfied even after a full collection. The
	// default logs and panics, standing in for the original's perror/abort path.
	Abort func(err error)

	log *log.Logger
}

// New creates an empty heap.
func New(logger *log.Logger) *Heap {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	h := &Heap{
		objects:    make([]object, 1, 1024), // index 0 reserved.
		roots:      make(map[value.ObjectID]int),
		autoRoot:   make(map[value.ObjectID]bool),
		weak:       make(map[value.ObjectID]bool),
		finalizers: make(map[value.ObjectID]Finalizer),
		gen:        value.NewGeneration(),
		stdVTables: make(map[value.Type]*value.VTable),
		log:        logger,
	}

	h.Abort = func(err error) {
		h.log.Error("gc: out of memory", "err", err)
		panic(err)
	}

	return h
}

// Alloc returns a cleared heap object of the given type holding payload. It never fails to the
// caller: a slot is taken from the free list when one is there, and otherwise the object table
// grows by one slot. Allocation itself never starts a collection; unreachable objects are
// reclaimed only when Collect runs.
func (h *Heap) Alloc(typ value.Type, vt *value.VTable, payload Payload) value.Value {
	id, ok := h.tryAlloc()
	if !ok {
		h.Collect(Full)

		id, ok = h.tryAlloc()
		if !ok {
			h.Abort(fmt.Errorf("gc: exhausted after full collection"))
			// Abort should not return, but tryAlloc again for the benefit of callers whose Abort
			// recovers (e.g. tests) rather than panicking.
			id, _ = h.tryAlloc()
		}
	}

	obj := &h.objects[id]
	obj.typ = typ
	obj.colour = value.White
	obj.free = false
	obj.sticky = false
	obj.generation = h.currentGen
	obj.vtable = vt
	obj.payload = payload
	obj.next = h.live
	h.live = id

	return value.Ref(id)
}

func (h *Heap) tryAlloc() (value.ObjectID, bool) {
	if n := len(h.free); n > 0 {
		id := h.free[n-1]
		h.free = h.free[:n-1]

		return id, true
	}

	if h.paused > 0 {
		return h.growObjectTable(), true
	}

	return h.growObjectTable(), true
}

func (h *Heap) growObjectTable() value.ObjectID {
	h.objects = append(h.objects, object{})
	return value.ObjectID(len(h.objects) - 1)
}

// Object returns the bookkeeping record and payload for v. It panics if v is not a live pointer.
func (h *Heap) Object(v value.Value) (value.Type, Payload) {
	id := v.ObjectID()
	obj := &h.objects[id]

	if obj.free {
		panic(fmt.Sprintf("gc: use after free: %s", v))
	}

	return obj.typ, obj.payload
}

// VTable returns the vtable associated with v's object.
func (h *Heap) VTable(v value.Value) *value.VTable {
	return h.objects[v.ObjectID()].vtable
}

// Generation returns the heap's shared vtable generation counter (spec.md §3.6): every vtable
// allocated against this heap should be built and mutated through this one counter, so a method
// lookup anywhere is invalidated by a Define anywhere else.
func (h *Heap) Generation() *value.Generation {
	return h.gen
}

// StandardVTable returns the cached vtable for typ, building and caching it via build on first
// use. Object constructors in internal/container call this instead of allocating a fresh vtable
// (or passing nil) on every call, so every instance of a given type shares one vtable, the way a
// class's method table is shared by every instance in the original.
func (h *Heap) StandardVTable(typ value.Type, build func() *value.VTable) *value.VTable {
	if vt, ok := h.stdVTables[typ]; ok {
		return vt
	}

	vt := build()
	h.stdVTables[typ] = vt

	return vt
}

// SetSticky marks v's object immune to sweep.
func (h *Heap) SetSticky(v value.Value, sticky bool) {
	h.objects[v.ObjectID()].sticky = sticky
}

// AddRootSource registers src so its roots are traced on every collection.
func (h *Heap) AddRootSource(src RootSource) {
	h.sources = append(h.sources, src)
}

// Protect anchors v as a root. Each Protect must be balanced by an Expose; the object is only
// eligible for collection once its protect count returns to zero. Non-pointer values are accepted
// harmlessly (there is nothing to anchor).
func (h *Heap) Protect(v value.Value) {
	if !v.IsPointer() {
		return
	}

	h.roots[v.ObjectID()]++
}

// Expose releases one Protect anchor on v.
func (h *Heap) Expose(v value.Value) {
	if !v.IsPointer() {
		return
	}

	id := v.ObjectID()

	if n := h.roots[id]; n <= 1 {
		delete(h.roots, id)
	} else {
		h.roots[id] = n - 1
	}
}

// ProtectAuto anchors v as a root for the remainder of the process; it is never exposed.
func (h *Heap) ProtectAuto(v value.Value) {
	if !v.IsPointer() {
		return
	}

	h.autoRoot[v.ObjectID()] = true
}

// RegisterFinalizer arranges for fn to run, exactly once, when v becomes unreachable.
func (h *Heap) RegisterFinalizer(v value.Value, fn Finalizer) {
	h.finalizers[v.ObjectID()] = fn
}

// DeregisterFinalizer cancels a previously registered finalizer.
func (h *Heap) DeregisterFinalizer(v value.Value) {
	delete(h.finalizers, v.ObjectID())
}

// AddWeak registers v as a weak reference holder: at the next collection, if v's referent is
// unreached, the package-level weak-reference bookkeeping clears it. In this port, container
// types holding weak references (weak-keyed hashes) implement their own clearing by consulting
// [Heap.Reachable] after a collection; AddWeak/RemoveWeak just track membership for that pass.
func (h *Heap) AddWeak(v value.Value) {
	if v.IsPointer() {
		h.weak[v.ObjectID()] = true
	}
}

// RemoveWeak cancels weak tracking for v.
func (h *Heap) RemoveWeak(v value.Value) {
	if v.IsPointer() {
		delete(h.weak, v.ObjectID())
	}
}

// Reachable reports whether v survived the most recent collection. It is meaningful only
// immediately after a Collect call, before any further allocation.
func (h *Heap) Reachable(v value.Value) bool {
	if !v.IsPointer() {
		return true
	}

	obj := &h.objects[v.ObjectID()]

	return !obj.free
}

// Pause increments the GC's pause counter. While paused, Collect is a no-op and allocation always
// grows the heap rather than triggering a cycle. Pause/Resume nest.
func (h *Heap) Pause() {
	h.paused++
}

// Resume decrements the pause counter.
func (h *Heap) Resume() {
	if h.paused > 0 {
		h.paused--
	}
}

// Collect runs a mark-and-sweep cycle. NewGen traces only young objects, treating older
// generations as implicit roots; Full traces everything and resets generation bookkeeping.
func (h *Heap) Collect(gen Collection) {
	if h.paused > 0 {
		return
	}

	h.mark(gen)
	h.sweep(gen)

	if gen == NewGen {
		h.currentGen++
	} else {
		h.currentGen = 0
	}
}

func (h *Heap) mark(gen Collection) {
	h.grey = 0

	push := func(id value.ObjectID) {
		if id == 0 {
			return
		}

		obj := &h.objects[id]
		if obj.free || obj.colour == value.DarkGrey || obj.colour == value.Black {
			return
		}

		obj.colour = value.DarkGrey
		obj.grey = h.grey
		h.grey = id
	}

	for id := range h.roots {
		push(id)
	}

	for id := range h.autoRoot {
		push(id)
	}

	for _, src := range h.sources {
		for _, v := range src.GCRoots() {
			if v.IsPointer() {
				push(v.ObjectID())
			}
		}
	}

	if gen == NewGen {
		// Old objects are treated as roots for a new-gen pass: they may hold the only reference
		// to a young object, and we are not tracing their incoming edges.
		for id := value.ObjectID(1); id < value.ObjectID(len(h.objects)); id++ {
			obj := &h.objects[id]
			if !obj.free && obj.generation != h.currentGen {
				push(id)
			}
		}
	}

	for h.grey != 0 {
		id := h.grey
		obj := &h.objects[id]
		h.grey = obj.grey
		obj.grey = 0

		if obj.payload != nil {
			for _, ref := range obj.payload.References() {
				if ref.IsPointer() {
					push(ref.ObjectID())
				}
			}
		}

		obj.colour = value.Black
	}
}

func (h *Heap) sweep(gen Collection) {
	var (
		newLive value.ObjectID
		prev    *value.ObjectID = &newLive
	)

	for id := h.live; id != 0; {
		obj := &h.objects[id]
		next := obj.next

		switch {
		case obj.sticky:
			obj.colour = value.White
			*prev = id
			prev = &obj.next

		case gen == NewGen && obj.generation != h.currentGen:
			// Not considered this pass; keep as-is (already black from being pushed as a root, or
			// left over from a prior cycle).
			obj.colour = value.White
			*prev = id
			prev = &obj.next

		case obj.colour == value.Black:
			obj.colour = value.White
			*prev = id
			prev = &obj.next

		default: // White: unreached.
			h.finalize(id)
			h.clearWeak(id)
			obj.free = true
			obj.payload = nil
			obj.vtable = nil
			h.free = append(h.free, id)
		}

		id = next
	}

	*prev = 0
	h.live = newLive
}

func (h *Heap) finalize(id value.ObjectID) {
	if fn, ok := h.finalizers[id]; ok {
		func() {
			defer func() { _ = recover() }() // Finalizer exceptions are not propagated.
			fn(value.Ref(id))
		}()

		delete(h.finalizers, id)
	}
}

func (h *Heap) clearWeak(id value.ObjectID) {
	if h.weak[id] {
		delete(h.weak, id)
	}
}

// Stats summarizes heap occupancy, mostly for tests and diagnostics.
type Stats struct {
	Live int
	Free int
}

// Stats returns a snapshot of heap occupancy.
func (h *Heap) Stats() Stats {
	var s Stats

	for id := h.live; id != 0; id = h.objects[id].next {
		s.Live++
	}

	s.Free = len(h.free)

	return s
}
