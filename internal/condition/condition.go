// Package condition implements the condition-type hierarchy (spec.md §4.3): conditions are
// struct-instances of a condition struct-type, rooted at ^condition, with fixed field-slot
// layouts for the ABI types spec.md §6.3 names. This package only builds and names the types and
// default-handler table; walking a thread's trap stack to find a handler is internal/vm's job,
// since that requires the thread's own stack representation.
package condition

import (
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Names of every condition type this core predefines (spec.md §4.3).
const (
	Condition                = "^condition"
	Error                    = "^error"
	IdioError                = "^idio-error"
	SystemError              = "^system-error"
	RuntimeError             = "^runtime-error"
	ReadError                = "^read-error"
	RTVariableUnboundError   = "^rt-variable-unbound-error"
	RTParameterTypeError     = "^rt-parameter-type-error"
	RTArrayError             = "^rt-array-error"
	RTHashKeyNotFoundError   = "^rt-hash-key-not-found-error"
	RTDivideByZeroError      = "^rt-divide-by-zero-error"
	RTBignumError            = "^rt-bignum-error"
	RTCommandError           = "^rt-command-error"
	RTCommandExecError       = "^rt-command-exec-error"
	RTCommandStatusError     = "^rt-command-status-error"
	RTSignal                 = "^rt-signal"
	StringError              = "^string-error"
)

// ABI field slots (spec.md §6.3); stable numbering so vm/jobcontrol/sysglue can use
// [container.FieldRefByIndex] instead of a name lookup on the hot raise path.
const (
	IdioErrorMessage = iota
	IdioErrorLocation
	IdioErrorDetail
)

const (
	ReadErrorLine = iota + 3
	ReadErrorPosition
)

const (
	SystemErrorErrno = iota + 3
	SystemErrorFunction
)

const (
	RTCommandExecErrorErrno = iota
)

const (
	RTSignalSignum = iota
)

// Handler is a condition handler: a trap handler, a default handler, or an escaper body.
// internal/vm supplies the concrete representation (a closure or primitive Value); this package
// only stores it opaquely.
type Handler = value.Value

// Registry owns every condition struct-type and the module-global default-handler table
// (spec.md §4.3 "Default handlers"): condition-type name -> Handler.
type Registry struct {
	Types    map[string]value.Value // name -> StructType
	Defaults map[string]Handler
}

// New builds the standard condition-type hierarchy.
func New(h *gc.Heap, in *container.Interner) *Registry {
	r := &Registry{
		Types:    make(map[string]value.Value),
		Defaults: make(map[string]Handler),
	}

	def := func(name string, parent string, fields ...string) {
		fieldSyms := make([]value.Value, len(fields))
		for i, f := range fields {
			fieldSyms[i] = in.Intern(f)
		}

		var parentType value.Value = value.Nil
		if parent != "" {
			parentType = r.Types[parent]
		}

		st := container.NewStructType(h, in.Intern(name), parentType, fieldSyms)
		h.ProtectAuto(st)
		r.Types[name] = st
	}

	def(Condition, "")
	def(Error, Condition)
	def(IdioError, Error, "message", "location", "detail")
	def(SystemError, IdioError, "errno", "function")
	def(RuntimeError, Error)
	def(ReadError, IdioError, "line", "position")
	def(RTVariableUnboundError, RuntimeError, "name")
	def(RTParameterTypeError, RuntimeError, "value", "expected-type")
	def(RTArrayError, RuntimeError, "index", "bound")
	def(RTHashKeyNotFoundError, RuntimeError, "key")
	def(RTDivideByZeroError, RuntimeError)
	def(RTBignumError, RuntimeError)
	def(RTCommandError, RuntimeError)
	def(RTCommandExecError, RTCommandError, "errno")
	def(RTCommandStatusError, RTCommandError, "job", "status")
	def(RTSignal, Condition, "signum")
	def(StringError, RuntimeError, "reason")

	return r
}

// Type returns the struct-type Value for name, or value.Nil if name is not a known condition type.
func (r *Registry) Type(name string) value.Value {
	if t, ok := r.Types[name]; ok {
		return t
	}

	return value.Nil
}

// NewCondition allocates a condition instance of the named type, with fields given in AllFields order.
func (r *Registry) NewCondition(h *gc.Heap, name string, fields ...value.Value) value.Value {
	return container.NewStructInstance(h, r.Type(name), fields)
}

// TypeOf returns the name of instance's most-derived condition type tracked by this registry, or
// "" if none of instance's type chain is registered (e.g. a user-defined subtype created without
// going through New, rooted at a type this registry never saw). It walks from instance's own
// struct-type up through its parents, so a subtype of a registered type is never mistaken for an
// unrelated registered type that happens to come first in a map iteration.
func (r *Registry) TypeOf(h *gc.Heap, instance value.Value) string {
	typ, payload := h.Object(instance)
	if typ != value.TypeStructInstance {
		return ""
	}

	for cur := payload.(*container.StructInstance).StructType; cur != value.Nil; {
		if name, ok := sameType(r, cur); ok {
			return name
		}

		curTyp, curPayload := h.Object(cur)
		if curTyp != value.TypeStructType {
			break
		}

		cur = curPayload.(*container.StructType).Parent
	}

	return ""
}

// sameType reports the registry name bound to struct-type value t, if any.
func sameType(r *Registry, t value.Value) (string, bool) {
	for name, rt := range r.Types {
		if rt == t {
			return name, true
		}
	}

	return "", false
}

// RegisterDefault installs handler as the default for condition type name.
func (r *Registry) RegisterDefault(name string, handler Handler) {
	r.Defaults[name] = handler
}

// LookupDefault walks instance's type hierarchy (most-derived first) looking for a registered
// default handler.
func (r *Registry) LookupDefault(h *gc.Heap, instance value.Value) (Handler, bool) {
	typ, payload := h.Object(instance)
	if typ != value.TypeStructInstance {
		return value.Value(0), false
	}

	st := payload.(*container.StructInstance).StructType

	for cur := st; cur != value.Nil; {
		for name, t := range r.Types {
			if t == cur {
				if handler, ok := r.Defaults[name]; ok {
					return handler, true
				}
			}
		}

		curTyp, curPayload := h.Object(cur)
		if curTyp != value.TypeStructType {
			break
		}

		cur = curPayload.(*container.StructType).Parent
	}

	return value.Value(0), false
}

// IsA reports whether instance's type descends from (or is) the condition type named ancestor.
func (r *Registry) IsA(h *gc.Heap, instance value.Value, ancestor string) bool {
	t := r.Type(ancestor)
	if t == value.Nil {
		return false
	}

	return container.InstanceIsA(h, instance, t)
}
