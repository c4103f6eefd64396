package container

import (
	"errors"
	"fmt"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// StructType describes a struct (and, per spec.md §4.3, a condition type — conditions are just
// struct-instances of a condition StructType). It records its parent for inheritance and the
// field order local to this type; [StructType.AllFields] walks the parent chain to produce the
// full, ordered field list an instance carries.
type StructType struct {
	Name   value.Value // Symbol
	Parent value.Value // Nil, or another StructType.
	Fields []value.Value // Symbols, local to this type.
}

func (st *StructType) Type() value.Type { return value.TypeStructType }

func (st *StructType) References() []value.Value {
	refs := append([]value.Value{st.Name, st.Parent}, st.Fields...)
	return refs
}

// NewStructType allocates a struct type.
func NewStructType(h *gc.Heap, name, parent value.Value, fields []value.Value) value.Value {
	return h.Alloc(value.TypeStructType, nil, &StructType{Name: name, Parent: parent, Fields: fields})
}

func asStructType(h *gc.Heap, v value.Value) *StructType {
	typ, payload := h.Object(v)
	if typ != value.TypeStructType {
		panic("container: not a struct-type: " + v.String())
	}

	return payload.(*StructType)
}

// AllFields returns every field name in the type's inheritance chain, root-most first.
func AllFields(h *gc.Heap, v value.Value) []value.Value {
	st := asStructType(h, v)

	var fields []value.Value
	if st.Parent != value.Nil {
		fields = AllFields(h, st.Parent)
	}

	return append(fields, st.Fields...)
}

// IsA reports whether v's type chain includes ancestor (inclusive).
func IsA(h *gc.Heap, v, ancestor value.Value) bool {
	for cur := v; cur != value.Nil; {
		if cur == ancestor {
			return true
		}

		cur = asStructType(h, cur).Parent
	}

	return false
}

// StructInstance is an instance of a StructType: a pointer to its type plus an ordered fields
// vector matching [AllFields].
type StructInstance struct {
	StructType value.Value
	Fields     []value.Value
}

func (si *StructInstance) Type() value.Type { return value.TypeStructInstance }

func (si *StructInstance) References() []value.Value {
	return append([]value.Value{si.StructType}, si.Fields...)
}

// ErrNoSuchField is returned by FieldRef/FieldSet for a name not in the type's field list.
var ErrNoSuchField = errors.New("struct: no such field")

// NewStructInstance allocates an instance of typ with fields set positionally, matching
// [AllFields] order.
func NewStructInstance(h *gc.Heap, typ value.Value, fields []value.Value) value.Value {
	all := AllFields(h, typ)
	vals := make([]value.Value, len(all))

	for i := range vals {
		vals[i] = value.Nil
	}

	copy(vals, fields)

	return h.Alloc(value.TypeStructInstance, nil, &StructInstance{StructType: typ, Fields: vals})
}

func asStructInstance(h *gc.Heap, v value.Value) *StructInstance {
	typ, payload := h.Object(v)
	if typ != value.TypeStructInstance {
		panic("container: not a struct-instance: " + v.String())
	}

	return payload.(*StructInstance)
}

// InstanceIsA reports whether instance's type is or descends from ancestor type.
func InstanceIsA(h *gc.Heap, instance, ancestorType value.Value) bool {
	return IsA(h, asStructInstance(h, instance).StructType, ancestorType)
}

// FieldRef reads a named field, searching the instance's full field list.
func FieldRef(h *gc.Heap, instance, name value.Value) (value.Value, error) {
	si := asStructInstance(h, instance)
	all := AllFields(h, si.StructType)

	for i, f := range all {
		if f == name {
			return si.Fields[i], nil
		}
	}

	return value.Value(0), fmt.Errorf("%w: %s", ErrNoSuchField, name)
}

// FieldSet writes a named field in place.
func FieldSet(h *gc.Heap, instance, name, val value.Value) error {
	si := asStructInstance(h, instance)
	all := AllFields(h, si.StructType)

	for i, f := range all {
		if f == name {
			si.Fields[i] = val
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrNoSuchField, name)
}

// FieldRefByIndex reads a field by its fixed slot number, used when condition ABI slots are known
// statically (spec.md §6.3).
func FieldRefByIndex(h *gc.Heap, instance value.Value, i int) value.Value {
	si := asStructInstance(h, instance)
	return si.Fields[i]
}
