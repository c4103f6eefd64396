package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

func newRegistry(t *testing.T) (*gc.Heap, *container.Interner, *condition.Registry) {
	t.Helper()

	h := gc.New(nil)
	in := container.NewInterner(h)

	return h, in, condition.New(h, in)
}

func TestHierarchyIsA(t *testing.T) {
	h, in, r := newRegistry(t)

	cond := r.NewCondition(h, condition.StringError, in.Intern("oops"))

	assert.True(t, r.IsA(h, cond, condition.StringError))
	assert.True(t, r.IsA(h, cond, condition.RuntimeError))
	assert.True(t, r.IsA(h, cond, condition.Error))
	assert.True(t, r.IsA(h, cond, condition.Condition))
	assert.False(t, r.IsA(h, cond, condition.ReadError))
	assert.False(t, r.IsA(h, cond, condition.IdioError))
}

func TestIdioErrorFieldOrder(t *testing.T) {
	h, in, r := newRegistry(t)

	msg := in.Intern("boom")
	loc := in.Intern("somewhere")
	detail := in.Intern("detail")

	cond := r.NewCondition(h, condition.IdioError, msg, loc, detail)

	assert.Equal(t, msg, container.FieldRefByIndex(h, cond, condition.IdioErrorMessage))
	assert.Equal(t, loc, container.FieldRefByIndex(h, cond, condition.IdioErrorLocation))
	assert.Equal(t, detail, container.FieldRefByIndex(h, cond, condition.IdioErrorDetail))
}

func TestSystemErrorInheritsIdioErrorFields(t *testing.T) {
	h, in, r := newRegistry(t)

	msg := in.Intern("syscall failed")
	errno := value.Fixnum(2)
	fn := in.Intern("open")

	cond := r.NewCondition(h, condition.SystemError, msg, value.Nil, value.Nil, errno, fn)

	assert.Equal(t, msg, container.FieldRefByIndex(h, cond, condition.IdioErrorMessage))
	assert.Equal(t, errno, container.FieldRefByIndex(h, cond, condition.SystemErrorErrno))
	assert.Equal(t, fn, container.FieldRefByIndex(h, cond, condition.SystemErrorFunction))
	assert.True(t, r.IsA(h, cond, condition.IdioError))
}

func TestNewConditionPadsMissingFieldsWithNil(t *testing.T) {
	h, _, r := newRegistry(t)

	cond := r.NewCondition(h, condition.RTBignumError)
	assert.True(t, r.IsA(h, cond, condition.RuntimeError))

	arrayErr := r.NewCondition(h, condition.RTArrayError, value.Fixnum(5))
	assert.Equal(t, value.Fixnum(5), container.FieldRefByIndex(h, arrayErr, 0))
	assert.Equal(t, value.Nil, container.FieldRefByIndex(h, arrayErr, 1))
}

func TestRegisterAndLookupDefault(t *testing.T) {
	h, in, r := newRegistry(t)

	handler := in.Intern("a-handler-stand-in")
	r.RegisterDefault(condition.RuntimeError, handler)

	cond := r.NewCondition(h, condition.RTArrayError, value.Fixnum(5), value.Fixnum(3))

	found, ok := r.LookupDefault(h, cond)
	require.True(t, ok)
	assert.Equal(t, handler, found)
}

func TestLookupDefaultMissReturnsFalse(t *testing.T) {
	h, _, r := newRegistry(t)

	cond := r.NewCondition(h, condition.StringError, value.Nil)

	_, ok := r.LookupDefault(h, cond)
	assert.False(t, ok)
}

func TestTypeOfFindsMostDerived(t *testing.T) {
	h, _, r := newRegistry(t)

	cond := r.NewCondition(h, condition.RTArrayError, value.Fixnum(5), value.Fixnum(3))
	assert.Equal(t, condition.RTArrayError, r.TypeOf(h, cond))

	divByZero := r.NewCondition(h, condition.RTDivideByZeroError)
	assert.Equal(t, condition.RTDivideByZeroError, r.TypeOf(h, divByZero))

	// A struct-instance built directly from an ancestor StructType, bypassing NewCondition, must
	// report that ancestor's name, not some unrelated registered descendant.
	runtimeErrInstance := container.NewStructInstance(h, r.Type(condition.RuntimeError), nil)
	assert.Equal(t, condition.RuntimeError, r.TypeOf(h, runtimeErrInstance))
}

func TestRaiseWrapAndUnwrap(t *testing.T) {
	h, in, r := newRegistry(t)
	cond := r.NewCondition(h, condition.StringError, in.Intern("boom"))

	err := condition.NewRaise(condition.StringError, true, cond)

	raised, ok := condition.AsRaise(err)
	require.True(t, ok)
	assert.True(t, raised.Continuable)
	assert.Equal(t, cond, raised.Condition)
}

func TestAsRaiseRejectsOrdinaryError(t *testing.T) {
	_, ok := condition.AsRaise(assertErr{})
	assert.False(t, ok)
}

type assertErr struct{}

func (assertErr) Error() string { return "not a raise" }
