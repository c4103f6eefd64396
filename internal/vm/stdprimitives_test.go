package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/value"
)

func primFn(t *testing.T, rt *Runtime, name string) func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
	t.Helper()

	b, ok := Resolve(rt.Heap, rt.Modules["idio"], name)
	require.True(t, ok, "no predef binding for %s", name)

	return asPrimitive(rt.Heap, rt.Predef[b.ValueIndex]).Fn
}

func TestArithmeticPrimitives(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterStandardPrimitives()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	result, err := primFn(t, rt, "+")(rt, th, []value.Value{value.Fixnum(1), value.Fixnum(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Fixnum())

	result, err = primFn(t, rt, "-")(rt, th, []value.Value{value.Fixnum(5), value.Fixnum(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Fixnum())

	result, err = primFn(t, rt, "*")(rt, th, []value.Value{value.Fixnum(3), value.Fixnum(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(12), result.Fixnum())

	result, err = primFn(t, rt, "<")(rt, th, []value.Value{value.Fixnum(1), value.Fixnum(2), value.Fixnum(3)})
	require.NoError(t, err)
	assert.Equal(t, value.True, result)
}

func TestDivideByZeroRaisesCondition(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterStandardPrimitives()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	_, err := primFn(t, rt, "/")(rt, th, []value.Value{value.Fixnum(1), value.Fixnum(0)})
	require.Error(t, err)

	raised, ok := condition.AsRaise(err)
	require.True(t, ok)
	assert.Equal(t, condition.RTDivideByZeroError, rt.Conditions.TypeOf(rt.Heap, raised.Condition))
}

func TestDivideByZeroTrapHandlerCatchesIt(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterStandardPrimitives()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	var caught value.Value

	handler := NewPrimitive(rt.Heap, "caught-handler", 1, false, "",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			caught = rt.Interner.Intern("caught")
			return caught, nil
		})
	rt.Conditions.RegisterDefault(condition.RTDivideByZeroError, handler)

	_, err := primFn(t, rt, "/")(rt, th, []value.Value{value.Fixnum(1), value.Fixnum(0)})
	require.Error(t, err)

	raised, ok := condition.AsRaise(err)
	require.True(t, ok)

	require.NoError(t, rt.raise(th, raised.Continuable, raised.Condition))
	assert.Equal(t, rt.Interner.Intern("caught"), caught)
}

func TestStringPrimitives(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterStandardPrimitives()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	s := container.NewStringFromUTF8(rt.Heap, []byte("héllo"))

	result, err := primFn(t, rt, "string-length")(rt, th, []value.Value{s})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Fixnum())

	result, err = primFn(t, rt, "string-ref")(rt, th, []value.Value{s, value.Fixnum(1)})
	require.NoError(t, err)
	require.True(t, result.IsCodePoint())
	assert.Equal(t, 'é', result.Rune())

	_, err = primFn(t, rt, "string-length")(rt, th, []value.Value{value.Fixnum(1)})
	require.Error(t, err)
	_, ok := condition.AsRaise(err)
	require.True(t, ok)
}

func TestArrayPrimitives(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterStandardPrimitives()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	a := container.ArrayFrom(rt.Heap, []value.Value{value.Fixnum(1), value.Fixnum(2), value.Fixnum(3)})

	result, err := primFn(t, rt, "array-ref")(rt, th, []value.Value{a, value.Fixnum(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Fixnum())

	_, err = primFn(t, rt, "array-set!")(rt, th, []value.Value{a, value.Fixnum(0), value.Fixnum(99)})
	require.NoError(t, err)

	result, err = primFn(t, rt, "array-ref")(rt, th, []value.Value{a, value.Fixnum(0)})
	require.NoError(t, err)
	assert.Equal(t, int64(99), result.Fixnum())

	_, err = primFn(t, rt, "array-ref")(rt, th, []value.Value{a, value.Fixnum(10)})
	require.Error(t, err)

	raised, ok := condition.AsRaise(err)
	require.True(t, ok)
	assert.Equal(t, condition.RTArrayError, rt.Conditions.TypeOf(rt.Heap, raised.Condition))
}

func TestHashPrimitives(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterStandardPrimitives()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	hh := container.NewHash(rt.Heap)
	key := rt.Interner.Intern("k")

	_, err := primFn(t, rt, "hash-set!")(rt, th, []value.Value{hh, key, value.Fixnum(7)})
	require.NoError(t, err)

	result, err := primFn(t, rt, "hash-ref")(rt, th, []value.Value{hh, key})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Fixnum())

	_, err = primFn(t, rt, "hash-ref")(rt, th, []value.Value{hh, rt.Interner.Intern("missing")})
	require.Error(t, err)

	raised, ok := condition.AsRaise(err)
	require.True(t, ok)
	assert.Equal(t, condition.RTHashKeyNotFoundError, rt.Conditions.TypeOf(rt.Heap, raised.Condition))
}
