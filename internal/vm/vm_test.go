package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/condition"
	"github.com/smoynes/idio/internal/value"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	code := Encode(nil, OpConstant, 42)
	code = Encode(code, OpDeepArgumentRef, 2, 5)
	code = Encode(code, OpReturn)

	inst, pc, err := Decode(code, 0)
	require.NoError(t, err)
	assert.Equal(t, OpConstant, inst.Op)
	assert.Equal(t, []int64{42}, inst.Operands)

	inst, pc, err = Decode(code, pc)
	require.NoError(t, err)
	assert.Equal(t, OpDeepArgumentRef, inst.Op)
	assert.Equal(t, []int64{2, 5}, inst.Operands)

	inst, pc, err = Decode(code, pc)
	require.NoError(t, err)
	assert.Equal(t, OpReturn, inst.Op)
	assert.Equal(t, len(code), pc)
}

func TestShallowAndDeepArgumentRefSet(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	parent := NewFrame(rt.Heap, 1, value.Nil, value.Nil)
	require.NoError(t, ArgSet(rt.Heap, parent, 0, value.Fixnum(9)))

	child := NewFrame(rt.Heap, 2, parent, value.Nil)
	th.Frame = child

	th.Val = value.Fixnum(1)
	require.NoError(t, shallowArgumentSet{j: 0}.Execute(rt, th))
	require.NoError(t, shallowArgumentRef{j: 0}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(1), th.Val)

	require.NoError(t, deepArgumentRef{i: 1, j: 0}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(9), th.Val)

	th.Val = value.Fixnum(3)
	require.NoError(t, deepArgumentSet{i: 1, j: 0}.Execute(rt, th))
	v, err := ArgRef(rt.Heap, parent, 0)
	require.NoError(t, err)
	assert.Equal(t, value.Fixnum(3), v)
}

func TestCheckedGlobalRefRaisesUnbound(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	rt.Toplevel = append(rt.Toplevel, value.Undef)
	rt.Defined = append(rt.Defined, false)

	err := checkedGlobalRef{vi: 0}.Execute(rt, th)
	require.Error(t, err)

	raised, ok := condition.AsRaise(err)
	require.True(t, ok)
	assert.False(t, raised.Continuable)
	assert.True(t, rt.Conditions.IsA(rt.Heap, raised.Condition, condition.RTVariableUnboundError))
}

func TestGlobalSetMarksDefined(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	rt.Toplevel = append(rt.Toplevel, value.Undef)
	rt.Defined = append(rt.Defined, false)

	th.Val = value.Fixnum(5)
	require.NoError(t, globalSet{vi: 0}.Execute(rt, th))
	assert.True(t, rt.Defined[0])

	require.NoError(t, checkedGlobalRef{vi: 0}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(5), th.Val)
}

func TestCallConventionPrimitiveFastCall(t *testing.T) {
	rt := NewRuntime()

	rt.DefinePrimitive("test-add", 2, false, "", func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
		return value.Fixnum(args[0].Fixnum() + args[1].Fixnum()), nil
	})

	predefVI := len(rt.Predef) - 1
	rt.Constants = append(rt.Constants, value.Fixnum(3), value.Fixnum(4))

	code := Encode(nil, OpPredefined, int64(predefVI))
	code = Encode(code, OpAllocateFrame, 2)
	code = Encode(code, OpConstant, 0)
	code = Encode(code, OpStoreArgument, 0)
	code = Encode(code, OpConstant, 1)
	code = Encode(code, OpStoreArgument, 1)
	code = Encode(code, OpCall2)
	code = Encode(code, OpReturn)

	root := rt.Modules["idio"]
	rt.Units = append(rt.Units, unit{module: root, code: code})
	unitIdx := len(rt.Units) - 1

	th := AsThread(rt.Heap, rt.NewThread(unitIdx, 0))

	require.NoError(t, rt.Run(th))
	assert.True(t, th.Halted)
	assert.Equal(t, int64(7), th.Result.Fixnum())
}

func TestCallConventionClosureCallAndReturn(t *testing.T) {
	rt := NewRuntime()
	root := rt.Modules["idio"]

	// body: SHALLOW-ARGUMENT-REF 0; RETURN -- placed at the front of the unit so its pc is known
	// without a forward reference.
	body := Encode(nil, OpShallowArgumentRef, 0)
	body = Encode(body, OpReturn)
	bodyLen := len(body)

	// top level: FIX-CLOSURE 1 0; ALLOCATE-FRAME 1; CONSTANT 0; STORE-ARGUMENT 0; REGULAR-CALL;
	// RETURN
	top := Encode(nil, OpFixClosure, 1, 0)
	top = Encode(top, OpAllocateFrame, 1)
	top = Encode(top, OpConstant, 0)
	top = Encode(top, OpStoreArgument, 0)
	top = Encode(top, OpRegularCall)
	top = Encode(top, OpReturn)

	rt.Constants = append(rt.Constants, value.Fixnum(11))
	rt.Units = append(rt.Units, unit{module: root, code: append(body, top...)})
	unitIdx := len(rt.Units) - 1

	th := AsThread(rt.Heap, rt.NewThread(unitIdx, bodyLen))

	require.NoError(t, rt.Run(th))
	assert.True(t, th.Halted)
	assert.Equal(t, int64(11), th.Result.Fixnum())
}

func TestTrapCatchesMatchingCondition(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	var caught value.Value

	handler := NewPrimitive(rt.Heap, "handler", 1, false, "",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			caught = args[0]
			return value.Fixnum(99), nil
		})

	ci := len(rt.Constants)
	rt.Constants = append(rt.Constants, rt.Interner.Intern(condition.RuntimeError))

	th.Val = handler
	require.NoError(t, pushTrap{ci: ci}.Execute(rt, th))

	cond := rt.Conditions.NewCondition(rt.Heap, condition.StringError, rt.Interner.Intern("boom"))

	require.NoError(t, rt.raise(th, false, cond))
	assert.Equal(t, cond, caught)
	assert.Equal(t, int64(99), th.Val.Fixnum())
	assert.Equal(t, 0, th.Depth())
}

func TestRaiseWithNoTrapFallsBackToDefault(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	var caught value.Value

	handler := NewPrimitive(rt.Heap, "default-handler", 1, false, "",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			caught = args[0]
			return value.Unspec, nil
		})
	rt.Conditions.RegisterDefault(condition.StringError, handler)

	cond := rt.Conditions.NewCondition(rt.Heap, condition.StringError, rt.Interner.Intern("oops"))

	require.NoError(t, rt.raise(th, true, cond))
	assert.Equal(t, cond, caught)
}

func TestCallCCEscapesToCaptor(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterCoreForms()

	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	var escaped value.Value

	receiver := NewPrimitive(rt.Heap, "receiver", 1, false, "",
		func(rt *Runtime, th *Thread, args []value.Value) (value.Value, error) {
			result, err := Apply(rt, th, args[0], []value.Value{value.Fixnum(123)})
			escaped = result

			return result, err
		})

	callCC, ok := Resolve(rt.Heap, rt.Modules["idio"], "call/cc")
	require.True(t, ok)

	prim := asPrimitive(rt.Heap, rt.Predef[callCC.ValueIndex])

	result, err := prim.Fn(rt, th, []value.Value{receiver})
	require.NoError(t, err)
	assert.Equal(t, int64(123), result.Fixnum())
	assert.Equal(t, int64(123), escaped.Fixnum())
}

func TestPushPopEnvironRoundTrip(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	th.Environ = value.Fixnum(1)
	th.Val = value.Fixnum(2)

	require.NoError(t, pushEnviron{}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(2), th.Environ)

	require.NoError(t, environRef{}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(2), th.Val)

	require.NoError(t, popEnviron{}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(1), th.Environ)
	assert.Equal(t, 0, th.Depth())
}

func TestDynamicPushRefPop(t *testing.T) {
	rt := NewRuntime()
	th := AsThread(rt.Heap, rt.NewThread(mustUnit(t, rt), 0))

	th.Val = value.Fixnum(42)
	require.NoError(t, pushDynamic{index: 3}.Execute(rt, th))

	require.NoError(t, dynamicRef{depth: 3}.Execute(rt, th))
	assert.Equal(t, value.Fixnum(42), th.Val)

	require.NoError(t, popDynamic{index: 3}.Execute(rt, th))
	assert.Empty(t, th.Dynamics[3])
}

// mustUnit appends a trivial (single RETURN) unit to rt and returns its index, for tests that only
// need a Thread to hang state off of and never actually Step/Run it.
func mustUnit(t *testing.T, rt *Runtime) int {
	t.Helper()

	root := rt.Modules["idio"]
	code := Encode(nil, OpReturn)
	rt.Units = append(rt.Units, unit{module: root, code: code})

	return len(rt.Units) - 1
}
