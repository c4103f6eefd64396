package gc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// cell is a minimal Payload used to build toy object graphs in tests.
type cell struct {
	refs []value.Value
}

func (c *cell) Type() value.Type            { return value.TypePair }
func (c *cell) References() []value.Value   { return c.refs }

func newCell(refs ...value.Value) *cell { return &cell{refs: refs} }

func TestAllocIsCleared(t *testing.T) {
	h := gc.New(nil)

	v := h.Alloc(value.TypePair, nil, newCell())
	require.True(t, v.IsPointer())

	typ, payload := h.Object(v)
	assert.Equal(t, value.TypePair, typ)
	assert.NotNil(t, payload)
}

// TestGCSoundness checks testable property 1: a reachable value survives a full collection with
// its contents intact.
func TestGCSoundness(t *testing.T) {
	h := gc.New(nil)

	leaf := h.Alloc(value.TypePair, nil, newCell())
	root := h.Alloc(value.TypePair, nil, newCell(leaf))

	h.Protect(root)
	h.Collect(gc.Full)

	assert.True(t, h.Reachable(root))
	assert.True(t, h.Reachable(leaf))

	_, payload := h.Object(root)
	c := payload.(*cell)
	require.Len(t, c.refs, 1)
	assert.Equal(t, leaf, c.refs[0])
}

// TestGCProgress checks testable property 2: after many rootless objects are allocated, a full
// collection reclaims all of them.
func TestGCProgress(t *testing.T) {
	h := gc.New(nil)

	const n = 2048

	for i := 0; i < n; i++ {
		h.Alloc(value.TypePair, nil, newCell())
	}

	before := h.Stats()
	assert.Equal(t, n, before.Live)

	h.Collect(gc.Full)

	after := h.Stats()
	assert.Zero(t, after.Live)
	assert.Equal(t, n, after.Free)
}

func TestCyclicGraphCollected(t *testing.T) {
	h := gc.New(nil)

	a := h.Alloc(value.TypePair, nil, newCell())
	b := h.Alloc(value.TypePair, nil, newCell(a))

	_, pa := h.Object(a)
	pa.(*cell).refs = []value.Value{b} // a -> b -> a, no root.

	h.Collect(gc.Full)

	assert.False(t, h.Reachable(a))
	assert.False(t, h.Reachable(b))
}

func TestStickyObjectSurvivesSweep(t *testing.T) {
	h := gc.New(nil)

	v := h.Alloc(value.TypePair, nil, newCell())
	h.SetSticky(v, true)

	h.Collect(gc.Full)

	assert.True(t, h.Reachable(v))
}

func TestFinalizerRunsOnce(t *testing.T) {
	h := gc.New(nil)

	v := h.Alloc(value.TypePair, nil, newCell())

	calls := 0
	h.RegisterFinalizer(v, func(value.Value) { calls++ })

	h.Collect(gc.Full)
	h.Collect(gc.Full)

	assert.Equal(t, 1, calls)
}

func TestProtectExposeBalances(t *testing.T) {
	h := gc.New(nil)

	v := h.Alloc(value.TypePair, nil, newCell())

	h.Protect(v)
	h.Protect(v)
	h.Collect(gc.Full)
	assert.True(t, h.Reachable(v))

	h.Expose(v)
	h.Collect(gc.Full)
	assert.True(t, h.Reachable(v), "still protected once")

	h.Expose(v)
	h.Collect(gc.Full)
	assert.False(t, h.Reachable(v))
}

type rootSourceFunc func() []value.Value

func (f rootSourceFunc) GCRoots() []value.Value { return f() }

func TestRootSourceKeepsObjectsLive(t *testing.T) {
	h := gc.New(nil)

	v := h.Alloc(value.TypePair, nil, newCell())
	h.AddRootSource(rootSourceFunc(func() []value.Value { return []value.Value{v} }))

	h.Collect(gc.Full)

	assert.True(t, h.Reachable(v))
}

func TestNewGenTreatsOldObjectsAsRoots(t *testing.T) {
	h := gc.New(nil)

	old := h.Alloc(value.TypePair, nil, newCell())
	h.Protect(old)
	h.Collect(gc.NewGen) // Advances the generation counter; old becomes an elder.

	young := h.Alloc(value.TypePair, nil, newCell())
	_, op := h.Object(old)
	op.(*cell).refs = []value.Value{young}

	h.Collect(gc.NewGen)

	assert.True(t, h.Reachable(old))
	assert.True(t, h.Reachable(young), "young object reachable only from an elder must survive")
}
