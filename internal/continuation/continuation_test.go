package continuation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/continuation"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

func TestNewCapturesFieldsAndType(t *testing.T) {
	h := gc.New(nil)

	stack := []value.Value{value.Fixnum(1), value.Fixnum(2)}
	holes := []int{3, 5}

	k := continuation.New(h, 7, 1, stack, value.Nil, value.Nil, value.Nil, holes, false)

	typ, _ := h.Object(k)
	assert.Equal(t, value.TypeContinuation, typ)

	c := continuation.As(h, k)
	require.Equal(t, 7, c.PC)
	require.Equal(t, 1, c.Unit)
	assert.Equal(t, stack, c.Stack)
	assert.Equal(t, holes, c.Holes)
	assert.False(t, c.Delimited)
}

func TestNewCopiesStackAndHoles(t *testing.T) {
	h := gc.New(nil)

	stack := []value.Value{value.Fixnum(1)}
	holes := []int{2}

	k := continuation.New(h, 0, 0, stack, value.Nil, value.Nil, value.Nil, holes, true)

	stack[0] = value.Fixnum(99)
	holes[0] = 100

	c := continuation.As(h, k)
	assert.Equal(t, value.Fixnum(1), c.Stack[0], "mutating the caller's slice must not reach a captured continuation")
	assert.Equal(t, 2, c.Holes[0])
}

func TestReferencesIncludesStackAndFrame(t *testing.T) {
	h := gc.New(nil)

	frame := value.Ref(123)
	module := value.Ref(456)

	k := continuation.New(h, 0, 0, []value.Value{value.Fixnum(1)}, frame, module, value.Nil, nil, true)
	c := continuation.As(h, k)

	refs := c.References()
	assert.Contains(t, refs, value.Fixnum(1))
	assert.Contains(t, refs, frame)
	assert.Contains(t, refs, module)
}
