package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

func newHeap() *gc.Heap { return gc.New(nil) }

func TestSymbolUniqueness(t *testing.T) {
	h := newHeap()
	in := container.NewInterner(h)

	a := in.Intern("hello")
	b := in.Intern("hello")

	assert.Equal(t, a, b, "interning the same name twice must return the same symbol")

	c := in.Intern("world")
	assert.NotEqual(t, a, c)
}

func TestGensymUnique(t *testing.T) {
	h := newHeap()
	in := container.NewInterner(h)

	a := in.Gensym("g")
	b := in.Gensym("g")

	assert.NotEqual(t, a, b)
	assert.Contains(t, container.SymbolName(h, a), "g/")
	assert.Contains(t, container.SymbolName(h, b), "g/")
}

func TestStringWidthInvariant(t *testing.T) {
	h := newHeap()

	cases := [][]rune{
		[]rune("hello"),
		[]rune("héllo"),
		[]rune("日本語"),
		{0x1F600}, // emoji, requires width 4
	}

	widths := []container.Width{container.Width1, container.Width1, container.Width2, container.Width4}

	for i, runes := range cases {
		v := container.NewString(h, runes)
		length := container.Length(h, v)

		assert.Equal(t, len(runes), length)

		_, payload := h.Object(v)
		s := payload.(*container.String)
		assert.Equal(t, widths[i], s.Width())
		assert.Equal(t, length*int(s.Width()), s.ByteLength())
	}
}

func TestStringLengthUTF8(t *testing.T) {
	h := newHeap()
	v := container.NewStringFromUTF8(h, []byte("héllo"))

	assert.Equal(t, 5, container.Length(h, v))
}

func TestSubstringEquivalence(t *testing.T) {
	h := newHeap()
	runes := []rune("abcdefgh")
	s := container.NewString(h, runes)

	for i := 0; i <= len(runes); i++ {
		for j := i; j <= len(runes); j++ {
			sub, err := container.NewSubstring(h, s, i, j-i)
			require.NoError(t, err)

			want := container.NewString(h, runes[i:j])
			assert.True(t, container.Equal(h, sub, want), "substring(%d,%d)", i, j)
		}
	}
}

func TestSubstringOfSubstringNormalizes(t *testing.T) {
	h := newHeap()
	s := container.NewString(h, []rune("0123456789"))

	sub1, err := container.NewSubstring(h, s, 2, 6) // "234567"
	require.NoError(t, err)

	sub2, err := container.NewSubstring(h, sub1, 1, 3) // "345"
	require.NoError(t, err)

	want := container.NewString(h, []rune("345"))
	assert.True(t, container.Equal(h, sub2, want))
}

func TestSubstringOutOfBounds(t *testing.T) {
	h := newHeap()
	s := container.NewString(h, []rune("abc"))

	_, err := container.NewSubstring(h, s, 1, 10)
	assert.ErrorIs(t, err, container.ErrStringBounds)
}

func TestStringSetWidthError(t *testing.T) {
	h := newHeap()
	s := container.NewString(h, []rune("abc")) // width 1

	err := container.SetRune(h, s, 0, 0x1F600)
	assert.ErrorIs(t, err, container.ErrStringWidth)

	require.NoError(t, container.SetRune(h, s, 0, 'z'))

	r, err := container.RuneAt(h, s, 0)
	require.NoError(t, err)
	assert.Equal(t, 'z', r)
}

func TestSplitStringInexactCollapsesRuns(t *testing.T) {
	h := newHeap()
	s := container.NewString(h, []rune("a,,b,c"))
	delim := container.NewString(h, []rune(","))

	tokens := container.SplitString(h, s, delim, false)
	require.Len(t, tokens, 3)

	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, string(container.Runes(h, tokens[i])))
	}
}

func TestSplitStringExactKeepsEmptyTokens(t *testing.T) {
	h := newHeap()
	s := container.NewString(h, []rune("a,,b,"))
	delim := container.NewString(h, []rune(","))

	tokens := container.SplitString(h, s, delim, true)
	require.Len(t, tokens, 4)

	for i, want := range []string{"a", "", "b", ""} {
		assert.Equal(t, want, string(container.Runes(h, tokens[i])))
	}
}

func TestArrayBounds(t *testing.T) {
	h := newHeap()
	a := container.ArrayFrom(h, []value.Value{value.Fixnum(1), value.Fixnum(2), value.Fixnum(3)})

	v, err := container.ArrayRef(h, a, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Fixnum())

	_, err = container.ArrayRef(h, a, 3)
	assert.ErrorIs(t, err, container.ErrArrayBounds)

	_, err = container.ArrayRef(h, a, -4)
	assert.ErrorIs(t, err, container.ErrArrayBounds)
}

func TestArrayGrowth(t *testing.T) {
	h := newHeap()
	a := container.NewArray(h, 0)

	for i := 0; i < 3000; i++ {
		container.ArrayPush(h, a, value.Fixnum(int64(i)))
	}

	assert.Equal(t, 3000, container.Len(h, a))

	v, err := container.ArrayRef(h, a, 2999)
	require.NoError(t, err)
	assert.Equal(t, int64(2999), v.Fixnum())
}

func TestHashRefSetDelete(t *testing.T) {
	h := newHeap()
	in := container.NewInterner(h)
	hh := container.NewHash(h)

	k1 := in.Intern("one")
	container.HashSet(h, hh, k1, value.Fixnum(1))

	v, err := container.HashRef(h, hh, k1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Fixnum())

	k2 := in.Intern("two")
	_, err = container.HashRef(h, hh, k2)
	assert.True(t, errors.Is(err, container.ErrHashKeyNotFound))

	assert.True(t, container.HashDelete(h, hh, k1))
	assert.False(t, container.HashDelete(h, hh, k1))
}

func TestHashStringKeysByContent(t *testing.T) {
	h := newHeap()
	hh := container.NewHash(h)

	k1 := container.NewString(h, []rune("key"))
	k2 := container.NewString(h, []rune("key")) // Distinct object, same content.

	container.HashSet(h, hh, k1, value.Fixnum(42))

	v, err := container.HashRef(h, hh, k2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Fixnum())
}

func TestWeakHashPurge(t *testing.T) {
	h := newHeap()
	hh := container.NewWeakHash(h)

	key := container.NewString(h, []rune("ephemeral"))
	container.HashSet(h, hh, key, value.Fixnum(1))
	h.AddWeak(key)

	// hh itself must be rooted to observe the purge, but its key is not independently protected.
	h.Protect(hh)

	h.Collect(gc.Full)
	container.PurgeWeakHash(h, hh)

	assert.Equal(t, 0, container.HashCount(h, hh))
}

func TestStructInheritance(t *testing.T) {
	h := newHeap()
	in := container.NewInterner(h)

	base := container.NewStructType(h, in.Intern("^condition"), value.Nil,
		[]value.Value{in.Intern("message")})
	derived := container.NewStructType(h, in.Intern("^read-error"), base,
		[]value.Value{in.Intern("line"), in.Intern("position")})

	fields := container.AllFields(h, derived)
	require.Len(t, fields, 3)
	assert.Equal(t, in.Intern("message"), fields[0])
	assert.Equal(t, in.Intern("line"), fields[1])
	assert.Equal(t, in.Intern("position"), fields[2])

	instance := container.NewStructInstance(h, derived,
		[]value.Value{container.NewString(h, []rune("boom")), value.Fixnum(3), value.Fixnum(7)})

	assert.True(t, container.InstanceIsA(h, instance, base))
	assert.True(t, container.InstanceIsA(h, instance, derived))

	msg, err := container.FieldRef(h, instance, in.Intern("message"))
	require.NoError(t, err)
	assert.Equal(t, "boom", string(container.Runes(h, msg)))
}

func TestPairAndList(t *testing.T) {
	h := newHeap()

	list := container.List(h, value.Fixnum(1), value.Fixnum(2), value.Fixnum(3))
	items, remainder := container.Slice(h, list)

	require.Len(t, items, 3)
	assert.Equal(t, value.Nil, remainder)
	assert.Equal(t, int64(2), items[1].Fixnum())
}

func TestStringVTableDispatch(t *testing.T) {
	h := newHeap()
	s := container.NewStringFromUTF8(h, []byte("hello"))

	vt := h.VTable(s)
	require.NotNil(t, vt, "strings must be allocated with a real vtable, not nil")

	gen := h.Generation()

	typeName, ok := vt.Lookup(gen, value.MethodTypeName)
	require.True(t, ok)

	result, err := typeName(s)
	require.NoError(t, err)
	assert.Equal(t, "string", string(container.Runes(h, result)))

	toString, ok := vt.Lookup(gen, value.MethodToString)
	require.True(t, ok)

	result, err = toString(s)
	require.NoError(t, err)
	assert.Equal(t, s, result)

	valueIndex, ok := vt.Lookup(gen, value.MethodValueIndex)
	require.True(t, ok)

	result, err = valueIndex(s, value.Fixnum(1))
	require.NoError(t, err)
	require.True(t, result.IsCodePoint())
	assert.Equal(t, 'e', result.Rune())

	_, err = valueIndex(s, value.Fixnum(99))
	assert.ErrorIs(t, err, container.ErrStringBounds)
}

func TestStringVTableShared(t *testing.T) {
	h := newHeap()

	a := container.NewStringFromUTF8(h, []byte("a"))
	b := container.NewStringFromUTF8(h, []byte("b"))

	assert.Same(t, h.VTable(a), h.VTable(b), "every string instance shares one vtable")
}
