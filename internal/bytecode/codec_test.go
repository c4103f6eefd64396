package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoynes/idio/internal/bytecode"
	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

func sampleImage() *bytecode.Image {
	img := bytecode.New()

	img.Constants = []bytecode.ConstantEntry{
		{Kind: bytecode.ConstFixnum, Fixnum: 42},
		{Kind: bytecode.ConstSymbol, Text: "foo"},
		{Kind: bytecode.ConstString, Text: "hello, world"},
		{Kind: bytecode.ConstBoolean, Boolean: true},
		{Kind: bytecode.ConstNil},
	}

	img.Modules = []bytecode.ModuleMeta{
		{
			Name:    "test-module",
			Imports: []string{"idio"},
			Exports: []string{"foo"},
			Symbols: []bytecode.SymbolInfo{
				{Name: "foo", Kind: bytecode.SymToplevel, CompileIndex: 0},
			},
		},
	}

	img.Units = []bytecode.CodeUnit{
		{ModuleIndex: 0, Code: []byte{0x01, 0x02, 0x03}},
	}

	img.Relocs = []bytecode.Relocation{
		{ModuleIndex: 0, CompileIndex: 0, RuntimeIndex: 17},
	}

	return img
}

func TestRoundTrip(t *testing.T) {
	img := sampleImage()

	var buf bytes.Buffer
	require.NoError(t, img.Write(&buf))

	got, err := bytecode.Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, img.FixnumBits, got.FixnumBits)
	assert.Equal(t, img.Constants, got.Constants)
	assert.Equal(t, img.Modules, got.Modules)
	assert.Equal(t, img.Units, got.Units)
	assert.Equal(t, img.Relocs, got.Relocs)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := bytecode.Read(bytes.NewReader([]byte("NOPE1234567890")))
	assert.ErrorIs(t, err, bytecode.ErrBadMagic)
}

func TestReadRejectsWidthMismatch(t *testing.T) {
	img := sampleImage()
	img.FixnumBits = 0 // guaranteed not to match this build's value.FixnumBits.

	var buf bytes.Buffer
	require.NoError(t, img.Write(&buf))

	_, err := bytecode.Read(&buf)
	assert.ErrorIs(t, err, bytecode.ErrWidthMismatch)
}

func TestMaterializeInternsSymbols(t *testing.T) {
	h := gc.New(nil)
	in := container.NewInterner(h)

	img := sampleImage()

	vals, err := bytecode.Materialize(h, in, img)
	require.NoError(t, err)
	require.Len(t, vals, 5)

	assert.Equal(t, int64(42), vals[0].Fixnum())
	assert.Equal(t, in.Intern("foo"), vals[1])
	assert.Equal(t, "hello, world", string(container.Runes(h, vals[2])))
	assert.Equal(t, value.True, vals[3])
	assert.Equal(t, value.Nil, vals[4])
}

func TestMaterializeRejectsOutOfRangeFixnum(t *testing.T) {
	h := gc.New(nil)
	in := container.NewInterner(h)

	img := bytecode.New()
	img.Constants = []bytecode.ConstantEntry{
		{Kind: bytecode.ConstFixnum, Fixnum: int64(value.FixnumMax) + 1},
	}

	_, err := bytecode.Materialize(h, in, img)
	assert.Error(t, err)
}
