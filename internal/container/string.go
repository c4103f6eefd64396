package container

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Width is the number of bytes used to store one code point in a String. It is chosen at
// construction as the smallest of {1, 2, 4} that fits every code point in the string.
type Width uint8

const (
	Width1 Width = 1
	Width2 Width = 2
	Width4 Width = 4
)

// String is a variable-width, code-point-indexed string. Unlike the C original it carries no
// trailing NUL: Go strings and byte slices already track their own length, so the "ease of
// C-string inter-op" rationale for the extra byte doesn't apply to a Go port.
type String struct {
	width Width
	runes int // length in code points.
	data  []byte
}

func (s *String) Type() value.Type          { return value.TypeString }
func (s *String) References() []value.Value { return nil }

// Runes returns the code-point length of the string.
func (s *String) Runes() int { return s.runes }

// ByteLength returns the storage length in bytes: runes * width.
func (s *String) ByteLength() int { return s.runes * int(s.width) }

// Width returns the string's storage width.
func (s *String) Width() Width { return s.width }

func widthFor(max rune) Width {
	switch {
	case max <= 0xff:
		return Width1
	case max <= 0xffff:
		return Width2
	default:
		return Width4
	}
}

func packWidth(data []byte, width Width, i int, r rune) {
	off := i * int(width)

	switch width {
	case Width1:
		data[off] = byte(r)
	case Width2:
		data[off] = byte(r)
		data[off+1] = byte(r >> 8)
	default: // Width4
		data[off] = byte(r)
		data[off+1] = byte(r >> 8)
		data[off+2] = byte(r >> 16)
		data[off+3] = byte(r >> 24)
	}
}

func unpackWidth(data []byte, width Width, i int) rune {
	off := i * int(width)

	switch width {
	case Width1:
		return rune(data[off])
	case Width2:
		return rune(data[off]) | rune(data[off+1])<<8
	default:
		return rune(data[off]) | rune(data[off+1])<<8 | rune(data[off+2])<<16 | rune(data[off+3])<<24
	}
}

// NewString allocates a string from a sequence of code points, choosing the narrowest width that
// fits.
func NewString(h *gc.Heap, runes []rune) value.Value {
	width := Width1

	for _, r := range runes {
		if w := widthFor(r); w > width {
			width = w
		}
	}

	data := make([]byte, len(runes)*int(width))

	for i, r := range runes {
		packWidth(data, width, i, r)
	}

	return h.Alloc(value.TypeString, stringVTable(h), &String{width: width, runes: len(runes), data: data})
}

// stringVTable returns the heap's shared method table for strings (spec.md §3.6's polymorphic
// dispatch), building it once: `typename` and `->string` answer with strings of their own,
// `value-index` returns the code point at a given fixnum index via RuneAt.
func stringVTable(h *gc.Heap) *value.VTable {
	return h.StandardVTable(value.TypeString, func() *value.VTable {
		gen := h.Generation()
		vt := value.NewVTable(gen, "string", nil)

		vt.Define(gen, value.MethodTypeName, func(recv value.Value, args ...value.Value) (value.Value, error) {
			return NewStringFromUTF8(h, []byte("string")), nil
		})

		vt.Define(gen, value.MethodToString, func(recv value.Value, args ...value.Value) (value.Value, error) {
			return recv, nil
		})

		vt.Define(gen, value.MethodValueIndex, func(recv value.Value, args ...value.Value) (value.Value, error) {
			if len(args) != 1 || !args[0].IsFixnum() {
				return value.Undef, fmt.Errorf("container: %s: expected one fixnum argument", value.MethodValueIndex)
			}

			r, err := RuneAt(h, recv, int(args[0].Fixnum()))
			if err != nil {
				return value.Undef, err
			}

			return value.CodePoint(r), nil
		})

		return vt
	})
}

// NewStringFromUTF8 decodes b as UTF-8, replacing malformed sequences with U+FFFD, and allocates
// the result.
func NewStringFromUTF8(h *gc.Heap, b []byte) value.Value {
	runes := make([]rune, 0, len(b))

	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		runes = append(runes, r) // DecodeRune already yields RuneError (U+FFFD) on malformed input.
		b = b[size:]
	}

	return NewString(h, runes)
}

// Substring is a zero-copy view into a parent String: an offset and code-point length. Taking a
// substring of a substring resolves through to the ultimate parent so chains never nest (spec.md
// §4.5).
type Substring struct {
	Parent value.Value // Always a TypeString object, never another Substring.
	Offset int
	Length int
}

func (s *Substring) Type() value.Type          { return value.TypeSubstring }
func (s *Substring) References() []value.Value { return []value.Value{s.Parent} }

var (
	// ErrStringBounds is returned when a string or substring index is out of range.
	ErrStringBounds = errors.New("string: index out of bounds")

	// ErrStringWidth is raised (as ^string-error/width) by string-set! when the replacement code
	// point doesn't fit the string's existing storage width.
	ErrStringWidth = errors.New("string: width error")
)

// NewSubstring creates a view of length code points starting at offset within s. s may itself be a
// String or a Substring.
func NewSubstring(h *gc.Heap, s value.Value, offset, length int) (value.Value, error) {
	parent, base := resolveParent(h, s)

	total := Length(h, s)
	if offset < 0 || length < 0 || offset+length > total {
		return value.Value(0), fmt.Errorf("%w: substring(%d,%d) of %d", ErrStringBounds, offset, offset+length, total)
	}

	sub := &Substring{Parent: parent, Offset: base + offset, Length: length}

	return h.Alloc(value.TypeSubstring, nil, sub), nil
}

// resolveParent returns the ultimate String object backing v and the code-point offset within it
// that v itself starts at (zero if v is already a String).
func resolveParent(h *gc.Heap, v value.Value) (parent value.Value, offset int) {
	typ, payload := h.Object(v)

	switch typ {
	case value.TypeString:
		return v, 0
	case value.TypeSubstring:
		sub := payload.(*Substring)
		return sub.Parent, sub.Offset
	default:
		panic("container: not a string: " + v.String())
	}
}

// Length returns the code-point length of a String or Substring.
func Length(h *gc.Heap, v value.Value) int {
	typ, payload := h.Object(v)

	switch typ {
	case value.TypeString:
		return payload.(*String).runes
	case value.TypeSubstring:
		return payload.(*Substring).Length
	default:
		panic("container: not a string: " + v.String())
	}
}

// RuneAt returns the code point at index i (0-based) of a String or Substring.
func RuneAt(h *gc.Heap, v value.Value, i int) (rune, error) {
	parent, base := resolveParent(h, v)
	length := Length(h, v)

	if i < 0 || i >= length {
		return 0, fmt.Errorf("%w: ref %d of %d", ErrStringBounds, i, length)
	}

	_, payload := h.Object(parent)
	s := payload.(*String)

	return unpackWidth(s.data, s.width, base+i), nil
}

// Runes materializes the full code-point sequence of a String or Substring.
func Runes(h *gc.Heap, v value.Value) []rune {
	length := Length(h, v)
	out := make([]rune, length)

	for i := range out {
		r, err := RuneAt(h, v, i)
		if err != nil {
			panic(err) // Length already bounds i; this cannot happen.
		}

		out[i] = r
	}

	return out
}

// Equal compares two Strings/Substrings by code-point sequence, regardless of storage width.
func Equal(h *gc.Heap, a, b value.Value) bool {
	la, lb := Length(h, a), Length(h, b)
	if la != lb {
		return false
	}

	for i := 0; i < la; i++ {
		ra, _ := RuneAt(h, a, i)
		rb, _ := RuneAt(h, b, i)

		if ra != rb {
			return false
		}
	}

	return true
}

// SetRune replaces the code point at index i of a String in place. v must be a String, not a
// Substring: substrings are views and do not own storage to mutate. If r does not fit the
// string's existing width, ErrStringWidth is returned.
func SetRune(h *gc.Heap, v value.Value, i int, r rune) error {
	typ, payload := h.Object(v)
	if typ != value.TypeString {
		return fmt.Errorf("container: string-set!: not a mutable string: %s", v)
	}

	s := payload.(*String)

	if i < 0 || i >= s.runes {
		return fmt.Errorf("%w: set %d of %d", ErrStringBounds, i, s.runes)
	}

	if widthFor(r) > s.width {
		return fmt.Errorf("%w: code point %U needs width %d, string is width %d", ErrStringWidth, r, widthFor(r), s.width)
	}

	packWidth(s.data, s.width, i, r)

	return nil
}

// SplitString tokenizes s by the set of code points in delim. In the default (inexact) mode,
// adjacent delimiters collapse and leading/trailing delimiters produce no empty tokens. In exact
// mode every delimiter terminates a (possibly empty) token.
func SplitString(h *gc.Heap, s, delim value.Value, exact bool) []value.Value {
	runes := Runes(h, s)
	delims := Runes(h, delim)

	isDelim := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}

		return false
	}

	var tokens []value.Value

	if exact {
		start := 0

		for i, r := range runes {
			if isDelim(r) {
				tokens = append(tokens, NewString(h, runes[start:i]))
				start = i + 1
			}
		}

		tokens = append(tokens, NewString(h, runes[start:]))

		return tokens
	}

	start := -1

	for i, r := range runes {
		if isDelim(r) {
			if start >= 0 {
				tokens = append(tokens, NewString(h, runes[start:i]))
				start = -1
			}

			continue
		}

		if start < 0 {
			start = i
		}
	}

	if start >= 0 {
		tokens = append(tokens, NewString(h, runes[start:]))
	}

	return tokens
}
