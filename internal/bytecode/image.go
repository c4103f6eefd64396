// Package bytecode implements the compiled byte-code image format: the on-disk/in-memory
// encoding a compiler emits and the executor loads (spec.md §6.2). This package only reads and
// writes images; binding a loaded image's symbol table into a running Thread's global tables is
// internal/vm's job.
package bytecode

import (
	"errors"
	"fmt"

	"github.com/smoynes/idio/internal/value"
)

// magic identifies an idio byte-code image; the format version is the separate version field.
const (
	magic   = "IDIO"
	version = uint16(1)
)

// ErrBadMagic is returned when a byte stream doesn't start with the image magic number.
var ErrBadMagic = errors.New("bytecode: bad magic number")

// ErrVersionMismatch is returned when an image's version is newer than this loader understands.
var ErrVersionMismatch = errors.New("bytecode: unsupported version")

// ErrWidthMismatch is returned when an image was compiled for a different fixnum width than this
// build uses: embedded fixnum constants are not portable across widths (spec.md §6.2).
var ErrWidthMismatch = errors.New("bytecode: fixnum width mismatch")

// ConstKind tags the variant of a ConstantEntry.
type ConstKind uint8

const (
	ConstFixnum ConstKind = iota
	ConstSymbol
	ConstKeyword
	ConstString
	ConstBoolean
	ConstNil
)

func (k ConstKind) String() string {
	switch k {
	case ConstFixnum:
		return "fixnum"
	case ConstSymbol:
		return "symbol"
	case ConstKeyword:
		return "keyword"
	case ConstString:
		return "string"
	case ConstBoolean:
		return "boolean"
	case ConstNil:
		return "nil"
	default:
		return fmt.Sprintf("ConstKind(%d)", k)
	}
}

// ConstantEntry is one slot of an image's constants pool. Exactly one field is meaningful,
// selected by Kind; this mirrors the way the original encodes a small closed set of literal
// types rather than the full, extensible heap-object universe (only symbols, keywords, strings,
// fixnums, booleans and nil can appear as compiled literals — spec.md §6.2 "at minimum symbols and strings").
type ConstantEntry struct {
	Kind    ConstKind
	Fixnum  int64
	Text    string // symbol/keyword name, or string contents (as runes serialized via Text).
	Boolean bool
}

// SymbolKind distinguishes the three parallel global tables a module's symbol-info entries bind
// into (spec.md §4.2's predef/toplevel/defined tables).
type SymbolKind uint8

const (
	SymPredef SymbolKind = iota
	SymToplevel
	SymDefined
)

// SymbolInfo is one row of a module's compile-time symbol table: the compiler's notion of where
// a binding lives, to be reconciled against the runtime's actual table layout via Relocation.
type SymbolInfo struct {
	Name         string
	Kind         SymbolKind
	CompileIndex int
}

// ModuleMeta describes one compilation unit's module: its name, the modules it imports from, the
// names it exports, and its compile-time symbol table.
type ModuleMeta struct {
	Name    string
	Imports []string
	Exports []string
	Symbols []SymbolInfo
}

// CodeUnit is one compiled byte-code array together with the index of the ModuleMeta it belongs
// to (an image may contain several compilation units sharing one module, e.g. successive `load`s).
type CodeUnit struct {
	ModuleIndex int
	Code        []byte
}

// Relocation maps one module's compile-time symbol-table index to the runtime value-index that
// index was ultimately bound to after loading — compiled code's GLOBAL-REF/SET operands are
// compile-time indices, and this table is how the loader reconciles them against a table layout
// that may differ from the one in effect when the code was compiled (e.g. two images loaded into
// the same running image both referencing their own index 0).
type Relocation struct {
	ModuleIndex  int
	CompileIndex int
	RuntimeIndex int
}

// Image is a fully decoded byte-code file: header, constants pool, module metadata, one or more
// code units, and the relocation table tying them together.
type Image struct {
	FixnumBits uint8
	Constants  []ConstantEntry
	Modules    []ModuleMeta
	Units      []CodeUnit
	Relocs     []Relocation
}

// New creates an empty image stamped with this build's fixnum width.
func New() *Image {
	return &Image{FixnumBits: uint8(value.FixnumBits)}
}
