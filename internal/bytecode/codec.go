package bytecode

// codec.go encodes and decodes Image values to/from the on-disk byte-code format, following the
// same bytes.Buffer/encoding/binary approach as the original machine's object-code loader
// (internal/vm/loader.go), generalized from fixed-width Word arrays to length-prefixed records.

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/smoynes/idio/internal/value"
)

// Write serializes img in the image format.
func (img *Image) Write(w io.Writer) error {
	var buf bytes.Buffer

	buf.WriteString(magic)
	writeUint16(&buf, version)
	buf.WriteByte(img.FixnumBits)

	writeUint32(&buf, uint32(len(img.Constants)))

	for _, c := range img.Constants {
		buf.WriteByte(byte(c.Kind))
		writeInt64(&buf, c.Fixnum)
		writeBool(&buf, c.Boolean)
		writeString(&buf, c.Text)
	}

	writeUint32(&buf, uint32(len(img.Modules)))

	for _, m := range img.Modules {
		writeString(&buf, m.Name)
		writeStringSlice(&buf, m.Imports)
		writeStringSlice(&buf, m.Exports)

		writeUint32(&buf, uint32(len(m.Symbols)))

		for _, s := range m.Symbols {
			writeString(&buf, s.Name)
			buf.WriteByte(byte(s.Kind))
			writeInt64(&buf, int64(s.CompileIndex))
		}
	}

	writeUint32(&buf, uint32(len(img.Units)))

	for _, u := range img.Units {
		writeInt64(&buf, int64(u.ModuleIndex))
		writeUint32(&buf, uint32(len(u.Code)))
		buf.Write(u.Code)
	}

	writeUint32(&buf, uint32(len(img.Relocs)))

	for _, r := range img.Relocs {
		writeInt64(&buf, int64(r.ModuleIndex))
		writeInt64(&buf, int64(r.CompileIndex))
		writeInt64(&buf, int64(r.RuntimeIndex))
	}

	_, err := w.Write(buf.Bytes())

	return err
}

// Read decodes an Image from r, validating the magic number, version, and fixnum width.
func Read(r io.Reader) (*Image, error) {
	br := bufReader(r)

	var hdr [4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}

	if string(hdr[:]) != magic {
		return nil, ErrBadMagic
	}

	v, err := readUint16(br)
	if err != nil {
		return nil, err
	}

	if v > version {
		return nil, fmt.Errorf("%w: image version %d, loader supports up to %d", ErrVersionMismatch, v, version)
	}

	width, err := br.ReadByte()
	if err != nil {
		return nil, err
	}

	if width != uint8(value.FixnumBits) {
		return nil, fmt.Errorf("%w: image built for %d-bit fixnums, this build uses %d",
			ErrWidthMismatch, width, value.FixnumBits)
	}

	img := &Image{FixnumBits: width}

	nConst, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	img.Constants = make([]ConstantEntry, nConst)

	for i := range img.Constants {
		kindByte, err := br.ReadByte()
		if err != nil {
			return nil, err
		}

		fixnum, err := readInt64(br)
		if err != nil {
			return nil, err
		}

		boolean, err := readBool(br)
		if err != nil {
			return nil, err
		}

		text, err := readString(br)
		if err != nil {
			return nil, err
		}

		img.Constants[i] = ConstantEntry{Kind: ConstKind(kindByte), Fixnum: fixnum, Boolean: boolean, Text: text}
	}

	nModules, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	img.Modules = make([]ModuleMeta, nModules)

	for i := range img.Modules {
		name, err := readString(br)
		if err != nil {
			return nil, err
		}

		imports, err := readStringSlice(br)
		if err != nil {
			return nil, err
		}

		exports, err := readStringSlice(br)
		if err != nil {
			return nil, err
		}

		nSyms, err := readUint32(br)
		if err != nil {
			return nil, err
		}

		syms := make([]SymbolInfo, nSyms)

		for j := range syms {
			sname, err := readString(br)
			if err != nil {
				return nil, err
			}

			kindByte, err := br.ReadByte()
			if err != nil {
				return nil, err
			}

			idx, err := readInt64(br)
			if err != nil {
				return nil, err
			}

			syms[j] = SymbolInfo{Name: sname, Kind: SymbolKind(kindByte), CompileIndex: int(idx)}
		}

		img.Modules[i] = ModuleMeta{Name: name, Imports: imports, Exports: exports, Symbols: syms}
	}

	nUnits, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	img.Units = make([]CodeUnit, nUnits)

	for i := range img.Units {
		modIdx, err := readInt64(br)
		if err != nil {
			return nil, err
		}

		codeLen, err := readUint32(br)
		if err != nil {
			return nil, err
		}

		code := make([]byte, codeLen)
		if _, err := io.ReadFull(br, code); err != nil {
			return nil, err
		}

		img.Units[i] = CodeUnit{ModuleIndex: int(modIdx), Code: code}
	}

	nRelocs, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	img.Relocs = make([]Relocation, nRelocs)

	for i := range img.Relocs {
		modIdx, err := readInt64(br)
		if err != nil {
			return nil, err
		}

		compileIdx, err := readInt64(br)
		if err != nil {
			return nil, err
		}

		runtimeIdx, err := readInt64(br)
		if err != nil {
			return nil, err
		}

		img.Relocs[i] = Relocation{ModuleIndex: int(modIdx), CompileIndex: int(compileIdx), RuntimeIndex: int(runtimeIdx)}
	}

	return img, nil
}

// byteReader is the minimal interface the decode helpers need: ReadByte for tag bytes plus
// io.Reader for bulk reads.
type byteReader interface {
	io.Reader
	io.ByteReader
}

func bufReader(r io.Reader) byteReader {
	if br, ok := r.(byteReader); ok {
		return br
	}

	return bufio.NewReader(r)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeStringSlice(buf *bytes.Buffer, ss []string) {
	writeUint32(buf, uint32(len(ss)))

	for _, s := range ss {
		writeString(buf, s)
	}
}

func readUint16(r byteReader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(r byteReader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b[:]), nil
}

func readInt64(r byteReader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}

	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func readBool(r byteReader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}

	return b != 0, nil
}

func readString(r byteReader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}

	return string(b), nil
}

func readStringSlice(r byteReader) ([]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	out := make([]string, n)

	for i := range out {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}

		out[i] = s
	}

	return out, nil
}
