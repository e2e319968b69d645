package dwarfhelper

import (
	"bytes"
	"encoding/binary"

	"github.com/go-delve/delve/pkg/dwarf/leb128"
	"github.com/pkg/errors"
)

var (
	ErrTruncated          = errors.New("unexpected end of DWARF section")
	ErrUnsupportedVersion = errors.New("unsupported DWARF version")
)

// reader walks a section slice. Reads past the end set a sticky error and
// return zero values, so callers check err once per record.
type reader struct {
	data []byte
	pos  int
	err  error
}

func newReader(data []byte, pos uint64) *reader {
	r := &reader{data: data}
	if pos > uint64(len(data)) {
		r.fail()
	} else {
		r.pos = int(pos)
	}
	return r
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = ErrTruncated
	}
	r.pos = len(r.data)
}

func (r *reader) left() int {
	return len(r.data) - r.pos
}

func (r *reader) need(n int) bool {
	if n < 0 || r.left() < n {
		r.fail()
		return false
	}
	return true
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// sized reads a little-endian unsigned value of 1 to 8 bytes.
func (r *reader) sized(n int) uint64 {
	b := r.bytes(n)
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// offset reads a section offset of the unit's offset size.
func (r *reader) offset(dwarf64 bool) uint64 {
	if dwarf64 {
		return r.u64()
	}
	return uint64(r.u32())
}

// lebEnd reports whether a complete LEB128 value starts at pos.
func (r *reader) lebEnd() bool {
	for _, c := range r.data[r.pos:] {
		if c < 0x80 {
			return true
		}
	}
	r.fail()
	return false
}

func (r *reader) uleb() uint64 {
	if r.err != nil || !r.lebEnd() {
		return 0
	}
	v, n := leb128.DecodeUnsigned(bytes.NewBuffer(r.data[r.pos:]))
	r.pos += int(n)
	return v
}

func (r *reader) sleb() int64 {
	if r.err != nil || !r.lebEnd() {
		return 0
	}
	v, n := leb128.DecodeSigned(bytes.NewBuffer(r.data[r.pos:]))
	r.pos += int(n)
	return v
}

func (r *reader) cstring() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.data[r.pos:], 0)
	if i < 0 {
		r.fail()
		return ""
	}
	s := string(r.data[r.pos : r.pos+i])
	r.pos += i + 1
	return s
}

// stringAt returns the null-terminated string at off in a string section.
func stringAt(section []byte, off uint64) (string, bool) {
	if off >= uint64(len(section)) {
		return "", false
	}
	i := bytes.IndexByte(section[off:], 0)
	if i < 0 {
		return "", false
	}
	return string(section[off : off+uint64(i)]), true
}
