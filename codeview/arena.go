package codeview

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrSizeLimit = errors.New("record buffer exceeds its size limit")

const growSlack = 1024

// Arena is an append-only record buffer. Offsets into it stay valid across
// growth; slices into it do not, so callers patch through offsets.
type Arena struct {
	buf   []byte
	limit int
	err   error
}

// NewArena returns an arena with an initial capacity of size bytes. A
// positive limit caps the arena; writes beyond it fail with ErrSizeLimit.
func NewArena(size, limit int) *Arena {
	if limit > 0 && size > limit {
		size = limit
	}
	return &Arena{buf: make([]byte, 0, size), limit: limit}
}

func (a *Arena) Len() int {
	return len(a.buf)
}

func (a *Arena) Cap() int {
	return cap(a.buf)
}

// Bytes returns the current contents. The slice is only valid until the
// next write.
func (a *Arena) Bytes() []byte {
	return a.buf
}

// Err returns the first growth failure. Once set, every write is dropped.
func (a *Arena) Err() error {
	return a.err
}

// Reserve makes room for n more bytes.
func (a *Arena) Reserve(n int) bool {
	if a.err != nil {
		return false
	}
	need := len(a.buf) + n
	if a.limit > 0 && need > a.limit {
		a.err = errors.Wrapf(ErrSizeLimit, "need %d bytes, limit %d", need, a.limit)
		return false
	}
	if need <= cap(a.buf) {
		return true
	}
	size := cap(a.buf) + cap(a.buf)/2 + n + growSlack
	if a.limit > 0 && size > a.limit {
		size = a.limit
	}
	buf := make([]byte, len(a.buf), size)
	copy(buf, a.buf)
	a.buf = buf
	return true
}

func (a *Arena) extend(n int) []byte {
	if !a.Reserve(n) {
		return nil
	}
	start := len(a.buf)
	a.buf = a.buf[:start+n]
	return a.buf[start:]
}

func (a *Arena) PutU8(v uint8) {
	if b := a.extend(1); b != nil {
		b[0] = v
	}
}

func (a *Arena) PutU16(v uint16) {
	if b := a.extend(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (a *Arena) PutU32(v uint32) {
	if b := a.extend(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (a *Arena) PutI32(v int32) {
	a.PutU32(uint32(v))
}

func (a *Arena) PutU64(v uint64) {
	if b := a.extend(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

func (a *Arena) PutBytes(p []byte) {
	if b := a.extend(len(p)); b != nil {
		copy(b, p)
	}
}

// PatchU16 overwrites two bytes at an offset written earlier.
func (a *Arena) PatchU16(at int, v uint16) {
	if a.err != nil || at < 0 || at+2 > len(a.buf) {
		return
	}
	binary.LittleEndian.PutUint16(a.buf[at:], v)
}

// Align4 pads to a multiple of four with the descending LF_PADn filler.
func (a *Arena) Align4() {
	for a.err == nil && len(a.buf)&3 != 0 {
		a.PutU8(byte(0xf4 - len(a.buf)&3))
	}
}

// Append copies the contents of other to the end of a.
func (a *Arena) Append(other *Arena) {
	if other.err != nil && a.err == nil {
		a.err = other.err
	}
	a.PutBytes(other.buf)
}
