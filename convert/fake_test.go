package convert

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-delve/delve/pkg/dwarf/dwarfbuilder"
	"github.com/go-delve/delve/pkg/dwarf/leb128"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
)

type symbolRef struct {
	section int
	offset  uint64
}

type fakeImage struct {
	base     uint64
	sections []Section
	code     int
	is64     bool
	symbols  map[string]symbolRef
}

func (f *fakeImage) FindSection(va uint64) int {
	for i, s := range f.sections {
		start := f.base + uint64(s.VirtualAddress)
		if va >= start && va < start+uint64(s.VirtualSize) {
			return i
		}
	}
	return -1
}

func (f *fakeImage) FindSymbol(name string) (int, uint64, bool) {
	sym, ok := f.symbols[name]
	return sym.section, sym.offset, ok
}

func (f *fakeImage) Sections() []Section { return f.sections }
func (f *fakeImage) ImageBase() uint64   { return f.base }
func (f *fakeImage) CodeSegment() int    { return f.code }
func (f *fakeImage) Is64() bool          { return f.is64 }

func newImage(base uint64, is64 bool) *fakeImage {
	return &fakeImage{
		base: base,
		sections: []Section{
			{Name: ".text", VirtualAddress: 0x1000, VirtualSize: 0x1000, SizeOfRawData: 0x1000},
			{Name: ".data", VirtualAddress: 0x3000, VirtualSize: 0x100, SizeOfRawData: 0x200},
		},
		is64:    is64,
		symbols: map[string]symbolRef{"_ext": {section: 1, offset: 0x20}},
	}
}

type recordedContribution struct {
	segment      int
	offset, size uint32
}

type recorder struct {
	sections      []int
	contributions []recordedContribution
	types         []byte
	symbols       []byte
	publics       []public
	lines         []LineTable
	failOn        string
}

var errWriter = errors.New("writer failure")

func (r *recorder) fail(op string) error {
	if r.failOn == op {
		return errWriter
	}
	return nil
}

func (r *recorder) AddSection(segment int, flags uint16, offset, size uint32) error {
	r.sections = append(r.sections, segment)
	return r.fail("AddSection")
}

func (r *recorder) AddSectionContribution(segment int, offset, size, characteristics uint32) error {
	r.contributions = append(r.contributions, recordedContribution{segment, offset, size})
	return r.fail("AddSectionContribution")
}

func (r *recorder) AddTypes(types []byte) error {
	if err := r.fail("AddTypes"); err != nil {
		return err
	}
	r.types = append([]byte(nil), types...)
	return nil
}

func (r *recorder) AddSymbols(symbols []byte) error {
	if err := r.fail("AddSymbols"); err != nil {
		return err
	}
	r.symbols = append([]byte(nil), symbols...)
	return nil
}

func (r *recorder) AddPublic(name string, segment int, offset uint32, typ codeview.TypeIndex) error {
	r.publics = append(r.publics, public{name: name, segment: segment, offset: offset, typ: typ})
	return r.fail("AddPublic")
}

func (r *recorder) AddLines(lines LineTable) error {
	r.lines = append(r.lines, lines)
	return r.fail("AddLines")
}

type cvRecord struct {
	id   uint16
	body []byte
}

// parseRecords splits a signed type or symbol stream into records.
func parseRecords(t *testing.T, stream []byte) []cvRecord {
	t.Helper()
	require.GreaterOrEqual(t, len(stream), 4)
	require.Equal(t, uint32(codeview.Signature), binary.LittleEndian.Uint32(stream))
	var recs []cvRecord
	for off := 4; off < len(stream); {
		n := int(binary.LittleEndian.Uint16(stream[off:]))
		require.Zero(t, (n+2)%4, "record at %#x is not aligned", off)
		require.LessOrEqual(t, off+2+n, len(stream))
		recs = append(recs, cvRecord{
			id:   binary.LittleEndian.Uint16(stream[off+2:]),
			body: stream[off+4 : off+2+n],
		})
		off += 2 + n
	}
	return recs
}

func ids(recs []cvRecord) []uint16 {
	out := make([]uint16, len(recs))
	for i, r := range recs {
		out[i] = r.id
	}
	return out
}

func u32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func u16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off:])
}

func cstr(b []byte, off int) string {
	n := bytes.IndexByte(b[off:], 0)
	return string(b[off : off+n])
}

type member struct {
	leaf   uint16
	typ    codeview.TypeIndex
	offset uint16
	name   string
}

func parseMembers(t *testing.T, body []byte) []member {
	t.Helper()
	var ms []member
	for p := 0; p < len(body); {
		m := member{
			leaf:   u16(body, p),
			typ:    codeview.TypeIndex(u32(body, p+4)),
			offset: u16(body, p+8),
		}
		if m.leaf == codeview.LFBClass {
			p += 10
		} else {
			m.name = cstr(body, p+10)
			p += 10 + len(m.name) + 1
		}
		for p%4 != 0 {
			require.GreaterOrEqual(t, body[p], byte(0xf0))
			p++
		}
		ms = append(ms, m)
	}
	return ms
}

// lineSection encodes one version 2 line program with include directory
// "src" and file "main.c". Every address starts a sequence that maps
// [addr, addr+4) to lines 11 and 12.
func lineSection(addrs ...uint64) []byte {
	var hdr bytes.Buffer
	hdr.Write([]byte{1, 1, 0xfd, 12, 13})
	hdr.Write([]byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1})
	hdr.WriteString("src\x00\x00")
	hdr.WriteString("main.c\x00")
	hdr.Write([]byte{1, 0, 0, 0})

	var prog bytes.Buffer
	for _, addr := range addrs {
		prog.Write([]byte{0, 9, 2})
		binary.Write(&prog, binary.LittleEndian, addr)
		prog.WriteByte(3)
		leb128.EncodeSigned(&prog, 10)
		prog.WriteByte(1)
		prog.WriteByte(2)
		leb128.EncodeUnsigned(&prog, 4)
		prog.WriteByte(3)
		leb128.EncodeSigned(&prog, 1)
		prog.WriteByte(1)
		prog.Write([]byte{0, 1, 1})
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(2+4+hdr.Len()+prog.Len()))
	binary.Write(&out, binary.LittleEndian, uint16(2))
	binary.Write(&out, binary.LittleEndian, uint32(hdr.Len()))
	out.Write(hdr.Bytes())
	out.Write(prog.Bytes())
	return out.Bytes()
}

func buildSections(t *testing.T, b *dwarfbuilder.Builder, lineAddr uint64) *dwarfhelper.Sections {
	t.Helper()
	abbrev, _, _, info, _, _, ranges, str, _, err := b.Build()
	require.NoError(t, err)
	return &dwarfhelper.Sections{
		Info:   info,
		Abbrev: abbrev,
		Ranges: ranges,
		Str:    str,
		Line:   lineSection(lineAddr),
	}
}

// rangeList encodes .debug_ranges pairs of 8-byte addresses followed by the
// terminating pair.
func rangeList(pairs ...uint64) []byte {
	var out []byte
	for _, v := range append(pairs, 0, 0) {
		out = binary.LittleEndian.AppendUint64(out, v)
	}
	return out
}
