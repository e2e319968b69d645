package convert

import (
	"debug/dwarf"
	"encoding/binary"
	"testing"

	"github.com/go-delve/delve/pkg/dwarf/dwarfbuilder"
	"github.com/go-delve/delve/pkg/dwarf/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
)

func addInt(b *dwarfbuilder.Builder) dwarf.Offset {
	off := b.TagOpen(dwarf.TagBaseType, "int")
	b.Attr(dwarf.AttrEncoding, uint8(0x05))
	b.Attr(dwarf.AttrByteSize, uint8(4))
	b.TagClose()
	return off
}

func runConvert(t *testing.T, img Image, sec *dwarfhelper.Sections, opts ...Option) (*recorder, *Session) {
	t.Helper()
	w := &recorder{}
	s := NewSession(img, sec, w, opts...)
	require.NoError(t, s.Convert())
	return w, s
}

func TestConvertMinimalProgram(t *testing.T) {
	b := dwarfbuilder.New()
	addInt(b)
	b.TagOpen(dwarf.TagSubprogram, "main")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x1000))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x1050))
	b.TagClose()

	img := newImage(0, true)
	w, s := runConvert(t, img, buildSections(t, b, 0x1000))
	assert.NoError(t, s.Diagnostics())

	assert.Equal(t, []int{1, 2}, w.sections)
	assert.Equal(t, []recordedContribution{{segment: 1, offset: 0, size: 0x1000}}, w.contributions)

	types := parseRecords(t, w.types)
	require.Equal(t, []uint16{codeview.LFFieldList, codeview.LFModifier}, ids(types))
	assert.Empty(t, types[0].body)
	assert.Equal(t, uint32(0x12), u32(types[1].body, 0))

	syms := parseRecords(t, w.symbols)
	require.Equal(t, []uint16{
		codeview.SSSearch,
		codeview.SCompiland,
		codeview.SUDTV3,
		codeview.SGProcV3,
		codeview.SEndArg,
		codeview.SEnd,
	}, ids(syms))
	assert.Equal(t, uint32(codeview.FirstUserType), u32(syms[2].body, 0))
	assert.Equal(t, "int", cstr(syms[2].body, 4))

	proc := syms[3].body
	assert.Equal(t, uint32(0x50), u32(proc, 12))
	assert.Equal(t, uint32(0), u32(proc, 28))
	assert.Equal(t, uint16(1), u16(proc, 32))
	assert.Equal(t, "main", cstr(proc, 35))

	assert.Equal(t, []public{{name: "main", segment: 1, offset: 0}}, w.publics)

	require.Len(t, w.lines, 1)
	assert.Equal(t, LineTable{
		File:      `src\main.c`,
		Segment:   1,
		Offset:    0,
		Length:    4,
		StartLine: 11,
		Entries:   []dwarfhelper.LineEntry{{Offset: 0, Line: 0}, {Offset: 4, Line: 1}},
	}, w.lines[0])
}

func TestConvertTypeGraph(t *testing.T) {
	b := dwarfbuilder.New()
	intOff := addInt(b)

	point := b.TagOpen(dwarf.TagStructType, "point")
	b.Attr(dwarf.AttrByteSize, uint8(8))
	b.TagOpen(dwarf.TagMember, "x")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrDataMemberLoc, uint8(0))
	b.TagClose()
	b.TagOpen(dwarf.TagMember, "y")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrDataMemberLoc, dwarfbuilder.LocationBlock(op.DW_OP_plus_uconst, uint(4)))
	b.TagClose()
	b.TagClose()

	b.TagOpen(dwarf.TagUnionType, "overlay")
	b.Attr(dwarf.AttrByteSize, uint8(4))
	b.TagOpen(dwarf.TagMember, "a")
	b.Attr(dwarf.AttrType, intOff)
	b.TagClose()
	b.TagOpen(dwarf.TagMember, "b")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrDataMemberLoc, uint8(4))
	b.TagClose()
	b.TagClose()

	b.TagOpen(dwarf.TagPointerType, "")
	b.Attr(dwarf.AttrType, point)
	b.TagClose()

	b.TagOpen(dwarf.TagConstType, "")
	b.Attr(dwarf.AttrType, intOff)
	b.TagClose()

	b.TagOpen(dwarf.TagTypedef, "myint")
	b.Attr(dwarf.AttrType, intOff)
	b.TagClose()

	b.TagOpen(dwarf.TagArrayType, "")
	b.Attr(dwarf.AttrType, intOff)
	b.TagOpen(dwarf.TagSubrangeType, "")
	b.Attr(dwarf.AttrUpperBound, uint8(2))
	b.TagClose()
	b.TagClose()

	b.TagOpen(dwarf.TagStructType, "opaque")
	b.TagClose()

	b.TagOpen(dwarf.TagReferenceType, "")
	b.Attr(dwarf.AttrType, intOff)
	b.TagClose()

	b.TagOpen(dwarf.TagStructType, "")
	b.Attr(dwarf.AttrByteSize, uint8(4))
	b.TagClose()

	img := newImage(0, true)
	w, s := runConvert(t, img, buildSections(t, b, 0x1000))
	assert.NoError(t, s.Diagnostics())

	types := parseRecords(t, w.types)
	require.Equal(t, []uint16{
		codeview.LFFieldList,   // 0x1000
		codeview.LFModifier,    // 0x1001 int
		codeview.LFStructureV3, // 0x1002 point
		codeview.LFUnionV3,     // 0x1003 overlay
		codeview.LFPointer,     // 0x1004 *point
		codeview.LFModifier,    // 0x1005 const int
		codeview.LFModifier,    // 0x1006 myint
		codeview.LFArrayV3,     // 0x1007 int[3]
		codeview.LFPointer,     // 0x1008 subrange
		codeview.LFStructureV3, // 0x1009 opaque
		codeview.LFPointer,     // 0x100a int&
		codeview.LFStructureV3, // 0x100b anonymous
		codeview.LFFieldList,   // 0x100c point fields
		codeview.LFFieldList,   // 0x100d overlay fields
	}, ids(types))

	pointRec := types[2].body
	assert.Equal(t, uint16(2), u16(pointRec, 0))
	assert.Equal(t, uint16(0), u16(pointRec, 2))
	assert.Equal(t, uint32(0x100c), u32(pointRec, 4))
	assert.Equal(t, uint16(8), u16(pointRec, 16))
	assert.Equal(t, "point", cstr(pointRec, 18))

	overlay := types[3].body
	assert.Equal(t, uint16(2), u16(overlay, 0))
	assert.Equal(t, uint32(0x100d), u32(overlay, 4))
	assert.Equal(t, uint16(4), u16(overlay, 8))

	assert.Equal(t, uint32(0x1002), u32(types[4].body, 0))
	assert.Equal(t, uint32(codeview.PointerAttr64), u32(types[4].body, 4))
	assert.Equal(t, []uint32{0x1001, codeview.ModConst}, []uint32{u32(types[5].body, 0), uint32(u16(types[5].body, 4))})
	assert.Equal(t, uint32(0x1001), u32(types[6].body, 0))

	array := types[7].body
	assert.Equal(t, uint32(0x1001), u32(array, 0))
	assert.Equal(t, uint32(codeview.TInt4), u32(array, 4))
	assert.Equal(t, uint16(12), u16(array, 8))

	assert.Equal(t, uint32(codeview.TVoid), u32(types[8].body, 0))

	opaque := types[9].body
	assert.Equal(t, uint16(0), u16(opaque, 0))
	assert.Equal(t, uint16(codeview.PropForwardRef), u16(opaque, 2))
	assert.Equal(t, uint32(0), u32(opaque, 4))

	assert.Equal(t, uint32(codeview.PointerAttr64|codeview.PointerRef), u32(types[10].body, 4))

	anon := types[11].body
	assert.Equal(t, uint16(codeview.PropForwardRef), u16(anon, 2))
	assert.Equal(t, uint16(4), u16(anon, 16))
	assert.Equal(t, anonymousName, cstr(anon, 18))

	assert.Equal(t, []member{
		{leaf: codeview.LFMemberV3, typ: 0x1001, offset: 0, name: "x"},
		{leaf: codeview.LFMemberV3, typ: 0x1001, offset: 4, name: "y"},
	}, parseMembers(t, types[12].body))
	assert.Equal(t, []member{
		{leaf: codeview.LFMemberV3, typ: 0x1001, offset: 0, name: "a"},
		{leaf: codeview.LFMemberV3, typ: 0x1001, offset: 0, name: "b"},
	}, parseMembers(t, types[13].body))

	var udts []string
	for _, r := range parseRecords(t, w.symbols) {
		if r.id == codeview.SUDTV3 {
			udts = append(udts, cstr(r.body, 4))
		}
	}
	assert.Equal(t, []string{"int", "point", "overlay", "myint", "opaque", anonymousName}, udts)
}

func TestConvertLocalsAndGlobals(t *testing.T) {
	b := dwarfbuilder.New()
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401100))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x401180))
	b.Attr(dwarf.AttrCompDir, "C:/work")
	b.Attr(dwarf.AttrStmtList, uint16(0))
	intOff := addInt(b)

	b.TagOpen(dwarf.TagSubprogram, "f")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401100))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x401180))
	b.Attr(dwarf.AttrFrameBase, dwarfbuilder.LocationBlock(op.DW_OP_reg5))
	local := func(tag dwarf.Tag, name string, loc []byte) {
		b.TagOpen(tag, name)
		b.Attr(dwarf.AttrType, intOff)
		b.Attr(dwarf.AttrLocation, loc)
		b.TagClose()
	}
	local(dwarf.TagFormalParameter, "a", dwarfbuilder.LocationBlock(op.DW_OP_fbreg, 8))
	local(dwarf.TagFormalParameter, "b", dwarfbuilder.LocationBlock(op.DW_OP_breg4, 12))
	local(dwarf.TagFormalParameter, "r", dwarfbuilder.LocationBlock(op.DW_OP_reg0))
	local(dwarf.TagVariable, "v", dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -4))

	b.TagOpen(dwarf.TagLexDwarfBlock, "")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401110))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x401120))
	local(dwarf.TagVariable, "w", dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -8))
	b.TagClose()

	b.TagOpen(dwarf.TagLexDwarfBlock, "")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401130))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x401130))
	local(dwarf.TagVariable, "dead", dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -12))
	b.TagClose()

	b.TagOpen(dwarf.TagLexDwarfBlock, "")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401140))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x401150))
	b.TagClose()
	b.TagClose()

	addr := []byte{byte(op.DW_OP_addr)}
	addr = binary.LittleEndian.AppendUint64(addr, 0x403010)
	local(dwarf.TagVariable, "pkg.g", addr)

	b.TagOpen(dwarf.TagVariable, "ext")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrExternal, uint8(1))
	b.Attr(dwarf.AttrLinkageName, "_ext")
	b.TagClose()

	b.TagOpen(dwarf.TagVariable, "missing")
	b.Attr(dwarf.AttrExternal, uint8(1))
	b.Attr(dwarf.AttrLinkageName, "_missing")
	b.TagClose()

	img := newImage(0x400000, false)
	w, s := runConvert(t, img, buildSections(t, b, 0x401100), WithDotReplacement('@'))
	assert.Error(t, s.Diagnostics())

	syms := parseRecords(t, w.symbols)
	require.Equal(t, []uint16{
		codeview.SSSearch,
		codeview.SCompiland,
		codeview.SUDTV3,
		codeview.SGProcV3,
		codeview.SBPRelV3, // a
		codeview.SRegRel,  // b
		codeview.SEndArg,
		codeview.SBPRelV3, // v
		codeview.SBlock,
		codeview.SBPRelV3, // w
		codeview.SEnd,
		codeview.SEnd,
		codeview.SGDataV3, // pkg@g
		codeview.SGDataV3, // ext
	}, ids(syms))

	assert.Equal(t, uint32(0x100), u32(syms[3].body, 28))
	assert.Equal(t, int32(8), int32(u32(syms[4].body, 0)))
	assert.Equal(t, "a", cstr(syms[4].body, 8))
	assert.Equal(t, int32(12), int32(u32(syms[5].body, 0)))
	assert.Equal(t, uint16(codeview.RegESP), u16(syms[5].body, 8))
	assert.Equal(t, "b", cstr(syms[5].body, 10))
	assert.Equal(t, int32(-4), int32(u32(syms[7].body, 0)))

	block := syms[8].body
	assert.Equal(t, uint32(0x10), u32(block, 8))
	assert.Equal(t, uint32(0x110), u32(block, 12))
	assert.Equal(t, uint16(1), u16(block, 16))
	assert.Equal(t, int32(-8), int32(u32(syms[9].body, 0)))

	global := syms[12].body
	assert.Equal(t, uint32(0x1001), u32(global, 0))
	assert.Equal(t, uint32(0x10), u32(global, 4))
	assert.Equal(t, uint16(2), u16(global, 8))
	assert.Equal(t, "pkg@g", cstr(global, 10))
	assert.Equal(t, uint32(0x20), u32(syms[13].body, 4))

	assert.Equal(t, []public{
		{name: "f", segment: 1, offset: 0x100},
		{name: "pkg@g", segment: 2, offset: 0x10, typ: 0x1001},
		{name: "ext", segment: 2, offset: 0x20, typ: 0x1001},
	}, w.publics)
	assert.Equal(t, []recordedContribution{{segment: 1, offset: 0x100, size: 0x80}}, w.contributions)

	require.Len(t, w.lines, 1)
	assert.Equal(t, `C:\work\src\main.c`, w.lines[0].File)
	assert.Equal(t, uint32(0x100), w.lines[0].Offset)
}

func TestConvertSpecification(t *testing.T) {
	b := dwarfbuilder.New()
	decl := b.TagOpen(dwarf.TagSubprogram, "Widget::draw")
	b.Attr(dwarf.AttrDeclaration, uint8(1))
	b.TagClose()
	b.TagOpen(dwarf.TagSubprogram, "")
	b.Attr(dwarf.AttrSpecification, decl)
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x1200))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x1210))
	b.TagClose()

	w, _ := runConvert(t, newImage(0, true), buildSections(t, b, 0x1000))
	syms := parseRecords(t, w.symbols)
	require.Equal(t, []uint16{codeview.SSSearch, codeview.SCompiland, codeview.SGProcV3, codeview.SEndArg, codeview.SEnd}, ids(syms))
	assert.Equal(t, "Widget::draw", cstr(syms[2].body, 35))
	assert.Equal(t, uint32(0x200), u32(syms[2].body, 28))
}

func TestConvertUnsupportedBaseType(t *testing.T) {
	b := dwarfbuilder.New()
	b.TagOpen(dwarf.TagBaseType, "float24")
	b.Attr(dwarf.AttrEncoding, uint8(0x04))
	b.Attr(dwarf.AttrByteSize, uint8(3))
	b.TagClose()
	addInt(b)

	w, s := runConvert(t, newImage(0, true), buildSections(t, b, 0x1000))
	assert.Error(t, s.Diagnostics())

	types := parseRecords(t, w.types)
	require.Equal(t, []uint16{codeview.LFFieldList, codeview.LFPointer, codeview.LFModifier}, ids(types))
	assert.Equal(t, uint32(codeview.TVoid), u32(types[1].body, 0))
	assert.Equal(t, uint32(0x12), u32(types[2].body, 0))
}

func TestConvertV2Records(t *testing.T) {
	b := dwarfbuilder.New()
	addInt(b)
	w, _ := runConvert(t, newImage(0, false), buildSections(t, b, 0x1000), WithV3Records(false))

	syms := parseRecords(t, w.symbols)
	require.Equal(t, []uint16{codeview.SSSearch, codeview.SCompiland, codeview.SUDT}, ids(syms))
	assert.Equal(t, []byte{0x01, 0x10, 0, 0, 3, 'i', 'n', 't'}, syms[2].body)
}

func TestConvertMissingSections(t *testing.T) {
	img := newImage(0, true)
	err := NewSession(img, &dwarfhelper.Sections{}, &recorder{}).Convert()
	assert.ErrorIs(t, err, ErrNoDebugInfo)

	err = NewSession(img, &dwarfhelper.Sections{Info: []byte{1}}, &recorder{}).Convert()
	assert.ErrorIs(t, err, ErrNoDebugLine)
}

func TestConvertWriterFailure(t *testing.T) {
	b := dwarfbuilder.New()
	addInt(b)
	sec := buildSections(t, b, 0x1000)

	for _, name := range []string{"AddSection", "AddSectionContribution", "AddTypes", "AddSymbols", "AddLines"} {
		w := &recorder{failOn: name}
		err := NewSession(newImage(0, true), sec, w).Convert()
		assert.ErrorIs(t, err, errWriter, name)
		if name == "AddTypes" {
			assert.Nil(t, w.symbols)
		}
	}
}

func TestConvertArenaLimit(t *testing.T) {
	b := dwarfbuilder.New()
	for i := 0; i < 16; i++ {
		addInt(b)
	}
	w := &recorder{}
	err := NewSession(newImage(0, true), buildSections(t, b, 0x1000), w, WithArenaLimit(64)).Convert()
	assert.ErrorIs(t, err, codeview.ErrSizeLimit)
	assert.Nil(t, w.types)
	assert.Nil(t, w.symbols)
}

func TestConvertLinesPerSection(t *testing.T) {
	b := dwarfbuilder.New()
	addInt(b)
	sec := buildSections(t, b, 0)

	img := newImage(0, true)
	img.sections = append(img.sections, Section{Name: ".text2", VirtualAddress: 0x5000, VirtualSize: 0x1000, SizeOfRawData: 0x1000})

	sec.Line = lineSection(0x10, 0x1100, 0x5100)
	w, _ := runConvert(t, img, sec)
	entries := []dwarfhelper.LineEntry{{Offset: 0, Line: 0}, {Offset: 4, Line: 1}}
	assert.Equal(t, []LineTable{
		{File: `src\main.c`, Segment: 1, Offset: 0x100, Length: 4, StartLine: 11, Entries: entries},
		{File: `src\main.c`, Segment: 3, Offset: 0x100, Length: 4, StartLine: 11, Entries: entries},
	}, w.lines)

	sec.Line = lineSection(0x10)
	w, _ = runConvert(t, img, sec)
	assert.Empty(t, w.lines)
}

func TestConvertRangeLists(t *testing.T) {
	b := dwarfbuilder.New()
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401000))
	b.Attr(dwarf.AttrRanges, uint16(0x30))
	intOff := addInt(b)

	b.TagOpen(dwarf.TagSubprogram, "f")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x401100))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x401180))
	b.Attr(dwarf.AttrFrameBase, dwarfbuilder.LocationBlock(op.DW_OP_reg5))
	b.TagOpen(dwarf.TagLexDwarfBlock, "")
	b.Attr(dwarf.AttrRanges, uint16(0))
	b.TagOpen(dwarf.TagVariable, "w")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrLocation, dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -8))
	b.TagClose()
	b.TagClose()
	b.TagClose()

	sec := buildSections(t, b, 0x401100)
	sec.Ranges = append(rangeList(0x110, 0x120, 0x140, 0x148),
		rangeList(0x100, 0x180, ^uint64(0), 0x403000, 0, 0x10)...)

	w, s := runConvert(t, newImage(0x400000, false), sec)
	assert.NoError(t, s.Diagnostics())

	assert.Equal(t, []recordedContribution{
		{segment: 1, offset: 0x100, size: 0x80},
		{segment: 2, offset: 0, size: 0x10},
	}, w.contributions)

	syms := parseRecords(t, w.symbols)
	require.Equal(t, []uint16{
		codeview.SSSearch,
		codeview.SCompiland,
		codeview.SUDTV3,
		codeview.SGProcV3,
		codeview.SEndArg,
		codeview.SBlock,
		codeview.SBPRelV3,
		codeview.SEnd,
		codeview.SBlock,
		codeview.SBPRelV3,
		codeview.SEnd,
		codeview.SEnd,
	}, ids(syms))
	assert.Equal(t, []uint32{0x10, 0x110}, []uint32{u32(syms[5].body, 8), u32(syms[5].body, 12)})
	assert.Equal(t, []uint32{0x8, 0x140}, []uint32{u32(syms[8].body, 8), u32(syms[8].body, 12)})
	assert.Equal(t, "w", cstr(syms[9].body, 8))
}

func TestConvertBaseClass(t *testing.T) {
	b := dwarfbuilder.New()
	intOff := addInt(b)

	base := b.TagOpen(dwarf.TagStructType, "base")
	b.Attr(dwarf.AttrByteSize, uint8(4))
	b.TagOpen(dwarf.TagMember, "x")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrDataMemberLoc, uint8(0))
	b.TagClose()
	b.TagClose()

	b.TagOpen(dwarf.TagClassType, "derived")
	b.Attr(dwarf.AttrByteSize, uint8(8))
	b.TagOpen(dwarf.TagInheritance, "")
	b.Attr(dwarf.AttrType, base)
	b.Attr(dwarf.AttrDataMemberLoc, uint8(0))
	b.TagClose()
	b.TagOpen(dwarf.TagMember, "y")
	b.Attr(dwarf.AttrType, intOff)
	b.Attr(dwarf.AttrDataMemberLoc, uint8(4))
	b.TagClose()
	b.TagClose()

	w, _ := runConvert(t, newImage(0, true), buildSections(t, b, 0x1000))
	types := parseRecords(t, w.types)
	require.Equal(t, []uint16{
		codeview.LFFieldList,   // 0x1000
		codeview.LFModifier,    // 0x1001 int
		codeview.LFStructureV3, // 0x1002 base
		codeview.LFClassV3,     // 0x1003 derived
		codeview.LFFieldList,   // 0x1004 base fields
		codeview.LFFieldList,   // 0x1005 derived fields
	}, ids(types))

	derived := types[3].body
	assert.Equal(t, uint16(2), u16(derived, 0))
	assert.Equal(t, uint32(0x1005), u32(derived, 4))
	assert.Equal(t, []member{
		{leaf: codeview.LFBClass, typ: 0x1002, offset: 0},
		{leaf: codeview.LFMemberV3, typ: 0x1001, offset: 4, name: "y"},
	}, parseMembers(t, types[5].body))
}
