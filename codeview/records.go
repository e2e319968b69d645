package codeview

// Emitter writes CodeView records. V3 selects null-terminated names and
// the 0x11xx/0x15xx record ids.
type Emitter struct {
	V3 bool
}

// BeginRecord writes the length placeholder and the record id and returns
// the record start for EndRecord.
func BeginRecord(a *Arena, id uint16) int {
	start := a.Len()
	a.PutU16(0)
	a.PutU16(id)
	return start
}

// EndRecord pads the record and fills in its length, which excludes the
// length field itself.
func EndRecord(a *Arena, start int) {
	a.Align4()
	a.PatchU16(start, uint16(a.Len()-start-2))
}

// PutName writes a null-terminated name for v3 records and a length-prefixed
// one otherwise.
func PutName(a *Arena, v3 bool, name string) {
	if v3 {
		a.PutBytes([]byte(name))
		a.PutU8(0)
		return
	}
	if len(name) > 255 {
		name = name[:255]
	}
	a.PutU8(uint8(len(name)))
	a.PutBytes([]byte(name))
}

// PutNumeric writes a numeric leaf: small values inline, others behind a
// leaf id.
func PutNumeric(a *Arena, v int64) {
	switch {
	case v >= 0 && v < LFNumeric:
		a.PutU16(uint16(v))
	case v >= -1<<31 && v < 0:
		a.PutU16(LFLong)
		a.PutI32(int32(v))
	case v >= 0 && v <= 0xffffffff:
		a.PutU16(LFULong)
		a.PutU32(uint32(v))
	case v < 0:
		a.PutU16(LFQuadword)
		a.PutU64(uint64(v))
	default:
		a.PutU16(LFUQuadword)
		a.PutU64(uint64(v))
	}
}

func (e Emitter) id(v2, v3 uint16) uint16 {
	if e.V3 {
		return v3
	}
	return v2
}

func (e Emitter) Modifier(a *Arena, typ TypeIndex, attr uint16) {
	start := BeginRecord(a, LFModifier)
	a.PutU32(uint32(typ))
	a.PutU16(attr)
	EndRecord(a, start)
}

func (e Emitter) Pointer(a *Arena, typ TypeIndex, attr uint32) {
	start := BeginRecord(a, LFPointer)
	a.PutU32(uint32(typ))
	a.PutU32(attr)
	EndRecord(a, start)
}

func (e Emitter) Array(a *Arena, elem, index TypeIndex, size int64) {
	start := BeginRecord(a, e.id(LFArray, LFArrayV3))
	a.PutU32(uint32(elem))
	a.PutU32(uint32(index))
	PutNumeric(a, size)
	PutName(a, e.V3, "")
	EndRecord(a, start)
}

// Structure writes an LF_STRUCTURE, or an LF_CLASS when class is set.
func (e Emitter) Structure(a *Arena, class bool, count int, property uint16, fields TypeIndex, size int64, name string) {
	id := e.id(LFStructure, LFStructureV3)
	if class {
		id = e.id(LFClass, LFClassV3)
	}
	start := BeginRecord(a, id)
	a.PutU16(uint16(count))
	a.PutU16(property)
	a.PutU32(uint32(fields))
	a.PutU32(0) // derived
	a.PutU32(0) // vshape
	PutNumeric(a, size)
	PutName(a, e.V3, name)
	EndRecord(a, start)
}

func (e Emitter) Union(a *Arena, count int, property uint16, fields TypeIndex, size int64, name string) {
	start := BeginRecord(a, e.id(LFUnion, LFUnionV3))
	a.PutU16(uint16(count))
	a.PutU16(property)
	a.PutU32(uint32(fields))
	PutNumeric(a, size)
	PutName(a, e.V3, name)
	EndRecord(a, start)
}

// Member writes one LF_MEMBER entry into an open field list.
func (e Emitter) Member(a *Arena, attr uint16, typ TypeIndex, offset int64, name string) {
	a.PutU16(e.id(LFMember, LFMemberV3))
	a.PutU16(attr)
	a.PutU32(uint32(typ))
	PutNumeric(a, offset)
	PutName(a, e.V3, name)
	a.Align4()
}

// BaseClass writes one LF_BCLASS entry into an open field list.
func (e Emitter) BaseClass(a *Arena, attr uint16, typ TypeIndex, offset int64) {
	a.PutU16(LFBClass)
	a.PutU16(attr)
	a.PutU32(uint32(typ))
	PutNumeric(a, offset)
	a.Align4()
}

func (e Emitter) UDT(a *Arena, typ TypeIndex, name string) {
	start := BeginRecord(a, e.id(SUDT, SUDTV3))
	a.PutU32(uint32(typ))
	PutName(a, e.V3, name)
	EndRecord(a, start)
}

func (e Emitter) GlobalData(a *Arena, typ TypeIndex, segment int, offset uint32, name string) {
	start := BeginRecord(a, e.id(SGData, SGDataV3))
	a.PutU32(uint32(typ))
	a.PutU32(offset)
	a.PutU16(uint16(segment))
	PutName(a, e.V3, name)
	EndRecord(a, start)
}

type Proc struct {
	Name    string
	Type    TypeIndex
	Segment int
	Offset  uint32
	Length  uint32
}

func (e Emitter) GlobalProc(a *Arena, p Proc) {
	start := BeginRecord(a, e.id(SGProc, SGProcV3))
	a.PutU32(0) // parent
	a.PutU32(0) // end
	a.PutU32(0) // next
	a.PutU32(p.Length)
	a.PutU32(0) // debug start
	a.PutU32(p.Length)
	a.PutU32(uint32(p.Type))
	a.PutU32(p.Offset)
	a.PutU16(uint16(p.Segment))
	a.PutU8(0) // flags
	PutName(a, e.V3, p.Name)
	EndRecord(a, start)
}

// BPRel writes a frame-pointer relative local.
func (e Emitter) BPRel(a *Arena, offset int32, typ TypeIndex, name string) {
	start := BeginRecord(a, e.id(SBPRel, SBPRelV3))
	a.PutI32(offset)
	a.PutU32(uint32(typ))
	PutName(a, e.V3, name)
	EndRecord(a, start)
}

// RegRel writes a register relative local. The record only exists in the v3
// format, so its name is always null-terminated.
func (e Emitter) RegRel(a *Arena, offset int32, typ TypeIndex, reg uint16, name string) {
	start := BeginRecord(a, SRegRel)
	a.PutI32(offset)
	a.PutU32(uint32(typ))
	a.PutU16(reg)
	PutName(a, true, name)
	EndRecord(a, start)
}

func (e Emitter) Block(a *Arena, segment int, offset, length uint32) {
	start := BeginRecord(a, SBlock)
	a.PutU32(0) // parent
	a.PutU32(0) // end
	a.PutU32(length)
	a.PutU32(offset)
	a.PutU16(uint16(segment))
	PutName(a, true, "")
	EndRecord(a, start)
}

func (e Emitter) EndArg(a *Arena) {
	EndRecord(a, BeginRecord(a, SEndArg))
}

func (e Emitter) End(a *Arena) {
	EndRecord(a, BeginRecord(a, SEnd))
}

func (e Emitter) SSearch(a *Arena, segment int, offset uint32) {
	start := BeginRecord(a, SSSearch)
	a.PutU32(offset)
	a.PutU16(uint16(segment))
	EndRecord(a, start)
}

// Compiland writes the module header symbol.
func (e Emitter) Compiland(a *Arena, is64 bool, name string) {
	flags := uint32(compilandFlags | 6)
	if is64 {
		flags = compilandFlags | 0xd0
	}
	start := BeginRecord(a, SCompiland)
	a.PutU32(flags)
	PutName(a, false, name)
	EndRecord(a, start)
}

// BeginFieldList opens an LF_FIELDLIST; close it with EndRecord.
func (e Emitter) BeginFieldList(a *Arena) int {
	return BeginRecord(a, LFFieldList)
}
