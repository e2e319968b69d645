package codeview

// TypeIndex identifies a CodeView type. Indices below FirstUserType are
// predefined basic types.
type TypeIndex uint32

const (
	TNoType TypeIndex = 0x0000
	TVoid   TypeIndex = 0x0003
	TInt4   TypeIndex = 0x0074

	// EmptyFieldList is the first user type, an LF_FIELDLIST without
	// members shared by every aggregate that needs one.
	EmptyFieldList TypeIndex = 0x1000
	FirstUserType  TypeIndex = 0x1001
)

// Signature starts both the type and the symbol stream.
const Signature = 4

// Type leaves. Where the v2 and v3 ids differ the v3 id carries the suffix.
const (
	LFModifier    = 0x1001
	LFPointer     = 0x1002
	LFArray       = 0x1003
	LFArrayV3     = 0x1503
	LFClass       = 0x1004
	LFClassV3     = 0x1504
	LFStructure   = 0x1005
	LFStructureV3 = 0x1505
	LFUnion       = 0x1006
	LFUnionV3     = 0x1506
	LFFieldList   = 0x1203
	LFBClass      = 0x1400
	LFMember      = 0x1405
	LFMemberV3    = 0x150d

	LFNumeric   = 0x8000
	LFChar      = 0x8000
	LFShort     = 0x8001
	LFUShort    = 0x8002
	LFLong      = 0x8003
	LFULong     = 0x8004
	LFQuadword  = 0x8009
	LFUQuadword = 0x800a
)

// Symbol record ids.
const (
	SCompiland = 0x0001
	SSSearch   = 0x0005
	SEnd       = 0x0006
	SEndArg    = 0x000a
	SUDT       = 0x1003
	SUDTV3     = 0x1108
	SBPRel     = 0x1006
	SBPRelV3   = 0x110b
	SGData     = 0x1008
	SGDataV3   = 0x110d
	SGProc     = 0x100b
	SGProcV3   = 0x1110
	SRegRel    = 0x1111
	SBlock     = 0x1103
)

// Type record properties and attributes.
const (
	PropForwardRef = 0x0080

	ModConst    = 0x0001
	ModVolatile = 0x0002

	PointerAttr32  = 0x800a
	PointerAttr64  = 0x1000c
	PointerRef     = 0x0020
	PointerRValRef = 0x00c0

	AccessPublic = 3
)

// Module and section bookkeeping.
const (
	CompilandName  = "dwarf2pdb"
	SectionFlags   = 0x10d
	ContribFlags   = 0x60101020
	compilandFlags = 0x800100
)
