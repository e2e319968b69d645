package dwarfhelper

import "debug/dwarf"

// Entry holds the attributes of one DIE that the converter cares about.
// All references are section-absolute offsets; zero means absent.
type Entry struct {
	Offset   uint64
	Code     uint64
	Tag      dwarf.Tag
	Children bool

	Name        string
	LinkageName string
	CompDir     string
	ByteSize    uint64
	Sibling     uint64
	Encoding    uint64
	LowPC       uint64
	HighPC      uint64
	Ranges      uint64
	HasRanges   bool
	StmtList    uint64
	HasStmtList bool

	Type           uint64
	ContainingType uint64
	Specification  uint64
	AbstractOrigin uint64

	Inline      uint64
	External    bool
	Declaration bool

	Location       Value
	MemberLocation Value
	FrameBase      Value

	UpperBound    int64
	HasUpperBound bool
	LowerBound    int64
	Count         int64
	HasCount      bool

	highPCOffset bool
}

// Merge copies from origin every attribute that e does not carry itself.
// Identity fields and the declaration flag stay with e.
func (e *Entry) Merge(origin *Entry) {
	if e.Name == "" {
		e.Name = origin.Name
	}
	if e.LinkageName == "" {
		e.LinkageName = origin.LinkageName
	}
	if e.CompDir == "" {
		e.CompDir = origin.CompDir
	}
	if e.ByteSize == 0 {
		e.ByteSize = origin.ByteSize
	}
	if e.Encoding == 0 {
		e.Encoding = origin.Encoding
	}
	if e.LowPC == 0 && e.HighPC == 0 {
		e.LowPC, e.HighPC = origin.LowPC, origin.HighPC
	}
	if !e.HasRanges {
		e.Ranges, e.HasRanges = origin.Ranges, origin.HasRanges
	}
	if e.Type == 0 {
		e.Type = origin.Type
	}
	if e.ContainingType == 0 {
		e.ContainingType = origin.ContainingType
	}
	if e.Inline == 0 {
		e.Inline = origin.Inline
	}
	if !e.External {
		e.External = origin.External
	}
	if e.Location == nil {
		e.Location = origin.Location
	}
	if e.MemberLocation == nil {
		e.MemberLocation = origin.MemberLocation
	}
	if e.FrameBase == nil {
		e.FrameBase = origin.FrameBase
	}
	if !e.HasUpperBound {
		e.UpperBound, e.HasUpperBound = origin.UpperBound, origin.HasUpperBound
	}
	if e.LowerBound == 0 {
		e.LowerBound = origin.LowerBound
	}
	if !e.HasCount {
		e.Count, e.HasCount = origin.Count, origin.HasCount
	}
}

// set stores a decoded attribute value in the matching field.
func (e *Entry) set(u *Unit, spec AttrSpec, v Value) {
	switch spec.Attr {
	case dwarf.AttrSibling:
		if ref, ok := v.(Reference); ok {
			e.Sibling = uint64(ref)
		}
	case dwarf.AttrName:
		if s, ok := v.(String); ok {
			e.Name = string(s)
		}
	case dwarf.AttrLinkageName, attrMIPSLinkageName:
		if s, ok := v.(String); ok {
			e.LinkageName = string(s)
		}
	case dwarf.AttrCompDir:
		if s, ok := v.(String); ok {
			e.CompDir = string(s)
		}
	case dwarf.AttrByteSize:
		if n, ok := v.(Constant); ok {
			e.ByteSize = uint64(n)
		}
	case dwarf.AttrEncoding:
		if n, ok := v.(Constant); ok {
			e.Encoding = uint64(n)
		}
	case dwarf.AttrLowpc:
		if n, ok := asUint(v); ok {
			e.LowPC = n
		}
	case dwarf.AttrHighpc:
		switch x := v.(type) {
		case Address:
			e.HighPC = uint64(x)
		case Constant:
			e.HighPC = uint64(x)
			e.highPCOffset = true
		}
	case dwarf.AttrRanges:
		if n, ok := asUint(v); ok {
			e.Ranges, e.HasRanges = n, true
		}
	case dwarf.AttrStmtList:
		if n, ok := asUint(v); ok {
			e.StmtList, e.HasStmtList = n, true
		}
	case dwarf.AttrType:
		if ref, ok := v.(Reference); ok {
			e.Type = uint64(ref)
		}
	case dwarf.AttrContainingType:
		if ref, ok := v.(Reference); ok {
			e.ContainingType = uint64(ref)
		}
	case dwarf.AttrSpecification:
		if ref, ok := v.(Reference); ok {
			e.Specification = uint64(ref)
		}
	case dwarf.AttrAbstractOrigin:
		if ref, ok := v.(Reference); ok {
			e.AbstractOrigin = uint64(ref)
		}
	case dwarf.AttrInline:
		if n, ok := v.(Constant); ok {
			e.Inline = uint64(n)
		}
	case dwarf.AttrExternal:
		e.External = asFlag(v)
	case dwarf.AttrDeclaration:
		e.Declaration = asFlag(v)
	case dwarf.AttrLocation:
		e.Location = locationValue(u, v)
	case dwarf.AttrDataMemberLoc:
		e.MemberLocation = v
	case dwarf.AttrFrameBase:
		e.FrameBase = locationValue(u, v)
	case dwarf.AttrUpperBound:
		if n, ok := v.(Constant); ok {
			e.UpperBound, e.HasUpperBound = bound(spec.Form, n), true
		}
	case dwarf.AttrLowerBound:
		if n, ok := v.(Constant); ok {
			e.LowerBound = bound(spec.Form, n)
		}
	case dwarf.AttrCount:
		if n, ok := v.(Constant); ok {
			e.Count, e.HasCount = int64(n), true
		}
	}
}

// bound reads an array bound. Producers write -1 in unsigned data forms,
// so the all-ones value of a fixed-size form is taken as -1.
func bound(form Form, n Constant) int64 {
	switch {
	case form == FormData1 && n == 0xff,
		form == FormData2 && n == 0xffff,
		form == FormData4 && n == 0xffffffff:
		return -1
	}
	return int64(n)
}

// locationValue turns a data4/data8 location of a DWARF 2/3 unit into the
// location list offset it stands for.
func locationValue(u *Unit, v Value) Value {
	if c, ok := v.(Constant); ok && u.Version < 4 {
		return SecOffset(c)
	}
	return v
}

func (e *Entry) finish() {
	if e.highPCOffset {
		e.HighPC += e.LowPC
		e.highPCOffset = false
	}
}
