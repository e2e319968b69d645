package dwarfhelper

import (
	"github.com/pkg/errors"
)

// readValue decodes one attribute value. Forms whose size is known but whose
// value the converter cannot use are consumed and reported as nil.
func (c *Cursor) readValue(r *reader, spec AttrSpec) (Value, error) {
	u := c.unit
	form := spec.Form
	for form == FormIndirect {
		form = Form(r.uleb())
	}
	switch form {
	case FormAddr:
		return Address(r.sized(u.AddressSize)), nil

	case FormBlock1:
		return Block(r.bytes(int(r.u8()))), nil
	case FormBlock2:
		return Block(r.bytes(int(r.u16()))), nil
	case FormBlock4:
		return Block(r.bytes(int(r.u32()))), nil
	case FormBlock:
		return Block(r.bytes(int(r.uleb()))), nil
	case FormExprloc:
		return ExprLoc(r.bytes(int(r.uleb()))), nil

	case FormData1:
		return Constant(r.u8()), nil
	case FormData2:
		return Constant(r.u16()), nil
	case FormData4:
		return Constant(r.u32()), nil
	case FormData8:
		return Constant(r.u64()), nil
	case FormData16:
		r.skip(16)
		return nil, nil
	case FormSdata:
		return Constant(r.sleb()), nil
	case FormUdata:
		return Constant(r.uleb()), nil
	case FormImplicitConst:
		return Constant(spec.Implicit), nil

	case FormString:
		return String(r.cstring()), nil
	case FormStrp:
		off := r.offset(u.Dwarf64)
		if s, ok := stringAt(u.sections.Str, off); ok {
			return String(s), nil
		}
		return nil, nil
	case FormLineStrp:
		off := r.offset(u.Dwarf64)
		if s, ok := stringAt(u.sections.LineStr, off); ok {
			return String(s), nil
		}
		return nil, nil

	case FormFlag:
		return Flag(r.u8() != 0), nil
	case FormFlagPresent:
		return Flag(true), nil

	case FormRef1:
		return Reference(u.Offset + uint64(r.u8())), nil
	case FormRef2:
		return Reference(u.Offset + uint64(r.u16())), nil
	case FormRef4:
		return Reference(u.Offset + uint64(r.u32())), nil
	case FormRef8:
		return Reference(u.Offset + r.u64()), nil
	case FormRefUdata:
		return Reference(u.Offset + r.uleb()), nil
	case FormRefAddr:
		if u.Version == 2 {
			return Reference(r.sized(u.AddressSize)), nil
		}
		return Reference(r.offset(u.Dwarf64)), nil

	case FormSecOffset:
		return SecOffset(r.offset(u.Dwarf64)), nil

	case FormRefSig8:
		r.skip(8)
	case FormRefSup4:
		r.skip(4)
	case FormRefSup8:
		r.skip(8)
	case FormGNURefAlt, FormGNUStrpAlt, FormStrpSup:
		r.skip(u.OffsetSize())
	case FormStrx, FormAddrx, FormLoclistx, FormRnglistx:
		r.uleb()
	case FormStrx1, FormAddrx1:
		r.skip(1)
	case FormStrx2, FormAddrx2:
		r.skip(2)
	case FormStrx3, FormAddrx3:
		r.skip(3)
	case FormStrx4, FormAddrx4:
		r.skip(4)
	default:
		return nil, errors.Errorf("unknown attribute form %#x", uint64(form))
	}
	return nil, nil
}
