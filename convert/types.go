package convert

import (
	"debug/dwarf"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
	"dwarf2pdb/utils"
)

// createType writes the user type record of a type-bearing DIE and returns
// its index. Exactly one user type record is written per call.
func (s *Session) createType(c *dwarfhelper.Cursor, e *dwarfhelper.Entry) codeview.TypeIndex {
	idx := s.allocUserType()
	if utils.IsAggregateTag(e.Tag) {
		s.addAggregate(idx, c, e)
		return idx
	}
	switch e.Tag {
	case dwarf.TagBaseType:
		s.addBaseType(idx, e)
	case dwarf.TagTypedef:
		s.emit.Modifier(s.userTypes, s.typeOf(e.Type), 0)
		if e.Name != "" {
			s.emit.UDT(s.symbols, idx, e.Name)
		}
	case dwarf.TagPointerType:
		s.emit.Pointer(s.userTypes, s.typeOf(e.Type), s.pointerAttr)
	case dwarf.TagReferenceType:
		s.emit.Pointer(s.userTypes, s.typeOf(e.Type), s.pointerAttr|codeview.PointerRef)
	case dwarf.TagRvalueReferenceType:
		s.emit.Pointer(s.userTypes, s.typeOf(e.Type), s.pointerAttr|codeview.PointerRValRef)
	case dwarf.TagArrayType:
		s.addArray(c, e)
	default:
		if attr, ok := utils.QualifierAttr(e.Tag); ok {
			s.emit.Modifier(s.userTypes, s.typeOf(e.Type), attr)
			break
		}
		s.voidPointer()
	}
	return idx
}

func (s *Session) voidPointer() {
	s.emit.Pointer(s.userTypes, codeview.TVoid, s.pointerAttr)
}

func (s *Session) addBaseType(idx codeview.TypeIndex, e *dwarfhelper.Entry) {
	basic, err := codeview.BasicType(e.Encoding, e.ByteSize)
	if err != nil {
		s.diag(errors.Wrapf(err, "base type %q at %#x", e.Name, e.Offset),
			zap.Uint64("offset", e.Offset), zap.String("name", e.Name))
		s.voidPointer()
		return
	}
	s.emit.Modifier(s.userTypes, basic, 0)
	if e.Name != "" {
		s.emit.UDT(s.symbols, idx, e.Name)
	}
}

func (s *Session) addArray(c *dwarfhelper.Cursor, e *dwarfhelper.Entry) {
	size := arrayCount(c) * int64(s.typeSize(c.Unit(), e.Type, 0))
	if size < 0 {
		size = 0
	}
	s.emit.Array(s.userTypes, s.typeOf(e.Type), codeview.TInt4, size)
}

// arrayCount multiplies the element counts of the subrange children of the
// array DIE last read by c. An array without bounds has no elements.
func arrayCount(c *dwarfhelper.Cursor) int64 {
	count := int64(1)
	dims := 0
	sub := c.SubtreeCursor()
	for {
		child, ok := sub.ReadSibling()
		if !ok {
			break
		}
		if child.Tag != dwarf.TagSubrangeType {
			continue
		}
		dims++
		switch {
		case child.HasCount:
			count *= child.Count
		case child.HasUpperBound:
			count *= child.UpperBound - child.LowerBound + 1
		default:
			count = 0
		}
	}
	if dims == 0 || count < 0 {
		return 0
	}
	return count
}

const maxTypeDepth = 64

// typeSize follows a type reference until it finds a byte size.
func (s *Session) typeSize(u *dwarfhelper.Unit, ref uint64, depth int) uint64 {
	if ref == 0 || depth > maxTypeDepth {
		return 0
	}
	owner := dwarfhelper.UnitAt(s.units, ref)
	if owner == nil {
		return 0
	}
	c := dwarfhelper.NewCursor(owner, ref)
	e, ok := c.ReadNext(false)
	if !ok {
		return 0
	}
	if e.ByteSize > 0 {
		return e.ByteSize
	}
	switch e.Tag {
	case dwarf.TagPointerType, dwarf.TagReferenceType, dwarf.TagRvalueReferenceType, dwarf.TagPtrToMemberType:
		return uint64(u.AddressSize)
	case dwarf.TagArrayType:
		return uint64(arrayCount(&c)) * s.typeSize(u, e.Type, depth+1)
	}
	return s.typeSize(u, e.Type, depth+1)
}
