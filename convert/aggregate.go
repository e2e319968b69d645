package convert

import (
	"debug/dwarf"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
)

const anonymousName = "__noname"

// addAggregate writes a structure, class or union. Declarations and
// aggregates without children become forward references without a field
// list.
func (s *Session) addAggregate(idx codeview.TypeIndex, c *dwarfhelper.Cursor, e *dwarfhelper.Entry) {
	name := e.Name
	if name == "" {
		name = anonymousName
	}
	union := e.Tag == dwarf.TagUnionType

	var (
		fields   codeview.TypeIndex
		count    int
		property uint16
	)
	if e.Declaration || !e.Children {
		property = codeview.PropForwardRef
	} else {
		fields, count = s.addFieldList(c, union)
	}

	size := int64(e.ByteSize)
	if union {
		s.emit.Union(s.userTypes, count, property, fields, size, name)
	} else {
		s.emit.Structure(s.userTypes, e.Tag == dwarf.TagClassType, count, property, fields, size, name)
	}
	s.emit.UDT(s.symbols, idx, name)
}

// addFieldList writes the members and base classes of the aggregate last
// read by c into the field list buffer. Union members all sit at offset 0.
func (s *Session) addFieldList(c *dwarfhelper.Cursor, union bool) (codeview.TypeIndex, int) {
	idx := s.allocFieldList()
	a := s.fieldLists
	start := s.emit.BeginFieldList(a)
	count := 0
	sub := c.SubtreeCursor()
	for {
		m, ok := sub.ReadSibling()
		if !ok {
			break
		}
		switch m.Tag {
		case dwarf.TagMember:
			if m.Name == "" {
				continue
			}
			var off int64
			if !union {
				loc := dwarfhelper.DecodeMemberLocation(m.MemberLocation)
				if !loc.IsAbs() {
					continue
				}
				off = loc.Offset
			}
			s.emit.Member(a, codeview.AccessPublic, s.typeOf(m.Type), off, m.Name)
			count++
		case dwarf.TagInheritance:
			loc := dwarfhelper.DecodeMemberLocation(m.MemberLocation)
			if !loc.IsAbs() {
				continue
			}
			s.emit.BaseClass(a, codeview.AccessPublic, s.typeOf(m.Type), loc.Offset)
			count++
		}
	}
	codeview.EndRecord(a, start)
	return idx, count
}
