package convert

import (
	"debug/dwarf"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
	"dwarf2pdb/utils"
)

// x86 DWARF register number of the frame pointer.
const x86FramePointer = 5

func (s *Session) codeSegment() int {
	return s.img.CodeSegment() + 1
}

// addProc writes a procedure with its parameters, local blocks and public
// symbol.
func (s *Session) addProc(c *dwarfhelper.Cursor, e *dwarfhelper.Entry) {
	u := c.Unit()
	offset := uint32(e.LowPC - s.codeSegOffset)
	s.emit.GlobalProc(s.symbols, codeview.Proc{
		Name:    e.Name,
		Type:    codeview.TNoType,
		Segment: s.codeSegment(),
		Offset:  offset,
		Length:  uint32(e.HighPC - e.LowPC),
	})

	frameBase := dwarfhelper.DecodeLocation(e.FrameBase, nil, u.AddressSize)

	sub := c.SubtreeCursor()
	prev := sub
	for {
		param, ok := sub.ReadSibling()
		if !ok || param.Tag != dwarf.TagFormalParameter {
			break
		}
		s.resolve(param)
		s.addLocal(u, param, &frameBase)
		prev = sub
	}
	s.emit.EndArg(s.symbols)

	s.addLexicalBlocks(prev, &frameBase)
	s.emit.End(s.symbols)

	s.addPublic(e.Name, s.codeSegment(), offset, 0)
}

// addLocal writes a parameter or local variable that lives relative to a
// register. Anything else is skipped.
func (s *Session) addLocal(u *dwarfhelper.Unit, e *dwarfhelper.Entry, frameBase *dwarfhelper.Location) {
	if e.Name == "" || !dwarfhelper.IsExpression(e.Location) {
		return
	}
	loc := dwarfhelper.DecodeLocation(e.Location, frameBase, u.AddressSize)
	if !loc.IsRegRel() {
		return
	}
	typ := s.typeOf(e.Type)
	if s.img.Is64() {
		reg := codeview.AMD64Register(loc.Reg)
		if reg == codeview.RegNone {
			s.log.Debug("skipping local in unknown register", zap.String("name", e.Name), zap.Int("reg", loc.Reg))
			return
		}
		s.emit.RegRel(s.symbols, int32(loc.Offset), typ, uint16(reg), e.Name)
		return
	}
	if loc.Reg == x86FramePointer {
		s.emit.BPRel(s.symbols, int32(loc.Offset), typ, e.Name)
		return
	}
	reg := codeview.X86Register(loc.Reg)
	if reg == codeview.RegNone {
		s.log.Debug("skipping local in unknown register", zap.String("name", e.Name), zap.Int("reg", loc.Reg))
		return
	}
	s.emit.RegRel(s.symbols, int32(loc.Offset), typ, uint16(reg), e.Name)
}

// addLexicalBlocks walks the siblings following c: variables become locals,
// nested lexical blocks become block scopes. Blocks without children or
// without a code range are dropped.
func (s *Session) addLexicalBlocks(c dwarfhelper.Cursor, frameBase *dwarfhelper.Location) {
	u := c.Unit()
	for {
		e, ok := c.ReadSibling()
		if !ok {
			return
		}
		switch e.Tag {
		case dwarf.TagVariable:
			s.resolve(e)
			s.addLocal(u, e, frameBase)
		case dwarf.TagLexDwarfBlock:
			if !e.Children {
				continue
			}
			for _, r := range s.blockRanges(u, e) {
				s.emit.Block(s.symbols, s.codeSegment(), uint32(r.Low-s.codeSegOffset), uint32(r.High-r.Low))
				s.addLexicalBlocks(c.SubtreeCursor(), frameBase)
				s.emit.End(s.symbols)
			}
		}
	}
}

func (s *Session) blockRanges(u *dwarfhelper.Unit, e *dwarfhelper.Entry) []dwarfhelper.Range {
	if e.HasRanges {
		ranges, err := dwarfhelper.ReadRanges(s.sections.Ranges, e.Ranges, u.AddressSize, s.unitBase(u))
		if err != nil {
			s.diag(errors.Wrapf(err, "lexical block at %#x", e.Offset))
		}
		return ranges
	}
	if e.LowPC != e.HighPC {
		return []dwarfhelper.Range{{Low: e.LowPC, High: e.HighPC}}
	}
	return nil
}

// unitBase returns the base address of a unit's range lists.
func (s *Session) unitBase(u *dwarfhelper.Unit) uint64 {
	c := u.Cursor()
	if root, ok := c.ReadNext(false); ok {
		return root.LowPC
	}
	return 0
}

// addCompileUnit records the code ranges of a unit as section
// contributions.
func (s *Session) addCompileUnit(u *dwarfhelper.Unit, e *dwarfhelper.Entry) {
	if e.HasStmtList {
		s.compDirs[e.StmtList] = e.CompDir
	}
	var ranges []dwarfhelper.Range
	if e.HasRanges {
		var err error
		ranges, err = dwarfhelper.ReadRanges(s.sections.Ranges, e.Ranges, u.AddressSize, e.LowPC)
		if err != nil {
			s.diag(errors.Wrapf(err, "compilation unit %q", e.Name))
		}
	} else if e.HighPC > e.LowPC {
		ranges = []dwarfhelper.Range{{Low: e.LowPC, High: e.HighPC}}
	}
	for _, r := range ranges {
		if r.High <= r.Low {
			continue
		}
		segment, offset, ok := s.sectionOffset(r.Low)
		if !ok {
			s.diag(errors.Errorf("compilation unit %q: no section contains %#x", e.Name, r.Low))
			continue
		}
		s.contributions = append(s.contributions, contribution{
			segment: segment,
			offset:  offset,
			size:    uint32(r.High - r.Low),
		})
	}
}

// addGlobal writes a variable with a static address. External declarations
// without a location are looked up in the image's symbol table.
func (s *Session) addGlobal(u *dwarfhelper.Unit, e *dwarfhelper.Entry) {
	loc := dwarfhelper.DecodeLocation(e.Location, nil, u.AddressSize)
	var (
		segment int
		offset  uint32
	)
	switch {
	case loc.IsInvalid() && e.External && e.LinkageName != "":
		section, off, ok := s.img.FindSymbol(e.LinkageName)
		if !ok {
			s.diag(errors.Errorf("variable %q: symbol %q not found", e.Name, e.LinkageName),
				zap.String("name", e.Name))
			return
		}
		segment, offset = section+1, uint32(off)
	case loc.IsAbs():
		var ok bool
		segment, offset, ok = s.sectionOffset(uint64(loc.Offset))
		if !ok {
			s.diag(errors.Errorf("variable %q: no section contains %#x", e.Name, loc.Offset),
				zap.String("name", e.Name))
			return
		}
	default:
		return
	}
	name := utils.ReplaceDots(e.Name, s.config.dotReplacement)
	typ := s.typeOf(e.Type)
	s.emit.GlobalData(s.symbols, typ, segment, offset, name)
	s.addPublic(name, segment, offset, typ)
}
