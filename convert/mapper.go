package convert

import (
	"debug/dwarf"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
	"dwarf2pdb/utils"
)

// mapTypes assigns consecutive type indices to every type-bearing DIE in
// physical order. Field lists are numbered after all of them.
func (s *Session) mapTypes() error {
	next := codeview.FirstUserType
	for _, u := range s.units {
		c := u.Cursor()
		for {
			e, ok := c.ReadNext(false)
			if !ok {
				break
			}
			if utils.IsTypeTag(e.Tag) {
				s.offset2type[e.Offset] = next
				next++
			}
		}
		if err := c.Err(); err != nil {
			s.diag(errors.Wrapf(err, "unit at %#x", u.Offset), zap.Uint64("offset", u.Offset))
		}
	}
	s.nextUserType = codeview.FirstUserType
	s.nextFieldList = next
	s.log.Debug("mapped types", zap.Int("count", int(next-codeview.FirstUserType)))
	return nil
}

// createTypes walks the units again and emits the records for every DIE.
func (s *Session) createTypes() error {
	for _, u := range s.units {
		c := u.Cursor()
		for {
			e, ok := c.ReadNext(false)
			if !ok {
				break
			}
			s.resolve(e)
			if err := s.createEntry(&c, e); err != nil {
				return err
			}
			if err := s.arenaErr(); err != nil {
				return errors.Wrap(err, "cannot build debug streams")
			}
		}
	}
	return nil
}

func (s *Session) createEntry(c *dwarfhelper.Cursor, e *dwarfhelper.Entry) error {
	if utils.IsTypeTag(e.Tag) {
		want, ok := s.offset2type[e.Offset]
		got := s.createType(c, e)
		if !ok || got != want {
			return errors.Wrapf(ErrIndexMismatch, "%v at %#x: got %#x, want %#x", e.Tag, e.Offset, got, want)
		}
		return nil
	}
	switch e.Tag {
	case dwarf.TagSubprogram:
		if e.Name != "" && e.HighPC > e.LowPC {
			s.addProc(c, e)
		}
	case dwarf.TagCompileUnit:
		s.addCompileUnit(c.Unit(), e)
	case dwarf.TagVariable:
		if e.Name != "" {
			s.addGlobal(c.Unit(), e)
		}
	}
	return nil
}

// resolve fills in attributes that e inherits from the declaration it
// completes and from the abstract instance it belongs to.
func (s *Session) resolve(e *dwarfhelper.Entry) {
	for _, ref := range []uint64{e.Specification, e.AbstractOrigin} {
		if ref == 0 {
			continue
		}
		origin, ok := s.entryAt(ref)
		if !ok {
			continue
		}
		if origin.Tag != e.Tag {
			if ref == e.Specification {
				s.diag(errors.Errorf("%v at %#x completes %v at %#x", e.Tag, e.Offset, origin.Tag, ref))
			}
			continue
		}
		e.Merge(origin)
	}
}

func (s *Session) entryAt(off uint64) (*dwarfhelper.Entry, bool) {
	u := dwarfhelper.UnitAt(s.units, off)
	if u == nil {
		return nil, false
	}
	c := dwarfhelper.NewCursor(u, off)
	return c.ReadNext(false)
}

// typeOf returns the index of the type DIE at ref, or void.
func (s *Session) typeOf(ref uint64) codeview.TypeIndex {
	if ref == 0 {
		return codeview.TVoid
	}
	if idx, ok := s.offset2type[ref]; ok {
		return idx
	}
	return codeview.TVoid
}

// allocUserType returns the index the record about to be written gets.
func (s *Session) allocUserType() codeview.TypeIndex {
	idx := s.nextUserType
	s.nextUserType++
	return idx
}

func (s *Session) allocFieldList() codeview.TypeIndex {
	idx := s.nextFieldList
	s.nextFieldList++
	return idx
}
