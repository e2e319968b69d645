package dwarfhelper

import (
	"sort"

	"github.com/pkg/errors"
)

// Sections holds the raw DWARF sections of an image. Missing sections are nil.
type Sections struct {
	Info    []byte
	Abbrev  []byte
	Line    []byte
	Ranges  []byte
	Str     []byte
	LineStr []byte
}

// Unit is one unit header of .debug_info. Offsets are section-absolute.
type Unit struct {
	Offset       uint64
	Length       uint64
	Version      int
	Type         uint8
	Dwarf64      bool
	AbbrevOffset uint64
	AddressSize  int
	// DataOffset is the position of the first DIE.
	DataOffset uint64
	End        uint64

	abbrevs  Abbrevs
	sections *Sections
}

func (u *Unit) OffsetSize() int {
	if u.Dwarf64 {
		return 8
	}
	return 4
}

func (u *Unit) Contains(off uint64) bool {
	return off >= u.DataOffset && off < u.End
}

func (u *Unit) Sections() *Sections {
	return u.sections
}

// Cursor returns a cursor positioned on the unit's root DIE.
func (u *Unit) Cursor() Cursor {
	return NewCursor(u, u.DataOffset)
}

// ReadUnits parses every unit header of .debug_info. Abbreviation tables are
// shared between units that reference the same offset.
func ReadUnits(sec *Sections) ([]*Unit, error) {
	var units []*Unit
	tables := make(map[uint64]Abbrevs)
	info := sec.Info
	for off := uint64(0); off < uint64(len(info)); {
		r := newReader(info, off)
		u := &Unit{Offset: off, sections: sec}
		length := uint64(r.u32())
		if length == 0xffffffff {
			u.Dwarf64 = true
			length = r.u64()
		} else if length >= 0xfffffff0 {
			return units, errors.Wrapf(ErrUnsupportedVersion, "reserved unit length at %#x", off)
		}
		if r.err != nil || length > uint64(r.left()) {
			return units, errors.Wrapf(ErrTruncated, "unit at %#x", off)
		}
		u.Length = length
		u.End = uint64(r.pos) + length

		u.Version = int(r.u16())
		if u.Version < 2 || u.Version > 5 {
			return units, errors.Wrapf(ErrUnsupportedVersion, "unit at %#x has version %d", off, u.Version)
		}
		if u.Version >= 5 {
			u.Type = r.u8()
			u.AddressSize = int(r.u8())
			u.AbbrevOffset = r.offset(u.Dwarf64)
			switch u.Type {
			case utSkeleton, utSplitCompile:
				r.skip(8)
			case utType, utSplitType:
				r.skip(8)
				r.skip(u.OffsetSize())
			}
		} else {
			u.Type = utCompile
			u.AbbrevOffset = r.offset(u.Dwarf64)
			u.AddressSize = int(r.u8())
		}
		if r.err != nil {
			return units, errors.Wrapf(r.err, "unit header at %#x", off)
		}
		u.DataOffset = uint64(r.pos)

		table, ok := tables[u.AbbrevOffset]
		if !ok {
			var err error
			table, err = parseAbbrevs(sec.Abbrev, u.AbbrevOffset)
			if err != nil {
				return units, errors.Wrapf(err, "unit at %#x", off)
			}
			tables[u.AbbrevOffset] = table
		}
		u.abbrevs = table

		units = append(units, u)
		off = u.End
	}
	return units, nil
}

// UnitAt returns the unit whose DIE data contains off. units must be sorted
// by offset, as ReadUnits returns them.
func UnitAt(units []*Unit, off uint64) *Unit {
	i := sort.Search(len(units), func(i int) bool {
		return units[i].End > off
	})
	if i < len(units) && units[i].Contains(off) {
		return units[i]
	}
	return nil
}
