package dwarfhelper

import (
	"debug/dwarf"

	"github.com/pkg/errors"
)

type AttrSpec struct {
	Attr dwarf.Attr
	Form Form
	// Implicit holds the value of a DW_FORM_implicit_const attribute.
	Implicit int64
}

type Abbrev struct {
	Code     uint64
	Tag      dwarf.Tag
	Children bool
	Specs    []AttrSpec
}

// Abbrevs maps abbreviation codes to their declarations.
type Abbrevs map[uint64]*Abbrev

func parseAbbrevs(data []byte, off uint64) (Abbrevs, error) {
	r := newReader(data, off)
	table := make(Abbrevs)
	for {
		// Some producers end the last table at the end of the section
		// without a terminating zero code.
		if r.err == nil && r.left() == 0 {
			return table, nil
		}
		code := r.uleb()
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "abbreviation table at %#x", off)
		}
		if code == 0 {
			return table, nil
		}
		a := &Abbrev{
			Code:     code,
			Tag:      dwarf.Tag(r.uleb()),
			Children: r.u8() != 0,
		}
		for {
			attr := r.uleb()
			form := Form(r.uleb())
			if r.err != nil {
				return nil, errors.Wrapf(r.err, "abbreviation %d at %#x", code, off)
			}
			if attr == 0 && form == 0 {
				break
			}
			spec := AttrSpec{Attr: dwarf.Attr(attr), Form: form}
			if form == FormImplicitConst {
				spec.Implicit = r.sleb()
			}
			a.Specs = append(a.Specs, spec)
		}
		table[code] = a
	}
}
