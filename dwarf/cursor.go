package dwarfhelper

import (
	"github.com/pkg/errors"
)

// Cursor walks the DIE tree of one unit. It is a plain value: copying a
// cursor snapshots its position, so a caller can read ahead and come back.
type Cursor struct {
	unit     *Unit
	pos      uint64
	level    int
	hasChild bool
	sibling  uint64
	err      error
}

func NewCursor(u *Unit, pos uint64) Cursor {
	return Cursor{unit: u, pos: pos}
}

func (c *Cursor) Unit() *Unit {
	return c.unit
}

// Err returns the decoding error that stopped the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// ReadNext returns the next DIE in depth-first order. Null entries close the
// current level; with stopAtNull the cursor stops there instead of moving on
// to the parent's next sibling.
func (c *Cursor) ReadNext(stopAtNull bool) (*Entry, bool) {
	if c.unit == nil {
		return nil, false
	}
	if c.hasChild {
		c.level++
	}
	var (
		r    *reader
		code uint64
		off  uint64
	)
	for {
		if c.level == -1 {
			return nil, false
		}
		if c.pos >= c.unit.End || c.err != nil {
			return nil, false
		}
		r = newReader(c.unit.sections.Info[:c.unit.End], c.pos)
		off = c.pos
		code = r.uleb()
		c.pos = uint64(r.pos)
		if code == 0 {
			c.level--
			if stopAtNull {
				c.hasChild = false
				return nil, false
			}
			continue
		}
		break
	}

	abbrev, ok := c.unit.abbrevs[code]
	if !ok {
		c.err = errors.Errorf("unknown abbreviation code %d at %#x", code, off)
		c.pos = c.unit.End
		return nil, false
	}
	e := &Entry{Offset: off, Code: code, Tag: abbrev.Tag, Children: abbrev.Children}
	for _, spec := range abbrev.Specs {
		v, err := c.readValue(r, spec)
		if err != nil {
			c.err = errors.Wrapf(err, "DIE at %#x", off)
			c.pos = c.unit.End
			return nil, false
		}
		if v != nil {
			e.set(c.unit, spec, v)
		}
	}
	if r.err != nil {
		c.err = errors.Wrapf(r.err, "DIE at %#x", off)
		c.pos = c.unit.End
		return nil, false
	}
	e.finish()
	c.pos = uint64(r.pos)
	c.hasChild = e.Children
	c.sibling = e.Sibling
	return e, true
}

// ReadSibling skips the children of the last DIE read and returns its next
// sibling.
func (c *Cursor) ReadSibling() (*Entry, bool) {
	if c.hasChild {
		level := c.level
		c.level = level + 1
		c.hasChild = false
		if c.sibling != 0 && c.sibling > c.pos && c.sibling < c.unit.End {
			c.pos = c.sibling
			c.level = level
		} else {
			for c.level > level {
				if _, ok := c.ReadNext(true); !ok && (c.err != nil || c.pos >= c.unit.End) {
					return nil, false
				}
			}
		}
	}
	return c.ReadNext(true)
}

// SubtreeCursor returns a cursor over the children of the last DIE read.
// When that DIE has no children the returned cursor yields nothing.
func (c *Cursor) SubtreeCursor() Cursor {
	sub := *c
	if c.hasChild {
		sub.level = 0
		sub.hasChild = false
	} else {
		sub.level = -1
	}
	return sub
}
