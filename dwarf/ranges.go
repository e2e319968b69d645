package dwarfhelper

import "github.com/pkg/errors"

type Range struct {
	Low, High uint64
}

// ReadRanges reads the .debug_ranges list at off. Entries are rebased on
// base, which a base address selection entry replaces.
func ReadRanges(section []byte, off uint64, addrSize int, base uint64) ([]Range, error) {
	if off >= uint64(len(section)) {
		return nil, errors.Wrapf(ErrTruncated, "range list at %#x", off)
	}
	maxAddr := ^uint64(0)
	if addrSize < 8 {
		maxAddr = 1<<(8*uint(addrSize)) - 1
	}
	r := newReader(section, off)
	var ranges []Range
	for {
		lo := r.sized(addrSize)
		hi := r.sized(addrSize)
		if r.err != nil {
			return ranges, errors.Wrapf(r.err, "range list at %#x", off)
		}
		if lo == 0 && hi == 0 {
			return ranges, nil
		}
		if lo == maxAddr {
			base = hi
			continue
		}
		ranges = append(ranges, Range{Low: base + lo, High: base + hi})
	}
}
