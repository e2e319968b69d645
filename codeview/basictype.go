package codeview

import "github.com/pkg/errors"

// DWARF base type encodings understood by BasicType.
const (
	ateBoolean        = 0x02
	ateComplexFloat   = 0x03
	ateFloat          = 0x04
	ateSigned         = 0x05
	ateSignedChar     = 0x06
	ateUnsigned       = 0x07
	ateUnsignedChar   = 0x08
	ateImaginaryFloat = 0x09
)

// Basic type families, stored in bits 4..7 of the type code.
const (
	familySigned   = 1
	familyUnsigned = 2
	familyBoolean  = 3
	familyReal     = 4
	familyComplex  = 5
	familyChar     = 7
)

// BasicType returns the predefined CodeView type for a DWARF base type.
func BasicType(encoding, byteSize uint64) (TypeIndex, error) {
	var family, size uint64
	switch encoding {
	case ateBoolean:
		family = familyBoolean
	case ateComplexFloat:
		family = familyComplex
		byteSize /= 2
	case ateFloat, ateImaginaryFloat:
		family = familyReal
	case ateSigned:
		family = familySigned
	case ateUnsigned:
		family = familyUnsigned
	case ateSignedChar, ateUnsignedChar:
		family = familyChar
	default:
		return 0, errors.Errorf("unsupported base type encoding %#x", encoding)
	}

	var ok bool
	switch family {
	case familyReal, familyComplex:
		size, ok = map[uint64]uint64{4: 0, 8: 1, 10: 2, 12: 2, 16: 3, 6: 4}[byteSize]
	case familyChar:
		signed := encoding == ateSignedChar
		switch byteSize {
		case 1:
			size, ok = 0, true
		case 2:
			size, ok = pick(signed, 2, 3), true
		case 4:
			size, ok = pick(signed, 4, 5), true
		case 8:
			size, ok = pick(signed, 6, 7), true
		}
	default:
		size, ok = map[uint64]uint64{1: 0, 2: 1, 4: 2, 8: 3}[byteSize]
	}
	if !ok {
		return 0, errors.Errorf("unsupported size %d for base type encoding %#x", byteSize, encoding)
	}
	return TypeIndex(size | family<<4), nil
}

func pick(signed bool, s, u uint64) uint64 {
	if signed {
		return s
	}
	return u
}
