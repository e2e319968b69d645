package peimage

import (
	"debug/pe"

	"github.com/pkg/errors"

	"dwarf2pdb/convert"
)

type symbol struct {
	section int
	offset  uint64
}

// Image is a PE executable opened for conversion.
type Image struct {
	file        *pe.File
	sections    []convert.Section
	imageBase   uint64
	is64        bool
	codeSegment int
	symbols     map[string]symbol
}

func Open(path string) (*Image, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", path)
	}
	img, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

// New wraps an already opened PE file. Close releases it.
func New(f *pe.File) (*Image, error) {
	img := &Image{file: f, codeSegment: -1, symbols: make(map[string]symbol)}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		img.imageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		img.imageBase = oh.ImageBase
		img.is64 = true
	default:
		return nil, errors.New("image has no optional header")
	}
	for i, s := range f.Sections {
		img.sections = append(img.sections, convert.Section{
			Name:            s.Name,
			VirtualAddress:  s.VirtualAddress,
			VirtualSize:     s.VirtualSize,
			SizeOfRawData:   s.Size,
			Characteristics: s.Characteristics,
		})
		if img.codeSegment < 0 && s.Characteristics&pe.IMAGE_SCN_CNT_CODE != 0 {
			img.codeSegment = i
		}
	}
	if img.codeSegment < 0 {
		img.codeSegment = 0
	}
	for _, sym := range f.Symbols {
		if sym.SectionNumber <= 0 || int(sym.SectionNumber) > len(f.Sections) {
			continue
		}
		if _, ok := img.symbols[sym.Name]; !ok {
			img.symbols[sym.Name] = symbol{section: int(sym.SectionNumber) - 1, offset: uint64(sym.Value)}
		}
	}
	return img, nil
}

func (img *Image) Close() error {
	if img.file == nil {
		return nil
	}
	return img.file.Close()
}

func (img *Image) FindSection(va uint64) int {
	for i, s := range img.sections {
		start := img.imageBase + uint64(s.VirtualAddress)
		size := s.VirtualSize
		if size == 0 {
			size = s.SizeOfRawData
		}
		if va >= start && va < start+uint64(size) {
			return i
		}
	}
	return -1
}

// FindSymbol looks name up in the COFF symbol table, also trying the
// leading underscore of 32-bit C symbols.
func (img *Image) FindSymbol(name string) (int, uint64, bool) {
	for _, n := range []string{name, "_" + name} {
		if sym, ok := img.symbols[n]; ok {
			return sym.section, sym.offset, true
		}
	}
	return 0, 0, false
}

func (img *Image) Sections() []convert.Section {
	return img.sections
}

func (img *Image) ImageBase() uint64 {
	return img.imageBase
}

func (img *Image) CodeSegment() int {
	return img.codeSegment
}

func (img *Image) Is64() bool {
	return img.is64
}
