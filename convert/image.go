package convert

import (
	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
)

// Section describes one section of the executable image.
type Section struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	SizeOfRawData   uint32
	Characteristics uint32
}

// Image is the executable the debug information belongs to.
type Image interface {
	// FindSection returns the index of the section containing the virtual
	// address va, or -1.
	FindSection(va uint64) int
	// FindSymbol looks a symbol up in the image's own symbol table and
	// returns its section index and section-relative offset.
	FindSymbol(name string) (section int, offset uint64, ok bool)
	Sections() []Section
	ImageBase() uint64
	// CodeSegment is the index of the code section.
	CodeSegment() int
	Is64() bool
}

// LineTable is one run of line numbers in one source file.
type LineTable struct {
	File string `yaml:"file"`
	// Segment is 1-based; Offset is relative to the segment start.
	Segment   int                     `yaml:"segment"`
	Offset    uint32                  `yaml:"offset"`
	Length    uint32                  `yaml:"length"`
	StartLine uint32                  `yaml:"start_line"`
	Entries   []dwarfhelper.LineEntry `yaml:"entries,flow"`
}

// Writer receives the converted debug information. Segments are 1-based.
type Writer interface {
	AddSection(segment int, flags uint16, offset, size uint32) error
	AddSectionContribution(segment int, offset, size, characteristics uint32) error
	AddTypes(types []byte) error
	AddSymbols(symbols []byte) error
	AddPublic(name string, segment int, offset uint32, typ codeview.TypeIndex) error
	AddLines(lines LineTable) error
}
