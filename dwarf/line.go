package dwarfhelper

import (
	"github.com/pkg/errors"
)

type FileEntry struct {
	Name    string
	Dir     uint64
	ModTime uint64
	Length  uint64
}

// LineHeader is the header of one line number program.
type LineHeader struct {
	Offset        uint64
	UnitLength    uint64
	Dwarf64       bool
	Version       int
	HeaderLength  uint64
	MinInstLength uint8
	MaxOpsPerInst uint8
	DefaultIsStmt bool
	LineBase      int8
	LineRange     uint8
	OpcodeBase    uint8
	// OpcodeLengths[i] is the operand count of standard opcode i.
	OpcodeLengths []uint8
	IncludeDirs   []string
	Files         []FileEntry

	program uint64
	end     uint64
}

// End is the offset of the next line number program.
func (h *LineHeader) End() uint64 {
	return h.end
}

// ReadLineHeader parses the header at off. For a program in an unsupported
// version the header is returned with End set, so the caller can skip it.
func ReadLineHeader(section []byte, off uint64) (*LineHeader, error) {
	r := newReader(section, off)
	h := &LineHeader{Offset: off}
	h.UnitLength = uint64(r.u32())
	if h.UnitLength == 0xffffffff {
		h.Dwarf64 = true
		h.UnitLength = r.u64()
	} else if h.UnitLength >= 0xfffffff0 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "reserved line program length at %#x", off)
	}
	if r.err != nil || h.UnitLength > uint64(r.left()) {
		return nil, errors.Wrapf(ErrTruncated, "line program at %#x", off)
	}
	h.end = uint64(r.pos) + h.UnitLength

	h.Version = int(r.u16())
	if h.Version < 2 || h.Version > 4 {
		return h, errors.Wrapf(ErrUnsupportedVersion, "line program at %#x has version %d", off, h.Version)
	}
	h.HeaderLength = r.offset(h.Dwarf64)
	h.program = uint64(r.pos) + h.HeaderLength
	h.MinInstLength = r.u8()
	h.MaxOpsPerInst = 1
	if h.Version >= 4 {
		h.MaxOpsPerInst = r.u8()
	}
	if h.MaxOpsPerInst == 0 {
		h.MaxOpsPerInst = 1
	}
	h.DefaultIsStmt = r.u8() != 0
	h.LineBase = int8(r.u8())
	h.LineRange = r.u8()
	h.OpcodeBase = r.u8()
	if r.err == nil && (h.LineRange == 0 || h.OpcodeBase == 0) {
		return h, errors.Wrapf(ErrUnsupportedVersion, "line program at %#x has line range %d, opcode base %d",
			off, h.LineRange, h.OpcodeBase)
	}
	h.OpcodeLengths = make([]uint8, h.OpcodeBase)
	for i := 1; i < int(h.OpcodeBase); i++ {
		h.OpcodeLengths[i] = r.u8()
	}
	for r.err == nil {
		dir := r.cstring()
		if dir == "" {
			break
		}
		h.IncludeDirs = append(h.IncludeDirs, dir)
	}
	for r.err == nil {
		f, ok := readFileEntry(r)
		if !ok {
			break
		}
		h.Files = append(h.Files, f)
	}
	if r.err != nil || h.program > h.end {
		return nil, errors.Wrapf(ErrTruncated, "line program header at %#x", off)
	}
	return h, nil
}

func readFileEntry(r *reader) (FileEntry, bool) {
	name := r.cstring()
	if name == "" {
		return FileEntry{}, false
	}
	return FileEntry{
		Name:    name,
		Dir:     r.uleb(),
		ModTime: r.uleb(),
		Length:  r.uleb(),
	}, r.err == nil
}

// FileName returns the 1-based file entry and its include directory. Index
// zero in the directory list stands for the compilation directory and is
// returned as "".
func (h *LineHeader) FileName(file uint64) (dir, name string, ok bool) {
	if file == 0 || file > uint64(len(h.Files)) {
		return "", "", false
	}
	f := h.Files[file-1]
	if f.Dir > 0 && f.Dir <= uint64(len(h.IncludeDirs)) {
		dir = h.IncludeDirs[f.Dir-1]
	}
	return dir, f.Name, true
}

// LineState is the register file of the line number state machine.
type LineState struct {
	Address       uint64
	OpIndex       uint64
	File          uint64
	Line          uint64
	Column        uint64
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64
}

func (s *LineState) reset(h *LineHeader) {
	*s = LineState{File: 1, Line: 1, IsStmt: h.DefaultIsStmt}
}

// LineSample is one row appended to the line table.
type LineSample struct {
	Address uint64
	File    uint64
	Line    uint64
}

type LineProgram struct {
	Header  *LineHeader
	State   LineState
	Samples []LineSample
	// LastAddress is the address of the last end_sequence. A set_address
	// with a literal zero resumes from it.
	LastAddress uint64
}

// RunLineProgram executes the opcodes of the program described by h and
// collects every emitted row.
func RunLineProgram(section []byte, h *LineHeader) (*LineProgram, error) {
	p := &LineProgram{Header: h}
	p.State.reset(h)
	r := newReader(section[:h.end], h.program)
	for r.left() > 0 {
		opcode := r.u8()
		switch {
		case opcode >= h.OpcodeBase:
			p.special(opcode)
		case opcode == 0:
			p.extended(r)
		default:
			p.standard(r, opcode)
		}
		if r.err != nil {
			return p, errors.Wrapf(r.err, "line program at %#x", h.Offset)
		}
	}
	return p, nil
}

func (p *LineProgram) advance(opAdvance uint64) {
	h := p.Header
	ops := uint64(h.MaxOpsPerInst)
	p.State.Address += uint64(h.MinInstLength) * ((p.State.OpIndex + opAdvance) / ops)
	p.State.OpIndex = (p.State.OpIndex + opAdvance) % ops
}

func (p *LineProgram) addLine(delta int64) {
	p.State.Line = uint64(int64(p.State.Line) + delta)
}

func (p *LineProgram) emit() {
	p.Samples = append(p.Samples, LineSample{
		Address: p.State.Address,
		File:    p.State.File,
		Line:    p.State.Line,
	})
	p.State.BasicBlock = false
	p.State.PrologueEnd = false
	p.State.EpilogueBegin = false
	p.State.Discriminator = 0
}

func (p *LineProgram) special(opcode uint8) {
	h := p.Header
	adjusted := uint64(opcode - h.OpcodeBase)
	p.advance(adjusted / uint64(h.LineRange))
	p.addLine(int64(h.LineBase) + int64(adjusted%uint64(h.LineRange)))
	p.emit()
}

func (p *LineProgram) standard(r *reader, opcode uint8) {
	h := p.Header
	switch opcode {
	case lnsCopy:
		p.emit()
	case lnsAdvancePC:
		p.advance(r.uleb())
	case lnsAdvanceLine:
		p.addLine(r.sleb())
	case lnsSetFile:
		p.State.File = r.uleb()
	case lnsSetColumn:
		p.State.Column = r.uleb()
	case lnsNegateStmt:
		p.State.IsStmt = !p.State.IsStmt
	case lnsSetBasicBlock:
		p.State.BasicBlock = true
	case lnsConstAddPC:
		p.advance(uint64(255-h.OpcodeBase) / uint64(h.LineRange))
	case lnsFixedAdvancePC:
		p.State.Address += uint64(r.u16())
		p.State.OpIndex = 0
	case lnsSetPrologueEnd:
		p.State.PrologueEnd = true
	case lnsSetEpilogueBegin:
		p.State.EpilogueBegin = true
	case lnsSetISA:
		p.State.ISA = r.uleb()
	default:
		for i := uint8(0); i < h.OpcodeLengths[opcode]; i++ {
			r.uleb()
		}
	}
}

func (p *LineProgram) extended(r *reader) {
	length := r.uleb()
	if length == 0 || r.err != nil {
		return
	}
	next := r.pos + int(length)
	if length > uint64(r.left()) {
		r.fail()
		return
	}
	switch r.u8() {
	case lneEndSequence:
		p.State.EndSequence = true
		p.LastAddress = p.State.Address
		p.emit()
		p.State.reset(p.Header)
	case lneSetAddress:
		addr := r.sized(int(length - 1))
		if addr == 0 {
			addr = p.LastAddress
		}
		p.State.Address = addr
		p.State.OpIndex = 0
	case lneDefineFile:
		if f, ok := readFileEntry(r); ok {
			p.Header.Files = append(p.Header.Files, f)
		}
	case lneSetDiscriminator:
		p.State.Discriminator = r.uleb()
	}
	if r.err == nil {
		r.pos = next
	}
}

type LineEntry struct {
	Offset uint32
	Line   uint32
}

// LineRun is a stretch of samples with non-decreasing addresses and lines in
// one file. Entry offsets and lines are relative to Start and StartLine.
type LineRun struct {
	File      uint64
	Start     uint64
	StartLine uint64
	Length    uint64
	Entries   []LineEntry
}

// SplitRuns partitions samples into runs. A sample that goes back in address
// or line, or that switches file, starts a new run; a sample at the same
// address as its predecessor is folded into it. A closed run covers up to
// its last entry, the final run up to the last sample.
func SplitRuns(samples []LineSample) []LineRun {
	var (
		runs []LineRun
		cur  *LineRun
		prev uint64
	)
	for _, s := range samples {
		if cur != nil && (s.File != cur.File || s.Line < cur.StartLine || s.Address < cur.Start) {
			cur.Length = uint64(cur.Entries[len(cur.Entries)-1].Offset) + 1
			cur = nil
		}
		if cur == nil {
			runs = append(runs, LineRun{
				File:      s.File,
				Start:     s.Address,
				StartLine: s.Line,
				Entries:   []LineEntry{{}},
			})
			cur = &runs[len(runs)-1]
			prev = s.Address
			continue
		}
		if s.Address == prev {
			continue
		}
		cur.Entries = append(cur.Entries, LineEntry{
			Offset: uint32(s.Address - cur.Start),
			Line:   uint32(s.Line - cur.StartLine),
		})
		prev = s.Address
	}
	if cur != nil {
		cur.Length = samples[len(samples)-1].Address - cur.Start
	}
	return runs
}
