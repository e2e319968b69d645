package convert

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dwarf2pdb/codeview"
	dwarfhelper "dwarf2pdb/dwarf"
)

var (
	ErrNoDebugInfo   = errors.New("image has no .debug_info section")
	ErrNoDebugLine   = errors.New("image has no .debug_line section")
	ErrIndexMismatch = errors.New("type index differs between passes")
)

const (
	typeArenaSize   = 64 << 10
	symbolArenaSize = 64 << 10
)

type public struct {
	name    string
	segment int
	offset  uint32
	typ     codeview.TypeIndex
}

type contribution struct {
	segment int
	offset  uint32
	size    uint32
}

// Session converts the DWARF data of one image. It is used once and is not
// safe for concurrent use.
type Session struct {
	img      Image
	sections *dwarfhelper.Sections
	writer   Writer
	config   config
	log      *zap.Logger
	emit     codeview.Emitter

	units []*dwarfhelper.Unit

	userTypes  *codeview.Arena
	fieldLists *codeview.Arena
	symbols    *codeview.Arena

	// offset2type maps the DIE offset of every type-bearing entry to the
	// index assigned in the first pass.
	offset2type   map[uint64]codeview.TypeIndex
	nextUserType  codeview.TypeIndex
	nextFieldList codeview.TypeIndex

	codeSegOffset uint64
	pointerAttr   uint32

	publics       []public
	contributions []contribution
	// compDirs maps a line program offset to the compilation directory of
	// the unit that owns it.
	compDirs map[uint64]string

	diagnostics *multierror.Error
}

func NewSession(img Image, sections *dwarfhelper.Sections, writer Writer, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	s := &Session{
		img:         img,
		sections:    sections,
		writer:      writer,
		config:      cfg,
		log:         cfg.logger,
		emit:        codeview.Emitter{V3: cfg.v3},
		offset2type: make(map[uint64]codeview.TypeIndex),
		compDirs:    make(map[uint64]string),
		pointerAttr: codeview.PointerAttr32,
	}
	if img.Is64() {
		s.pointerAttr = codeview.PointerAttr64
	}
	return s
}

// Diagnostics returns the unsupported constructs that were skipped during
// conversion, or nil.
func (s *Session) Diagnostics() error {
	return s.diagnostics.ErrorOrNil()
}

func (s *Session) diag(err error, fields ...zap.Field) {
	s.log.Debug(err.Error(), fields...)
	s.diagnostics = multierror.Append(s.diagnostics, err)
}

// Convert runs the whole conversion. Types and symbols reach the writer only
// after both passes succeeded.
func (s *Session) Convert() error {
	if s.sections == nil || len(s.sections.Info) == 0 {
		return ErrNoDebugInfo
	}
	if len(s.sections.Line) == 0 {
		return ErrNoDebugLine
	}
	units, err := dwarfhelper.ReadUnits(s.sections)
	if err != nil {
		return errors.Wrap(err, "cannot read compilation units")
	}
	s.units = units
	s.log.Debug("read compilation units", zap.Int("units", len(units)))

	if err := s.addSections(); err != nil {
		return err
	}
	s.initStreams()
	if err := s.mapTypes(); err != nil {
		return err
	}
	if err := s.createTypes(); err != nil {
		return err
	}
	if err := s.commit(); err != nil {
		return err
	}
	return s.addLines()
}

func (s *Session) addSections() error {
	s.codeSegOffset = s.img.ImageBase()
	for i, sec := range s.img.Sections() {
		if err := s.writer.AddSection(i+1, codeview.SectionFlags, 0, sec.SizeOfRawData); err != nil {
			return errors.Wrapf(err, "cannot add section %d", i+1)
		}
		if i == s.img.CodeSegment() {
			s.codeSegOffset += uint64(sec.VirtualAddress)
		}
	}
	return nil
}

func (s *Session) initStreams() {
	limit := s.config.arenaLimit
	s.userTypes = codeview.NewArena(typeArenaSize, limit)
	s.fieldLists = codeview.NewArena(typeArenaSize, limit)
	s.symbols = codeview.NewArena(symbolArenaSize, limit)

	s.userTypes.PutU32(codeview.Signature)
	codeview.EndRecord(s.userTypes, s.emit.BeginFieldList(s.userTypes))

	s.symbols.PutU32(codeview.Signature)
	s.emit.SSearch(s.symbols, s.img.CodeSegment()+1, 0)
	s.emit.Compiland(s.symbols, s.img.Is64(), codeview.CompilandName)
}

func (s *Session) arenaErr() error {
	for _, a := range []*codeview.Arena{s.userTypes, s.fieldLists, s.symbols} {
		if err := a.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) commit() error {
	s.userTypes.Append(s.fieldLists)
	if err := s.arenaErr(); err != nil {
		return errors.Wrap(err, "cannot build debug streams")
	}
	if len(s.contributions) == 0 {
		s.wholeCodeContribution()
	}
	for _, c := range s.contributions {
		if err := s.writer.AddSectionContribution(c.segment, c.offset, c.size, codeview.ContribFlags); err != nil {
			return errors.Wrap(err, "cannot add section contribution to module")
		}
	}
	if err := s.writer.AddTypes(s.userTypes.Bytes()); err != nil {
		return errors.Wrap(err, "cannot add type info to module")
	}
	if err := s.writer.AddSymbols(s.symbols.Bytes()); err != nil {
		return errors.Wrap(err, "cannot add symbols to module")
	}
	for _, p := range s.publics {
		if err := s.writer.AddPublic(p.name, p.segment, p.offset, p.typ); err != nil {
			return errors.Wrapf(err, "cannot add public %s", p.name)
		}
	}
	s.log.Info("committed debug streams",
		zap.Int("types", int(s.nextFieldList-codeview.EmptyFieldList)),
		zap.Int("typeBytes", s.userTypes.Len()),
		zap.Int("symbolBytes", s.symbols.Len()),
		zap.Int("publics", len(s.publics)))
	return nil
}

func (s *Session) wholeCodeContribution() {
	code := s.img.CodeSegment()
	sections := s.img.Sections()
	if code < 0 || code >= len(sections) {
		return
	}
	s.contributions = append(s.contributions, contribution{
		segment: code + 1,
		size:    sections[code].VirtualSize,
	})
}

// sectionOffset resolves a virtual address to a 1-based segment and the
// offset inside it.
func (s *Session) sectionOffset(va uint64) (int, uint32, bool) {
	idx := s.img.FindSection(va)
	sections := s.img.Sections()
	if idx < 0 || idx >= len(sections) {
		return 0, 0, false
	}
	base := s.img.ImageBase() + uint64(sections[idx].VirtualAddress)
	return idx + 1, uint32(va - base), true
}

func (s *Session) addPublic(name string, segment int, offset uint32, typ codeview.TypeIndex) {
	s.publics = append(s.publics, public{name: name, segment: segment, offset: offset, typ: typ})
}
