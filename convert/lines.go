package convert

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	dwarfhelper "dwarf2pdb/dwarf"
	"dwarf2pdb/utils"
)

// addLines runs every line number program and hands its runs to the writer.
func (s *Session) addLines() error {
	section := s.sections.Line
	for off := uint64(0); off < uint64(len(section)); {
		h, err := dwarfhelper.ReadLineHeader(section, off)
		if err != nil {
			if h == nil {
				s.diag(errors.Wrap(err, "cannot read line number program"), zap.Uint64("offset", off))
				return nil
			}
			s.diag(err, zap.Uint64("offset", off))
			off = h.End()
			continue
		}
		prog, err := dwarfhelper.RunLineProgram(section, h)
		if err != nil {
			s.diag(err, zap.Uint64("offset", off))
		}
		if err := s.flushLines(h, prog.Samples); err != nil {
			return err
		}
		off = h.End()
	}
	return nil
}

// sectionSamples is a stretch of samples inside one image section.
// segment is zero when no section contains them.
type sectionSamples struct {
	segment int
	start   uint64
	end     uint64
	samples []dwarfhelper.LineSample
}

// splitSections cuts samples wherever they move to another section. An
// address just past the end of the current section still belongs to it, as
// end_sequence rows point there.
func (s *Session) splitSections(samples []dwarfhelper.LineSample) []sectionSamples {
	var out []sectionSamples
	for _, sm := range samples {
		if n := len(out); n > 0 {
			cur := &out[n-1]
			if cur.segment > 0 && sm.Address >= cur.start && sm.Address <= cur.end {
				cur.samples = append(cur.samples, sm)
				continue
			}
		}
		segment, _, _ := s.sectionOffset(sm.Address)
		if n := len(out); n > 0 && out[n-1].segment == 0 && segment == 0 {
			out[n-1].samples = append(out[n-1].samples, sm)
			continue
		}
		group := sectionSamples{segment: segment, samples: []dwarfhelper.LineSample{sm}}
		if segment > 0 {
			sec := s.img.Sections()[segment-1]
			group.start = s.img.ImageBase() + uint64(sec.VirtualAddress)
			size := sec.VirtualSize
			if size == 0 {
				size = sec.SizeOfRawData
			}
			group.end = group.start + uint64(size)
		}
		out = append(out, group)
	}
	return out
}

// flushLines splits the samples of one program into runs and writes them.
// Runs are placed in the section that contains them; samples outside every
// section are dropped.
func (s *Session) flushLines(h *dwarfhelper.LineHeader, samples []dwarfhelper.LineSample) error {
	for _, group := range s.splitSections(samples) {
		if group.segment == 0 {
			s.log.Debug("dropping line samples outside any section",
				zap.Uint64("offset", h.Offset), zap.Uint64("address", group.samples[0].Address))
			continue
		}
		for _, run := range dwarfhelper.SplitRuns(group.samples) {
			file, ok := s.fileName(h, run.File)
			if !ok {
				s.diag(errors.Errorf("line program at %#x: no file %d", h.Offset, run.File),
					zap.Uint64("offset", h.Offset))
				continue
			}
			table := LineTable{
				File:      file,
				Segment:   group.segment,
				Offset:    uint32(run.Start - group.start),
				Length:    uint32(run.Length),
				StartLine: uint32(run.StartLine),
				Entries:   run.Entries,
			}
			if err := s.writer.AddLines(table); err != nil {
				return errors.Wrapf(err, "cannot add line number info for %s", file)
			}
		}
	}
	return nil
}

func (s *Session) fileName(h *dwarfhelper.LineHeader, file uint64) (string, bool) {
	dir, name, ok := h.FileName(file)
	if !ok {
		return "", false
	}
	if dir == "" {
		dir = s.compDirs[h.Offset]
	} else if utils.IsRelativePath(dir) {
		dir = utils.WindowsPath(s.compDirs[h.Offset], dir)
	}
	return utils.WindowsPath(dir, name), true
}
