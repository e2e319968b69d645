package peimage

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"strings"

	"github.com/pkg/errors"

	dwarfhelper "dwarf2pdb/dwarf"
)

func dwarfSuffix(name string) string {
	switch {
	case strings.HasPrefix(name, ".debug_"):
		return name[7:]
	case strings.HasPrefix(name, ".zdebug_"):
		return name[8:]
	default:
		return ""
	}
}

// decompress inflates a section that starts with the "ZLIB" magic and its
// big-endian uncompressed size. Other data is returned unchanged.
func decompress(b []byte) ([]byte, error) {
	if len(b) < 12 || string(b[:4]) != "ZLIB" {
		return b, nil
	}
	dlen := binary.BigEndian.Uint64(b[4:12])
	r, err := zlib.NewReader(bytes.NewReader(b[12:]))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(dlen)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DWARFSections reads the DWARF sections of the image. Raw section data is
// cut to the section's virtual size to drop file alignment padding.
func (img *Image) DWARFSections() (*dwarfhelper.Sections, error) {
	sec := &dwarfhelper.Sections{}
	targets := map[string]*[]byte{
		"info":     &sec.Info,
		"abbrev":   &sec.Abbrev,
		"line":     &sec.Line,
		"ranges":   &sec.Ranges,
		"str":      &sec.Str,
		"line_str": &sec.LineStr,
	}
	for _, s := range img.file.Sections {
		dst, ok := targets[dwarfSuffix(s.Name)]
		if !ok {
			continue
		}
		b, err := s.Data()
		if err != nil && uint32(len(b)) < s.Size {
			return nil, errors.Wrapf(err, "cannot read section %s", s.Name)
		}
		if s.VirtualSize > 0 && s.VirtualSize < uint32(len(b)) {
			b = b[:s.VirtualSize]
		}
		if b, err = decompress(b); err != nil {
			return nil, errors.Wrapf(err, "cannot decompress section %s", s.Name)
		}
		*dst = b
	}
	return sec, nil
}
