package sink

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"dwarf2pdb/codeview"
	"dwarf2pdb/convert"
)

const (
	TypesFile    = "types.bin"
	SymbolsFile  = "symbols.bin"
	ManifestFile = "manifest.yaml"
)

type Section struct {
	Segment int    `yaml:"segment"`
	Flags   uint16 `yaml:"flags"`
	Offset  uint32 `yaml:"offset"`
	Size    uint32 `yaml:"size"`
}

type Contribution struct {
	Segment         int    `yaml:"segment"`
	Offset          uint32 `yaml:"offset"`
	Size            uint32 `yaml:"size"`
	Characteristics uint32 `yaml:"characteristics"`
}

type Public struct {
	Name    string             `yaml:"name"`
	Segment int                `yaml:"segment"`
	Offset  uint32             `yaml:"offset"`
	Type    codeview.TypeIndex `yaml:"type"`
}

// Manifest is everything except the two raw streams.
type Manifest struct {
	Sections      []Section           `yaml:"sections"`
	Contributions []Contribution      `yaml:"contributions"`
	Publics       []Public            `yaml:"publics"`
	Lines         []convert.LineTable `yaml:"lines"`
	TypeBytes     int                 `yaml:"type_bytes"`
	SymbolBytes   int                 `yaml:"symbol_bytes"`
}

// Recorder keeps the output of a conversion in memory.
type Recorder struct {
	Manifest
	Types   []byte
	Symbols []byte
}

var _ convert.Writer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) AddSection(segment int, flags uint16, offset, size uint32) error {
	r.Sections = append(r.Sections, Section{Segment: segment, Flags: flags, Offset: offset, Size: size})
	return nil
}

func (r *Recorder) AddSectionContribution(segment int, offset, size, characteristics uint32) error {
	r.Contributions = append(r.Contributions, Contribution{
		Segment:         segment,
		Offset:          offset,
		Size:            size,
		Characteristics: characteristics,
	})
	return nil
}

func (r *Recorder) AddTypes(types []byte) error {
	if r.Types != nil {
		return errors.New("types already added")
	}
	r.Types = append([]byte(nil), types...)
	r.TypeBytes = len(r.Types)
	return nil
}

func (r *Recorder) AddSymbols(symbols []byte) error {
	if r.Symbols != nil {
		return errors.New("symbols already added")
	}
	r.Symbols = append([]byte(nil), symbols...)
	r.SymbolBytes = len(r.Symbols)
	return nil
}

func (r *Recorder) AddPublic(name string, segment int, offset uint32, typ codeview.TypeIndex) error {
	r.Publics = append(r.Publics, Public{Name: name, Segment: segment, Offset: offset, Type: typ})
	return nil
}

func (r *Recorder) AddLines(lines convert.LineTable) error {
	r.Lines = append(r.Lines, lines)
	return nil
}

// Dump writes the type and symbol streams and a YAML manifest into dir.
func (r *Recorder) Dump(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create %s", dir)
	}
	if err := os.WriteFile(filepath.Join(dir, TypesFile), r.Types, 0o644); err != nil {
		return errors.Wrap(err, "cannot write type stream")
	}
	if err := os.WriteFile(filepath.Join(dir, SymbolsFile), r.Symbols, 0o644); err != nil {
		return errors.Wrap(err, "cannot write symbol stream")
	}
	out, err := yaml.Marshal(&r.Manifest)
	if err != nil {
		return errors.Wrap(err, "cannot encode manifest")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, ManifestFile), out, 0o644), "cannot write manifest")
}

// LoadManifest reads a manifest written by Dump.
func LoadManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "cannot decode manifest")
	}
	return &m, nil
}
