package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dwarf2pdb/convert"
	dwarfhelper "dwarf2pdb/dwarf"
	"dwarf2pdb/peimage"
	"dwarf2pdb/sink"
)

type convertArgs struct {
	input  string
	output string
	v2     bool
	limit  int
	dot    string
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func ConvertHelper(logger *zap.Logger, args convertArgs) error {
	img, err := peimage.Open(args.input)
	if err != nil {
		return err
	}
	defer img.Close()
	sections, err := img.DWARFSections()
	if err != nil {
		return err
	}

	opts := []convert.Option{
		convert.WithLogger(logger),
		convert.WithV3Records(!args.v2),
		convert.WithArenaLimit(args.limit),
	}
	if len(args.dot) > 0 {
		opts = append(opts, convert.WithDotReplacement(args.dot[0]))
	}
	rec := sink.NewRecorder()
	session := convert.NewSession(img, sections, rec, opts...)
	if err := session.Convert(); err != nil {
		return errors.Wrapf(err, "cannot convert %s", args.input)
	}
	if diags := session.Diagnostics(); diags != nil {
		logger.Warn("conversion finished with diagnostics", zap.Error(diags))
	}
	if err := rec.Dump(args.output); err != nil {
		return err
	}
	logger.Info("written",
		zap.String("dir", args.output),
		zap.Int("types", rec.TypeBytes),
		zap.Int("symbols", rec.SymbolBytes),
		zap.Int("publics", len(rec.Publics)),
		zap.Int("lines", len(rec.Lines)))
	return nil
}

func UnitsHelper(w io.Writer, ipath string) error {
	img, err := peimage.Open(ipath)
	if err != nil {
		return err
	}
	defer img.Close()
	sections, err := img.DWARFSections()
	if err != nil {
		return err
	}
	units, err := dwarfhelper.ReadUnits(sections)
	if err != nil {
		return err
	}
	for _, u := range units {
		name, count, err := describeUnit(u)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%#08x\tv%d\taddr%d\t%d DIEs\t%s\n", u.Offset, u.Version, u.AddressSize, count, name)
		if err != nil {
			return err
		}
	}
	return nil
}

func describeUnit(u *dwarfhelper.Unit) (string, int, error) {
	var (
		name  string
		count int
	)
	c := u.Cursor()
	for {
		e, ok := c.ReadNext(false)
		if !ok {
			break
		}
		if count == 0 {
			name = e.Name
		}
		count++
	}
	return name, count, c.Err()
}
