package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "dwarf2pdb",
		Usage: "convert DWARF debug information to CodeView",
		Commands: []*cli.Command{
			{
				Name:    "convert",
				Aliases: []string{"c"},
				Usage:   "convert the DWARF sections of a PE image",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "input image path",
						Required: true,
					},
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Usage:       "output directory",
						Value:       "./",
						DefaultText: "./",
					},
					&cli.BoolFlag{
						Name:  "v2",
						Usage: "emit length-prefixed names and the older record ids",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum size of each output stream in bytes, 0 for none",
					},
					&cli.StringFlag{
						Name:  "dot",
						Usage: "replacement for '.' in global data names",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "log every diagnostic",
					},
				},
				Action: func(c *cli.Context) error {
					logger, err := newLogger(c.Bool("verbose"))
					if err != nil {
						return err
					}
					defer logger.Sync()
					return ConvertHelper(logger, convertArgs{
						input:  c.String("input"),
						output: c.String("output"),
						v2:     c.Bool("v2"),
						limit:  c.Int("limit"),
						dot:    c.String("dot"),
					})
				},
			},
			{
				Name:    "units",
				Aliases: []string{"u"},
				Usage:   "list the compilation units of a PE image",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "input image path",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					return UnitsHelper(os.Stdout, c.String("input"))
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
