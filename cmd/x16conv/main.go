package main

import (
	"context"
	"io"
	"log"
	"os"

	colours "github.com/akubiczek/x16-4096-colours"
	"github.com/akubiczek/x16-4096-colours/asset"
	"github.com/akubiczek/x16-4096-colours/config"
	"github.com/akubiczek/x16-4096-colours/rgb12"
	"github.com/disintegration/imaging"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// loadConfig reads the configuration file, if any, and applies any
// explicitly set command line flags on top
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if file := c.String("config"); file != "" {
		var err error
		if cfg, err = config.Load(file); err != nil {
			return nil, err
		}
	}

	if c.IsSet("width") {
		cfg.CanvasWidth = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.CanvasHeight = c.Int("height")
	}
	if c.IsSet("strip-height") {
		cfg.StripHeight = c.Int("strip-height")
	}
	if c.IsSet("local-colors") {
		cfg.LocalColors = c.Int("local-colors")
	}
	if c.IsSet("no-rle") {
		cfg.Compress = !c.Bool("no-rle")
	}
	if c.IsSet("debug") {
		cfg.EmitDebugArtifacts = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("reducer") {
		cfg.Reducer = c.String("reducer")
	}
	if c.IsSet("resample") {
		cfg.Resample = c.String("resample")
	}
	if c.IsSet("dither") {
		cfg.Dither = c.Bool("dither")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("cache") {
		cfg.Cache = c.String("cache")
	}

	return cfg, cfg.Validate()
}

// newConverter returns a converter for the command along with a function
// to release it
func newConverter(c *cli.Context) (*colours.Converter, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	conv := colours.New(cfg, newLogger(c))
	if !c.Bool("quiet") {
		conv.Observe(newProgress(os.Stderr, cfg.LocalColors))
	}

	if cfg.Cache == "" {
		return conv, func() {}, nil
	}

	cache, err := colours.OpenCache(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	conv.UseCache(cache)

	return conv, func() { cache.Close() }, nil
}

func encodingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "width",
			Usage: "canvas width in pixels",
		},
		&cli.IntFlag{
			Name:  "height",
			Usage: "canvas height in pixels",
		},
		&cli.IntFlag{
			Name:  "strip-height",
			Usage: "height of each strip in pixels",
		},
		&cli.IntFlag{
			Name:  "local-colors",
			Usage: "number of colors in the palette of each strip",
		},
		&cli.BoolFlag{
			Name:  "no-rle",
			Usage: "disable RLE compression and save raw pixel data",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "save every strip and the final 12-bit image as PNG",
		},
		&cli.StringFlag{
			Name:  "debug-dir",
			Usage: "directory for debug images",
		},
		&cli.StringFlag{
			Name:  "reducer",
			Usage: "color reducer for strips with too many colors (median-cut, colorquant)",
		},
		&cli.StringFlag{
			Name:  "resample",
			Usage: "resampling filter used when scaling",
		},
		&cli.BoolFlag{
			Name:  "dither",
			Usage: "dither when reducing to 4096 colors",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "number of strips encoded in parallel",
		},
		&cli.StringFlag{
			Name:  "cache",
			Usage: "path to asset cache database",
		},
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "x16conv"
	app.Usage = "Commander X16 4096 color image converter"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"X16CONV_CONFIG"},
			Usage:   "path to TOML configuration file",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "don't report progress",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert an image to palette and pixel sources",
			Description: "Writes PREFIX_palettes.s and PREFIX_pixels.s",
			ArgsUsage:   "INPUT PREFIX",
			Flags:       encodingFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, release, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer release()

				if _, err := conv.Convert(c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "batch",
			Usage:       "Convert every matching image in a directory tree",
			Description: "",
			ArgsUsage:   "DIRECTORY OUTDIR",
			Flags: append(encodingFlags(), &cli.StringFlag{
				Name:  "pattern",
				Value: colours.DefaultPattern,
				Usage: "glob matched against file names",
			}),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, release, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer release()

				if err := conv.Batch(context.Background(), c.Args().Get(0), c.String("pattern"), c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "decode",
			Usage:       "Render palette and pixel sources back to an image",
			Description: "",
			ArgsUsage:   "PALETTES PIXELS OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "width",
					Value: 320,
					Usage: "image width in pixels",
				},
				&cli.IntFlag{
					Name:  "strip-height",
					Value: asset.DefaultStripHeight,
					Usage: "height of each strip in pixels",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				palettes, err := os.Open(c.Args().Get(0))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer palettes.Close()

				pixels, err := os.Open(c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer pixels.Close()

				m, err := asset.Decode(palettes, pixels, c.Int("width"), c.Int("strip-height"))
				if err != nil {
					return cli.Exit(err, 1)
				}

				if err := imaging.Save(m, c.Args().Get(2)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "colormap",
			Usage:       "Write an image of all 4096 colors",
			Description: "",
			ArgsUsage:   "OUTPUT",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				if err := imaging.Save(rgb12.Colormap(), c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
