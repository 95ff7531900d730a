/*
Package config holds the settings shared by every conversion.

Settings can be loaded from a TOML file:

	canvas_width = 320
	canvas_height = 240
	strip_height = 8
	local_colors = 16
	compress = true
	emit_debug_artifacts = false
	debug_dir = "build/temp"
	reducer = "median-cut"
	resample = "lanczos"
	dither = false
	workers = 0
	cache = ""
*/
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/akubiczek/x16-4096-colours/asset"
	"github.com/akubiczek/x16-4096-colours/preprocess"
	"github.com/akubiczek/x16-4096-colours/strip"
)

// Config describes how images are converted.
type Config struct {
	CanvasWidth  int  `toml:"canvas_width"`
	CanvasHeight int  `toml:"canvas_height"`
	StripHeight  int  `toml:"strip_height"`
	LocalColors  int  `toml:"local_colors"`
	Compress     bool `toml:"compress"`

	EmitDebugArtifacts bool   `toml:"emit_debug_artifacts"`
	DebugDir           string `toml:"debug_dir"`

	Reducer  string `toml:"reducer"`
	Resample string `toml:"resample"`
	Dither   bool   `toml:"dither"`
	Workers  int    `toml:"workers"`

	// Cache is the path of the asset cache database, disabled if empty
	Cache string `toml:"cache"`
}

// Default returns the settings for a full screen X16 bitmap.
func Default() *Config {
	return &Config{
		CanvasWidth:  320,
		CanvasHeight: 240,
		StripHeight:  asset.DefaultStripHeight,
		LocalColors:  asset.DefaultCapacity,
		Compress:     true,
		DebugDir:     "build/temp",
		Reducer:      "median-cut",
		Resample:     "lanczos",
	}
}

// Load reads the TOML file at path on top of the defaults. Unknown keys are
// an error.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return c, nil
}

// Validate checks every setting, returning an *asset.ConfigError for the
// first invalid one.
func (c *Config) Validate() error {
	if c.CanvasWidth <= 0 {
		return &asset.ConfigError{Field: "canvas width", Value: c.CanvasWidth, Msg: "must be positive"}
	}
	if c.CanvasHeight <= 0 {
		return &asset.ConfigError{Field: "canvas height", Value: c.CanvasHeight, Msg: "must be positive"}
	}
	if _, err := strip.ReducerByName(c.Reducer); err != nil {
		return &asset.ConfigError{Field: "reducer", Value: c.Reducer, Msg: err.Error()}
	}
	if _, err := preprocess.ScalerByName(c.Resample); err != nil {
		return &asset.ConfigError{Field: "resample", Value: c.Resample, Msg: err.Error()}
	}
	if c.EmitDebugArtifacts && c.DebugDir == "" {
		return &asset.ConfigError{Field: "debug dir", Value: c.DebugDir, Msg: "required when emitting debug artifacts"}
	}
	o := asset.Options{StripHeight: c.StripHeight, Capacity: c.LocalColors}
	return o.Validate()
}

// EncoderOptions returns the asset encoder options for c.
func (c *Config) EncoderOptions() (asset.Options, error) {
	if err := c.Validate(); err != nil {
		return asset.Options{}, err
	}
	r, err := strip.ReducerByName(c.Reducer)
	if err != nil {
		return asset.Options{}, err
	}
	return asset.Options{
		StripHeight: c.StripHeight,
		Capacity:    c.LocalColors,
		Compress:    c.Compress,
		Reducer:     r,
		Workers:     c.Workers,
	}, nil
}

// Scaler returns the scaler used for letterboxing.
func (c *Config) Scaler() (preprocess.Scaler, error) {
	return preprocess.ScalerByName(c.Resample)
}

// Fingerprint returns a string covering every setting that affects the
// generated artifacts.
func (c *Config) Fingerprint() string {
	return fmt.Sprintf("%dx%d/%d/%d/%t/%s/%s/%t",
		c.CanvasWidth, c.CanvasHeight, c.StripHeight, c.LocalColors,
		c.Compress, c.Reducer, c.Resample, c.Dither)
}
