// package config loads the settings for the synth from a JSON file.
package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/pfcm/synth"
	"github.com/pfcm/synth/hid"
	"github.com/pfcm/synth/io"
)

// DefaultPath is where the config lives unless told otherwise.
const DefaultPath = "~/.config/synth/config.json"

// Duration is a time.Duration written as a string like "600ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return errors.Wrap(err, "parsing duration")
	}
	*d = Duration(v)
	return nil
}

// Config is everything the synth can be told at startup.
type Config struct {
	Audio io.StreamConfig `json:"audio"`
	// Instrument is the name of the instrument to start with.
	Instrument string `json:"instrument"`
	// Instruments are extra patches, on top of the built in ones.
	Instruments []*synth.Patch `json:"instruments,omitempty"`
	// Mode is "poly" or "mono".
	Mode string `json:"mode"`
	// Hold is how long a key counts as held after its last repeat.
	Hold     Duration `json:"hold"`
	Headroom float64  `json:"headroom"`
	// Scope is how many recent samples the UI draws.
	Scope int `json:"scope"`
}

// Default returns the built in settings.
func Default() *Config {
	return &Config{
		Audio:      io.DefaultStreamConfig(),
		Instrument: synth.Bell().Name,
		Mode:       hid.Poly.String(),
		Hold:       Duration(hid.DefaultHold),
		Headroom:   synth.DefaultHeadroom,
		Scope:      1024,
	}
}

// Path expands a leading ~ in path. An empty path means DefaultPath.
func Path(path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Wrapf(err, "expanding %q", path)
	}
	return p, nil
}

// Load reads the config at path over the defaults. A missing file is not an
// error: it just gives the defaults.
func Load(path string) (*Config, error) {
	p, err := Path(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "reading config")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", p)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", p)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory if needed.
func (c *Config) Save(path string) error {
	p, err := Path(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(os.WriteFile(p, data, 0644), "writing config")
}

// Validate checks every setting, including that the starting instrument
// exists.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if _, err := c.KeyMode(); err != nil {
		return err
	}
	if c.Hold <= 0 {
		return errors.Errorf("hold must be positive, got %v", time.Duration(c.Hold))
	}
	if math.IsNaN(c.Headroom) || c.Headroom <= 0 || c.Headroom > 1 {
		return errors.Errorf("headroom must be in (0, 1], got %v", c.Headroom)
	}
	if c.Scope < 1 {
		return errors.Errorf("scope must be positive, got %d", c.Scope)
	}
	r, err := c.Registry()
	if err != nil {
		return err
	}
	_, err = r.Lookup(c.Instrument)
	return err
}

// KeyMode parses Mode.
func (c *Config) KeyMode() (hid.Mode, error) {
	return hid.ParseMode(c.Mode)
}

// Registry returns the built in instruments plus the configured ones.
func (c *Config) Registry() (*synth.Registry, error) {
	r, err := synth.NewRegistry(c.Instruments...)
	return r, errors.Wrap(err, "loading instruments")
}
