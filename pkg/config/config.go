// Package config handles dirplayer.toml player configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/engine"
	"github.com/zurustar/dirplayer/pkg/textenc"
	"github.com/zurustar/dirplayer/pkg/vm"
)

// FileName is the configuration file looked up next to a movie.
const FileName = "dirplayer.toml"

// Config represents a dirplayer.toml file.
type Config struct {
	Player Player `toml:"player"`
	Debug  Debug  `toml:"debug"`
	Events Events `toml:"events"`
	Export Export `toml:"export"`

	// Path is the file the configuration was read from, empty for
	// defaults.
	Path string `toml:"-"`
}

// Player configures playback.
type Player struct {
	FPS          int      `toml:"fps"`
	Timeout      Duration `toml:"timeout"`
	TextEncoding string   `toml:"text_encoding"`
	StageWidth   int      `toml:"stage_width"`
	StageHeight  int      `toml:"stage_height"`
}

// Debug configures the debugger.
type Debug struct {
	// Breakpoints are "script:handler:index" strings set before playback.
	Breakpoints []string `toml:"breakpoints"`
	Console     bool     `toml:"console"`
}

// Events configures event dispatch.
type Events struct {
	Order           []string `toml:"order"`
	AlwaysPropagate []string `toml:"always_propagate"`
}

// Export configures member export.
type Export struct {
	Dir string `toml:"dir"`
}

// Duration is a time.Duration written as "30s" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %s", v)
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Player: Player{TextEncoding: textenc.Default},
		Events: Events{Order: []string{"sprite", "frame", "movie"}},
	}
}

// Load parses a configuration file. Unknown keys are rejected so typos do
// not go unnoticed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// Parse decodes configuration text over the defaults and validates it.
func Parse(text string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ForMovie loads dirplayer.toml from the movie's directory, or returns
// the defaults when there is none.
func ForMovie(moviePath string) (*Config, error) {
	path := filepath.Join(filepath.Dir(moviePath), FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every value that has a fixed range or syntax.
func (c *Config) Validate() error {
	var errs []error
	if f := c.Player.FPS; f != 0 && (f < engine.MinFPS || f > engine.MaxFPS) {
		errs = append(errs, fmt.Errorf("player.fps: %d out of range %d-%d", f, engine.MinFPS, engine.MaxFPS))
	}
	if c.Player.StageWidth < 0 || c.Player.StageHeight < 0 {
		errs = append(errs, errors.New("player.stage_width and stage_height must not be negative"))
	}
	if _, err := textenc.Lookup(c.Player.TextEncoding); err != nil {
		errs = append(errs, fmt.Errorf("player.text_encoding: %w", err))
	}
	if _, err := c.Breakpoints(); err != nil {
		errs = append(errs, fmt.Errorf("debug.breakpoints: %w", err))
	}
	if len(c.Events.Order) > 0 {
		if _, err := vm.ParseDispatchOrder(c.Events.Order); err != nil {
			errs = append(errs, fmt.Errorf("events.order: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Encoding returns the configured text encoding.
func (c *Config) Encoding() (encoding.Encoding, error) {
	return textenc.Lookup(c.Player.TextEncoding)
}

// Breakpoints parses debug.breakpoints.
func (c *Config) Breakpoints() ([]vm.Breakpoint, error) {
	out := make([]vm.Breakpoint, 0, len(c.Debug.Breakpoints))
	for _, s := range c.Debug.Breakpoints {
		bp, err := vm.ParseBreakpoint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, nil
}

// VMOptions converts the event and breakpoint settings to VM options.
func (c *Config) VMOptions() ([]vm.Option, error) {
	var opts []vm.Option
	if len(c.Events.Order) > 0 {
		order, err := vm.ParseDispatchOrder(c.Events.Order)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vm.WithDispatchOrder(order))
	}
	if len(c.Events.AlwaysPropagate) > 0 {
		opts = append(opts, vm.WithAlwaysPropagate(c.Events.AlwaysPropagate...))
	}
	bps, err := c.Breakpoints()
	if err != nil {
		return nil, err
	}
	if len(bps) > 0 {
		opts = append(opts, vm.WithBreakpoints(bps...))
	}
	return opts, nil
}

// PlayerOptions converts the configuration to engine options, including
// the VM options.
func (c *Config) PlayerOptions() ([]engine.Option, error) {
	enc, err := c.Encoding()
	if err != nil {
		return nil, err
	}
	vmOpts, err := c.VMOptions()
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{engine.WithTextEncoding(enc), engine.WithVMOptions(vmOpts...)}
	if c.Player.FPS > 0 {
		opts = append(opts, engine.WithFPS(c.Player.FPS))
	}
	if c.Player.Timeout.Duration > 0 {
		opts = append(opts, engine.WithTimeout(c.Player.Timeout.Duration))
	}
	if c.Player.StageWidth > 0 && c.Player.StageHeight > 0 {
		opts = append(opts, engine.WithStageSize(c.Player.StageWidth, c.Player.StageHeight))
	}
	return opts, nil
}
