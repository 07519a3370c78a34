// Package config loads demo and embedder settings from YAML or TOML files
// and watches them for changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogpu/gg"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a pump, its surface and its stats output.
type Config struct {
	FrameRate  int         `yaml:"frame_rate" toml:"frame_rate"`
	Rearm      bool        `yaml:"rearm" toml:"rearm"`
	Width      int         `yaml:"width" toml:"width"`
	Height     int         `yaml:"height" toml:"height"`
	Background string      `yaml:"background" toml:"background"`
	LogLevel   string      `yaml:"log_level" toml:"log_level"`
	Stats      StatsConfig `yaml:"stats" toml:"stats"`
}

// StatsConfig controls periodic stats snapshots. An empty Dir disables them.
type StatsConfig struct {
	Dir        string `yaml:"dir" toml:"dir"`
	Format     string `yaml:"format" toml:"format"`
	IntervalMS int    `yaml:"interval_ms" toml:"interval_ms"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		FrameRate:  60,
		Width:      640,
		Height:     480,
		Background: "#ffffff",
		LogLevel:   "info",
		Stats: StatsConfig{
			Format:     "yaml",
			IntervalMS: 1000,
		},
	}
}

// Load reads path, choosing the decoder by extension. Fields missing from
// the file keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("yaml unmarshal %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("toml unmarshal %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path in the format implied by its extension.
func (c Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		data, err = toml.Marshal(c)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.FrameRate <= 0 || c.FrameRate > 1000 {
		errs = append(errs, fmt.Errorf("frame_rate %d out of range (1-1000)", c.FrameRate))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("surface size %dx%d must be positive", c.Width, c.Height))
	}
	if !validHex(c.Background) {
		errs = append(errs, fmt.Errorf("background %q is not a hex colour", c.Background))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Stats.Dir != "" {
		switch c.Stats.Format {
		case "json", "yaml", "yml":
		default:
			errs = append(errs, fmt.Errorf("stats format %q must be json or yaml", c.Stats.Format))
		}
		if c.Stats.IntervalMS <= 0 {
			errs = append(errs, fmt.Errorf("stats interval_ms %d must be positive", c.Stats.IntervalMS))
		}
	}
	return errors.Join(errs...)
}

// TickRate is the frame period implied by FrameRate.
func (c Config) TickRate() time.Duration {
	if c.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FrameRate)
}

// StatsInterval is the snapshot period.
func (c Config) StatsInterval() time.Duration {
	return time.Duration(c.Stats.IntervalMS) * time.Millisecond
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// BackgroundColor parses Background.
func (c Config) BackgroundColor() gg.RGBA {
	return gg.Hex(c.Background)
}

func validHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
