package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, time.Second/60, c.TickRate())
	assert.Equal(t, gg.White, c.BackgroundColor())
	l, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)
}

func TestRoundTrip(t *testing.T) {
	c := Default()
	c.FrameRate = 30
	c.Rearm = true
	c.Background = "#102030"
	c.LogLevel = "debug"
	c.Stats = StatsConfig{Dir: "/tmp/stats", Format: "json", IntervalMS: 250}

	for _, name := range []string{"cfg.yaml", "cfg.yml", "cfg.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, c.Save(path))
			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, c, loaded)
		})
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("frame_rate: 120\n"), 0o644))
	c, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 120, c.FrameRate)
	assert.Equal(t, 640, c.Width)

	tomlPath := filepath.Join(dir, "partial.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("width = 800\n[stats]\nformat = \"json\"\n"), 0o644))
	c, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 800, c.Width)
	assert.Equal(t, "json", c.Stats.Format)
	assert.Equal(t, 60, c.FrameRate)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ini := filepath.Join(dir, "cfg.ini")
	require.NoError(t, os.WriteFile(ini, nil, 0o644))
	_, err = Load(ini)
	assert.ErrorContains(t, err, "unsupported config format")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("frame_rate: [\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("frame_rate: 0\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "frame_rate 0 out of range")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"size", func(c *Config) { c.Width = 0 }, "surface size"},
		{"background", func(c *Config) { c.Background = "#12345" }, "hex colour"},
		{"background chars", func(c *Config) { c.Background = "zzz" }, "hex colour"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"stats format", func(c *Config) { c.Stats = StatsConfig{Dir: "x", Format: "xml", IntervalMS: 1} }, "stats format"},
		{"stats interval", func(c *Config) { c.Stats = StatsConfig{Dir: "x", Format: "json"} }, "interval_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tt.msg)
		})
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.yaml")
	require.NoError(t, Default().Save(path))

	var mu sync.Mutex
	var got []Config
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c Config, err error) {
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
	}()

	c := Default()
	c.FrameRate = 24
	require.Eventually(t, func() bool {
		// Rewrite until the watcher is registered and reports the change.
		_ = c.Save(path)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].FrameRate == 24
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
