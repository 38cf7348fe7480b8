// config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxFrames = 256
	DefaultLogLevel  = "warn"
)

// Config holds interpreter and front-end settings.
type Config struct {
	Path        string            `yaml:"-"`
	MaxFrames   int               `yaml:"max_frames"`
	ModulePaths []string          `yaml:"module_paths"`
	LogLevel    string            `yaml:"log_level"`
	HistoryFile string            `yaml:"history_file"`
	Directives  map[string]string `yaml:"directives"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		MaxFrames:  DefaultMaxFrames,
		LogLevel:   DefaultLogLevel,
		Directives: map[string]string{},
	}
}

// Load parses a YAML config file; unknown keys are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Path = abs
	return cfg, nil
}

// Decode reads YAML from r on top of the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxFrames <= 0 {
		return fmt.Errorf("max_frames must be positive, got %d", c.MaxFrames)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Directives == nil {
		c.Directives = map[string]string{}
	}
	return nil
}

// SearchPaths returns module directories with base (the entry script's
// directory) first.
func (c *Config) SearchPaths(base string) []string {
	out := []string{base}
	for _, p := range c.ModulePaths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, os.ExpandEnv(p))
		}
	}
	return out
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// Logger builds the text logger used by the front ends.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
