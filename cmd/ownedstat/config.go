package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// runConfig holds the settings of one run. Values come from defaults, then
// the YAML file, then flags that were set explicitly.
type runConfig struct {
	Allocator string `yaml:"allocator"`
	Elements  int    `yaml:"elements"`
	Arrays    int    `yaml:"arrays"`
	Zeroed    bool   `yaml:"zeroed"`
	Format    string `yaml:"format"`
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
}

func defaultConfig() runConfig {
	return runConfig{
		Allocator: "heap",
		Elements:  1024,
		Arrays:    100,
		Format:    "text",
		LogLevel:  "info",
	}
}

// bindFlags registers the config fields on fs with cfg's values as defaults.
func (c *runConfig) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Allocator, "allocator", c.Allocator, "block source: heap, arena, pool, mmap or locked")
	fs.IntVar(&c.Elements, "elements", c.Elements, "elements per array")
	fs.IntVar(&c.Arrays, "arrays", c.Arrays, "number of arrays to build")
	fs.BoolVar(&c.Zeroed, "zeroed", c.Zeroed, "zero-initialize arrays")
	fs.StringVar(&c.Format, "format", c.Format, "output format: text or json")
	fs.StringVar(&c.Listen, "listen", c.Listen, "serve /metrics on this address until interrupted")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// loadConfig reads path into a copy of base and then re-applies every flag
// the user set on fs, so flags win over the file.
func loadConfig(path string, base runConfig, fs *pflag.FlagSet) (runConfig, error) {
	if path == "" {
		return base, base.validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return runConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "allocator":
			cfg.Allocator = base.Allocator
		case "elements":
			cfg.Elements = base.Elements
		case "arrays":
			cfg.Arrays = base.Arrays
		case "zeroed":
			cfg.Zeroed = base.Zeroed
		case "format":
			cfg.Format = base.Format
		case "listen":
			cfg.Listen = base.Listen
		case "log-level":
			cfg.LogLevel = base.LogLevel
		}
	})
	return cfg, cfg.validate()
}

func (c runConfig) validate() error {
	switch c.Allocator {
	case "heap", "arena", "pool", "mmap", "locked":
	default:
		return fmt.Errorf("unknown allocator %q", c.Allocator)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Elements < 0 || c.Arrays < 0 {
		return fmt.Errorf("elements and arrays must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
