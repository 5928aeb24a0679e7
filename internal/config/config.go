// Package config loads glyphgraph CLI configuration.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default configuration values.
const (
	DefaultResolution    = 512
	DefaultFidelity      = 128
	DefaultCacheCapacity = 4096
	DefaultLogLevel      = "warn"
	DefaultFormat        = FormatSVG

	EnvPrefix = "GLYPHGRAPH_"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Config holds all CLI configuration options.
type Config struct {
	Resolution    int    `koanf:"resolution"`
	Fidelity      int    `koanf:"fidelity"`
	CacheCapacity int    `koanf:"cache_capacity"`
	LogLevel      string `koanf:"log_level"`
	Format        string `koanf:"format"`
	Output        string `koanf:"output"`
}

// configFileNames are searched in the working directory when no explicit
// file is given.
var configFileNames = []string{"glyphgraph.yaml", "glyphgraph.yml"}

var (
	k              = koanf.New(".")
	configFileUsed string
)

// findConfigFile returns the explicit path, or the first config file found
// in the working directory, or "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// Load loads configuration from defaults, the config file, GLYPHGRAPH_*
// environment variables and explicitly set flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"resolution":     DefaultResolution,
		"fidelity":       DefaultFidelity,
		"cache_capacity": DefaultCacheCapacity,
		"log_level":      DefaultLogLevel,
		"format":         DefaultFormat,
		"output":         "",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// GLYPHGRAPH_CACHE_CAPACITY -> cache_capacity
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Resolution <= 0 {
		return fmt.Errorf("invalid resolution %d: must be positive", c.Resolution)
	}
	if c.Fidelity <= 0 {
		return fmt.Errorf("invalid fidelity %d: must be positive", c.Fidelity)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("invalid cache_capacity %d: must not be negative", c.CacheCapacity)
	}
	switch c.Format {
	case FormatSVG, FormatPNG:
	default:
		return fmt.Errorf("invalid format %q: want %s or %s", c.Format, FormatSVG, FormatPNG)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level, or warn when unparseable.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return l
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return l, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
