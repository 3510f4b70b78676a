// Package config loads the engine configuration from TOML and variant manifests from YAML.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/pelletier/go-toml/v2"
)

// Config is the engine configuration.
type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Null     NullConfig     `toml:"null"`
	Log      LogConfig      `toml:"log"`
	Profiler ProfilerConfig `toml:"profiler"`
}

// RendererConfig selects the backend and the default shader-language family.
type RendererConfig struct {
	// Backend is "null" or "wgpu".
	Backend              string `toml:"backend"`
	ShaderLanguage       string `toml:"shader_language"`
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter"`
}

// NullConfig configures the null backend. Pointers distinguish an absent key from false.
type NullConfig struct {
	HalfFloat   *bool `toml:"half_float"`
	PackedColor *bool `toml:"packed_color"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ProfilerConfig struct {
	// Interval is a duration string such as "5s". "0" disables the profiler.
	Interval string `toml:"interval"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() Config {
	yes := true
	return Config{
		Renderer: RendererConfig{
			Backend:        "null",
			ShaderLanguage: string(common.LanguageGLSL),
		},
		Null: NullConfig{
			HalfFloat:   &yes,
			PackedColor: &yes,
		},
		Log:      LogConfig{Level: "notice"},
		Profiler: ProfilerConfig{Interval: "5s"},
	}
}

// Load reads a TOML configuration file and merges it over Default.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the merged configuration
//   - error: an error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML configuration data and merges it over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var file Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return Config{}, err
	}

	def := Default()
	cfg := Config{
		Renderer: RendererConfig{
			Backend:              common.Coalesce(file.Renderer.Backend, def.Renderer.Backend),
			ShaderLanguage:       common.Coalesce(file.Renderer.ShaderLanguage, def.Renderer.ShaderLanguage),
			ForceFallbackAdapter: file.Renderer.ForceFallbackAdapter,
		},
		Null: NullConfig{
			HalfFloat:   common.Coalesce(file.Null.HalfFloat, def.Null.HalfFloat),
			PackedColor: common.Coalesce(file.Null.PackedColor, def.Null.PackedColor),
		},
		Log:      LogConfig{Level: common.Coalesce(file.Log.Level, def.Log.Level)},
		Profiler: ProfilerConfig{Interval: common.Coalesce(file.Profiler.Interval, def.Profiler.Interval)},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated values.
func (c Config) Validate() error {
	switch c.Renderer.Backend {
	case "null", "wgpu":
	default:
		return fmt.Errorf("unknown backend %q", c.Renderer.Backend)
	}
	if _, err := c.Language(); err != nil {
		return err
	}
	if _, err := c.ProfilerInterval(); err != nil {
		return err
	}
	return nil
}

// Language returns the configured shader-language family.
func (c Config) Language() (common.ShaderLanguage, error) {
	switch l := common.ShaderLanguage(c.Renderer.ShaderLanguage); l {
	case common.LanguageGLSL, common.LanguageWGSL:
		return l, nil
	default:
		return "", fmt.Errorf("unknown shader language %q", c.Renderer.ShaderLanguage)
	}
}

// ProfilerInterval parses the profiler interval.
func (c Config) ProfilerInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Profiler.Interval)
	if err != nil {
		return 0, fmt.Errorf("profiler interval: %w", err)
	}
	return d, nil
}
