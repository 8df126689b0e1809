// Package config loads the configuration of a rendering context from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned when a file extension is neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown config format")

// maxConfigSize bounds the size of a config file.
const maxConfigSize = 1024 * 1024

// Backend names accepted in Config.Backend.
const (
	BackendHeadless = "headless"
	BackendNaga     = "naga"
	BackendWGPU     = "wgpu"
)

// Profiler configures the per-frame statistics logger.
type Profiler struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Interval is a Go duration string such as "1s".
	Interval string `yaml:"interval" toml:"interval"`
}

// Config is the configuration of one rendering context.
type Config struct {
	// Backend selects the effect compiler: headless, naga or wgpu.
	Backend string `yaml:"backend" toml:"backend"`

	// Language is the shading language sources are written in.
	Language shader.Language `yaml:"language" toml:"language"`

	// ParallelCompile compiles effects on a worker pool when the backend allows it.
	ParallelCompile bool `yaml:"parallel_compile" toml:"parallel_compile"`
	Workers         int  `yaml:"workers" toml:"workers"`
	QueueSize       int  `yaml:"queue_size" toml:"queue_size"`

	// ShaderDir is loaded on top of the embedded shaders when set.
	ShaderDir string `yaml:"shader_dir" toml:"shader_dir"`

	// Watch reloads ShaderDir on change.
	Watch bool `yaml:"watch" toml:"watch"`

	Caps     defines.Caps `yaml:"caps" toml:"caps"`
	Profiler Profiler     `yaml:"profiler" toml:"profiler"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: headless WGSL compilation with default capabilities
func Default() Config {
	return Config{
		Backend:         BackendHeadless,
		Language:        shader.LanguageWGSL,
		ParallelCompile: true,
		Workers:         4,
		QueueSize:       256,
		Caps:            defines.DefaultCaps(),
		Profiler:        Profiler{Interval: "1s"},
		LogLevel:        "info",
	}
}

// Load reads a config file, choosing the decoder by extension. Fields missing from the file
// keep their Default value.
//
// Parameters:
//   - path: a .yaml, .yml or .toml file
//
// Returns:
//   - Config: the decoded and validated configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.Size() > maxConfigSize {
		return Config{}, fmt.Errorf("config %s: file too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes data in the format named by ext on top of Default.
//
// Parameters:
//   - ext: the file extension including the dot
//   - data: the file contents
//
// Returns:
//   - Config: the decoded and validated configuration
//   - error: ErrUnknownFormat, a decode error or a validation error
func Decode(ext string, data []byte) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendHeadless, BackendNaga, BackendWGPU:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize))
	}
	if c.Watch && c.ShaderDir == "" {
		errs = append(errs, errors.New("watch requires shader_dir"))
	}
	if c.Caps.MaxDrawBuffers < 0 {
		errs = append(errs, fmt.Errorf("caps.max_draw_buffers must not be negative, got %d", c.Caps.MaxDrawBuffers))
	}
	if _, err := c.ProfilerInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProfilerInterval parses Profiler.Interval, defaulting to one second.
func (c Config) ProfilerInterval() (time.Duration, error) {
	if c.Profiler.Interval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.Profiler.Interval)
	if err != nil {
		return 0, fmt.Errorf("profiler.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("profiler.interval must be positive, got %s", d)
	}
	return d, nil
}
