// Package config loads run settings from defaults, an optional YAML file and
// MATVEC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/device/occa"
	"github.com/notargets/clmatvec/logging"
	"github.com/notargets/clmatvec/runner"
	"github.com/notargets/clmatvec/runner/builder"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. MATVEC_DEVICE_CLASS
const EnvPrefix = "MATVEC"

// Backends lists the accepted values of the backend key
var Backends = []string{"opencl", "occa", "emulator"}

type Config struct {
	Backend    string           `mapstructure:"backend"`
	Device     DeviceConfig     `mapstructure:"device"`
	OCCA       OCCAConfig       `mapstructure:"occa"`
	Kernel     KernelConfig     `mapstructure:"kernel"`
	Shape      ShapeConfig      `mapstructure:"shape"`
	Validation ValidationConfig `mapstructure:"validation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Report     ReportConfig     `mapstructure:"report"`
}

type DeviceConfig struct {
	Class    string `mapstructure:"class"`
	Fallback string `mapstructure:"fallback"`
}

type OCCAConfig struct {
	Modes []string `mapstructure:"modes"`
}

type KernelConfig struct {
	Source        string `mapstructure:"source"`
	EntryPoint    string `mapstructure:"entry_point"`
	CompilerFlags string `mapstructure:"compiler_flags"`
}

type ShapeConfig struct {
	Rows int `mapstructure:"rows"`
	Cols int `mapstructure:"cols"`
}

type ValidationConfig struct {
	Tolerance float32 `mapstructure:"tolerance"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Color      bool   `mapstructure:"color"`
}

type ReportConfig struct {
	// Path receives the YAML report when non-empty
	Path string `mapstructure:"path"`
}

// DefaultConfig is the reference run: a 4x4 product on the first GPU of the
// first OpenCL platform
func DefaultConfig() *Config {
	return &Config{
		Backend: "opencl",
		Device: DeviceConfig{
			Class:    "gpu",
			Fallback: "none",
		},
		OCCA: OCCAConfig{
			Modes: append([]string(nil), occa.DefaultModes...),
		},
		Kernel: KernelConfig{
			Source:     "kernels/matvec.cl",
			EntryPoint: runner.DefaultEntryPoint,
		},
		Shape: ShapeConfig{
			Rows: builder.DefaultShape.Rows,
			Cols: builder.DefaultShape.Cols,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  logging.DefaultMaxSizeMB,
			MaxBackups: logging.DefaultMaxBackups,
			Color:      true,
		},
	}
}

// Load reads cfgFile (if set), the environment and the defaults, in
// decreasing order of precedence below explicit overrides on v. A nil v gets
// a fresh viper instance.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("device.class", cfg.Device.Class)
	v.SetDefault("device.fallback", cfg.Device.Fallback)
	v.SetDefault("occa.modes", cfg.OCCA.Modes)
	v.SetDefault("kernel.source", cfg.Kernel.Source)
	v.SetDefault("kernel.entry_point", cfg.Kernel.EntryPoint)
	v.SetDefault("kernel.compiler_flags", cfg.Kernel.CompilerFlags)
	v.SetDefault("shape.rows", cfg.Shape.Rows)
	v.SetDefault("shape.cols", cfg.Shape.Cols)
	v.SetDefault("validation.tolerance", cfg.Validation.Tolerance)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.color", cfg.Logging.Color)
	v.SetDefault("report.path", cfg.Report.Path)
}

// Validate checks every enumerated and numeric setting
func (c *Config) Validate() error {
	if !contains(Backends, c.Backend) {
		return fmt.Errorf("backend must be one of: %v", Backends)
	}
	if _, err := device.ParseClass(c.Device.Class); err != nil {
		return fmt.Errorf("device.class: %w", err)
	}
	if _, err := device.ParseFallback(c.Device.Fallback); err != nil {
		return fmt.Errorf("device.fallback: %w", err)
	}
	if c.Backend == "occa" && len(c.OCCA.Modes) == 0 {
		return errors.New("occa.modes must name at least one mode")
	}
	if strings.TrimSpace(c.Kernel.Source) == "" {
		return errors.New("kernel.source must be set")
	}
	if strings.TrimSpace(c.Kernel.EntryPoint) == "" {
		return errors.New("kernel.entry_point must be set")
	}
	if err := c.ShapeValue().Validate(); err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	if c.Validation.Tolerance < 0 {
		return errors.New("validation.tolerance must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// ShapeValue is the configured problem shape
func (c *Config) ShapeValue() builder.Shape {
	return builder.Shape{Rows: c.Shape.Rows, Cols: c.Shape.Cols}
}

// PipelineOptions converts the validated settings into runner options
func (c *Config) PipelineOptions() (runner.Options, error) {
	class, err := device.ParseClass(c.Device.Class)
	if err != nil {
		return runner.Options{}, err
	}
	fallback, err := device.ParseFallback(c.Device.Fallback)
	if err != nil {
		return runner.Options{}, err
	}
	return runner.Options{
		Class:         class,
		Fallback:      fallback,
		SourcePath:    c.Kernel.Source,
		EntryPoint:    c.Kernel.EntryPoint,
		Shape:         c.ShapeValue(),
		CompilerFlags: c.Kernel.CompilerFlags,
		Tolerance:     c.Validation.Tolerance,
	}, nil
}

// LoggingValue is the logging section as a logging.Config
func (c *Config) LoggingValue() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		Color:      c.Logging.Color,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
