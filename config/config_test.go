package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/runner/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, "opencl", cfg.Backend)
	assert.Equal(t, "gpu", cfg.Device.Class)
	assert.Equal(t, "matvec_mult", cfg.Kernel.EntryPoint)
	assert.Equal(t, builder.DefaultShape, cfg.ShapeValue())
	assert.Zero(t, cfg.Validation.Tolerance)

	opts, err := cfg.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, device.ClassGPU, opts.Class)
	assert.Equal(t, device.FallbackNone, opts.Fallback)
	assert.Equal(t, "kernels/matvec.cl", opts.SourcePath)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matvec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: emulator
device:
  class: cpu
  fallback: any
shape:
  rows: 8
  cols: 3
validation:
  tolerance: 0.001
logging:
  level: debug
`), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "emulator", cfg.Backend)
	assert.Equal(t, builder.Shape{Rows: 8, Cols: 3}, cfg.ShapeValue())
	assert.InDelta(t, 0.001, cfg.Validation.Tolerance, 1e-9)
	assert.Equal(t, "debug", cfg.LoggingValue().Level)

	opts, err := cfg.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, device.ClassCPU, opts.Class)
	assert.Equal(t, device.FallbackAny, opts.Fallback)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matvec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: emulator\nkernel:\n  source: a.cl\n"), 0o644))

	t.Setenv("MATVEC_KERNEL_SOURCE", "/opt/kernels/matvec.cl")
	t.Setenv("MATVEC_DEVICE_CLASS", "accelerator")
	t.Setenv("MATVEC_OCCA_MODES", "Serial,OpenMP")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "emulator", cfg.Backend)
	assert.Equal(t, "/opt/kernels/matvec.cl", cfg.Kernel.Source)
	assert.Equal(t, "accelerator", cfg.Device.Class)
	assert.Equal(t, []string{"Serial", "OpenMP"}, cfg.OCCA.Modes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "vulkan" }},
		{"unknown class", func(c *Config) { c.Device.Class = "fpga" }},
		{"unknown fallback", func(c *Config) { c.Device.Fallback = "maybe" }},
		{"occa without modes", func(c *Config) { c.Backend = "occa"; c.OCCA.Modes = nil }},
		{"empty source", func(c *Config) { c.Kernel.Source = " " }},
		{"empty entry point", func(c *Config) { c.Kernel.EntryPoint = "" }},
		{"zero rows", func(c *Config) { c.Shape.Rows = 0 }},
		{"negative tolerance", func(c *Config) { c.Validation.Tolerance = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
