package builder

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/notargets/clmatvec/device"
	"go.uber.org/zap"
)

// Config holds configuration for creating a Builder
type Config struct {
	SourcePath string
	EntryPoint string
	Shape      Shape
	// CompilerFlags are appended after the generated shape defines
	CompilerFlags string
}

// Builder turns a kernel source artifact into an executable kernel
type Builder struct {
	SourcePath string
	EntryPoint string
	Shape      Shape
	Defines    map[string]int

	compilerFlags string
	logger        *zap.Logger
}

// NewBuilder creates a new Builder instance
func NewBuilder(cfg Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	shape := cfg.Shape
	if shape == (Shape{}) {
		shape = DefaultShape
	}
	return &Builder{
		SourcePath: cfg.SourcePath,
		EntryPoint: cfg.EntryPoint,
		Shape:      shape,
		Defines: map[string]int{
			"MATVEC_ROWS": shape.Rows,
			"MATVEC_COLS": shape.Cols,
		},
		compilerFlags: cfg.CompilerFlags,
		logger:        logger,
	}
}

// Options generates the compiler flags: one -D per define in name order,
// then any configured flags
func (b *Builder) Options() string {
	names := make([]string, 0, len(b.Defines))
	for name := range b.Defines {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("-D %s=%d", name, b.Defines[name]))
	}
	if flags := strings.TrimSpace(b.compilerFlags); flags != "" {
		parts = append(parts, flags)
	}
	return strings.Join(parts, " ")
}

// LoadSource reads the whole kernel artifact at path
func LoadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &device.Error{Kind: device.SourceUnreadable, Op: "read kernel source", Err: err}
	}
	return string(data), nil
}

// Build loads the source, compiles it in ctx and extracts the entry point.
// The returned Program must be released after the Kernel. On failure nothing
// allocated by Build is left behind.
func (b *Builder) Build(ctx device.Context) (device.Program, device.Kernel, error) {
	source, err := LoadSource(b.SourcePath)
	if err != nil {
		return nil, nil, err
	}

	options := b.Options()
	b.logger.Debug("compiling kernel source",
		zap.String("path", b.SourcePath),
		zap.Int("bytes", len(source)),
		zap.String("options", options))

	program, err := ctx.CompileProgram(source, options)
	if err != nil {
		return nil, nil, device.Wrap(device.CompilationFailed, "compile "+b.SourcePath, err)
	}
	if program == nil {
		return nil, nil, device.Errorf(device.CompilationFailed, "compile "+b.SourcePath, "device layer returned no program")
	}

	kernel, err := program.Kernel(b.EntryPoint)
	if err == nil && kernel == nil {
		err = fmt.Errorf("device layer returned no kernel")
	}
	if err != nil {
		program.Release()
		return nil, nil, device.Wrap(device.EntryPointNotFound, "extract entry point "+b.EntryPoint, err)
	}

	return program, kernel, nil
}
