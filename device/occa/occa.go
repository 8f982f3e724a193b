//go:build occa

// Package occa implements device.Driver on OCCA through
// github.com/notargets/gocca. Each OCCA mode that can open device 0 is one
// device of the single "OCCA" platform. Build with -tags occa.
package occa

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"unsafe"

	"github.com/notargets/clmatvec/device"
	"github.com/notargets/gocca"
)

// Available reports whether this binary was built with OCCA support
const Available = true

// Driver implements device.Driver
type Driver struct {
	modes []string
}

// New returns a driver probing modes in order; no modes means DefaultModes
func New(modes ...string) *Driver {
	if len(modes) == 0 {
		modes = DefaultModes
	}
	return &Driver{modes: modes}
}

// Name implements device.Driver
func (d *Driver) Name() string { return "occa" }

// Platforms implements device.Driver
func (d *Driver) Platforms() ([]device.Platform, error) {
	return []device.Platform{&platform{modes: d.modes}}, nil
}

type platform struct {
	modes []string
}

func (p *platform) Name() string { return "OCCA" }

// Devices returns, in preference order, each mode of class that can open a
// device
func (p *platform) Devices(class device.DeviceClass) ([]device.Device, error) {
	var out []device.Device
	for _, mode := range p.modes {
		if !ClassOf(mode).Matches(class) {
			continue
		}
		props := deviceProps(mode)
		probe, err := gocca.NewDevice(props)
		if err != nil {
			continue
		}
		probe.Free()
		out = append(out, &occaDevice{mode: mode, props: props})
	}
	return out, nil
}

type occaDevice struct {
	mode  string
	props string
}

func (d *occaDevice) Name() string              { return d.mode + " device 0" }
func (d *occaDevice) Class() device.DeviceClass { return ClassOf(d.mode) }

func (d *occaDevice) CreateContext() (device.Context, error) {
	dev, err := gocca.NewDevice(d.props)
	if err != nil {
		return nil, device.Wrap(device.ContextCreationFailed, "occa::device("+d.mode+")", err)
	}
	return &occaContext{dev: dev}, nil
}

type occaContext struct {
	dev *gocca.OCCADevice
}

func (c *occaContext) CompileProgram(source, options string) (device.Program, error) {
	defines, flags, err := ParseOptions(options)
	if err != nil {
		return nil, device.Wrap(device.CompilationFailed, "parse build options", err)
	}
	props, err := kernelProps(defines, flags)
	if err != nil {
		return nil, device.Wrap(device.CompilationFailed, "kernel properties", err)
	}
	rows, ok := defines["MATVEC_ROWS"]
	if !ok {
		return nil, device.Errorf(device.CompilationFailed, "compile", "MATVEC_ROWS is not defined")
	}
	return &occaProgram{ctx: c, source: source, props: props, rows: rows}, nil
}

func (c *occaContext) CreateBuffer(mode device.AccessMode, sizeBytes int, host []float32) (device.Buffer, error) {
	var src unsafe.Pointer
	switch mode {
	case device.ReadOnly:
		if len(host)*device.SizeOfFloat32 != sizeBytes || len(host) == 0 {
			return nil, fmt.Errorf("host data has %d elements for a %d-byte buffer", len(host), sizeBytes)
		}
		src = unsafe.Pointer(&host[0])
	case device.WriteOnly:
	default:
		return nil, fmt.Errorf("unsupported access mode %s", mode)
	}
	mem := c.dev.Malloc(int64(sizeBytes), src, nil)
	if mem == nil {
		return nil, device.Errorf(device.BufferAllocationFailed, "occa::malloc", "%d bytes on %s", sizeBytes, c.dev.Mode())
	}
	return &occaBuffer{mem: mem, mode: mode, size: sizeBytes}, nil
}

func (c *occaContext) CreateQueue() (device.Queue, error) {
	return &occaQueue{ctx: c}, nil
}

func (c *occaContext) Release() { c.dev.Free() }

type occaProgram struct {
	ctx    *occaContext
	source string
	props  string
	rows   int
}

// Kernel compiles the named kernel; OCCA builds per kernel, not per program
func (p *occaProgram) Kernel(name string) (device.Kernel, error) {
	if !hasKernel(p.source, name) {
		return nil, device.Errorf(device.EntryPointNotFound, "occa::buildKernel", "no @kernel named %q", name)
	}
	props := gocca.JsonParse(p.props)
	defer props.Free()
	k, err := p.ctx.dev.BuildKernelFromString(p.source, name, props)
	if err != nil {
		return nil, device.Wrap(device.CompilationFailed, "occa::buildKernel "+name, err)
	}
	if k == nil {
		return nil, device.Errorf(device.CompilationFailed, "occa::buildKernel "+name, "build returned no kernel")
	}
	return &occaKernel{k: k, name: name, rows: p.rows, args: make(map[int]*occaBuffer)}, nil
}

func (p *occaProgram) Release() {}

type occaKernel struct {
	k    *gocca.OCCAKernel
	name string
	rows int
	args map[int]*occaBuffer
}

func (k *occaKernel) Name() string { return k.name }

func (k *occaKernel) SetArg(index int, buf device.Buffer) error {
	b, ok := buf.(*occaBuffer)
	if !ok || b == nil {
		return fmt.Errorf("argument %d is not an OCCA buffer", index)
	}
	if index < 0 {
		return fmt.Errorf("invalid argument index %d", index)
	}
	k.args[index] = b
	return nil
}

func (k *occaKernel) Release() { k.k.Free() }

type occaBuffer struct {
	mem  *gocca.OCCAMemory
	mode device.AccessMode
	size int
}

func (b *occaBuffer) Size() int               { return b.size }
func (b *occaBuffer) Mode() device.AccessMode { return b.mode }
func (b *occaBuffer) Release()                { b.mem.Free() }

// occaQueue is the device's default stream
type occaQueue struct {
	ctx *occaContext
}

func (q *occaQueue) EnqueueKernel(k device.Kernel, workItems int) error {
	ck, ok := k.(*occaKernel)
	if !ok || ck == nil {
		return errors.New("kernel is not an OCCA kernel")
	}
	// the @tile bound is compiled in
	if workItems != ck.rows {
		return fmt.Errorf("kernel %s was compiled for %d work-items, not %d", ck.name, ck.rows, workItems)
	}
	args := make([]interface{}, len(ck.args))
	for i := range args {
		b, set := ck.args[i]
		if !set {
			return fmt.Errorf("kernel %s argument %d is not set", ck.name, i)
		}
		args[i] = b.mem
	}
	return ck.k.RunWithArgs(args...)
}

func (q *occaQueue) ReadBuffer(buf device.Buffer, dst []float32) error {
	b, ok := buf.(*occaBuffer)
	if !ok || b == nil {
		return errors.New("buffer is not an OCCA buffer")
	}
	if len(dst) == 0 || len(dst)*device.SizeOfFloat32 > b.size {
		return fmt.Errorf("read of %d elements does not fit a %d-byte buffer", len(dst), b.size)
	}
	q.ctx.dev.Finish()
	b.mem.CopyTo(unsafe.Pointer(&dst[0]), int64(len(dst)*device.SizeOfFloat32))
	return nil
}

func (q *occaQueue) Release() {}

var kernelDeclRE = regexp.MustCompile(`@kernel\s+void\s+(\w+)\s*\(`)

func hasKernel(source, name string) bool {
	for _, m := range kernelDeclRE.FindAllStringSubmatch(source, -1) {
		if m[1] == name {
			return true
		}
	}
	return false
}

func kernelProps(defines map[string]int, flags string) (string, error) {
	props := map[string]interface{}{"defines": defines}
	if flags != "" {
		props["compiler_flags"] = flags
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
