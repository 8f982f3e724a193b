//go:build opencl

// Package opencl implements device.Driver on an OpenCL runtime through
// github.com/jgillich/go-opencl. Build with -tags opencl; the library links
// against libOpenCL.
package opencl

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"github.com/notargets/clmatvec/device"
)

// Available reports whether this binary was built with OpenCL support
const Available = true

// Driver implements device.Driver on the host's OpenCL ICD loader
type Driver struct{}

// New returns the OpenCL driver
func New() *Driver { return &Driver{} }

// Name implements device.Driver
func (d *Driver) Name() string { return "opencl" }

// Platforms implements device.Driver
func (d *Driver) Platforms() ([]device.Platform, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		// the ICD loader reports a host without runtimes as an error
		return nil, device.Wrap(device.NoPlatformFound, "clGetPlatformIDs", err)
	}
	out := make([]device.Platform, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, &platform{p: p})
	}
	return out, nil
}

func deviceType(class device.DeviceClass) cl.DeviceType {
	switch class {
	case device.ClassGPU:
		return cl.DeviceTypeGPU
	case device.ClassAccelerator:
		return cl.DeviceTypeAccelerator
	case device.ClassCPU:
		return cl.DeviceTypeCPU
	}
	return cl.DeviceTypeAll
}

func classOf(t cl.DeviceType) device.DeviceClass {
	switch {
	case t&cl.DeviceTypeGPU != 0:
		return device.ClassGPU
	case t&cl.DeviceTypeAccelerator != 0:
		return device.ClassAccelerator
	case t&cl.DeviceTypeCPU != 0:
		return device.ClassCPU
	}
	return device.ClassAll
}

type platform struct {
	p *cl.Platform
}

func (p *platform) Name() string { return p.p.Name() }

func (p *platform) Devices(class device.DeviceClass) ([]device.Device, error) {
	devices, err := p.p.GetDevices(deviceType(class))
	if errors.Is(err, cl.ErrDeviceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clGetDeviceIDs(%s): %w", class, err)
	}
	out := make([]device.Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, &clDevice{d: d})
	}
	return out, nil
}

type clDevice struct {
	d *cl.Device
}

func (d *clDevice) Name() string              { return d.d.Name() }
func (d *clDevice) Class() device.DeviceClass { return classOf(d.d.Type()) }

func (d *clDevice) CreateContext() (device.Context, error) {
	ctx, err := cl.CreateContext([]*cl.Device{d.d})
	if err != nil {
		return nil, device.Wrap(device.ContextCreationFailed, "clCreateContext", err)
	}
	return &clContext{ctx: ctx, dev: d.d}, nil
}

type clContext struct {
	ctx *cl.Context
	dev *cl.Device
}

func (c *clContext) CompileProgram(source, options string) (device.Program, error) {
	prog, err := c.ctx.CreateProgramWithSource([]string{source})
	if err != nil {
		return nil, device.Wrap(device.CompilationFailed, "clCreateProgramWithSource", err)
	}
	if err := prog.BuildProgram([]*cl.Device{c.dev}, options); err != nil {
		prog.Release()
		// BuildError carries the compiler log
		return nil, device.Wrap(device.CompilationFailed, "clBuildProgram", err)
	}
	return &clProgram{prog: prog}, nil
}

func (c *clContext) CreateBuffer(mode device.AccessMode, sizeBytes int, host []float32) (device.Buffer, error) {
	var (
		mem *cl.MemObject
		err error
	)
	switch mode {
	case device.ReadOnly:
		if len(host)*device.SizeOfFloat32 != sizeBytes || len(host) == 0 {
			return nil, fmt.Errorf("host data has %d elements for a %d-byte buffer", len(host), sizeBytes)
		}
		mem, err = c.ctx.CreateBufferUnsafe(cl.MemReadOnly|cl.MemCopyHostPtr, sizeBytes, unsafe.Pointer(&host[0]))
	case device.WriteOnly:
		mem, err = c.ctx.CreateEmptyBuffer(cl.MemWriteOnly, sizeBytes)
	default:
		return nil, fmt.Errorf("unsupported access mode %s", mode)
	}
	if err != nil {
		return nil, device.Wrap(device.BufferAllocationFailed, "clCreateBuffer", err)
	}
	return &clBuffer{mem: mem, mode: mode, size: sizeBytes}, nil
}

func (c *clContext) CreateQueue() (device.Queue, error) {
	q, err := c.ctx.CreateCommandQueue(c.dev, 0)
	if err != nil {
		return nil, device.Wrap(device.QueueCreationFailed, "clCreateCommandQueue", err)
	}
	return &clQueue{q: q}, nil
}

func (c *clContext) Release() { c.ctx.Release() }

type clProgram struct {
	prog *cl.Program
}

func (p *clProgram) Kernel(name string) (device.Kernel, error) {
	k, err := p.prog.CreateKernel(name)
	if err != nil {
		return nil, device.Wrap(kernelCreationKind(err), "clCreateKernel "+name, err)
	}
	return &clKernel{k: k, name: name}, nil
}

// kernelCreationKind classifies a clCreateKernel error. Only an unknown
// kernel name means the entry point is missing.
func kernelCreationKind(err error) device.Kind {
	if errors.Is(err, cl.ErrInvalidKernelName) {
		return device.EntryPointNotFound
	}
	return device.CompilationFailed
}

func (p *clProgram) Release() { p.prog.Release() }

type clKernel struct {
	k    *cl.Kernel
	name string
}

func (k *clKernel) Name() string { return k.name }

func (k *clKernel) SetArg(index int, buf device.Buffer) error {
	b, ok := buf.(*clBuffer)
	if !ok || b == nil {
		return fmt.Errorf("argument %d is not an OpenCL buffer", index)
	}
	return k.k.SetArgBuffer(index, b.mem)
}

func (k *clKernel) Release() { k.k.Release() }

type clBuffer struct {
	mem  *cl.MemObject
	mode device.AccessMode
	size int
}

func (b *clBuffer) Size() int               { return b.size }
func (b *clBuffer) Mode() device.AccessMode { return b.mode }
func (b *clBuffer) Release()                { b.mem.Release() }

type clQueue struct {
	q *cl.CommandQueue
}

func (q *clQueue) EnqueueKernel(k device.Kernel, workItems int) error {
	ck, ok := k.(*clKernel)
	if !ok || ck == nil {
		return errors.New("kernel is not an OpenCL kernel")
	}
	// local size is left to the implementation
	ev, err := q.q.EnqueueNDRangeKernel(ck.k, nil, []int{workItems}, nil, nil)
	if err != nil {
		return err
	}
	if ev != nil {
		ev.Release()
	}
	return nil
}

func (q *clQueue) ReadBuffer(buf device.Buffer, dst []float32) error {
	b, ok := buf.(*clBuffer)
	if !ok || b == nil {
		return errors.New("buffer is not an OpenCL buffer")
	}
	if len(dst) == 0 || len(dst)*device.SizeOfFloat32 > b.size {
		return fmt.Errorf("read of %d elements does not fit a %d-byte buffer", len(dst), b.size)
	}
	// a blocking read on an in-order queue waits for the kernel before it
	ev, err := q.q.EnqueueReadBuffer(b.mem, true, 0, len(dst)*device.SizeOfFloat32, unsafe.Pointer(&dst[0]), nil)
	if err != nil {
		return err
	}
	if ev != nil {
		ev.Release()
	}
	return nil
}

func (q *clQueue) Release() { q.q.Release() }
