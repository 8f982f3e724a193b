// Package device defines the contract between the dispatch pipeline and a
// compute API implementation (OpenCL, OCCA, or the in-process emulator).
//
// Every handle returned by this package's interfaces is owned by the caller
// and must be released exactly once. Derived handles (programs, kernels,
// buffers, queues) must be released before the Context they came from.
package device

import (
	"fmt"
	"strings"
)

// DeviceClass selects which kind of compute unit a platform should offer
type DeviceClass int

const (
	ClassAll DeviceClass = iota
	ClassGPU
	ClassAccelerator
	ClassCPU
)

func (c DeviceClass) String() string {
	switch c {
	case ClassAll:
		return "all"
	case ClassGPU:
		return "gpu"
	case ClassAccelerator:
		return "accelerator"
	case ClassCPU:
		return "cpu"
	default:
		return fmt.Sprintf("DeviceClass(%d)", int(c))
	}
}

// ParseClass converts a configuration string into a DeviceClass
func ParseClass(s string) (DeviceClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return ClassAll, nil
	case "gpu":
		return ClassGPU, nil
	case "accelerator", "acc":
		return ClassAccelerator, nil
	case "cpu":
		return ClassCPU, nil
	}
	return ClassAll, fmt.Errorf("unknown device class %q", s)
}

// Matches reports whether a device of class c satisfies a request for want
func (c DeviceClass) Matches(want DeviceClass) bool {
	return want == ClassAll || c == want
}

// FallbackPolicy decides what happens when no device of the requested class exists
type FallbackPolicy int

const (
	// FallbackNone fails with NoDeviceFound
	FallbackNone FallbackPolicy = iota
	// FallbackAny retries enumeration with ClassAll
	FallbackAny
)

func (p FallbackPolicy) String() string {
	if p == FallbackAny {
		return "any"
	}
	return "none"
}

// ParseFallback converts a configuration string into a FallbackPolicy
func ParseFallback(s string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "strict":
		return FallbackNone, nil
	case "any", "all":
		return FallbackAny, nil
	}
	return FallbackNone, fmt.Errorf("unknown fallback policy %q", s)
}

// AccessMode is fixed when a buffer is created
type AccessMode int

const (
	// ReadOnly buffers are uploaded by the host and only read by kernels
	ReadOnly AccessMode = iota
	// WriteOnly buffers are only written by kernels and read back by the host
	WriteOnly
)

func (m AccessMode) String() string {
	if m == WriteOnly {
		return "write-only"
	}
	return "read-only"
}

// Driver is the entry point of a compute API implementation
type Driver interface {
	Name() string
	Platforms() ([]Platform, error)
}

// Platform is one vendor implementation exposed by a Driver
type Platform interface {
	Name() string
	// Devices returns the devices matching class. An empty slice with a nil
	// error means the platform has no such device.
	Devices(class DeviceClass) ([]Device, error)
}

// Device is a selectable compute unit. Devices are discovered, never built.
type Device interface {
	Name() string
	Class() DeviceClass
	// CreateContext binds this single device into a new allocation domain
	CreateContext() (Context, error)
}

// Context owns every program, buffer and queue created against it
type Context interface {
	// CompileProgram builds source once. options are compiler flags in
	// "-D NAME=VALUE" form.
	CompileProgram(source, options string) (Program, error)
	// CreateBuffer allocates sizeBytes of device memory. For ReadOnly buffers
	// host is copied into the buffer at creation; for WriteOnly buffers host
	// must be nil.
	CreateBuffer(mode AccessMode, sizeBytes int, host []float32) (Buffer, error)
	CreateQueue() (Queue, error)
	Release()
}

// Program is compiled kernel source. It must outlive its kernels.
type Program interface {
	Kernel(name string) (Kernel, error)
	Release()
}

// Kernel is a named entry point with an ordered argument list
type Kernel interface {
	Name() string
	SetArg(index int, buf Buffer) error
	Release()
}

// Buffer is a fixed-size device memory region
type Buffer interface {
	Size() int
	Mode() AccessMode
	Release()
}

// Queue is an in-order stream of device operations
type Queue interface {
	// EnqueueKernel submits a one-dimensional launch of workItems work-items
	// and returns without waiting for it.
	EnqueueKernel(k Kernel, workItems int) error
	// ReadBuffer blocks until every earlier operation on the queue has
	// retired and buf has been copied into dst.
	ReadBuffer(buf Buffer, dst []float32) error
	Release()
}

// SizeOfFloat32 is the element size of every buffer in this package
const SizeOfFloat32 = 4
