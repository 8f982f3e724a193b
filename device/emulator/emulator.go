// Package emulator is an in-process device.Driver. It runs registered Go
// kernel implementations on the host with the same in-order queue semantics
// as a real command queue, and it can be told to fail at any step so the
// pipeline's cleanup paths can be checked against its Ledger.
package emulator

import (
	"fmt"
	"sync"

	"github.com/notargets/clmatvec/device"
)

// FaultPoint names a fallible emulator operation
type FaultPoint string

const (
	FaultPlatforms   FaultPoint = "platforms"
	FaultDevices     FaultPoint = "devices"
	FaultContext     FaultPoint = "context"
	FaultCompile     FaultPoint = "compile"
	FaultKernel      FaultPoint = "kernel"
	FaultQueue       FaultPoint = "queue"
	FaultInputAlloc  FaultPoint = "input-alloc"
	FaultOutputAlloc FaultPoint = "output-alloc"
	FaultSetArg      FaultPoint = "set-arg"
	FaultEnqueue     FaultPoint = "enqueue"
	FaultRead        FaultPoint = "read"
)

// Always makes a fault trip on every call
const Always = 0

// DeviceSpec describes one emulated device
type DeviceSpec struct {
	Name  string
	Class device.DeviceClass
	// MemoryBytes caps the total live buffer bytes per context; 0 is unlimited
	MemoryBytes int
}

// PlatformSpec describes one emulated platform and its devices
type PlatformSpec struct {
	Name    string
	Devices []DeviceSpec
}

// DefaultPlatform has a single GPU-class device
var DefaultPlatform = PlatformSpec{
	Name: "Emulator",
	Devices: []DeviceSpec{
		{Name: "Emulated GPU", Class: device.ClassGPU},
	},
}

// Driver implements device.Driver
type Driver struct {
	platforms []PlatformSpec
	kernels   map[string]KernelFunc

	mu     sync.Mutex
	faults map[FaultPoint]int
	calls  map[FaultPoint]int
	ledger *Ledger
}

// Option configures a Driver
type Option func(*Driver)

// WithPlatforms replaces the default platform list. Passing no platforms
// models a host with no compute runtime installed.
func WithPlatforms(platforms ...PlatformSpec) Option {
	return func(d *Driver) {
		d.platforms = platforms
	}
}

// WithKernel registers a Go implementation for an entry point name
func WithKernel(name string, fn KernelFunc) Option {
	return func(d *Driver) {
		d.kernels[name] = fn
	}
}

// WithFault makes point fail on its nth call (1-based), or on every call
// when n is Always
func WithFault(point FaultPoint, n int) Option {
	return func(d *Driver) {
		d.faults[point] = n
	}
}

// New creates an emulator with DefaultPlatform and the matvec_mult kernel
func New(opts ...Option) *Driver {
	d := &Driver{
		platforms: []PlatformSpec{DefaultPlatform},
		kernels:   map[string]KernelFunc{"matvec_mult": MatVec},
		faults:    make(map[FaultPoint]int),
		calls:     make(map[FaultPoint]int),
		ledger:    newLedger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements device.Driver
func (d *Driver) Name() string { return "emulator" }

// Ledger returns the acquisition/release bookkeeping for this driver
func (d *Driver) Ledger() *Ledger { return d.ledger }

// Calls returns how many times point was attempted, including failed attempts
func (d *Driver) Calls(point FaultPoint) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[point]
}

// trip records a call to point and returns the injected error, if any
func (d *Driver) trip(point FaultPoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[point]++
	n, armed := d.faults[point]
	if !armed {
		return nil
	}
	if n == Always || n == d.calls[point] {
		return fmt.Errorf("emulator: injected %s fault (call %d)", point, d.calls[point])
	}
	return nil
}

// Platforms implements device.Driver
func (d *Driver) Platforms() ([]device.Platform, error) {
	if err := d.trip(FaultPlatforms); err != nil {
		return nil, err
	}
	out := make([]device.Platform, 0, len(d.platforms))
	for _, spec := range d.platforms {
		out = append(out, &platform{driver: d, spec: spec})
	}
	return out, nil
}

type platform struct {
	driver *Driver
	spec   PlatformSpec
}

func (p *platform) Name() string { return p.spec.Name }

func (p *platform) Devices(class device.DeviceClass) ([]device.Device, error) {
	if err := p.driver.trip(FaultDevices); err != nil {
		return nil, err
	}
	var out []device.Device
	for _, spec := range p.spec.Devices {
		if spec.Class.Matches(class) {
			out = append(out, &emuDevice{driver: p.driver, spec: spec})
		}
	}
	return out, nil
}

type emuDevice struct {
	driver *Driver
	spec   DeviceSpec
}

func (e *emuDevice) Name() string              { return e.spec.Name }
func (e *emuDevice) Class() device.DeviceClass { return e.spec.Class }

func (e *emuDevice) CreateContext() (device.Context, error) {
	if err := e.driver.trip(FaultContext); err != nil {
		return nil, err
	}
	e.driver.ledger.acquire(ResContext)
	return &emuContext{driver: e.driver, dev: e}, nil
}
