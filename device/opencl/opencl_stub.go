//go:build !opencl

package opencl

import (
	"github.com/notargets/clmatvec/device"
)

// Available reports whether this binary was built with OpenCL support
const Available = false

// Driver stands in for the OpenCL driver in builds without the opencl tag.
// It reports no platforms.
type Driver struct{}

// New returns the stub driver
func New() *Driver { return &Driver{} }

// Name implements device.Driver
func (d *Driver) Name() string { return "opencl" }

// Platforms implements device.Driver
func (d *Driver) Platforms() ([]device.Platform, error) {
	return nil, device.Errorf(device.NoPlatformFound, "clGetPlatformIDs",
		"OpenCL support not compiled in (rebuild with -tags opencl)")
}
