//go:build !occa

package occa

import (
	"github.com/notargets/clmatvec/device"
)

// Available reports whether this binary was built with OCCA support
const Available = false

// Driver stands in for the OCCA driver in builds without the occa tag.
// It reports no platforms.
type Driver struct {
	modes []string
}

// New returns the stub driver
func New(modes ...string) *Driver { return &Driver{modes: modes} }

// Name implements device.Driver
func (d *Driver) Name() string { return "occa" }

// Platforms implements device.Driver
func (d *Driver) Platforms() ([]device.Platform, error) {
	return nil, device.Errorf(device.NoPlatformFound, "occa::device",
		"OCCA support not compiled in (rebuild with -tags occa)")
}
