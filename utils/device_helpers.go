package utils

import (
	"path/filepath"
	"runtime"

	"github.com/notargets/clmatvec/device/emulator"
)

// CreateTestDriver creates an emulator Driver for testing. It has the default
// GPU-class platform and the matvec_mult kernel; opts add faults or replace
// the platforms.
func CreateTestDriver(opts ...emulator.Option) *emulator.Driver {
	return emulator.New(opts...)
}

// KernelPath returns the absolute path of a file in the repository's
// kernels directory, independent of the test's working directory
func KernelPath(name string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("kernels", name)
	}
	return filepath.Join(filepath.Dir(file), "..", "kernels", name)
}
