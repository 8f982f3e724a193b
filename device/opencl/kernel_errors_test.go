//go:build opencl

package opencl

import (
	"fmt"
	"testing"

	"github.com/jgillich/go-opencl/cl"
	"github.com/notargets/clmatvec/device"
	"github.com/stretchr/testify/assert"
)

func TestKernelCreationKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want device.Kind
	}{
		{"unknown kernel name", cl.ErrInvalidKernelName, device.EntryPointNotFound},
		{"wrapped kernel name", fmt.Errorf("create: %w", cl.ErrInvalidKernelName), device.EntryPointNotFound},
		{"out of resources", cl.ErrOutOfResources, device.CompilationFailed},
		{"out of host memory", cl.ErrOutOfHostMemory, device.CompilationFailed},
		{"invalid program executable", cl.ErrInvalidProgramExecutable, device.CompilationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kernelCreationKind(tt.err))
		})
	}
}
