package runner

import (
	"fmt"
	"strings"

	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/runner/builder"
)

// KernelArgument describes one buffer parameter of the kernel
type KernelArgument struct {
	Name  string
	Type  string
	Mode  device.AccessMode
	Bytes int
	// Host selects the upload data for read-only arguments
	Host func(HostArrays) []float32
}

// IsConst reports whether the kernel only reads the argument
func (a KernelArgument) IsConst() bool { return a.Mode == device.ReadOnly }

// MatVecArguments returns the kernel parameters in binding order.
// This is the single source of truth for argument ordering.
func MatVecArguments(shape builder.Shape) []KernelArgument {
	return []KernelArgument{
		{
			Name:  "matrix",
			Type:  "float*",
			Mode:  device.ReadOnly,
			Bytes: shape.MatrixBytes(),
			Host:  func(h HostArrays) []float32 { return h.Matrix },
		},
		{
			Name:  "vector",
			Type:  "float*",
			Mode:  device.ReadOnly,
			Bytes: shape.VectorBytes(),
			Host:  func(h HostArrays) []float32 { return h.Vector },
		},
		{
			Name:  "result",
			Type:  "float*",
			Mode:  device.WriteOnly,
			Bytes: shape.ResultBytes(),
		},
	}
}

// AllocateArgument creates the buffer for arg, uploading its host data if
// it is read-only
func AllocateArgument(ctx device.Context, arg KernelArgument, in HostArrays) (device.Buffer, error) {
	switch arg.Mode {
	case device.ReadOnly:
		if arg.Host == nil {
			return nil, device.Errorf(device.InvalidInput, "allocate "+arg.Name, "read-only argument has no host data")
		}
		return AllocateInput(ctx, arg.Host(in), arg.Bytes)
	case device.WriteOnly:
		return AllocateOutput(ctx, arg.Bytes)
	}
	return nil, device.Errorf(device.InvalidInput, "allocate "+arg.Name, "unsupported access mode %s", arg.Mode)
}

// GenerateKernelSignature renders the OpenCL C parameter list for args
func GenerateKernelSignature(args []KernelArgument) string {
	params := make([]string, 0, len(args))
	for _, arg := range args {
		constStr := ""
		if arg.IsConst() {
			constStr = "const "
		}
		params = append(params, fmt.Sprintf("__global %s%s %s", constStr, arg.Type, arg.Name))
	}
	return strings.Join(params, ",\n\t")
}
