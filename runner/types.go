package runner

import (
	"fmt"

	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/runner/builder"
)

// HostArrays is the host-side input of one run: a row-major matrix and a
// vector sized by Shape
type HostArrays struct {
	Shape  builder.Shape
	Matrix []float32
	Vector []float32
}

// ReferenceFixture returns matrix[i] = 2i and vector[i] = 3i. For the 4x4
// shape the expected product is [84 228 372 516].
func ReferenceFixture(shape builder.Shape) HostArrays {
	in := HostArrays{
		Shape:  shape,
		Matrix: make([]float32, shape.MatrixLen()),
		Vector: make([]float32, shape.VectorLen()),
	}
	for i := range in.Matrix {
		in.Matrix[i] = float32(i) * 2
	}
	for i := range in.Vector {
		in.Vector[i] = float32(i) * 3
	}
	return in
}

// Validate checks the array lengths against the shape
func (h HostArrays) Validate() error {
	if err := h.Shape.Validate(); err != nil {
		return &device.Error{Kind: device.InvalidInput, Op: "validate host arrays", Err: err}
	}
	if len(h.Matrix) != h.Shape.MatrixLen() {
		return device.Errorf(device.InvalidInput, "validate host arrays",
			"matrix has %d elements, shape %s needs %d", len(h.Matrix), h.Shape, h.Shape.MatrixLen())
	}
	if len(h.Vector) != h.Shape.VectorLen() {
		return device.Errorf(device.InvalidInput, "validate host arrays",
			"vector has %d elements, shape %s needs %d", len(h.Vector), h.Shape, h.Shape.VectorLen())
	}
	return nil
}

// State is a pipeline state
type State int

const (
	StateInit State = iota
	StateDeviceSelected
	StateProgramBuilt
	StateBuffersAllocated
	StateDispatched
	StateReadBack
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"Init", "DeviceSelected", "ProgramBuilt", "BuffersAllocated",
	"Dispatched", "ReadBack", "Done", "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
