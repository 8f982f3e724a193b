package builder

import (
	"fmt"

	"github.com/notargets/clmatvec/device"
)

// Shape is the dense matrix shape of a matrix-vector product. One work-item
// is dispatched per output row.
type Shape struct {
	Rows int
	Cols int
}

// DefaultShape is the 4x4 by 4 workload
var DefaultShape = Shape{Rows: 4, Cols: 4}

// Validate rejects empty shapes
func (s Shape) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("invalid shape %dx%d", s.Rows, s.Cols)
	}
	return nil
}

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// MatrixLen is the number of elements in the row-major matrix
func (s Shape) MatrixLen() int { return s.Rows * s.Cols }

// VectorLen is the number of elements in the input vector
func (s Shape) VectorLen() int { return s.Cols }

// ResultLen is the number of elements in the output vector
func (s Shape) ResultLen() int { return s.Rows }

// WorkItems is the global work size of one dispatch
func (s Shape) WorkItems() int { return s.Rows }

// MatrixBytes, VectorBytes and ResultBytes are the device buffer sizes
func (s Shape) MatrixBytes() int { return s.MatrixLen() * device.SizeOfFloat32 }
func (s Shape) VectorBytes() int { return s.VectorLen() * device.SizeOfFloat32 }
func (s Shape) ResultBytes() int { return s.ResultLen() * device.SizeOfFloat32 }
