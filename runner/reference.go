package runner

import (
	"math"

	"github.com/notargets/clmatvec/runner/builder"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/floats"
)

// HostReference computes matrix * vector on the CPU in single precision.
// matrix is row-major with shape.Cols columns.
func HostReference(shape builder.Shape, matrix, vector []float32) []float32 {
	out := make([]float32, shape.ResultLen())
	a := blas32.General{Rows: shape.Rows, Cols: shape.Cols, Stride: shape.Cols, Data: matrix}
	x := blas32.Vector{N: shape.Cols, Inc: 1, Data: vector}
	y := blas32.Vector{N: shape.Rows, Inc: 1, Data: out}
	blas32.Gemv(blas.NoTrans, 1, a, x, 0, y)
	return out
}

// MaxAbsDiff returns the largest element-wise |a-b|. NaN in either input,
// or a length mismatch, yields +Inf so it never passes a tolerance check.
func MaxAbsDiff(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	if len(a) == 0 {
		return 0
	}
	a64 := make([]float64, len(a))
	b64 := make([]float64, len(b))
	for i := range a {
		a64[i] = float64(a[i])
		b64[i] = float64(b[i])
	}
	if floats.HasNaN(a64) || floats.HasNaN(b64) {
		return math.Inf(1)
	}
	return floats.Distance(a64, b64, math.Inf(1))
}
