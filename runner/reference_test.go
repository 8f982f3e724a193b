package runner

import (
	"math"
	"testing"

	"github.com/notargets/clmatvec/runner/builder"
	"github.com/stretchr/testify/assert"
)

func TestHostReference(t *testing.T) {
	in := ReferenceFixture(builder.DefaultShape)
	assert.Equal(t, []float32{84, 228, 372, 516}, HostReference(in.Shape, in.Matrix, in.Vector))

	// 2x3 times [1 1 1] sums the rows
	shape := builder.Shape{Rows: 2, Cols: 3}
	got := HostReference(shape, []float32{1, 2, 3, 4, 5, 6}, []float32{1, 1, 1})
	assert.Equal(t, []float32{6, 15}, got)
}

func TestMaxAbsDiff(t *testing.T) {
	testCases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"equal", []float32{1, 2}, []float32{1, 2}, 0},
		{"largest wins", []float32{1, 2, 3}, []float32{1.5, 2, 1}, 2},
		{"empty", nil, nil, 0},
		{"length mismatch", []float32{1}, []float32{1, 2}, math.Inf(1)},
		{"nan", []float32{float32(math.NaN())}, []float32{0}, math.Inf(1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaxAbsDiff(tc.a, tc.b))
		})
	}
}
