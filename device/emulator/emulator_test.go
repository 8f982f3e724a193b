package emulator

import (
	"errors"
	"testing"

	"github.com/notargets/clmatvec/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `
__kernel void matvec_mult(__global const float* m, __global const float* v, __global float* r) {
	int i = get_global_id(0);
}
`

func openContext(t *testing.T, d *Driver) device.Context {
	t.Helper()
	platforms, err := d.Platforms()
	require.NoError(t, err)
	require.NotEmpty(t, platforms)
	devices, err := platforms[0].Devices(device.ClassGPU)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
	ctx, err := devices[0].CreateContext()
	require.NoError(t, err)
	return ctx
}

func TestEmulator_MatVecRoundTrip(t *testing.T) {
	d := New()
	ctx := openContext(t, d)

	prog, err := ctx.CompileProgram(testSource, "-D MATVEC_ROWS=2 -D MATVEC_COLS=2")
	require.NoError(t, err)
	kern, err := prog.Kernel("matvec_mult")
	require.NoError(t, err)
	queue, err := ctx.CreateQueue()
	require.NoError(t, err)

	m, err := ctx.CreateBuffer(device.ReadOnly, 16, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	v, err := ctx.CreateBuffer(device.ReadOnly, 8, []float32{5, 6})
	require.NoError(t, err)
	r, err := ctx.CreateBuffer(device.WriteOnly, 8, nil)
	require.NoError(t, err)

	for i, b := range []device.Buffer{m, v, r} {
		require.NoError(t, kern.SetArg(i, b))
	}
	require.NoError(t, queue.EnqueueKernel(kern, 2))

	out := make([]float32, 2)
	require.NoError(t, queue.ReadBuffer(r, out))
	assert.Equal(t, []float32{17, 39}, out)

	for _, b := range []device.Buffer{r, v, m} {
		b.Release()
	}
	queue.Release()
	kern.Release()
	prog.Release()
	ctx.Release()

	l := d.Ledger()
	assert.Equal(t, 0, l.Outstanding())
	assert.Equal(t, 7, l.TotalAcquired())
	assert.Zero(t, l.DoubleReleases())
	assert.Zero(t, l.OrderViolations())
	assert.Zero(t, l.UseAfterRelease())
}

func TestEmulator_EnqueueIsDeferredUntilRead(t *testing.T) {
	d := New()
	ctx := openContext(t, d)
	defer ctx.Release()

	prog, err := ctx.CompileProgram(testSource, "")
	require.NoError(t, err)
	defer prog.Release()
	kern, err := prog.Kernel("matvec_mult")
	require.NoError(t, err)
	defer kern.Release()
	queue, err := ctx.CreateQueue()
	require.NoError(t, err)
	defer queue.Release()

	m, _ := ctx.CreateBuffer(device.ReadOnly, 4, []float32{3})
	defer m.Release()
	v, _ := ctx.CreateBuffer(device.ReadOnly, 4, []float32{4})
	defer v.Release()
	r, _ := ctx.CreateBuffer(device.WriteOnly, 4, nil)
	defer r.Release()
	require.NoError(t, kern.SetArg(0, m))
	require.NoError(t, kern.SetArg(1, v))
	require.NoError(t, kern.SetArg(2, r))

	require.NoError(t, queue.EnqueueKernel(kern, 1))
	assert.Equal(t, float32(0), r.(*emuBuffer).data[0], "launch must not run before a blocking read")

	out := make([]float32, 1)
	require.NoError(t, queue.ReadBuffer(r, out))
	assert.Equal(t, float32(12), out[0])
}

func TestEmulator_UnsetArgumentRejectedAtEnqueue(t *testing.T) {
	d := New()
	ctx := openContext(t, d)
	defer ctx.Release()
	prog, err := ctx.CompileProgram(testSource, "")
	require.NoError(t, err)
	defer prog.Release()
	kern, err := prog.Kernel("matvec_mult")
	require.NoError(t, err)
	defer kern.Release()
	queue, err := ctx.CreateQueue()
	require.NoError(t, err)
	defer queue.Release()

	err = queue.EnqueueKernel(kern, 4)
	assert.ErrorContains(t, err, "argument 0 is not set")
}

func TestEmulator_CompileAndEntryPoints(t *testing.T) {
	d := New()
	ctx := openContext(t, d)
	defer ctx.Release()

	_, err := ctx.CompileProgram("float x = 1.0f;", "")
	assert.True(t, errors.Is(err, device.ErrCompilationFailed))

	_, err = ctx.CompileProgram("__kernel void other(__global float* a) {}", "")
	assert.True(t, errors.Is(err, device.ErrCompilationFailed), "unregistered implementation")

	_, err = ctx.CompileProgram(testSource, "-D MATVEC_COLS=four")
	assert.True(t, errors.Is(err, device.ErrCompilationFailed))

	prog, err := ctx.CompileProgram(testSource, "")
	require.NoError(t, err)
	defer prog.Release()
	_, err = prog.Kernel("matvec")
	assert.True(t, errors.Is(err, device.ErrEntryPointNotFound))
}

func TestEmulator_FaultOrdinal(t *testing.T) {
	d := New(WithFault(FaultInputAlloc, 2))
	ctx := openContext(t, d)

	a, err := ctx.CreateBuffer(device.ReadOnly, 4, []float32{1})
	require.NoError(t, err)
	_, err = ctx.CreateBuffer(device.ReadOnly, 4, []float32{1})
	require.Error(t, err)
	b, err := ctx.CreateBuffer(device.ReadOnly, 4, []float32{1})
	require.NoError(t, err)

	assert.Equal(t, 3, d.Calls(FaultInputAlloc))
	assert.Equal(t, 2, d.Ledger().Acquired(ResBuffer))

	a.Release()
	b.Release()
	ctx.Release()
	assert.Zero(t, d.Ledger().Outstanding())
}

func TestEmulator_MemoryLimit(t *testing.T) {
	d := New(WithPlatforms(PlatformSpec{
		Name:    "Tiny",
		Devices: []DeviceSpec{{Name: "tiny", Class: device.ClassGPU, MemoryBytes: 32}},
	}))
	ctx := openContext(t, d)
	defer ctx.Release()

	a, err := ctx.CreateBuffer(device.WriteOnly, 32, nil)
	require.NoError(t, err)
	_, err = ctx.CreateBuffer(device.WriteOnly, 4, nil)
	assert.ErrorContains(t, err, "out of device memory")
	a.Release()

	b, err := ctx.CreateBuffer(device.WriteOnly, 4, nil)
	require.NoError(t, err)
	b.Release()
}

func TestEmulator_LedgerViolations(t *testing.T) {
	d := New()
	ctx := openContext(t, d)
	buf, err := ctx.CreateBuffer(device.WriteOnly, 4, nil)
	require.NoError(t, err)

	ctx.Release()
	assert.Equal(t, 1, d.Ledger().OrderViolations())

	_, err = ctx.CreateQueue()
	assert.Error(t, err)
	assert.Equal(t, 1, d.Ledger().UseAfterRelease())

	buf.Release()
	buf.Release()
	ctx.Release()
	assert.Equal(t, 2, d.Ledger().DoubleReleases())
}

func TestEmulator_NoPlatforms(t *testing.T) {
	d := New(WithPlatforms())
	platforms, err := d.Platforms()
	require.NoError(t, err)
	assert.Empty(t, platforms)
}

func TestScanEntryPoints(t *testing.T) {
	entries, err := scanEntryPoints(`
@kernel void a(const float *x, float *y) {}
kernel void b(void) {}
__kernel void c() {}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 0, "c": 0}, entries)
}
