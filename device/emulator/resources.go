package emulator

import (
	"errors"
	"fmt"

	"github.com/notargets/clmatvec/device"
)

var errReleased = errors.New("emulator: handle used after release")

type emuContext struct {
	driver   *Driver
	dev      *emuDevice
	released bool
	live     int // programs, queues and buffers not yet released
	memUsed  int
}

func (c *emuContext) stale() bool {
	if c.released {
		c.driver.ledger.staleUse()
		return true
	}
	return false
}

func (c *emuContext) CompileProgram(source, options string) (device.Program, error) {
	if c.stale() {
		return nil, errReleased
	}
	if err := c.driver.trip(FaultCompile); err != nil {
		return nil, err
	}
	entries, err := scanEntryPoints(source)
	if err != nil {
		return nil, err
	}
	for name := range entries {
		if _, ok := c.driver.kernels[name]; !ok {
			return nil, device.Errorf(device.CompilationFailed, "compile",
				"entry point %s has no emulator implementation", name)
		}
	}
	defines, err := parseDefines(options)
	if err != nil {
		return nil, err
	}
	c.driver.ledger.acquire(ResProgram)
	c.live++
	return &emuProgram{ctx: c, entries: entries, defines: defines}, nil
}

func (c *emuContext) CreateBuffer(mode device.AccessMode, sizeBytes int, host []float32) (device.Buffer, error) {
	if c.stale() {
		return nil, errReleased
	}
	point := FaultInputAlloc
	if mode == device.WriteOnly {
		point = FaultOutputAlloc
	}
	if err := c.driver.trip(point); err != nil {
		return nil, err
	}
	if sizeBytes <= 0 || sizeBytes%device.SizeOfFloat32 != 0 {
		return nil, fmt.Errorf("emulator: invalid buffer size %d", sizeBytes)
	}
	if limit := c.dev.spec.MemoryBytes; limit > 0 && c.memUsed+sizeBytes > limit {
		return nil, fmt.Errorf("emulator: out of device memory (%d of %d bytes in use, %d requested)",
			c.memUsed, limit, sizeBytes)
	}
	data := make([]float32, sizeBytes/device.SizeOfFloat32)
	switch mode {
	case device.ReadOnly:
		if len(host) != len(data) {
			return nil, fmt.Errorf("emulator: host data has %d elements, buffer holds %d", len(host), len(data))
		}
		copy(data, host)
	case device.WriteOnly:
		if host != nil {
			return nil, errors.New("emulator: write-only buffers take no host data")
		}
	}
	c.driver.ledger.acquire(ResBuffer)
	c.live++
	c.memUsed += sizeBytes
	return &emuBuffer{ctx: c, mode: mode, data: data}, nil
}

func (c *emuContext) CreateQueue() (device.Queue, error) {
	if c.stale() {
		return nil, errReleased
	}
	if err := c.driver.trip(FaultQueue); err != nil {
		return nil, err
	}
	c.driver.ledger.acquire(ResQueue)
	c.live++
	return &emuQueue{ctx: c}, nil
}

func (c *emuContext) Release() {
	if c.released {
		c.driver.ledger.doubleRelease()
		return
	}
	c.released = true
	if c.live > 0 {
		c.driver.ledger.outOfOrder(c.live)
	}
	c.driver.ledger.release(ResContext)
}

type emuProgram struct {
	ctx      *emuContext
	entries  map[string]int // entry point -> parameter count
	defines  map[string]int
	released bool
	kernels  int
}

func (p *emuProgram) Kernel(name string) (device.Kernel, error) {
	if p.released || p.ctx.stale() {
		return nil, errReleased
	}
	if err := p.ctx.driver.trip(FaultKernel); err != nil {
		return nil, err
	}
	arity, ok := p.entries[name]
	if !ok {
		return nil, device.Errorf(device.EntryPointNotFound, "create kernel", "no entry point named %q", name)
	}
	p.ctx.driver.ledger.acquire(ResKernel)
	p.kernels++
	return &emuKernel{prog: p, name: name, fn: p.ctx.driver.kernels[name], args: make([]*emuBuffer, arity)}, nil
}

func (p *emuProgram) Release() {
	if p.released {
		p.ctx.driver.ledger.doubleRelease()
		return
	}
	p.released = true
	if p.kernels > 0 {
		p.ctx.driver.ledger.outOfOrder(p.kernels)
	}
	p.ctx.live--
	p.ctx.driver.ledger.release(ResProgram)
}

type emuKernel struct {
	prog     *emuProgram
	name     string
	fn       KernelFunc
	args     []*emuBuffer
	released bool
}

func (k *emuKernel) Name() string { return k.name }

func (k *emuKernel) SetArg(index int, buf device.Buffer) error {
	if k.released || k.prog.ctx.stale() {
		return errReleased
	}
	if err := k.prog.ctx.driver.trip(FaultSetArg); err != nil {
		return err
	}
	if index < 0 || index >= len(k.args) {
		return fmt.Errorf("emulator: kernel %s has %d arguments, index %d is out of range", k.name, len(k.args), index)
	}
	b, ok := buf.(*emuBuffer)
	if !ok || b == nil {
		return fmt.Errorf("emulator: argument %d is not an emulator buffer", index)
	}
	if b.ctx != k.prog.ctx {
		return fmt.Errorf("emulator: argument %d belongs to another context", index)
	}
	if b.released {
		k.prog.ctx.driver.ledger.staleUse()
		return errReleased
	}
	k.args[index] = b
	return nil
}

func (k *emuKernel) Release() {
	if k.released {
		k.prog.ctx.driver.ledger.doubleRelease()
		return
	}
	k.released = true
	k.prog.kernels--
	k.prog.ctx.driver.ledger.release(ResKernel)
}

type emuBuffer struct {
	ctx      *emuContext
	mode     device.AccessMode
	data     []float32
	released bool
}

func (b *emuBuffer) Size() int               { return len(b.data) * device.SizeOfFloat32 }
func (b *emuBuffer) Mode() device.AccessMode { return b.mode }

func (b *emuBuffer) Release() {
	if b.released {
		b.ctx.driver.ledger.doubleRelease()
		return
	}
	b.released = true
	b.ctx.live--
	b.ctx.memUsed -= b.Size()
	b.ctx.driver.ledger.release(ResBuffer)
}

// launch is one enqueued kernel invocation with its arguments captured
type launch struct {
	kernel    *emuKernel
	args      [][]float32
	workItems int
}

type emuQueue struct {
	ctx      *emuContext
	pending  []launch
	released bool
}

func (q *emuQueue) EnqueueKernel(k device.Kernel, workItems int) error {
	if q.released || q.ctx.stale() {
		return errReleased
	}
	if err := q.ctx.driver.trip(FaultEnqueue); err != nil {
		return err
	}
	ek, ok := k.(*emuKernel)
	if !ok || ek == nil || ek.released {
		return errors.New("emulator: invalid kernel")
	}
	if workItems <= 0 {
		return fmt.Errorf("emulator: invalid global work size %d", workItems)
	}
	args := make([][]float32, len(ek.args))
	for i, b := range ek.args {
		if b == nil {
			return fmt.Errorf("emulator: kernel %s argument %d is not set", ek.name, i)
		}
		if b.released {
			q.ctx.driver.ledger.staleUse()
			return errReleased
		}
		if b.mode == device.ReadOnly {
			// kernels see a snapshot; they cannot modify read-only memory
			args[i] = append([]float32(nil), b.data...)
		} else {
			args[i] = b.data
		}
	}
	q.pending = append(q.pending, launch{kernel: ek, args: args, workItems: workItems})
	return nil
}

// drain retires every pending launch in submission order
func (q *emuQueue) drain() error {
	pending := q.pending
	q.pending = nil
	for _, l := range pending {
		for id := 0; id < l.workItems; id++ {
			if err := l.kernel.fn(id, l.args, l.kernel.prog.defines); err != nil {
				return fmt.Errorf("emulator: kernel %s work-item %d: %w", l.kernel.name, id, err)
			}
		}
	}
	return nil
}

func (q *emuQueue) ReadBuffer(buf device.Buffer, dst []float32) error {
	if q.released || q.ctx.stale() {
		return errReleased
	}
	if err := q.drain(); err != nil {
		return err
	}
	if err := q.ctx.driver.trip(FaultRead); err != nil {
		return err
	}
	b, ok := buf.(*emuBuffer)
	if !ok || b == nil {
		return errors.New("emulator: invalid buffer")
	}
	if b.released {
		q.ctx.driver.ledger.staleUse()
		return errReleased
	}
	if len(dst) > len(b.data) {
		return fmt.Errorf("emulator: read of %d elements exceeds buffer of %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (q *emuQueue) Release() {
	if q.released {
		q.ctx.driver.ledger.doubleRelease()
		return
	}
	q.released = true
	q.pending = nil
	q.ctx.live--
	q.ctx.driver.ledger.release(ResQueue)
}
