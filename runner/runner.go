package runner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/runner/builder"
	"go.uber.org/zap"
)

// Options configures a Pipeline
type Options struct {
	Class      device.DeviceClass
	Fallback   device.FallbackPolicy
	SourcePath string
	EntryPoint string
	Shape      builder.Shape
	// CompilerFlags are passed to the device compiler after the shape defines
	CompilerFlags string
	// Tolerance is the largest accepted |result-reference| per element; 0
	// demands exact equality
	Tolerance float32
}

// DefaultEntryPoint is the kernel function name in the shipped artifacts
const DefaultEntryPoint = "matvec_mult"

// Outcome is the validated result of a successful run
type Outcome struct {
	RunID      string
	Backend    string
	Platform   string
	Device     string
	Shape      builder.Shape
	Result     []float32
	Reference  []float32
	MaxAbsDiff float64
	Elapsed    time.Duration
}

// Failure reports the state a run had reached when it failed and why.
// Every device resource the run acquired has been released by the time a
// Failure is returned.
type Failure struct {
	RunID string
	Stage State
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("run %s failed after %s: %v", f.RunID, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Kind is the error taxonomy kind of the underlying cause
func (f *Failure) Kind() device.Kind { return device.KindOf(f.Err) }

// Pipeline runs the whole select/build/allocate/dispatch/read sequence
// against one driver
type Pipeline struct {
	driver   device.Driver
	opts     Options
	logger   *zap.Logger
	observer func(State)
	newRunID func() string
}

// PipelineOption customizes a Pipeline
type PipelineOption func(*Pipeline)

// WithLogger sets the logger; the default discards everything
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver is called on every state transition, including Failed
func WithObserver(fn func(State)) PipelineOption {
	return func(p *Pipeline) {
		p.observer = fn
	}
}

// NewPipeline creates a Pipeline. A zero Shape means builder.DefaultShape
// and an empty EntryPoint means DefaultEntryPoint.
func NewPipeline(drv device.Driver, opts Options, options ...PipelineOption) *Pipeline {
	if opts.Shape == (builder.Shape{}) {
		opts.Shape = builder.DefaultShape
	}
	if opts.EntryPoint == "" {
		opts.EntryPoint = DefaultEntryPoint
	}
	p := &Pipeline{
		driver:   drv,
		opts:     opts,
		logger:   zap.NewNop(),
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Options returns the effective configuration
func (p *Pipeline) Options() Options { return p.opts }

// release is one deferred resource release
type release struct {
	what string
	fn   func()
}

// pipelineRun is the mutable state of one Run
type pipelineRun struct {
	*Pipeline
	id       string
	state    State
	logger   *zap.Logger
	releases []release
}

func (r *pipelineRun) advance(s State) {
	r.logger.Debug("state transition", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
	if r.observer != nil {
		r.observer(s)
	}
}

// own registers fn to run when the run ends; owned resources are released
// last-acquired first
func (r *pipelineRun) own(what string, fn func()) {
	r.releases = append(r.releases, release{what: what, fn: fn})
}

func (r *pipelineRun) unwind() {
	for i := len(r.releases) - 1; i >= 0; i-- {
		rel := r.releases[i]
		r.logger.Debug("releasing", zap.String("resource", rel.what))
		rel.fn()
	}
	r.releases = nil
}

func (r *pipelineRun) fail(err error) *Failure {
	f := &Failure{RunID: r.id, Stage: r.state, Err: err}
	r.logger.Error("run failed",
		zap.Stringer("stage", r.state),
		zap.Stringer("kind", device.KindOf(err)),
		zap.Error(err))
	if r.observer != nil {
		r.observer(StateFailed)
	}
	return f
}

// Run executes one dispatch of in and validates the device result against
// HostReference. Resources are released in reverse acquisition order before
// Run returns, on success and on every failure path. On failure the
// returned error is a *Failure and no Outcome is returned.
func (p *Pipeline) Run(in HostArrays) (*Outcome, error) {
	start := time.Now()
	run := &pipelineRun{Pipeline: p, id: p.newRunID(), state: StateInit}
	run.logger = p.logger.With(zap.String("run_id", run.id), zap.String("backend", p.driver.Name()))
	defer run.unwind()

	if in.Shape == (builder.Shape{}) {
		in.Shape = p.opts.Shape
	}
	if in.Shape != p.opts.Shape {
		return nil, run.fail(device.Errorf(device.InvalidInput, "validate host arrays",
			"input shape %s does not match pipeline shape %s", in.Shape, p.opts.Shape))
	}
	if err := in.Validate(); err != nil {
		return nil, run.fail(err)
	}
	shape := in.Shape
	reference := HostReference(shape, in.Matrix, in.Vector)

	sel, err := SelectDevice(p.driver, p.opts.Class, p.opts.Fallback, run.logger)
	if err != nil {
		return nil, run.fail(err)
	}
	run.own("context", sel.Context.Release)
	run.advance(StateDeviceSelected)

	bld := builder.NewBuilder(builder.Config{
		SourcePath:    p.opts.SourcePath,
		EntryPoint:    p.opts.EntryPoint,
		Shape:         shape,
		CompilerFlags: p.opts.CompilerFlags,
	}, run.logger)
	program, kernel, err := bld.Build(sel.Context)
	if err != nil {
		return nil, run.fail(err)
	}
	run.own("program", program.Release)
	run.own("kernel "+kernel.Name(), kernel.Release)
	run.advance(StateProgramBuilt)

	queue, err := sel.Context.CreateQueue()
	if err == nil && queue == nil {
		err = fmt.Errorf("device layer returned no queue")
	}
	if err != nil {
		return nil, run.fail(device.Wrap(device.QueueCreationFailed, "create command queue", err))
	}
	run.own("command queue", queue.Release)

	args := MatVecArguments(shape)
	buffers := make([]device.Buffer, 0, len(args))
	for _, arg := range args {
		buf, err := AllocateArgument(sel.Context, arg, in)
		if err != nil {
			return nil, run.fail(err)
		}
		run.own(arg.Name+" buffer", buf.Release)
		buffers = append(buffers, buf)
	}
	run.advance(StateBuffersAllocated)

	if err := Dispatch(queue, kernel, buffers, shape.WorkItems()); err != nil {
		return nil, run.fail(err)
	}
	run.advance(StateDispatched)

	result, err := ReadBack(queue, buffers[len(buffers)-1], shape.ResultBytes())
	if err != nil {
		return nil, run.fail(err)
	}
	run.advance(StateReadBack)

	diff := MaxAbsDiff(result, reference)
	if !(diff <= float64(p.opts.Tolerance)) {
		return nil, run.fail(device.Errorf(device.ResultMismatch, "validate result",
			"device result %v differs from host reference %v by %g (tolerance %g)",
			result, reference, diff, p.opts.Tolerance))
	}
	run.advance(StateDone)

	out := &Outcome{
		RunID:      run.id,
		Backend:    p.driver.Name(),
		Platform:   sel.Platform.Name(),
		Device:     sel.Device.Name(),
		Shape:      shape,
		Result:     result,
		Reference:  reference,
		MaxAbsDiff: diff,
		Elapsed:    time.Since(start),
	}
	run.logger.Info("run succeeded",
		zap.String("device", out.Device),
		zap.Float64("max_abs_diff", diff),
		zap.Duration("elapsed", out.Elapsed))
	return out, nil
}
