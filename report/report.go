// Package report turns a pipeline outcome into a YAML document and a
// console summary listing every result element next to its reference.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/runner"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Status of a run
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Element is one output row
type Element struct {
	Index     int     `yaml:"index"`
	Result    float32 `yaml:"result"`
	Reference float32 `yaml:"reference"`
}

// Report is the serialized form of one run
type Report struct {
	RunID      string    `yaml:"run_id"`
	Status     string    `yaml:"status"`
	Backend    string    `yaml:"backend"`
	Platform   string    `yaml:"platform,omitempty"`
	Device     string    `yaml:"device,omitempty"`
	Shape      string    `yaml:"shape"`
	Elements   []Element `yaml:"elements,omitempty"`
	MaxAbsDiff float64   `yaml:"max_abs_diff"`
	ElapsedMS  float64   `yaml:"elapsed_ms"`
	Stage      string    `yaml:"failed_after,omitempty"`
	ErrorKind  string    `yaml:"error_kind,omitempty"`
	Error      string    `yaml:"error,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// FromOutcome builds a passed report
func FromOutcome(out *runner.Outcome) *Report {
	r := &Report{
		RunID:      out.RunID,
		Status:     StatusPassed,
		Backend:    out.Backend,
		Platform:   out.Platform,
		Device:     out.Device,
		Shape:      out.Shape.String(),
		MaxAbsDiff: out.MaxAbsDiff,
		ElapsedMS:  float64(out.Elapsed) / float64(time.Millisecond),
		CreatedAt:  time.Now().UTC(),
	}
	for i := range out.Result {
		r.Elements = append(r.Elements, Element{Index: i, Result: out.Result[i], Reference: out.Reference[i]})
	}
	return r
}

// FromError builds a failed report. err is normally a *runner.Failure; any
// other error is reported without a stage.
func FromError(backend string, opts runner.Options, err error) *Report {
	r := &Report{
		Status:    StatusFailed,
		Backend:   backend,
		Shape:     opts.Shape.String(),
		ErrorKind: device.KindOf(err).String(),
		Error:     err.Error(),
		CreatedAt: time.Now().UTC(),
	}
	var failure *runner.Failure
	if errors.As(err, &failure) {
		r.RunID = failure.RunID
		r.Stage = failure.Stage.String()
	}
	return r
}

// Passed reports whether the run validated
func (r *Report) Passed() bool { return r.Status == StatusPassed }

// WriteYAML encodes r to w
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// Save writes the YAML report to path
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	if err := r.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a report written by Save
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}

// PrintSummary writes the per-element comparison and a pass/fail line
func (r *Report) PrintSummary(w io.Writer) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	header.Fprintf(w, "━━━ matvec %s on %s ━━━\n", r.Shape, r.target())
	for _, e := range r.Elements {
		clr := color.New(color.FgGreen)
		if e.Result != e.Reference {
			clr = color.New(color.FgYellow)
		}
		clr.Fprintf(w, "  result[%d] = %g", e.Index, e.Result)
		dim.Fprintf(w, ", correct[%d] = %g\n", e.Index, e.Reference)
	}

	if r.Passed() {
		color.New(color.FgGreen, color.Bold).Fprint(w, "✓ result matches host reference ")
		dim.Fprintf(w, "(max |diff| %g, %.3f ms, run %s)\n", r.MaxAbsDiff, r.ElapsedMS, r.RunID)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(w, "✗ %s", r.ErrorKind)
	if r.Stage != "" {
		dim.Fprintf(w, " after %s", r.Stage)
	}
	fmt.Fprintln(w)
	color.New(color.FgRed).Fprintf(w, "    └─ %s\n", r.Error)
}

func (r *Report) target() string {
	if r.Device == "" {
		return r.Backend
	}
	return fmt.Sprintf("%s (%s, %s)", r.Device, r.Platform, r.Backend)
}

// PrintInputs writes the host matrix and vector the run was given
func PrintInputs(w io.Writer, in runner.HostArrays) {
	m := mat.NewDense(in.Shape.Rows, in.Shape.Cols, toFloat64(in.Matrix))
	v := mat.NewVecDense(in.Shape.Cols, toFloat64(in.Vector))
	fmt.Fprintf(w, "matrix =\n%v\n", mat.Formatted(m, mat.Prefix(""), mat.Squeeze()))
	fmt.Fprintf(w, "vector =\n%v\n", mat.Formatted(v.T(), mat.Prefix(""), mat.Squeeze()))
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
