package main

import (
	"github.com/notargets/clmatvec/report"
	"github.com/notargets/clmatvec/runner"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var showInputs bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reference matrix-vector product and validate it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, showInputs)
		},
	}
	flags := cmd.Flags()
	flags.String("source", "", "kernel source artifact")
	flags.String("entry-point", "", "kernel function name")
	flags.Int("rows", 0, "matrix rows (one work-item each)")
	flags.Int("cols", 0, "matrix columns")
	flags.Float32("tolerance", 0, "largest accepted |result-reference| per element")
	flags.String("report", "", "write a YAML report to this path")
	flags.BoolVar(&showInputs, "show-inputs", false, "print the host matrix and vector")
	for key, name := range map[string]string{
		"kernel.source":        "source",
		"kernel.entry_point":   "entry-point",
		"shape.rows":           "rows",
		"shape.cols":           "cols",
		"validation.tolerance": "tolerance",
		"report.path":          "report",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

func (a *app) run(cmd *cobra.Command, showInputs bool) error {
	drv, err := a.driver()
	if err != nil {
		return err
	}
	opts, err := a.cfg.PipelineOptions()
	if err != nil {
		return err
	}
	in := runner.ReferenceFixture(opts.Shape)
	out := cmd.OutOrStdout()
	if showInputs {
		report.PrintInputs(out, in)
	}

	p := runner.NewPipeline(drv, opts, runner.WithLogger(a.logger))
	outcome, runErr := p.Run(in)

	var r *report.Report
	if runErr != nil {
		r = report.FromError(drv.Name(), p.Options(), runErr)
	} else {
		r = report.FromOutcome(outcome)
	}
	r.PrintSummary(out)

	if path := a.cfg.Report.Path; path != "" {
		if err := r.Save(path); err != nil {
			return err
		}
	}
	return runErr
}
