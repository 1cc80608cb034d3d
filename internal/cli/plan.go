package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexshd/usl"
	"github.com/alexshd/usl/internal/report"
)

var (
	planShort = "Recommend a concurrency level from a fitted USL model."
	planLong  = `
		Fit the measurements, then decide what to do with a system currently
		running at --current concurrent requests.

		Past the peak, every added unit lowers throughput and the plan is to shed
		load. Below the knee, the point where throughput first reaches
		--target-utilization of the peak, the plan is to scale up to the knee.
		In between, the plan is to hold. Models without a coherency penalty have
		no peak and are reported as unbounded.`
	planExample = `
		# Where should a service running 40 workers be?
		usl plan measurements.csv --current 40

		# Aim for 90% of peak throughput, JSON output
		usl plan measurements.csv --current 8 --target-utilization 0.9 --format json`
)

// PlanFlags are the flags of the plan command.
type PlanFlags struct {
	Current           int
	TargetUtilization float64
	Format            string
	Output            string
}

// NewPlanFlags returns the default PlanFlags.
func NewPlanFlags() *PlanFlags {
	return &PlanFlags{
		TargetUtilization: usl.DefaultPlanConfig().TargetUtilization,
		Format:            "text",
	}
}

// AddFlags registers flags for the plan command.
func (flags *PlanFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flags.Current, "current", flags.Current,
		"Concurrency the system currently runs at (required).")
	cmd.Flags().Float64Var(&flags.TargetUtilization, "target-utilization", flags.TargetUtilization,
		"Fraction of peak throughput that defines the knee, in (0, 1].")
	cmd.Flags().StringVar(&flags.Format, "format", flags.Format,
		"Output format: text or json.")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", flags.Output,
		"Write the report to a file instead of stdout.")
	_ = cmd.MarkFlagRequired("current")
}

// ToOptions validates the flags and positional arguments.
func (flags *PlanFlags) ToOptions(g *GlobalFlags, args []string) (*PlanOptions, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("exactly one input CSV file is required")
	}
	if flags.Current < 1 {
		return nil, fmt.Errorf("--current must be at least 1, got %d", flags.Current)
	}
	fitOpts, err := g.FitOptions()
	if err != nil {
		return nil, err
	}
	renderer, err := report.New(flags.Format, report.Options{NoColor: g.NoColor})
	if err != nil {
		return nil, err
	}
	return &PlanOptions{
		Input:      args[0],
		Current:    flags.Current,
		Plan:       usl.PlanConfig{TargetUtilization: flags.TargetUtilization},
		OutputPath: flags.Output,
		Fit:        fitOpts,
		Renderer:   renderer,
		global:     g,
	}, nil
}

// PlanOptions are the resolved inputs of the plan command.
type PlanOptions struct {
	Input      string
	Current    int
	Plan       usl.PlanConfig
	OutputPath string
	Fit        usl.FitOptions
	Renderer   report.Renderer

	global *GlobalFlags
}

// NewCmdPlan returns the plan command.
func NewCmdPlan(g *GlobalFlags) *cobra.Command {
	flags := NewPlanFlags()
	cmd := &cobra.Command{
		Use:     "plan <input.csv> --current N",
		Short:   planShort,
		Long:    planLong,
		Example: planExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := flags.ToOptions(g, args)
			if err != nil {
				return err
			}
			return o.Run(cmd.OutOrStdout())
		},
	}
	flags.AddFlags(cmd)
	return cmd
}

func (o *PlanOptions) Run(stdout io.Writer) error {
	model, ms, err := load(o.Input, o.Fit)
	if err != nil {
		return err
	}
	rec, err := model.Plan(o.Current, o.Plan)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	rep, err := report.Build(model, ms, nil)
	if err != nil {
		return err
	}
	o.global.Logger().Info("plan ready",
		"model", model.String(),
		"decision", string(rec.Decision),
		"current", rec.Current,
		"target", rec.Target)

	return writeReport(o.Renderer, rep.WithPlan(rec), o.OutputPath, stdout)
}
