package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alexshd/usl"
	"github.com/alexshd/usl/internal/dataset"
	"github.com/alexshd/usl/internal/report"
)

var (
	fitShort = "Fit a USL model to measurements and report it."
	fitLong  = `
		Fit a Universal Scalability Law model to a CSV file of (concurrency,
		throughput) rows and print the coefficients, the predicted peak, the
		bottleneck class and the goodness of fit.

		A header row is detected automatically and lines starting with '#' are
		ignored. Any further arguments are concurrency levels at which to
		predict throughput; predictions print as "N,X(N)" lines.`
	fitExample = `
		# Fit and report
		usl fit measurements.csv

		# Predict throughput at 64 and 128 concurrent requests, with a chart
		usl fit measurements.csv 64 128 --plot

		# Machine-readable output written to a file
		usl fit measurements.csv --format json -o model.json`
)

// FitFlags are the flags of the fit command.
type FitFlags struct {
	Plot   bool
	Format string
	Output string // -o / --output file path (empty => stdout)
}

// NewFitFlags returns the default FitFlags.
func NewFitFlags() *FitFlags {
	return &FitFlags{Format: "text"}
}

// AddFlags registers flags for the fit command.
func (flags *FitFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flags.Plot, "plot", flags.Plot,
		"Draw the model curve and the measurements as an ASCII chart (text format only).")
	cmd.Flags().StringVar(&flags.Format, "format", flags.Format,
		"Output format: text or json.")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", flags.Output,
		"Write the report to a file instead of stdout.")
}

// ToOptions validates the flags and positional arguments.
func (flags *FitFlags) ToOptions(g *GlobalFlags, args []string) (*FitOptions, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("an input CSV file is required")
	}
	fitOpts, err := g.FitOptions()
	if err != nil {
		return nil, err
	}
	renderer, err := report.New(flags.Format, report.Options{Plot: flags.Plot, NoColor: g.NoColor})
	if err != nil {
		return nil, err
	}

	o := &FitOptions{
		Input:      args[0],
		OutputPath: flags.Output,
		Fit:        fitOpts,
		Renderer:   renderer,
		global:     g,
	}
	for _, arg := range args[1:] {
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid concurrency %q: must be a non-negative number", arg)
		}
		o.Predictions = append(o.Predictions, n)
	}
	return o, nil
}

// FitOptions are the resolved inputs of the fit command.
type FitOptions struct {
	Input       string
	Predictions []float64
	OutputPath  string
	Fit         usl.FitOptions
	Renderer    report.Renderer

	global *GlobalFlags
}

// NewCmdFit returns the fit command.
func NewCmdFit(g *GlobalFlags) *cobra.Command {
	flags := NewFitFlags()
	cmd := &cobra.Command{
		Use:     "fit <input.csv> [concurrency...]",
		Short:   fitShort,
		Long:    fitLong,
		Example: fitExample,
		Args:    cobra.MinimumNArgs(1),
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

func (o *FitOptions) Run(stdout io.Writer) error {
	model, ms, err := load(o.Input, o.Fit)
	if err != nil {
		return err
	}

	rep, err := report.Build(model, ms, o.Predictions)
	if err != nil {
		return err
	}
	o.global.Logger().Info("model fitted",
		"input", o.Input,
		"measurements", len(ms),
		"model", model.String(),
		"r_squared", rep.RSquared)

	return writeReport(o.Renderer, rep, o.OutputPath, stdout)
}

// load reads the input and fits it.
func load(path string, opts usl.FitOptions) (usl.Model, []usl.Measurement, error) {
	ds, err := dataset.ReadFile(path)
	if err != nil {
		return usl.Model{}, nil, err
	}
	model, err := usl.FitWithOptions(ds.Measurements, opts)
	if err != nil {
		return usl.Model{}, nil, fmt.Errorf("fit %s: %w", path, err)
	}
	return model, ds.Measurements, nil
}

func writeReport(r report.Renderer, rep report.Report, path string, stdout io.Writer) error {
	if path == "" {
		return r.Render(rep, stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("setup output: %w", err)
	}
	if err := r.Render(rep, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
