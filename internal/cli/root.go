// Package cli implements the usl command.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alexshd/usl"
	"github.com/alexshd/usl/lm"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	LogLevel        string
	LogFormat       string
	NoColor         bool
	MaxIterations   int
	NumericJacobian bool

	logger *slog.Logger
}

// NewGlobalFlags returns the defaults.
func NewGlobalFlags() *GlobalFlags {
	return &GlobalFlags{
		LogLevel:      "info",
		LogFormat:     "console",
		MaxIterations: lm.DefaultSettings().MaxIterations,
	}
}

// AddFlags registers the persistent flags on the root command.
func (g *GlobalFlags) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", g.LogLevel,
		"Log level: debug, info, warn or error.")
	cmd.PersistentFlags().StringVar(&g.LogFormat, "log-format", g.LogFormat,
		"Log format: console or json.")
	cmd.PersistentFlags().BoolVar(&g.NoColor, "no-color", g.NoColor,
		"Disable coloured logs and report styling.")
	cmd.PersistentFlags().IntVar(&g.MaxIterations, "max-iterations", g.MaxIterations,
		"Solver iteration limit.")
	cmd.PersistentFlags().BoolVar(&g.NumericJacobian, "numeric-jacobian", g.NumericJacobian,
		"Differentiate residuals numerically instead of analytically.")
}

// Logger returns the logger configured in PersistentPreRunE.
func (g *GlobalFlags) Logger() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}

// FitOptions maps the solver flags onto usl.FitOptions.
func (g *GlobalFlags) FitOptions() (usl.FitOptions, error) {
	if g.MaxIterations <= 0 {
		return usl.FitOptions{}, fmt.Errorf("--max-iterations must be positive, got %d", g.MaxIterations)
	}
	settings := lm.DefaultSettings()
	settings.MaxIterations = g.MaxIterations
	return usl.FitOptions{
		Solver:          lm.New(settings),
		NumericJacobian: g.NumericJacobian,
		Logger:          g.Logger(),
	}, nil
}

// newRootCommand builds the usl command tree. Logs go to stderr, reports
// to stdout.
func newRootCommand(g *GlobalFlags, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usl",
		Short: "Build and evaluate Universal Scalability Law models",
		Long: `
		Fit the Universal Scalability Law

		    X(N) = λN / (1 + σ(N-1) + κN(N-1))

		to measured (concurrency, throughput) pairs and answer capacity questions
		against the fitted model: peak concurrency, predicted throughput and
		latency, and whether scaling is limited by contention or coherency.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := NewLogger(stderr, g.LogLevel, g.LogFormat, g.NoColor)
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	g.AddFlags(cmd)

	cmd.AddCommand(NewCmdFit(g))
	cmd.AddCommand(NewCmdPlan(g))
	return cmd
}

// Execute runs the command tree with args. Errors are logged before they
// are returned.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	g := NewGlobalFlags()
	root := newRootCommand(g, stdout, stderr)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return nil
	}

	logger := g.logger
	if logger == nil {
		// Flag parsing or logger setup failed; fall back to console output.
		logger, _ = NewLogger(stderr, "info", "console", g.NoColor)
	}
	name := root.Name()
	if cmd != nil {
		name = cmd.Name()
	}
	logger.Error("usl failed", "command", name, "error", err)
	return err
}
