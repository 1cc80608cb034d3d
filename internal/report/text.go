package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

// TextRenderer prints a human-readable report. Styling follows the
// destination: writers that are not terminals get plain text.
type TextRenderer struct {
	Plot    bool
	NoColor bool
	Width   int
	Height  int
}

type styles struct {
	title, section, label, good, bad, dim lipgloss.Style
	curve, point                          lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		section: r.NewStyle().Bold(true),
		label:   r.NewStyle().Foreground(lipgloss.Color("8")),
		good:    r.NewStyle().Foreground(lipgloss.Color("10")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:     r.NewStyle().Faint(true),
		curve:   r.NewStyle().Foreground(lipgloss.Color("12")),
		point:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}

func (t *TextRenderer) Render(rep Report, w io.Writer) error {
	r := lipgloss.NewRenderer(w)
	if t.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	st := newStyles(r)

	var sb strings.Builder
	field := func(label, format string, args ...any) {
		sb.WriteString(st.label.Render(label+":") + " " + fmt.Sprintf(format, args...) + "\n")
	}

	sb.WriteString(st.title.Render("=== USL Model ===") + "\n\n")
	field("σ (contention)", "%.6f", rep.Parameters.Sigma)
	field("κ (coherency)", "%.6g", rep.Parameters.Kappa)
	field("λ (throughput at N=1)", "%.4f", rep.Parameters.Lambda)
	field("R²", "%.4f", rep.RSquared)
	field("Class", "%s", describe(rep.Constraint))
	sb.WriteString("\n")

	sb.WriteString(st.section.Render("--- Capacity ---") + "\n")
	if rep.Peak != nil {
		field("Max concurrency", "%d", rep.Peak.Concurrency)
		field("Max throughput", "%.2f ops/sec", rep.Peak.Throughput)
	} else {
		field("Max concurrency", "%s", st.good.Render("unbounded"))
	}
	sb.WriteString("\n")

	if len(rep.Measurements) > 0 {
		sb.WriteString(st.section.Render("--- Measurements ---") + "\n")
		sb.WriteString(t.measurementTable(r, st, rep) + "\n\n")
	}

	if len(rep.Predictions) > 0 {
		sb.WriteString(st.section.Render("--- Predictions ---") + "\n")
		for _, p := range rep.Predictions {
			fmt.Fprintf(&sb, "%g,%.6f\n", p.Concurrency, p.Throughput)
		}
		sb.WriteString("\n")
	}

	if rep.Plan != nil {
		sb.WriteString(st.section.Render("--- Plan ---") + "\n")
		decision := st.good
		if rep.Plan.Decision == "SHED_LOAD" {
			decision = st.bad
		}
		field("Decision", "%s", decision.Render(rep.Plan.Decision))
		field("Current", "%d", rep.Plan.Current)
		field("Target", "%d", rep.Plan.Target)
		if rep.Plan.Peak > 0 {
			field("Utilization", "%.1f%% of peak", rep.Plan.Utilization*100)
		}
		field("Marginal gain", "%+.2f ops/sec", rep.Plan.MarginalGain)
		field("Reason", "%s", rep.Plan.Reason)
		sb.WriteString("\n")
	}

	if t.Plot {
		sb.WriteString(st.section.Render("--- Plot ---") + "\n")
		sb.WriteString(chart(rep, t.Width, t.Height, st))
		sb.WriteString(st.dim.Render("o measured   . model") + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (t *TextRenderer) measurementTable(r *lipgloss.Renderer, st styles, rep Report) string {
	cell := r.NewStyle().Padding(0, 1)
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.dim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col > 0 {
				return cell.Align(lipgloss.Right)
			}
			return cell
		}).
		Headers("N", "X measured", "X predicted", "error", "R")

	for _, m := range rep.Measurements {
		errPct := 0.0
		if m.Throughput != 0 {
			errPct = (m.Predicted - m.Throughput) / m.Throughput * 100
		}
		tbl.Row(
			fmt.Sprintf("%g", m.Concurrency),
			fmt.Sprintf("%.2f", m.Throughput),
			fmt.Sprintf("%.2f", m.Predicted),
			fmt.Sprintf("%+.1f%%", errPct),
			formatSeconds(m.Latency),
		)
	}
	return tbl.String()
}

func describe(constraint string) string {
	switch constraint {
	case "contention":
		return "contention constrained"
	case "coherency":
		return "coherency constrained"
	case "limitless":
		return "linearly scalable"
	default:
		return "balanced (σ = κ)"
	}
}

func formatSeconds(s float64) string {
	switch {
	case s >= 1:
		return fmt.Sprintf("%.3fs", s)
	case s >= 1e-3:
		return fmt.Sprintf("%.3fms", s*1e3)
	default:
		return fmt.Sprintf("%.1fµs", s*1e6)
	}
}
