package report

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPlotWidth  = 72
	DefaultPlotHeight = 20
)

const (
	curveMark = '.'
	pointMark = 'o'
)

// chart draws the model's throughput curve over the measured points on a
// character grid, concurrency on the x axis.
func chart(rep Report, width, height int, st styles) string {
	if width <= 1 {
		width = DefaultPlotWidth
	}
	if height <= 1 {
		height = DefaultPlotHeight
	}
	m := rep.Model()

	xMax := 1.0
	for _, obs := range rep.Measurements {
		xMax = math.Max(xMax, obs.Concurrency)
	}
	if rep.Peak != nil {
		xMax = math.Max(xMax, float64(rep.Peak.Concurrency))
	}

	curve := make([]float64, width)
	yMax := 0.0
	for c := range curve {
		x, err := m.ThroughputAtConcurrency(xMax * float64(c) / float64(width-1))
		if err != nil || math.IsInf(x, 0) {
			x = math.NaN()
		}
		curve[c] = x
		if x > yMax {
			yMax = x
		}
	}
	for _, obs := range rep.Measurements {
		yMax = math.Max(yMax, obs.Throughput)
	}
	if yMax <= 0 {
		yMax = 1
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	row := func(y float64) int {
		return height - 1 - int(math.Round(y/yMax*float64(height-1)))
	}
	col := func(n float64) int {
		return int(math.Round(n / xMax * float64(width-1)))
	}

	for c, y := range curve {
		if !math.IsNaN(y) && y >= 0 {
			grid[row(y)][c] = curveMark
		}
	}
	for _, obs := range rep.Measurements {
		if r, c := row(obs.Throughput), col(obs.Concurrency); r >= 0 && r < height && c >= 0 && c < width {
			grid[r][c] = pointMark
		}
	}

	top := fmt.Sprintf("%.0f", yMax)
	pad := len(top)
	var sb strings.Builder
	for i, line := range grid {
		label := strings.Repeat(" ", pad)
		switch i {
		case 0:
			label = top
		case height - 1:
			label = fmt.Sprintf("%*d", pad, 0)
		}
		sb.WriteString(label + " |" + paint(line, st) + "\n")
	}
	sb.WriteString(strings.Repeat(" ", pad) + " +" + strings.Repeat("-", width) + "\n")
	right := fmt.Sprintf("N=%g", xMax)
	gap := width - len(right) - 1
	if gap < 1 {
		gap = 1
	}
	sb.WriteString(strings.Repeat(" ", pad+2) + "0" + strings.Repeat(" ", gap) + right + "\n")
	return sb.String()
}

// paint styles runs of marks on one grid line.
func paint(line []rune, st styles) string {
	var sb strings.Builder
	for i := 0; i < len(line); {
		j := i
		for j < len(line) && line[j] == line[i] {
			j++
		}
		run := string(line[i:j])
		switch line[i] {
		case curveMark:
			run = st.curve.Render(run)
		case pointMark:
			run = st.point.Render(run)
		}
		sb.WriteString(run)
		i = j
	}
	return sb.String()
}
