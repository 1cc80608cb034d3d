// Package dataset reads measurement files for the usl command.
//
// The format is CSV with at least two columns, concurrency then throughput.
// Extra columns are ignored. A first row whose leading cells are not numbers
// is treated as a header. Lines starting with '#' are comments.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alexshd/usl"
)

// ErrEmpty is returned when the input holds no data rows.
var ErrEmpty = errors.New("dataset: no measurements")

// Dataset is a parsed measurement file.
type Dataset struct {
	Header       []string // nil when the file has no header row
	Measurements []usl.Measurement
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read parses (concurrency, throughput) rows into Measurements.
func Read(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var ds Dataset
	for first := true; ; first = false {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) < 2 {
			return Dataset{}, fmt.Errorf("dataset: line %d: expected 2 columns, got %d", line, len(record))
		}
		if first && isHeader(record) {
			ds.Header = record
			continue
		}

		m, err := parseRow(record)
		if err != nil {
			return Dataset{}, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		ds.Measurements = append(ds.Measurements, m)
	}

	if len(ds.Measurements) == 0 {
		return Dataset{}, ErrEmpty
	}
	return ds, nil
}

func parseRow(record []string) (usl.Measurement, error) {
	n, err := parseFloat(record[0])
	if err != nil {
		return usl.Measurement{}, fmt.Errorf("concurrency: %w", err)
	}
	x, err := parseFloat(record[1])
	if err != nil {
		return usl.Measurement{}, fmt.Errorf("throughput: %w", err)
	}
	return usl.ConcurrencyAndThroughput(n, x)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func isHeader(record []string) bool {
	for _, cell := range record[:2] {
		if _, err := parseFloat(cell); err == nil {
			return false
		}
	}
	return true
}
