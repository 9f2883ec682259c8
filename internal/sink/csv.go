package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/iamconv/internal/convert"
)

func init() {
	Register("csv", func(logger *slog.Logger) Sink { return NewCSVSink(logger) })
}

// CSVSink writes the output table as CSV, either in the long IAMC
// layout or pivoted wide with one column per year.
type CSVSink struct {
	logger *slog.Logger
	cfg    Config
	out    io.WriteCloser
	stdout bool
}

// NewCSVSink creates a new CSV sink instance.
func NewCSVSink(logger *slog.Logger) *CSVSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CSVSink{logger: logger}
}

// Open prepares the output file. An empty or "-" path writes to stdout.
func (s *CSVSink) Open(_ context.Context, cfg Config) error {
	s.cfg = cfg
	if cfg.Path == "" || cfg.Path == "-" {
		s.out = os.Stdout
		s.stdout = true
		return nil
	}

	f, err := os.Create(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	s.out = f
	return nil
}

// Close closes the output file. Stdout is left open.
func (s *CSVSink) Close() error {
	if s.out == nil || s.stdout {
		return nil
	}
	return s.out.Close()
}

// Write writes the table. In wide mode years pivot into columns; a
// yearless table has no year to pivot and falls back to the long layout.
func (s *CSVSink) Write(_ context.Context, table *convert.Table) error {
	if s.out == nil {
		return fmt.Errorf("sink not opened")
	}

	w := csv.NewWriter(s.out)
	var err error
	if s.cfg.Wide && !table.Yearless() {
		err = writeWide(w, table)
	} else {
		err = writeLong(w, table)
	}
	if err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func writeLong(w *csv.Writer, table *convert.Table) error {
	if err := w.Write(table.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range table.Rows() {
		if err := w.Write(table.Record(row, formatValue)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// writeWide emits one row per (model, scenario, region, variable, unit)
// with the years spread across columns. Cells without data stay empty.
func writeWide(w *csv.Writer, table *convert.Table) error {
	type series struct {
		key    [5]string
		values map[string]float64
	}

	var (
		order   []*series
		byKey   = map[[5]string]*series{}
		yearSet = map[string]struct{}{}
	)
	for _, row := range table.Rows() {
		key := [5]string{row.Model, row.Scenario, row.Region, row.Variable, row.Unit}
		sr, ok := byKey[key]
		if !ok {
			sr = &series{key: key, values: map[string]float64{}}
			byKey[key] = sr
			order = append(order, sr)
		}
		sr.values[row.Year] = row.Value
		yearSet[row.Year] = struct{}{}
	}

	years := sortedYears(yearSet)
	header := append([]string{"model", "scenario", "region", "variable", "unit"}, years...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, sr := range order {
		rec := sr.key[:]
		for _, y := range years {
			if v, ok := sr.values[y]; ok {
				rec = append(rec, formatValue(v))
			} else {
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// sortedYears orders years numerically when every year parses as an
// integer, lexically otherwise.
func sortedYears(set map[string]struct{}) []string {
	years := make([]string, 0, len(set))
	numeric := true
	for y := range set {
		years = append(years, y)
		if _, err := strconv.Atoi(strings.TrimSpace(y)); err != nil {
			numeric = false
		}
	}
	sort.Slice(years, func(i, j int) bool {
		if numeric {
			a, _ := strconv.Atoi(strings.TrimSpace(years[i]))
			b, _ := strconv.Atoi(strings.TrimSpace(years[j]))
			return a < b
		}
		return years[i] < years[j]
	})
	return years
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
