package convert

import (
	"fmt"

	"github.com/leapstack-labs/iamconv/internal/frame"
	"github.com/leapstack-labs/iamconv/internal/index"
)

// assembleRows projects one resolved frame onto the IAMC columns,
// filling mandatory columns missing from the frame with their
// configured scalar defaults. variables carries one variable string per
// frame row. The yearless result is true when the entry has no year
// column and no year default; every other mandatory column must
// resolve or the entry fails with a MissingColumnError.
func assembleRows(entry *index.Entry, fr *frame.Frame, variables []string, lookups Lookups) ([]OutputRow, bool, error) {
	get := func(col string) (func(frame.Row) string, error) {
		if fr.Has(col) {
			return func(r frame.Row) string {
				v, _ := fr.Get(r, col)
				return v
			}, nil
		}
		if v, ok := lookups.Scalar(col); ok {
			return func(frame.Row) string { return v }, nil
		}
		return nil, &MissingColumnError{Entry: entry.Label(), Column: col}
	}

	model, err := get("model")
	if err != nil {
		return nil, false, err
	}
	scenario, err := get("scenario")
	if err != nil {
		return nil, false, err
	}
	region, err := get("region")
	if err != nil {
		return nil, false, err
	}
	unit, err := get("unit")
	if err != nil {
		return nil, false, err
	}

	// year is the one mandatory column allowed to be absent: purely
	// non-time-indexed data degrades to yearless output.
	yearless := false
	year, err := get("year")
	if err != nil {
		yearless = true
		year = func(frame.Row) string { return "" }
	}

	rows := make([]OutputRow, 0, fr.Len())
	for i, r := range fr.Rows() {
		rows = append(rows, OutputRow{
			Model:    model(r),
			Scenario: scenario(r),
			Region:   region(r),
			Variable: variables[i],
			Unit:     unit(r),
			Year:     year(r),
			Value:    r.Value,
		})
	}
	return rows, yearless, nil
}

// assembler concatenates per-entry partial outputs into the run's
// single table, detecting rows that collapse onto an identical IAMC
// key. Appending is the only mutation; duplicates are reported and the
// first row wins.
type assembler struct {
	table    *Table
	seen     map[string]string // IAMC key -> entry that produced it
	warnings []*DuplicateKeyError
	started  bool
}

func newAssembler() *assembler {
	return &assembler{table: &Table{}, seen: map[string]string{}}
}

func (a *assembler) add(entry string, rows []OutputRow, yearless bool) error {
	if !a.started {
		a.table.yearless = yearless
		a.started = true
	} else if a.table.yearless != yearless {
		return fmt.Errorf("entry %s: cannot mix year-bearing and yearless datasets in one run", entry)
	}

	for _, r := range rows {
		key := r.Model + "\x1f" + r.Scenario + "\x1f" + r.Region + "\x1f" + r.Variable + "\x1f" + r.Unit + "\x1f" + r.Year
		if first, dup := a.seen[key]; dup {
			a.warnings = append(a.warnings, &DuplicateKeyError{
				Model: r.Model, Scenario: r.Scenario, Region: r.Region,
				Variable: r.Variable, Unit: r.Unit, Year: r.Year,
				FirstEntry: first, SecondEntry: entry,
			})
			continue
		}
		a.seen[key] = entry
		a.table.rows = append(a.table.rows, r)
	}
	return nil
}
