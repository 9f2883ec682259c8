package convert

// MandatoryColumns is the IAMC index: every output row must carry a
// value for each of these plus the value column itself.
var MandatoryColumns = []string{"model", "scenario", "region", "variable", "unit", "year"}

// OutputRow is one row of the IAMC long-format output. Year is the
// empty string only in yearless runs.
type OutputRow struct {
	Model    string
	Scenario string
	Region   string
	Variable string
	Unit     string
	Year     string
	Value    float64
}

// Table is the accumulated IAMC output across all index entries. It
// grows by append only.
type Table struct {
	rows     []OutputRow
	yearless bool
}

// NewTable wraps pre-assembled output rows. Converter runs build their
// table internally; this constructor serves sinks and tests.
func NewTable(rows []OutputRow, yearless bool) *Table {
	return &Table{rows: rows, yearless: yearless}
}

// Rows returns the output rows in entry order.
func (t *Table) Rows() []OutputRow { return t.rows }

// Len returns the number of output rows.
func (t *Table) Len() int { return len(t.rows) }

// Yearless reports whether the run produced no year column: no entry
// carried year data and no default was configured.
func (t *Table) Yearless() bool { return t.yearless }

// Columns returns the output column names: the six IAMC index columns
// plus value, with year omitted for yearless runs.
func (t *Table) Columns() []string {
	if t.yearless {
		return []string{"model", "scenario", "region", "variable", "unit", "value"}
	}
	return []string{"model", "scenario", "region", "variable", "unit", "year", "value"}
}

// Record returns the row as strings in Columns order, with the value
// formatted by fmtValue.
func (t *Table) Record(r OutputRow, fmtValue func(float64) string) []string {
	rec := []string{r.Model, r.Scenario, r.Region, r.Variable, r.Unit}
	if !t.yearless {
		rec = append(rec, r.Year)
	}
	return append(rec, fmtValue(r.Value))
}
