package convert

import "fmt"

// MissingColumnError reports an IAMC mandatory column that could not be
// resolved from data, a configured default, or a lookup. It is fatal for
// the entry; the run continues past it only in keep-going mode.
type MissingColumnError struct {
	Entry  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("entry %s: mandatory column %q not in data and no default configured", e.Entry, e.Column)
}

// FormatError reports a template placeholder that references a column
// absent from both the dataset and the lookup configuration.
type FormatError struct {
	Entry    string
	Template string
	Column   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("entry %s: template %q: column %q not in data or lookup configuration", e.Entry, e.Template, e.Column)
}

// DuplicateKeyError records two source rows resolving to the same
// (model, scenario, region, variable, unit, year) tuple outside of an
// intended aggregation. Collected as warnings, never fatal on its own;
// the first row wins in the output.
type DuplicateKeyError struct {
	Model    string
	Scenario string
	Region   string
	Variable string
	Unit     string
	Year     string
	// FirstEntry produced the row that was kept, SecondEntry the one
	// that was reported. The two may name the same entry.
	FirstEntry  string
	SecondEntry string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key (%s, %s, %s, %s, %s, %s): kept row from entry %s, dropped row from entry %s",
		e.Model, e.Scenario, e.Region, e.Variable, e.Unit, e.Year, e.FirstEntry, e.SecondEntry)
}
