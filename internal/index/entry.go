// Package index parses and validates the dataset index file that drives
// IAMC conversion. Each entry describes one source table: where it lives,
// which columns form its key, how source columns map to canonical names,
// and how its rows become IAMC variables.
package index

// AggRule collapses a set of raw category values into a single output
// variable. Matched rows are summed over the remaining key columns and
// emitted under Variable, bypassing the entry's template.
type AggRule struct {
	Values   []string `yaml:"values"`
	Variable string   `yaml:"variable"`
}

// Entry is one record of the index file. Entries are constructed once at
// the start of a run and read-only afterwards.
type Entry struct {
	// Path locates the source table, relative to the index basepath.
	Path string `yaml:"path"`
	// Name is an optional human identifier; preferred over Path in logs.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// IdxCols are the source column names that together identify a row.
	IdxCols []string `yaml:"idxcols"`
	// Alias maps a source column name to its canonical name.
	Alias map[string]string `yaml:"alias"`
	// IAMC is the variable name, literal or with {column} placeholders.
	IAMC string `yaml:"iamc"`
	// Agg maps a canonical column to its aggregation rules. At most one
	// column may carry rules.
	Agg map[string][]AggRule `yaml:"agg"`
	// Skip is the number of leading lines to ignore when reading.
	Skip int `yaml:"skip"`
	// Sheet is accepted for Excel sources but ignored by the converter.
	Sheet any `yaml:"sheet"`

	template *Template
}

// Label returns the entry's name when set, else its path.
func (e *Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Path
}

// HasIAMC reports whether the entry participates in IAMC conversion.
// Entries without an iamc key are valid index records but are skipped by
// the converter.
func (e *Entry) HasIAMC() bool {
	return e.IAMC != ""
}

// Template returns the compiled iamc template. Only valid after the
// entry has passed Validate (Load validates every entry).
func (e *Entry) Template() *Template {
	return e.template
}

// CanonicalIdxCols returns the entry's key columns after alias
// resolution, in their original order.
func (e *Entry) CanonicalIdxCols() []string {
	cols := make([]string, len(e.IdxCols))
	for i, c := range e.IdxCols {
		cols[i] = e.canonical(c)
	}
	return cols
}

func (e *Entry) canonical(col string) string {
	if to, ok := e.Alias[col]; ok {
		return to
	}
	return col
}

// AggColumn returns the single aggregated column and its rules, or
// ok=false when the entry has no aggregation.
func (e *Entry) AggColumn() (string, []AggRule, bool) {
	for col, rules := range e.Agg {
		return col, rules, true
	}
	return "", nil, false
}
