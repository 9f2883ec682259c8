package convert

import (
	"errors"

	"github.com/leapstack-labs/iamconv/internal/frame"
	"github.com/leapstack-labs/iamconv/internal/index"
)

// formatVariable renders the entry's iamc template for every row of fr,
// returning one variable string per row. Placeholder columns resolve,
// in order, to the row's lookup label, the row's raw value, or a
// configured scalar default for columns absent from the frame. A
// placeholder with none of these is a FormatError.
//
// Only combinations present in the rows are rendered; the formatter
// never invents unobserved ones.
func formatVariable(entry *index.Entry, fr *frame.Frame, lookups Lookups) ([]string, error) {
	tmpl := entry.Template()

	if tmpl.IsLiteral() {
		lit := tmpl.Literal()
		vars := make([]string, fr.Len())
		for i := range vars {
			vars[i] = lit
		}
		return vars, nil
	}

	// A table lookup without the column in the data has nothing to join
	// against, so only data columns and scalar defaults resolve.
	for _, col := range tmpl.Columns() {
		if _, scalar := lookups.Scalar(col); !fr.Has(col) && !scalar {
			return nil, &FormatError{Entry: entry.Label(), Template: tmpl.String(), Column: col}
		}
	}

	vars := make([]string, 0, fr.Len())
	for _, row := range fr.Rows() {
		v, err := tmpl.Render(func(col string) (string, bool) {
			if raw, ok := fr.Get(row, col); ok {
				if label, ok := lookups.Label(col, raw); ok {
					return label, true
				}
				return raw, true
			}
			return lookups.Scalar(col)
		})
		if err != nil {
			ferr := &FormatError{Entry: entry.Label(), Template: tmpl.String()}
			var uerr *index.UnresolvedColumnError
			if errors.As(err, &uerr) {
				ferr.Column = uerr.Column
			}
			return nil, ferr
		}
		vars = append(vars, v)
	}
	return vars, nil
}
