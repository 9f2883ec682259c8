package convert

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/leapstack-labs/iamconv/internal/index"
)

// Lookup resolves values for one canonical column. It is either a
// scalar default (mandatory IAMC columns absent from a dataset) or a
// value-to-label table loaded from a 2-column CSV (user columns whose
// raw categories need humanizing in variable names).
type Lookup struct {
	column string
	scalar string
	labels map[string]string
}

// IsScalar reports whether the lookup is a broadcast default.
func (l *Lookup) IsScalar() bool { return l.labels == nil }

// Scalar returns the default value; empty for table lookups.
func (l *Lookup) Scalar() string {
	if l.IsScalar() {
		return l.scalar
	}
	return ""
}

// Label returns the display label for a raw value. ok is false when the
// lookup is scalar or the value has no row in the table.
func (l *Lookup) Label(raw string) (string, bool) {
	v, ok := l.labels[raw]
	return v, ok
}

// Lookups holds the shared, read-only per-column lookup configuration
// for a conversion run.
type Lookups map[string]*Lookup

// Has reports whether any lookup is configured for the column.
func (ls Lookups) Has(col string) bool {
	_, ok := ls[col]
	return ok
}

// Scalar returns the configured default for the column, if any.
func (ls Lookups) Scalar(col string) (string, bool) {
	l, ok := ls[col]
	if !ok || !l.IsScalar() {
		return "", false
	}
	return l.scalar, true
}

// Label returns the display label for a raw value of the column. ok is
// false when no table lookup covers it; callers fall back to the raw
// value.
func (ls Lookups) Label(col, raw string) (string, bool) {
	l, ok := ls[col]
	if !ok {
		return "", false
	}
	return l.Label(raw)
}

// LoadLookups builds the run's lookup set from the `indices` section of
// the run configuration. Mandatory IAMC columns take scalar defaults
// (string or number); any other column names a 2-column CSV
// (name,iamc), resolved against basepath, mapping raw values to display
// labels. Runs once per conversion, before any dataset is read.
func LoadLookups(indices map[string]any, basepath string) (Lookups, error) {
	mandatory := map[string]bool{}
	for _, c := range MandatoryColumns {
		mandatory[c] = true
	}

	ls := make(Lookups, len(indices))
	for col, v := range indices {
		if mandatory[col] {
			scalar, err := scalarValue(v)
			if err != nil {
				return nil, &index.ConfigError{Field: "indices", Msg: fmt.Sprintf("column %q: %v", col, err)}
			}
			ls[col] = &Lookup{column: col, scalar: scalar}
			continue
		}
		path, ok := v.(string)
		if !ok {
			return nil, &index.ConfigError{Field: "indices",
				Msg: fmt.Sprintf("column %q: want a lookup table path, got %T", col, v)}
		}
		labels, err := readLabels(filepath.Join(basepath, path))
		if err != nil {
			return nil, fmt.Errorf("indices: column %q: %w", col, err)
		}
		ls[col] = &Lookup{column: col, labels: labels}
	}
	return ls, nil
}

func scalarValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return fmt.Sprintf("%d", x), nil
	case int64:
		return fmt.Sprintf("%d", x), nil
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x)), nil
		}
		return fmt.Sprintf("%v", x), nil
	default:
		return "", fmt.Errorf("want a scalar default, got %T", v)
	}
}

// readLabels reads a 2-column lookup table. The header must carry
// "name" and "iamc" columns; rows with an empty iamc label fall back to
// the capitalized name.
func readLabels(path string) (map[string]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lookup table: %w", err)
	}
	defer fh.Close()

	cr := csv.NewReader(fh)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	nameAt, iamcAt := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "name":
			nameAt = i
		case "iamc":
			iamcAt = i
		}
	}
	if nameAt < 0 || iamcAt < 0 {
		return nil, fmt.Errorf("%s: lookup table needs 'name' and 'iamc' columns, got %v", path, header)
	}

	labels := map[string]string{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSpace(rec[nameAt])
		if name == "" {
			continue
		}
		label := strings.TrimSpace(rec[iamcAt])
		if label == "" {
			label = capitalize(name)
		}
		labels[name] = label
	}
	return labels, nil
}

// capitalize upper-cases the first rune and lower-cases the rest,
// the conventional fallback when a lookup row has no display label.
func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	out := strings.ToLower(string(r[1:]))
	return string(unicode.ToUpper(r[0])) + out
}
