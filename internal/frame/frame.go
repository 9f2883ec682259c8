// Package frame holds the in-memory table the conversion pipeline works
// on: an ordered set of string key columns plus one numeric value
// column. Frames are cheap views; Filter shares row storage with its
// parent, and nothing mutates a row after construction.
package frame

import "fmt"

// Row is one observation: key values parallel to the frame's columns,
// and the quantity being converted.
type Row struct {
	Key   []string
	Value float64
}

// Frame is a keyed table with a single value column.
type Frame struct {
	cols []string
	pos  map[string]int
	rows []Row
}

// New creates an empty frame with the given key columns.
func New(cols []string) (*Frame, error) {
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := pos[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		pos[c] = i
	}
	return &Frame{cols: append([]string(nil), cols...), pos: pos}, nil
}

// Columns returns the key column names in order.
func (f *Frame) Columns() []string { return f.cols }

// Has reports whether the frame has the named key column.
func (f *Frame) Has(col string) bool {
	_, ok := f.pos[col]
	return ok
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Rows returns the backing row slice; callers must not modify it.
func (f *Frame) Rows() []Row { return f.rows }

// Append adds a row. The key must have one value per column.
func (f *Frame) Append(key []string, value float64) error {
	if len(key) != len(f.cols) {
		return fmt.Errorf("row has %d key values, frame has %d columns", len(key), len(f.cols))
	}
	f.rows = append(f.rows, Row{Key: key, Value: value})
	return nil
}

// Get returns the row's value for the named column.
func (f *Frame) Get(r Row, col string) (string, bool) {
	i, ok := f.pos[col]
	if !ok {
		return "", false
	}
	return r.Key[i], true
}

// Rename renames key columns according to alias (source name to
// canonical name). Source names absent from the frame are ignored, so
// applying the same alias map twice is a no-op. Renaming onto a column
// that exists and is not itself renamed away in the same step is an
// error.
func (f *Frame) Rename(alias map[string]string) error {
	if len(alias) == 0 {
		return nil
	}
	next := make([]string, len(f.cols))
	for i, c := range f.cols {
		if to, ok := alias[c]; ok {
			next[i] = to
		} else {
			next[i] = c
		}
	}
	pos := make(map[string]int, len(next))
	for i, c := range next {
		if j, dup := pos[c]; dup {
			return fmt.Errorf("renaming collides on column %q (positions %d and %d)", c, j, i)
		}
		pos[c] = i
	}
	f.cols = next
	f.pos = pos
	return nil
}

// Distinct returns the column's distinct values in order of first
// appearance.
func (f *Frame) Distinct(col string) ([]string, error) {
	i, ok := f.pos[col]
	if !ok {
		return nil, fmt.Errorf("no column %q", col)
	}
	var vals []string
	seen := map[string]bool{}
	for _, r := range f.rows {
		if v := r.Key[i]; !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// Filter returns a frame with the same columns holding only rows whose
// value in col satisfies keep. Row storage is shared with the parent.
func (f *Frame) Filter(col string, keep func(string) bool) (*Frame, error) {
	i, ok := f.pos[col]
	if !ok {
		return nil, fmt.Errorf("no column %q", col)
	}
	out := &Frame{cols: f.cols, pos: f.pos}
	for _, r := range f.rows {
		if keep(r.Key[i]) {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

// GroupSumBy projects rows onto the given key columns and sums values
// within each group. Group order follows first appearance.
func (f *Frame) GroupSumBy(cols []string) (*Frame, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j, ok := f.pos[c]
		if !ok {
			return nil, fmt.Errorf("no column %q", c)
		}
		idx[i] = j
	}
	out, err := New(cols)
	if err != nil {
		return nil, err
	}
	group := map[string]int{} // composite key -> row index in out
	for _, r := range f.rows {
		key := make([]string, len(idx))
		for i, j := range idx {
			key[i] = r.Key[j]
		}
		ck := compositeKey(key)
		if at, ok := group[ck]; ok {
			out.rows[at].Value += r.Value
			continue
		}
		group[ck] = len(out.rows)
		out.rows = append(out.rows, Row{Key: key, Value: r.Value})
	}
	return out, nil
}

// compositeKey joins key values with an unlikely separator for map use.
func compositeKey(key []string) string {
	const sep = "\x1f"
	s := ""
	for i, v := range key {
		if i > 0 {
			s += sep
		}
		s += v
	}
	return s
}
