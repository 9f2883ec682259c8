package index

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates an index file. The file is a YAML (or JSON)
// list of entries; unknown keys are rejected. All validation happens
// here, before any dataset I/O.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes and validates index entries from YAML or JSON bytes.
func Parse(data []byte) ([]Entry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, &ConfigError{Msg: "empty index file"}
		}
		return nil, &ConfigError{Msg: fmt.Sprintf("bad index file: %v", err)}
	}

	for i := range entries {
		if err := validate(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// validate applies the eager configuration checks and compiles the
// entry's template. Checks mirror the documented index contract:
// exactly one aggregated column, disjoint rule value sets, no alias
// collisions.
func validate(e *Entry) error {
	if e.Path == "" {
		return configErrf(e.Label(), "path", "missing path")
	}
	if e.Skip < 0 {
		return configErrf(e.Label(), "skip", "negative skip (%d)", e.Skip)
	}

	if err := validateAlias(e); err != nil {
		return err
	}

	canonical := map[string]bool{}
	for _, c := range e.CanonicalIdxCols() {
		if canonical[c] {
			return configErrf(e.Label(), "idxcols", "duplicate column %q after alias resolution", c)
		}
		canonical[c] = true
	}

	if err := validateAgg(e, canonical); err != nil {
		return err
	}

	if e.IAMC != "" {
		t, err := ParseTemplate(e.IAMC)
		if err != nil {
			return configErrf(e.Label(), "iamc", "%v", err)
		}
		e.template = t
	} else if len(e.Agg) > 0 {
		return configErrf(e.Label(), "agg", "aggregation rules without an iamc variable")
	}
	return nil
}

func validateAlias(e *Entry) error {
	idx := map[string]bool{}
	for _, c := range e.IdxCols {
		idx[c] = true
	}
	targets := map[string]string{}
	for from, to := range e.Alias {
		if to == "" {
			return configErrf(e.Label(), "alias", "empty target for column %q", from)
		}
		if prev, dup := targets[to]; dup {
			// map iteration order is random; normalize for a stable message
			a, b := prev, from
			if a > b {
				a, b = b, a
			}
			return configErrf(e.Label(), "alias", "columns %q and %q both renamed to %q", a, b, to)
		}
		targets[to] = from
		// Renaming onto a column that stays in place would shadow it.
		if idx[to] {
			if _, renamedAway := e.Alias[to]; !renamedAway {
				return configErrf(e.Label(), "alias", "renaming %q to %q collides with existing column", from, to)
			}
		}
	}
	return nil
}

func validateAgg(e *Entry, canonical map[string]bool) error {
	if len(e.Agg) == 0 {
		return nil
	}
	if len(e.Agg) > 1 {
		return configErrf(e.Label(), "agg", "aggregation on %d columns, only one column may carry rules", len(e.Agg))
	}
	col, rules, _ := e.AggColumn()
	if !canonical[col] {
		return configErrf(e.Label(), "agg", "column %q is not a canonical index column", col)
	}
	if len(rules) == 0 {
		return configErrf(e.Label(), "agg", "column %q has no rules", col)
	}
	claimed := map[string]string{} // raw value -> claiming rule variable
	for _, r := range rules {
		if r.Variable == "" {
			return configErrf(e.Label(), "agg", "column %q: rule with empty variable", col)
		}
		if len(r.Values) == 0 {
			return configErrf(e.Label(), "agg", "column %q: rule %q has no values", col, r.Variable)
		}
		for _, v := range r.Values {
			if prev, ok := claimed[v]; ok {
				if prev == r.Variable {
					return configErrf(e.Label(), "agg", "column %q: rule %q lists value %q twice", col, r.Variable, v)
				}
				return configErrf(e.Label(), "agg",
					"column %q: value %q claimed by both rule %q and rule %q", col, v, prev, r.Variable)
			}
			claimed[v] = r.Variable
		}
	}
	return nil
}
