package index

import "fmt"

// ConfigError is a malformed index entry or index file. It is raised
// during Load, before any dataset is read, and aborts the run.
type ConfigError struct {
	// Entry is the offending entry's name or path; empty for file-level
	// problems.
	Entry string
	// Field is the index key at fault (agg, alias, iamc, ...).
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Entry == "":
		return fmt.Sprintf("index: %s", e.Msg)
	case e.Field == "":
		return fmt.Sprintf("index entry %s: %s", e.Entry, e.Msg)
	default:
		return fmt.Sprintf("index entry %s: %s: %s", e.Entry, e.Field, e.Msg)
	}
}

func configErrf(entry, field, format string, args ...any) *ConfigError {
	return &ConfigError{Entry: entry, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// UnresolvedColumnError is returned by Template.Render when the
// resolver supplies no value for a referenced column.
type UnresolvedColumnError struct {
	Template string
	Column   string
}

func (e *UnresolvedColumnError) Error() string {
	return fmt.Sprintf("template %q: unresolved column %q", e.Template, e.Column)
}
