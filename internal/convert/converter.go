// Package convert implements the IAMC conversion engine: it turns index
// entries and their source tables into one normalized long-format table
// with the columns model, scenario, region, variable, unit, year,
// value.
//
// Each entry is a pure function of (entry, source table, shared
// lookups), so entries run concurrently and their partial outputs are
// concatenated in index order afterwards.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/iamconv/internal/frame"
	"github.com/leapstack-labs/iamconv/internal/index"
)

// Config holds converter configuration.
type Config struct {
	// Entries is the parsed index; entries without an iamc key are
	// skipped.
	Entries []index.Entry
	// Indices is the raw `indices` config section: canonical column to
	// scalar default or lookup table path.
	Indices map[string]any
	// BasePath anchors entry paths and lookup table paths; usually the
	// index file's directory.
	BasePath string
	// Jobs bounds concurrent entry conversions; 0 means GOMAXPROCS.
	Jobs int
	// KeepGoing continues past per-entry failures instead of aborting
	// the run on the first one.
	KeepGoing bool
	// Logger is optional; nil discards.
	Logger *slog.Logger
}

// Converter drives a conversion run. Construct once per run with New;
// safe for a single Run call.
type Converter struct {
	entries   []index.Entry
	lookups   Lookups
	basepath  string
	jobs      int
	keepGoing bool
	logger    *slog.Logger
}

// Result is the outcome of a run: the accumulated IAMC table, one
// record per attempted entry, and the duplicate-key warnings.
type Result struct {
	Table    *Table
	Entries  []EntryResult
	Warnings []*DuplicateKeyError
}

// EntryResult records one entry's conversion.
type EntryResult struct {
	Name     string
	Path     string
	Rows     int
	Duration time.Duration
	Err      error
}

// Failed returns the results of entries that did not convert.
func (r *Result) Failed() []EntryResult {
	var out []EntryResult
	for _, er := range r.Entries {
		if er.Err != nil {
			out = append(out, er)
		}
	}
	return out
}

// New builds a converter: loads the lookup configuration, drops entries
// without an iamc key, dedupes entries sharing a path (first wins), and
// checks every template against the entry's canonical columns and the
// lookups so unresolvable placeholders fail before any dataset is read.
func New(cfg Config) (*Converter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lookups, err := LoadLookups(cfg.Indices, cfg.BasePath)
	if err != nil {
		return nil, err
	}

	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	c := &Converter{
		lookups:   lookups,
		basepath:  cfg.BasePath,
		jobs:      jobs,
		keepGoing: cfg.KeepGoing,
		logger:    logger,
	}

	seen := map[string]bool{}
	for i := range cfg.Entries {
		e := cfg.Entries[i]
		if !e.HasIAMC() {
			logger.Debug("skipping entry without iamc variable", "entry", e.Label())
			continue
		}
		if seen[e.Path] {
			logger.Warn("duplicate entries, picking first", "path", e.Path)
			continue
		}
		seen[e.Path] = true
		if err := c.checkTemplate(&e); err != nil {
			return nil, err
		}
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// checkTemplate verifies that each placeholder can resolve from the
// entry's canonical columns or a configured scalar default.
func (c *Converter) checkTemplate(e *index.Entry) error {
	canonical := map[string]bool{}
	for _, col := range e.CanonicalIdxCols() {
		canonical[col] = true
	}
	for _, col := range e.Template().Columns() {
		if canonical[col] {
			continue
		}
		if _, ok := c.lookups.Scalar(col); ok {
			continue
		}
		return &FormatError{Entry: e.Label(), Template: e.IAMC, Column: col}
	}
	return nil
}

// Entries returns the entries that will be converted.
func (c *Converter) Entries() []index.Entry { return c.entries }

// Select narrows the run to the entries matching the given keys, each
// matched against the entry name or path. A key matching no entry is an
// error.
func (c *Converter) Select(keys []string) error {
	picked := map[int]bool{}
	for _, key := range keys {
		found := false
		for i := range c.entries {
			e := &c.entries[i]
			if e.Name == key || e.Path == key {
				picked[i] = true
				found = true
			}
		}
		if !found {
			return fmt.Errorf("no index entry matches %q", key)
		}
	}

	var selected []index.Entry
	for i := range c.entries {
		if picked[i] {
			selected = append(selected, c.entries[i])
		}
	}
	c.entries = selected
	return nil
}

// Run converts every entry and concatenates the partial outputs in
// index order. Without KeepGoing the first entry error cancels the
// remaining conversions and is returned; with KeepGoing failures are
// recorded per entry in the Result and the error is nil.
func (c *Converter) Run(ctx context.Context) (*Result, error) {
	type partial struct {
		rows     []OutputRow
		yearless bool
	}

	partials := make([]partial, len(c.entries))
	results := make([]EntryResult, len(c.entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs)
	for i := range c.entries {
		g.Go(func() error {
			e := &c.entries[i]
			start := time.Now()
			rows, yearless, err := c.convertEntry(gctx, e)
			results[i] = EntryResult{
				Name:     e.Name,
				Path:     e.Path,
				Rows:     len(rows),
				Duration: time.Since(start),
				Err:      err,
			}
			if err != nil {
				c.logger.Error("entry conversion failed", "entry", e.Label(), "error", err)
				if c.keepGoing {
					return nil
				}
				return err
			}
			partials[i] = partial{rows: rows, yearless: yearless}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	asm := newAssembler()
	for i, p := range partials {
		if results[i].Err != nil || len(p.rows) == 0 {
			continue
		}
		if err := asm.add(c.entries[i].Label(), p.rows, p.yearless); err != nil {
			return nil, err
		}
	}

	if asm.table.Len() == 0 {
		c.logger.Warn("empty data set, check config and index file")
	}
	for _, w := range asm.warnings {
		c.logger.Warn("duplicate IAMC key", "key", w.Error())
	}

	return &Result{Table: asm.table, Entries: results, Warnings: asm.warnings}, nil
}

// convertEntry runs the per-entry pipeline: read, resolve aliases,
// aggregate, format the variable column, assemble output rows.
func (c *Converter) convertEntry(ctx context.Context, e *index.Entry) ([]OutputRow, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	fr, err := frame.ReadCSV(filepath.Join(c.basepath, e.Path), e.Skip, e.IdxCols)
	if err != nil {
		return nil, false, err
	}
	if err := fr.Rename(e.Alias); err != nil {
		return nil, false, fmt.Errorf("entry %s: alias: %w", e.Label(), err)
	}
	if fr.Len() == 0 {
		c.logger.Warn("empty dataframe, check index entry", "entry", e.Label())
	}

	var rows []OutputRow
	yearless := false
	merge := func(part []OutputRow, partYearless bool) error {
		if len(rows) == 0 && len(part) > 0 {
			yearless = partYearless
		} else if len(part) > 0 && partYearless != yearless {
			return fmt.Errorf("entry %s: inconsistent year resolution within entry", e.Label())
		}
		rows = append(rows, part...)
		return nil
	}

	rest := fr
	if col, rules, ok := e.AggColumn(); ok {
		var aggs []aggregated
		aggs, rest, err = aggregate(fr, col, rules)
		if err != nil {
			return nil, false, fmt.Errorf("entry %s: agg: %w", e.Label(), err)
		}
		for _, agg := range aggs {
			vars := make([]string, agg.fr.Len())
			for i := range vars {
				vars[i] = agg.variable
			}
			part, partYearless, err := assembleRows(e, agg.fr, vars, c.lookups)
			if err != nil {
				return nil, false, err
			}
			if err := merge(part, partYearless); err != nil {
				return nil, false, err
			}
		}
	}

	vars, err := formatVariable(e, rest, c.lookups)
	if err != nil {
		return nil, false, err
	}
	part, partYearless, err := assembleRows(e, rest, vars, c.lookups)
	if err != nil {
		return nil, false, err
	}
	if err := merge(part, partYearless); err != nil {
		return nil, false, err
	}

	c.logger.Debug("converted entry", "entry", e.Label(), "rows", len(rows))
	return rows, yearless, nil
}

// RunAll is a convenience for library callers: parse an index file,
// convert everything in it, and return the result.
func RunAll(ctx context.Context, indexPath string, indices map[string]any, logger *slog.Logger) (*Result, error) {
	entries, err := index.Load(indexPath)
	if err != nil {
		return nil, err
	}
	conv, err := New(Config{
		Entries:  entries,
		Indices:  indices,
		BasePath: filepath.Dir(indexPath),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return conv.Run(ctx)
}

// ErrNoEntries is returned by callers that require a non-empty index.
var ErrNoEntries = errors.New("no convertible index entries")
