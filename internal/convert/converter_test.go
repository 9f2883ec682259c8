package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/iamconv/internal/index"
	"github.com/leapstack-labs/iamconv/internal/testutil"
)

// writeFiles drops the given name->content files into a temp dir and
// returns it; it acts as the conversion basepath.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func parseEntries(t *testing.T, yaml string) []index.Entry {
	t.Helper()
	entries, err := index.Parse([]byte(yaml))
	require.NoError(t, err)
	return entries
}

func runConversion(t *testing.T, cfg Config) *Result {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	conv, err := New(cfg)
	require.NoError(t, err)
	res, err := conv.Run(context.Background())
	require.NoError(t, err)
	return res
}

// variables returns the distinct variable strings in output order.
func variables(tbl *Table) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range tbl.Rows() {
		if !seen[r.Variable] {
			seen[r.Variable] = true
			out = append(out, r.Variable)
		}
	}
	return out
}

const windIndex = `
- path: flow_out_sum.csv
  idxcols: [scenario, carriers, techs, locs, unit, year]
  alias: {locs: region, techs: technology, carriers: carrier}
  iamc: "Primary Energy|{technology}"
  agg:
    technology:
      - values: [wind_onshore, wind_offshore]
        variable: "Primary Energy|Wind"
`

const windCSV = `scenario,carriers,techs,locs,unit,year,flow_out_sum
base,electricity,wind_onshore,DEU,GWh,2030,10
base,electricity,wind_offshore,DEU,GWh,2030,5
base,electricity,nuclear,DEU,GWh,2030,40
`

func TestAggregationScenario(t *testing.T) {
	dir := writeFiles(t, map[string]string{"flow_out_sum.csv": windCSV})

	res := runConversion(t, Config{
		Entries:  parseEntries(t, windIndex),
		Indices:  map[string]any{"model": "calliope"},
		BasePath: dir,
	})

	tbl := res.Table
	require.Equal(t, 2, tbl.Len())
	assert.ElementsMatch(t, []string{"Primary Energy|Wind", "Primary Energy|nuclear"}, variables(tbl))

	byVar := map[string]OutputRow{}
	for _, r := range tbl.Rows() {
		byVar[r.Variable] = r
	}

	wind := byVar["Primary Energy|Wind"]
	assert.Equal(t, 15.0, wind.Value, "aggregated value must be the sum of the wind rows")
	assert.Equal(t, "calliope", wind.Model)
	assert.Equal(t, "base", wind.Scenario)
	assert.Equal(t, "DEU", wind.Region)
	assert.Equal(t, "GWh", wind.Unit)
	assert.Equal(t, "2030", wind.Year)

	assert.Equal(t, 40.0, byVar["Primary Energy|nuclear"].Value)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Failed())
}

func TestAggregationMassConservation(t *testing.T) {
	// Wind rows spread over two regions: each group of the remaining key
	// columns must sum independently.
	csv := `scenario,techs,locs,unit,year,flow_out_sum
base,wind_onshore,DEU,GWh,2030,10
base,wind_offshore,DEU,GWh,2030,5
base,wind_onshore,FRA,GWh,2030,7
`
	idx := `
- path: flow_out_sum.csv
  idxcols: [scenario, techs, locs, unit, year]
  alias: {locs: region, techs: technology}
  iamc: "Primary Energy|{technology}"
  agg:
    technology:
      - values: [wind_onshore, wind_offshore]
        variable: "Primary Energy|Wind"
`
	dir := writeFiles(t, map[string]string{"flow_out_sum.csv": csv})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: dir,
	})

	var total float64
	byRegion := map[string]float64{}
	for _, r := range res.Table.Rows() {
		require.Equal(t, "Primary Energy|Wind", r.Variable)
		byRegion[r.Region] += r.Value
		total += r.Value
	}
	assert.Equal(t, 15.0, byRegion["DEU"])
	assert.Equal(t, 7.0, byRegion["FRA"])
	assert.Equal(t, 22.0, total)
}

func TestLiteralTemplate(t *testing.T) {
	csv := `scenario,locs,unit,year,cost
base,DEU,EUR,2030,1
high,FRA,EUR,2030,2
`
	idx := `
- path: costs.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Fixed Cost|Electricity|Fossil"
`
	dir := writeFiles(t, map[string]string{"costs.csv": csv})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: dir,
	})

	require.Equal(t, 2, res.Table.Len())
	for _, r := range res.Table.Rows() {
		assert.Equal(t, "Fixed Cost|Electricity|Fossil", r.Variable)
	}
}

func TestYearDefault(t *testing.T) {
	csv := `scenario,locs,unit,cap
base,DEU,GW,42
`
	idx := `
- path: cap.csv
  idxcols: [scenario, locs, unit]
  alias: {locs: region}
  iamc: "Capacity"
`
	dir := writeFiles(t, map[string]string{"cap.csv": csv})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m", "year": 2030},
		BasePath: dir,
	})

	require.Equal(t, 1, res.Table.Len())
	assert.False(t, res.Table.Yearless())
	assert.Equal(t, "2030", res.Table.Rows()[0].Year)
}

func TestYearlessRun(t *testing.T) {
	csv := `scenario,locs,unit,cap
base,DEU,GW,42
`
	idx := `
- path: cap.csv
  idxcols: [scenario, locs, unit]
  alias: {locs: region}
  iamc: "Capacity"
`
	dir := writeFiles(t, map[string]string{"cap.csv": csv})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: dir,
	})

	assert.True(t, res.Table.Yearless())
	assert.Equal(t, []string{"model", "scenario", "region", "variable", "unit", "value"}, res.Table.Columns())
	for _, r := range res.Table.Rows() {
		assert.Empty(t, r.Year)
	}
}

func TestTwoPlaceholderCombinations(t *testing.T) {
	csv := `scenario,carriers,techs,locs,unit,year,cap
base,electricity,wind,DEU,GW,2030,1
base,electricity,solar,DEU,GW,2030,2
base,heat,boiler,DEU,GW,2030,3
`
	idx := `
- path: cap.csv
  idxcols: [scenario, carriers, techs, locs, unit, year]
  alias: {locs: region, techs: technology, carriers: carrier}
  iamc: "Capacity|{carrier}|{technology}"
`
	dir := writeFiles(t, map[string]string{"cap.csv": csv})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: dir,
	})

	// Exactly the observed (carrier, technology) pairs: no invented
	// combinations like heat|wind.
	assert.ElementsMatch(t, []string{
		"Capacity|electricity|wind",
		"Capacity|electricity|solar",
		"Capacity|heat|boiler",
	}, variables(res.Table))
}

func TestLookupLabels(t *testing.T) {
	csv := `scenario,techs,locs,unit,year,cap
base,wind_onshore,DEU,GW,2030,1
base,ccgt,DEU,GW,2030,2
base,nuclear,DEU,GW,2030,3
`
	// ccgt has no iamc label: falls back to capitalized name. nuclear is
	// not in the table at all: raw value passes through.
	lookup := `name,iamc
wind_onshore,Onshore Wind
ccgt,
`
	idx := `
- path: cap.csv
  idxcols: [scenario, techs, locs, unit, year]
  alias: {locs: region, techs: technology}
  iamc: "Capacity|{technology}"
`
	dir := writeFiles(t, map[string]string{"cap.csv": csv, "technology.csv": lookup})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m", "technology": "technology.csv"},
		BasePath: dir,
	})

	assert.ElementsMatch(t, []string{
		"Capacity|Onshore Wind",
		"Capacity|Ccgt",
		"Capacity|nuclear",
	}, variables(res.Table))
}

func TestMissingMandatoryColumn(t *testing.T) {
	csv := `scenario,unit,year,cap
base,GW,2030,1
`
	idx := `
- path: cap.csv
  name: capacity
  idxcols: [scenario, unit, year]
  iamc: "Capacity"
`
	dir := writeFiles(t, map[string]string{"cap.csv": csv})
	conv, err := New(Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: dir,
		Logger:   testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	_, err = conv.Run(context.Background())
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "capacity", missing.Entry)
	assert.Equal(t, "region", missing.Column)
}

func TestUnresolvablePlaceholderFailsBeforeIO(t *testing.T) {
	// The referenced file does not exist: the template check must fire
	// at construction, before any read is attempted.
	idx := `
- path: nowhere.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Capacity|{technology}"
`
	_, err := New(Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: t.TempDir(),
	})
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "technology", ferr.Column)
}

func TestDuplicateKeyWarning(t *testing.T) {
	// Two technologies collapse onto one literal variable: identical
	// IAMC keys, surfaced as a warning with the first row kept.
	csv := `scenario,techs,locs,unit,year,cap
base,wind,DEU,GW,2030,1
base,solar,DEU,GW,2030,2
`
	idx := `
- path: cap.csv
  name: caps
  idxcols: [scenario, techs, locs, unit, year]
  alias: {locs: region}
  iamc: "Capacity"
`
	dir := writeFiles(t, map[string]string{"cap.csv": csv})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: dir,
	})

	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, 1.0, res.Table.Rows()[0].Value, "first row wins, nothing is merged")
	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, "caps", w.FirstEntry)
	assert.Equal(t, "caps", w.SecondEntry)
	assert.Equal(t, "Capacity", w.Variable)
}

func TestKeepGoing(t *testing.T) {
	good := `scenario,locs,unit,year,cap
base,DEU,GW,2030,1
`
	idx := `
- path: missing.csv
  idxcols: [scenario]
  iamc: "Broken"
- path: good.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Capacity"
`
	dir := writeFiles(t, map[string]string{"good.csv": good})
	entries := parseEntries(t, idx)
	indices := map[string]any{"model": "m"}

	// Default: first failure aborts the run.
	conv, err := New(Config{Entries: entries, Indices: indices, BasePath: dir,
		Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	_, err = conv.Run(context.Background())
	require.Error(t, err)

	// keep-going: the bad entry is recorded, the good one converts.
	res := runConversion(t, Config{Entries: entries, Indices: indices, BasePath: dir, KeepGoing: true})
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "missing.csv", res.Failed()[0].Path)
	assert.Equal(t, 1, res.Table.Len())
}

func TestEntriesWithoutIAMCSkipped(t *testing.T) {
	idx := `
- path: notes.csv
  idxcols: [scenario]
- path: cap.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Capacity"
`
	conv, err := New(Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, conv.Entries(), 1)
	assert.Equal(t, "cap.csv", conv.Entries()[0].Path)
}

func TestDuplicatePathFirstWins(t *testing.T) {
	idx := `
- path: cap.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Capacity"
- path: cap.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Other"
`
	conv, err := New(Config{
		Entries:  parseEntries(t, idx),
		Indices:  map[string]any{"model": "m"},
		BasePath: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, conv.Entries(), 1)
	assert.Equal(t, "Capacity", conv.Entries()[0].IAMC)
}

func TestSelectByNameOrPath(t *testing.T) {
	idx := `
- path: cap.csv
  name: capacity
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Capacity"
- path: gen.csv
  idxcols: [scenario, locs, unit, year]
  alias: {locs: region}
  iamc: "Generation"
`
	newConv := func() *Converter {
		conv, err := New(Config{
			Entries:  parseEntries(t, idx),
			Indices:  map[string]any{"model": "m"},
			BasePath: t.TempDir(),
		})
		require.NoError(t, err)
		return conv
	}

	conv := newConv()
	require.NoError(t, conv.Select([]string{"capacity"}))
	require.Len(t, conv.Entries(), 1)
	assert.Equal(t, "cap.csv", conv.Entries()[0].Path)

	conv = newConv()
	require.NoError(t, conv.Select([]string{"gen.csv"}))
	require.Len(t, conv.Entries(), 1)
	assert.Equal(t, "Generation", conv.Entries()[0].IAMC)

	// Matching by both name and path keeps the entry once.
	conv = newConv()
	require.NoError(t, conv.Select([]string{"capacity", "cap.csv"}))
	assert.Len(t, conv.Entries(), 1)

	conv = newConv()
	err := conv.Select([]string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestMandatoryColumnsComplete(t *testing.T) {
	dir := writeFiles(t, map[string]string{"flow_out_sum.csv": windCSV})
	res := runConversion(t, Config{
		Entries:  parseEntries(t, windIndex),
		Indices:  map[string]any{"model": "calliope"},
		BasePath: dir,
	})

	for _, r := range res.Table.Rows() {
		assert.NotEmpty(t, r.Model)
		assert.NotEmpty(t, r.Scenario)
		assert.NotEmpty(t, r.Region)
		assert.NotEmpty(t, r.Variable)
		assert.NotEmpty(t, r.Unit)
		assert.NotEmpty(t, r.Year)
	}
}
