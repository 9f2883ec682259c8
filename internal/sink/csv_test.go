package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/iamconv/internal/convert"
)

func sampleTable() *convert.Table {
	return convert.NewTable([]convert.OutputRow{
		{Model: "calliope", Scenario: "base", Region: "IT", Variable: "Primary Energy|Wind", Unit: "EJ/yr", Year: "2030", Value: 15},
		{Model: "calliope", Scenario: "base", Region: "IT", Variable: "Primary Energy|Wind", Unit: "EJ/yr", Year: "2020", Value: 9},
		{Model: "calliope", Scenario: "base", Region: "DE", Variable: "Primary Energy|Wind", Unit: "EJ/yr", Year: "2030", Value: 4.5},
	}, false)
}

func writeToFile(t *testing.T, cfg Config, table *convert.Table) string {
	t.Helper()
	cfg.Type = "csv"
	cfg.Path = filepath.Join(t.TempDir(), "out.csv")

	s := NewCSVSink(nil)
	require.NoError(t, s.Open(context.Background(), cfg))
	require.NoError(t, s.Write(context.Background(), table))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	return string(data)
}

func TestCSVSinkLong(t *testing.T) {
	out := writeToFile(t, Config{}, sampleTable())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "model,scenario,region,variable,unit,year,value", lines[0])
	assert.Equal(t, "calliope,base,IT,Primary Energy|Wind,EJ/yr,2030,15", lines[1])
	assert.Equal(t, "calliope,base,DE,Primary Energy|Wind,EJ/yr,2030,4.5", lines[3])
}

func TestCSVSinkWide(t *testing.T) {
	out := writeToFile(t, Config{Wide: true}, sampleTable())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "model,scenario,region,variable,unit,2020,2030", lines[0])
	assert.Equal(t, "calliope,base,IT,Primary Energy|Wind,EJ/yr,9,15", lines[1])
	assert.Equal(t, "calliope,base,DE,Primary Energy|Wind,EJ/yr,,4.5", lines[2], "missing year stays empty")
}

func TestCSVSinkWideYearlessFallsBackToLong(t *testing.T) {
	table := convert.NewTable([]convert.OutputRow{
		{Model: "m", Scenario: "s", Region: "r", Variable: "v", Unit: "u", Value: 1},
	}, true)
	out := writeToFile(t, Config{Wide: true}, table)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "model,scenario,region,variable,unit,value", lines[0])
	assert.Equal(t, "m,s,r,v,u,1", lines[1])
}

func TestCSVSinkWriteBeforeOpen(t *testing.T) {
	s := NewCSVSink(nil)
	err := s.Write(context.Background(), sampleTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not opened")
}

func TestSortedYears(t *testing.T) {
	years := sortedYears(map[string]struct{}{"2100": {}, "2030": {}, "990": {}})
	assert.Equal(t, []string{"990", "2030", "2100"}, years, "numeric years sort numerically")

	years = sortedYears(map[string]struct{}{"b": {}, "2030": {}, "a": {}})
	assert.Equal(t, []string{"2030", "a", "b"}, years, "non-numeric years sort lexically")
}
