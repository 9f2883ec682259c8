package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	names := ListSinks()
	assert.Contains(t, names, "csv")
	assert.Contains(t, names, "duckdb")
	assert.Contains(t, names, "postgres")

	s, err := New(Config{Type: "csv"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CSVSink{}, s)
}

func TestNewUnknownSink(t *testing.T) {
	_, err := New(Config{Type: "parquet"}, nil)
	require.Error(t, err)

	var unknown *UnknownSinkError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "parquet", unknown.Type)
	assert.Contains(t, unknown.Available, "csv")
}

func TestNewMissingType(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink type not specified")
}
