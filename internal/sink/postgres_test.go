package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "defaults",
			config: Config{Database: "iamc"},
			want:   "host=localhost port=5432 dbname=iamc sslmode=disable",
		},
		{
			name: "full config",
			config: Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "results",
				Username: "conv",
				Password: "secret",
			},
			want: "host=db.example.com port=5433 dbname=results sslmode=disable user=conv password=secret",
		},
		{
			name: "sslmode option",
			config: Config{
				Database: "iamc",
				Options:  map[string]string{"sslmode": "require"},
			},
			want: "host=localhost port=5432 dbname=iamc sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPostgresDSN(tt.config))
		})
	}
}

func TestPostgresSinkWriteBeforeOpen(t *testing.T) {
	s := NewPostgresSink(nil)
	err := s.Write(context.Background(), sampleTable())
	assert.ErrorContains(t, err, "not established")
}
