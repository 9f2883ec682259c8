package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/iamconv/internal/convert"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Sink { return NewDuckDBSink(logger) })
}

// DuckDBSink writes the output table into a DuckDB database file.
type DuckDBSink struct {
	logger *slog.Logger
	db     *sql.DB
	cfg    Config
}

// NewDuckDBSink creates a new DuckDB sink instance.
func NewDuckDBSink(logger *slog.Logger) *DuckDBSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBSink{logger: logger}
}

// Open establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (s *DuckDBSink) Open(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	s.db = db
	s.cfg = cfg
	return nil
}

// Close closes the DuckDB connection.
func (s *DuckDBSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write inserts the table into the target table, creating it if needed.
func (s *DuckDBSink) Write(ctx context.Context, table *convert.Table) error {
	if s.db == nil {
		return fmt.Errorf("database connection not established")
	}
	s.logger.Debug("writing to duckdb",
		slog.String("path", s.cfg.Path), slog.Int("rows", table.Len()))
	return writeRows(ctx, s.db, table, s.cfg.Table, false)
}

var _ Sink = (*DuckDBSink)(nil)
