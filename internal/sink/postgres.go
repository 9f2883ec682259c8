package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/iamconv/internal/convert"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Sink { return NewPostgresSink(logger) })
}

// PostgresSink writes the output table into a PostgreSQL database.
type PostgresSink struct {
	logger *slog.Logger
	db     *sql.DB
	cfg    Config
}

// NewPostgresSink creates a new PostgreSQL sink instance.
func NewPostgresSink(logger *slog.Logger) *PostgresSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresSink{logger: logger}
}

// Open establishes a connection to PostgreSQL.
func (s *PostgresSink) Open(ctx context.Context, cfg Config) error {
	dsn := buildPostgresDSN(cfg)

	s.logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.db = db
	s.cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Close closes the PostgreSQL connection.
func (s *PostgresSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write inserts the table into the target table, creating it if needed.
func (s *PostgresSink) Write(ctx context.Context, table *convert.Table) error {
	if s.db == nil {
		return fmt.Errorf("database connection not established")
	}
	s.logger.Debug("writing to postgres",
		slog.String("database", s.cfg.Database), slog.Int("rows", table.Len()))
	return writeRows(ctx, s.db, table, s.cfg.Table, true)
}

var _ Sink = (*PostgresSink)(nil)
