package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/leapstack-labs/iamconv/internal/convert"
)

const defaultTableName = "iamc"

// createTableSQL builds the DDL for the output table. DOUBLE PRECISION
// is understood by both DuckDB and PostgreSQL.
func createTableSQL(name string, yearless bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", name)
	b.WriteString("    model TEXT NOT NULL,\n")
	b.WriteString("    scenario TEXT NOT NULL,\n")
	b.WriteString("    region TEXT NOT NULL,\n")
	b.WriteString("    variable TEXT NOT NULL,\n")
	b.WriteString("    unit TEXT NOT NULL,\n")
	if !yearless {
		b.WriteString("    year TEXT NOT NULL,\n")
	}
	b.WriteString("    value DOUBLE PRECISION NOT NULL\n)")
	return b.String()
}

// insertSQL builds the row insert statement. numbered selects $1-style
// placeholders for PostgreSQL instead of ?.
func insertSQL(name string, yearless, numbered bool) string {
	cols := []string{"model", "scenario", "region", "variable", "unit", "year", "value"}
	if yearless {
		cols = []string{"model", "scenario", "region", "variable", "unit", "value"}
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		if numbered {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// writeRows creates the target table and inserts every output row in a
// single transaction.
func writeRows(ctx context.Context, db *sql.DB, table *convert.Table, name string, numbered bool) error {
	if name == "" {
		name = defaultTableName
	}

	if _, err := db.ExecContext(ctx, createTableSQL(name, table.Yearless())); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL(name, table.Yearless(), numbered))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range table.Rows() {
		args := []any{row.Model, row.Scenario, row.Region, row.Variable, row.Unit}
		if !table.Yearless() {
			args = append(args, row.Year)
		}
		args = append(args, row.Value)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
