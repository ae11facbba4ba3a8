// Package duckdb implements the datasource contract on an embedded DuckDB
// database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/adapters/datasource"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/logging"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/retry"
)

// Adapter owns one DuckDB handle. Path "" or ":memory:" opens an in-memory
// database.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ datasource.Adapter = (*Adapter)(nil)

// New opens the database and verifies it answers a ping. Opening a file
// that another process holds can fail transiently, so the open retries
// with backoff.
func New(ctx context.Context, path string, logger *zap.Logger) (*Adapter, error) {
	log := logger.Named("duckdb")

	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*sql.DB, error) {
		db, err := sql.Open("duckdb", path)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %q: %w", path, err)
	}

	log.Info("duckdb opened", zap.String("path", path))
	return &Adapter{db: db, logger: log}, nil
}

// Execute runs a query and materializes every row.
func (a *Adapter) Execute(ctx context.Context, query string, params ...any) (*datasource.QueryResult, error) {
	start := time.Now()
	rows, err := a.db.QueryContext(ctx, query, params...)
	if err != nil {
		a.logger.Error("query failed",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.Error(err))
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &datasource.QueryResult{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	a.logger.Debug("query executed",
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// GetTables lists user tables, skipping DuckDB's internal schemas.
func (a *Adapter) GetTables(ctx context.Context) ([]datasource.Table, error) {
	const q = `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('information_schema', 'pg_catalog')
ORDER BY table_schema, table_name`

	rows, err := a.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.Table
	for rows.Next() {
		var t datasource.Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// GetColumns returns the columns of one table in ordinal order.
func (a *Adapter) GetColumns(ctx context.Context, table string) ([]datasource.Column, error) {
	const q = `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_name = ?
ORDER BY ordinal_position`

	rows, err := a.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %q: %w", table, err)
	}
	defer rows.Close()

	var columns []datasource.Column
	for rows.Next() {
		var c datasource.Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		c.IsNullable = nullable == "YES"
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

// normalizeValue unwraps driver types into plain Go values so downstream
// cell parsing sees strings and numbers.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
