// Package datasource defines the adapter contract the pipeline runs
// against. Adapters own their connection and must be closed when done.
package datasource

import "context"

// Table identifies a user table.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Column describes one column of a table.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
}

// QueryResult holds the rows of one executed query. Columns preserves the
// select-list order; each row maps column name to value.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// SchemaExtractor lists tables and columns for role detection and for the
// classifier's schema digest.
type SchemaExtractor interface {
	GetTables(ctx context.Context) ([]Table, error)
	GetColumns(ctx context.Context, table string) ([]Column, error)
}

// SQLExecutor runs a query and returns its rows.
type SQLExecutor interface {
	Execute(ctx context.Context, query string, params ...any) (*QueryResult, error)
}

// Adapter is the full contract a backing engine implements.
type Adapter interface {
	SchemaExtractor
	SQLExecutor

	// TestConnection verifies the engine is reachable.
	TestConnection(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
