package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinCollect/internal/domain/repository"
)

// ExportTableSchema returns the DDL for the export artifact table.
func ExportTableSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name       String,
    written_at DateTime64(3, 'UTC'),
    size       UInt64,
    body       String
) ENGINE = MergeTree
ORDER BY (name, written_at)`, table)
}

// ClickHouseExportSink stores each artifact as one row.
type ClickHouseExportSink struct {
	db    *sql.DB
	table string
}

func NewClickHouseExportSink(db *sql.DB, table string) repository.ExportSink {
	return &ClickHouseExportSink{db: db, table: table}
}

func (s *ClickHouseExportSink) Write(ctx context.Context, artifactName string, data []byte) error {
	q := fmt.Sprintf("INSERT INTO %s (name, written_at, size, body) VALUES (?, ?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q, artifactName, time.Now().UTC(), uint64(len(data)), string(data)); err != nil {
		return fmt.Errorf("clickhouse insert %s: %w", artifactName, err)
	}
	return nil
}

// Close is a no-op; the connection pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseExportSink) Close() error { return nil }
