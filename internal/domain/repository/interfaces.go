package repository

import (
	"context"
	"encoding/json"

	"FinCollect/internal/domain/models"
)

// Fetcher pulls one opaque payload for a symbol from the upstream provider.
// Timeouts are the fetcher's own responsibility.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, market models.MarketKind) (json.RawMessage, error)
}

// ExportSink receives materialized export artifacts.
type ExportSink interface {
	Write(ctx context.Context, artifactName string, data []byte) error
	Close() error
}

// LedgerBackend mirrors ledgers into a durable medium. It never decides what
// to evict: the caller passes how many head records to drop with each append.
type LedgerBackend interface {
	Append(ctx context.Context, key models.LedgerKey, rec models.CollectedRecord, evict int) error
	Load(ctx context.Context, key models.LedgerKey) ([]models.CollectedRecord, error)
	Delete(ctx context.Context, key models.LedgerKey) error
	Keys(ctx context.Context) ([]models.LedgerKey, error)
	Close() error
}

type Metrics interface {
	RecordAttempt(symbol, result string)
	RecordDroppedTick(symbol string)
	RecordEviction(symbol string)
	RecordLedgerSize(symbol string, records int)
	RecordExport(symbol, kind string, artifacts int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
