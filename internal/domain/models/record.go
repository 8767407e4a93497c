package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerKey identifies one symbol's ledger. It is a typed pair rather than a
// formatted string so symbols containing separators cannot collide.
type LedgerKey struct {
	Market MarketKind `json:"market"`
	Symbol string     `json:"symbol"`
}

func (k LedgerKey) String() string {
	return fmt.Sprintf("%s/%q", k.Market, k.Symbol)
}

// CollectedRecord is one successful fetch. Payload is passed through untouched.
type CollectedRecord struct {
	Symbol      string          `json:"symbol"`
	Market      MarketKind      `json:"market"`
	CollectedAt time.Time       `json:"collected_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Key returns the ledger the record belongs to.
func (r CollectedRecord) Key() LedgerKey {
	return LedgerKey{Market: r.Market, Symbol: r.Symbol}
}

// LedgerInfo summarizes one ledger for status endpoints.
type LedgerInfo struct {
	Key       LedgerKey     `json:"key"`
	Count     int           `json:"count"`
	Capacity  int           `json:"capacity"`
	SizeBytes int64         `json:"size_bytes"`
	TimeSpan  time.Duration `json:"time_span_ns"`
	Usage     float64       `json:"usage"`
}

// LedgerHealth is the per-ledger part of a HealthReport.
type LedgerHealth struct {
	Key       LedgerKey `json:"key"`
	Count     int       `json:"count"`
	Capacity  int       `json:"capacity"`
	Usage     float64   `json:"usage"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"` // ok, warning, unhealthy
}

// HealthReport aggregates capacity health across all ledgers.
type HealthReport struct {
	Healthy        bool           `json:"is_healthy"`
	Warnings       []string       `json:"warnings"`
	Ledgers        []LedgerHealth `json:"ledgers"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
}
