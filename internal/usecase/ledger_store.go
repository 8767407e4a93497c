package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinCollect/internal/domain/models"
	drepo "FinCollect/internal/domain/repository"
	applogger "FinCollect/pkg/logger"
	"FinCollect/pkg/metrics"
)

const (
	DefaultLedgerCapacity = 10000
	DefaultWarnRatio      = 0.70
	DefaultCriticalRatio  = 0.90
)

type ledger struct {
	mu      sync.RWMutex
	ring    *ledgerRing
	cleared bool
}

// LedgerStore keeps one bounded FIFO ledger per symbol. Ledgers live in memory
// and are mirrored write-through into a LedgerBackend; the capacity decision is
// made here, never in the backend.
type LedgerStore struct {
	mu            sync.RWMutex
	ledgers       map[models.LedgerKey]*ledger
	capacity      int
	warnRatio     float64
	criticalRatio float64
	backend       drepo.LedgerBackend
	metrics       drepo.Metrics
	l             *applogger.Logger
}

type StoreOption func(*LedgerStore)

// WithCapacity sets the per-ledger record limit.
func WithCapacity(n int) StoreOption {
	return func(s *LedgerStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithHealthThresholds sets the usage ratios above which a ledger warns or is unhealthy.
func WithHealthThresholds(warn, critical float64) StoreOption {
	return func(s *LedgerStore) {
		if warn > 0 && critical >= warn {
			s.warnRatio = warn
			s.criticalRatio = critical
		}
	}
}

func WithBackend(b drepo.LedgerBackend) StoreOption {
	return func(s *LedgerStore) {
		if b != nil {
			s.backend = b
		}
	}
}

func WithStoreMetrics(m drepo.Metrics) StoreOption {
	return func(s *LedgerStore) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithStoreLogger(l *applogger.Logger) StoreOption {
	return func(s *LedgerStore) {
		if l != nil {
			s.l = l
		}
	}
}

// NewLedgerStore creates an empty store. Without WithBackend ledgers are memory only.
func NewLedgerStore(opts ...StoreOption) *LedgerStore {
	s := &LedgerStore{
		ledgers:       make(map[models.LedgerKey]*ledger),
		capacity:      DefaultLedgerCapacity,
		warnRatio:     DefaultWarnRatio,
		criticalRatio: DefaultCriticalRatio,
		backend:       memoryOnly{},
		metrics:       metrics.Nop{},
		l:             applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the per-ledger record limit.
func (s *LedgerStore) Capacity() int { return s.capacity }

// Append adds rec at the tail of its ledger, evicting the oldest record first
// when the ledger is full. The backend is written before memory so a failed
// mirror write leaves the ledger unchanged.
func (s *LedgerStore) Append(ctx context.Context, rec models.CollectedRecord) error {
	if rec.Symbol == "" {
		return fmt.Errorf("append: empty symbol")
	}
	key := rec.Key()
	if !json.Valid(rec.Payload) {
		return fmt.Errorf("append %s: %w", key, models.ErrInvalidPayload)
	}

	for {
		lg := s.ledgerFor(key)
		lg.mu.Lock()
		if lg.cleared {
			// lost a race with Clear; retry on the fresh ledger
			lg.mu.Unlock()
			s.forget(key, lg)
			continue
		}

		evict := 0
		if lg.ring.full() {
			evict = 1
		}
		if err := s.backend.Append(ctx, key, rec, evict); err != nil {
			lg.mu.Unlock()
			s.metrics.RecordError("ledger_backend")
			return fmt.Errorf("ledger backend append %s: %w", key, err)
		}
		if lg.ring.push(rec) {
			s.metrics.RecordEviction(key.Symbol)
		}
		n := lg.ring.len()
		lg.mu.Unlock()

		s.metrics.RecordLedgerSize(key.Symbol, n)
		return nil
	}
}

// Count returns the number of records held for key.
func (s *LedgerStore) Count(key models.LedgerKey) int {
	lg := s.lookup(key)
	if lg == nil {
		return 0
	}
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return lg.ring.len()
}

// Snapshot returns a copy of key's records, oldest first.
func (s *LedgerStore) Snapshot(key models.LedgerKey) []models.CollectedRecord {
	lg := s.lookup(key)
	if lg == nil {
		return nil
	}
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return lg.ring.snapshot()
}

// SizeEstimateBytes recomputes the serialized size of key's records.
func (s *LedgerStore) SizeEstimateBytes(key models.LedgerKey) (int64, error) {
	return EstimateSize(s.Snapshot(key))
}

// TimeSpan is the distance between the first and last record; zero below two records.
func (s *LedgerStore) TimeSpan(key models.LedgerKey) time.Duration {
	lg := s.lookup(key)
	if lg == nil {
		return 0
	}
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	n := lg.ring.len()
	if n < 2 {
		return 0
	}
	return lg.ring.at(n - 1).CollectedAt.Sub(lg.ring.at(0).CollectedAt)
}

// Keys lists ledgers sorted by market then symbol.
func (s *LedgerStore) Keys() []models.LedgerKey {
	s.mu.RLock()
	keys := make([]models.LedgerKey, 0, len(s.ledgers))
	for k := range s.ledgers {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Market != keys[j].Market {
			return keys[i].Market < keys[j].Market
		}
		return keys[i].Symbol < keys[j].Symbol
	})
	return keys
}

// Info summarizes one ledger; ok is false when no ledger exists for key.
func (s *LedgerStore) Info(key models.LedgerKey) (models.LedgerInfo, bool, error) {
	records := s.Snapshot(key)
	if records == nil {
		return models.LedgerInfo{}, false, nil
	}
	size, err := EstimateSize(records)
	if err != nil {
		return models.LedgerInfo{}, true, err
	}
	info := models.LedgerInfo{
		Key:       key,
		Count:     len(records),
		Capacity:  s.capacity,
		SizeBytes: size,
		Usage:     float64(len(records)) / float64(s.capacity),
	}
	if len(records) >= 2 {
		info.TimeSpan = records[len(records)-1].CollectedAt.Sub(records[0].CollectedAt)
	}
	return info, true, nil
}

// Clear drops key's ledger from memory and backend. Other ledgers are untouched
// and stay readable while the backend delete is in flight.
func (s *LedgerStore) Clear(ctx context.Context, key models.LedgerKey) error {
	// holding the ledger lock orders Clear against appends of the same key
	lg := s.ledgerFor(key)
	lg.mu.Lock()
	if err := s.backend.Delete(ctx, key); err != nil {
		empty := lg.ring.len() == 0
		lg.mu.Unlock()
		if empty {
			s.forget(key, lg)
		}
		s.metrics.RecordError("ledger_backend")
		return fmt.Errorf("ledger backend delete %s: %w", key, err)
	}
	lg.cleared = true
	lg.ring = newLedgerRing(s.capacity)
	lg.mu.Unlock()
	s.forget(key, lg)
	s.metrics.RecordLedgerSize(key.Symbol, 0)
	s.l.Info("ledger cleared", applogger.String("market", string(key.Market)), applogger.String("symbol", key.Symbol))
	return nil
}

// HealthCheck flags ledgers above the warn ratio and marks the store unhealthy
// when any ledger is above the critical ratio.
func (s *LedgerStore) HealthCheck() models.HealthReport {
	report := models.HealthReport{Healthy: true, Warnings: []string{}, Ledgers: []models.LedgerHealth{}}

	for _, key := range s.Keys() {
		records := s.Snapshot(key)
		size, err := EstimateSize(records)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: size estimate failed: %v", key, err))
		}
		usage := float64(len(records)) / float64(s.capacity)
		h := models.LedgerHealth{
			Key:       key,
			Count:     len(records),
			Capacity:  s.capacity,
			Usage:     usage,
			SizeBytes: size,
			Status:    "ok",
		}
		switch {
		case usage > s.criticalRatio:
			h.Status = "unhealthy"
			report.Healthy = false
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: ledger at %.0f%% of capacity (%d/%d)", key, usage*100, len(records), s.capacity))
		case usage > s.warnRatio:
			h.Status = "warning"
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: ledger above %.0f%% of capacity (%d/%d)", key, s.warnRatio*100, len(records), s.capacity))
		}
		report.TotalSizeBytes += size
		report.Ledgers = append(report.Ledgers, h)
	}
	return report
}

// Restore hydrates ledgers from the backend, keeping only the newest
// capacity records of each. Records whose payload is not JSON are dropped.
// Backends holding more than that or an invalid record are rewritten.
func (s *LedgerStore) Restore(ctx context.Context) error {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return fmt.Errorf("ledger backend keys: %w", err)
	}
	for _, key := range keys {
		records, err := s.backend.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("ledger backend load %s: %w", key, err)
		}
		valid := records[:0]
		for _, rec := range records {
			if json.Valid(rec.Payload) {
				valid = append(valid, rec)
			}
		}
		if dropped := len(records) - len(valid); dropped > 0 {
			s.l.Warn("dropping restored records with invalid payload",
				applogger.String("symbol", key.Symbol), applogger.Int("dropped", dropped))
		}
		dirty := len(valid) != len(records)
		records = valid
		if len(records) > s.capacity {
			records = records[len(records)-s.capacity:]
			dirty = true
		}
		if dirty {
			if err := s.rewrite(ctx, key, records); err != nil {
				return err
			}
		}
		if len(records) == 0 {
			continue
		}

		r := newLedgerRing(s.capacity)
		for _, rec := range records {
			r.push(rec)
		}
		s.mu.Lock()
		s.ledgers[key] = &ledger{ring: r}
		s.mu.Unlock()
		s.metrics.RecordLedgerSize(key.Symbol, r.len())
	}
	s.l.Info("ledgers restored", applogger.Int("ledgers", len(keys)))
	return nil
}

func (s *LedgerStore) rewrite(ctx context.Context, key models.LedgerKey, records []models.CollectedRecord) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("ledger backend delete %s: %w", key, err)
	}
	for _, rec := range records {
		if err := s.backend.Append(ctx, key, rec, 0); err != nil {
			return fmt.Errorf("ledger backend append %s: %w", key, err)
		}
	}
	return nil
}

func (s *LedgerStore) lookup(key models.LedgerKey) *ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledgers[key]
}

// forget removes key from the map if it still points at lg.
func (s *LedgerStore) forget(key models.LedgerKey, lg *ledger) {
	s.mu.Lock()
	if s.ledgers[key] == lg {
		delete(s.ledgers, key)
	}
	s.mu.Unlock()
}

func (s *LedgerStore) ledgerFor(key models.LedgerKey) *ledger {
	if lg := s.lookup(key); lg != nil {
		return lg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lg, ok := s.ledgers[key]
	if !ok {
		lg = &ledger{ring: newLedgerRing(s.capacity)}
		s.ledgers[key] = lg
	}
	return lg
}

// memoryOnly is the default backend: nothing is mirrored.
type memoryOnly struct{}

func (memoryOnly) Append(context.Context, models.LedgerKey, models.CollectedRecord, int) error {
	return nil
}
func (memoryOnly) Load(context.Context, models.LedgerKey) ([]models.CollectedRecord, error) {
	return nil, nil
}
func (memoryOnly) Delete(context.Context, models.LedgerKey) error    { return nil }
func (memoryOnly) Keys(context.Context) ([]models.LedgerKey, error) { return nil, nil }
func (memoryOnly) Close() error                                     { return nil }
