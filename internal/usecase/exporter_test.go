package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCollect/internal/domain/models"
)

type captureSink struct {
	mu        sync.Mutex
	names     []string
	artifacts map[string][]byte
	failAfter int // fail the write once this many artifacts landed; <0 never
}

func newCaptureSink() *captureSink {
	return &captureSink{artifacts: make(map[string][]byte), failAfter: -1}
}

func (s *captureSink) Write(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter >= 0 && len(s.names) >= s.failAfter {
		return errors.New("disk full")
	}
	s.names = append(s.names, name)
	s.artifacts[name] = append([]byte(nil), data...)
	return nil
}

func (s *captureSink) Close() error { return nil }

var exportTime = time.Date(2024, 1, 3, 9, 5, 7, 123_000_000, time.UTC)

func fillStore(t *testing.T, s *LedgerStore, symbol string, n int) models.LedgerKey {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, s.Append(context.Background(), rec(symbol, i)))
	}
	return models.LedgerKey{Market: models.MarketEquity, Symbol: symbol}
}

func TestArtifactTimestamp(t *testing.T) {
	assert.Equal(t, "2024-01-03T09-05-07-123Z", ArtifactTimestamp(exportTime))

	hk := time.FixedZone("HKT", 8*3600)
	assert.Equal(t, "2024-01-03T09-05-07-123Z", ArtifactTimestamp(exportTime.In(hk)))
}

func TestExporterSingleArtifact(t *testing.T) {
	store := NewLedgerStore(WithCapacity(10))
	key := fillStore(t, store, "700.HK", 3)
	sink := newCaptureSink()

	e := NewExporter(store, NewExportPlanner(0, 0), sink, WithExportClock(clockwork.NewFakeClockAt(exportTime)))
	res, err := e.ExportAll(context.Background(), key)
	require.NoError(t, err)

	want := "700.HK_collection_2024-01-03T09-05-07-123Z_3records.json"
	assert.Equal(t, models.ExportSingle, res.Kind)
	assert.Equal(t, []string{want}, res.Artifacts)
	assert.Equal(t, 3, res.Records)

	var got []models.CollectedRecord
	require.NoError(t, json.Unmarshal(sink.artifacts[want], &got))
	assert.Equal(t, []int{1, 2, 3}, seqs(got))
	assert.Equal(t, int64(len(sink.artifacts[want])), res.Bytes)
}

func TestExporterChunkedArtifacts(t *testing.T) {
	store := NewLedgerStore(WithCapacity(10))
	key := fillStore(t, store, "AAPL", 5)
	sink := newCaptureSink()

	e := NewExporter(store, NewExportPlanner(1, 2), sink, WithExportClock(clockwork.NewFakeClockAt(exportTime)))
	res, err := e.ExportAll(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, models.ExportChunked, res.Kind)
	assert.Equal(t, []string{
		"AAPL_chunk_1_of_3_2024-01-03T09-05-07-123Z.json",
		"AAPL_chunk_2_of_3_2024-01-03T09-05-07-123Z.json",
		"AAPL_chunk_3_of_3_2024-01-03T09-05-07-123Z.json",
	}, sink.names)

	var joined []models.CollectedRecord
	for _, name := range sink.names {
		var part []models.CollectedRecord
		require.NoError(t, json.Unmarshal(sink.artifacts[name], &part))
		joined = append(joined, part...)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seqs(joined))
}

func TestExporterSinkFailureIsReported(t *testing.T) {
	store := NewLedgerStore(WithCapacity(10))
	key := fillStore(t, store, "AAPL", 5)
	sink := newCaptureSink()
	sink.failAfter = 1

	e := NewExporter(store, NewExportPlanner(1, 2), sink)
	res, err := e.ExportAll(context.Background(), key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSink))
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, res)
	assert.Len(t, res.Artifacts, 1)
}

func TestExporterEmptyLedger(t *testing.T) {
	e := NewExporter(NewLedgerStore(), NewExportPlanner(0, 0), newCaptureSink())
	_, err := e.ExportAll(context.Background(), models.LedgerKey{Market: models.MarketEquity, Symbol: "NONE"})
	assert.True(t, errors.Is(err, models.ErrEmptyLedger))
}

func TestExporterNonJSONPayloadsNeverReachExport(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore(WithCapacity(3))
	key := models.LedgerKey{Market: models.MarketEquity, Symbol: "ABC"}
	at := func(i int) time.Time { return t0.Add(time.Duration(i) * time.Second) }

	for i, raw := range []string{"a", "b", "c", "d"} {
		err := store.Append(ctx, models.CollectedRecord{Symbol: "ABC", Market: models.MarketEquity, CollectedAt: at(i), Payload: json.RawMessage(raw)})
		assert.True(t, errors.Is(err, models.ErrInvalidPayload), raw)
	}
	assert.Zero(t, store.Count(key))
	assert.Empty(t, store.Keys())

	for i, raw := range []string{`"a"`, `"b"`, `"c"`, `"d"`} {
		require.NoError(t, store.Append(ctx, models.CollectedRecord{Symbol: "ABC", Market: models.MarketEquity, CollectedAt: at(i), Payload: json.RawMessage(raw)}))
	}
	assert.Equal(t, 3, store.Count(key))
	_, err := store.SizeEstimateBytes(key)
	require.NoError(t, err)
	assert.Empty(t, store.HealthCheck().Warnings)

	sink := newCaptureSink()
	e := NewExporter(store, NewExportPlanner(0, 0), sink, WithExportClock(clockwork.NewFakeClockAt(exportTime)))
	res, err := e.ExportAll(ctx, key)
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, 3, res.Records)

	var got []models.CollectedRecord
	require.NoError(t, json.Unmarshal(sink.artifacts[res.Artifacts[0]], &got))
	payloads := make([]string, 0, len(got))
	for _, r := range got {
		payloads = append(payloads, string(r.Payload))
	}
	assert.Equal(t, []string{`"b"`, `"c"`, `"d"`}, payloads)
}
