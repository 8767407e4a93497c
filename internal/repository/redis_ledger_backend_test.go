package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCollect/internal/domain/models"
	"FinCollect/pkg/cache"
)

func sampleRecord(i int) models.CollectedRecord {
	return models.CollectedRecord{
		Symbol:      "700.HK",
		Market:      models.MarketEquity,
		CollectedAt: time.Date(2024, 1, 3, 2, i, 0, 0, time.UTC),
		Payload:     json.RawMessage(`{"px":312.4}`),
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

var tencentKey = models.LedgerKey{Market: models.MarketEquity, Symbol: "700.HK"}

func TestRedisLedgerBackendAppend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	b := NewRedisLedgerBackend(cache.WrapRedisClient(db, "fc"))

	hash := cache.HashKey(tencentKey.String())
	list := "fc:ledger:" + hash
	rec := sampleRecord(1)

	mock.ExpectTxPipeline()
	mock.ExpectRPush(list, mustJSON(t, &rec)).SetVal(1)
	mock.ExpectHSet("fc:ledgers", hash, mustJSON(t, tencentKey)).SetVal(1)
	mock.ExpectTxPipelineExec()
	require.NoError(t, b.Append(context.Background(), tencentKey, rec, 0))

	mock.ExpectTxPipeline()
	mock.ExpectRPush(list, mustJSON(t, &rec)).SetVal(4)
	mock.ExpectLTrim(list, 1, -1).SetVal("OK")
	mock.ExpectHSet("fc:ledgers", hash, mustJSON(t, tencentKey)).SetVal(0)
	mock.ExpectTxPipelineExec()
	require.NoError(t, b.Append(context.Background(), tencentKey, rec, 1))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLedgerBackendLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	b := NewRedisLedgerBackend(cache.WrapRedisClient(db, "fc"))

	r1, r2 := sampleRecord(1), sampleRecord(2)
	list := "fc:ledger:" + cache.HashKey(tencentKey.String())
	mock.ExpectLRange(list, 0, -1).SetVal([]string{mustJSON(t, &r1), mustJSON(t, &r2)})

	got, err := b.Load(context.Background(), tencentKey)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].CollectedAt.Equal(r1.CollectedAt))
	assert.True(t, got[1].CollectedAt.Equal(r2.CollectedAt))
	assert.JSONEq(t, `{"px":312.4}`, string(got[1].Payload))

	mock.ExpectLRange(list, 0, -1).SetVal([]string{"{broken"})
	_, err = b.Load(context.Background(), tencentKey)
	assert.Error(t, err)

	mock.ExpectLRange(list, 0, -1).SetErr(errors.New("timeout"))
	_, err = b.Load(context.Background(), tencentKey)
	assert.ErrorContains(t, err, "timeout")
}

func TestRedisLedgerBackendKeysAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	b := NewRedisLedgerBackend(cache.WrapRedisClient(db, "fc"))

	btc := models.LedgerKey{Market: models.MarketCrypto, Symbol: "BTC/USDT"}
	mock.ExpectHGetAll("fc:ledgers").SetVal(map[string]string{
		cache.HashKey(tencentKey.String()): mustJSON(t, tencentKey),
		cache.HashKey(btc.String()):        mustJSON(t, btc),
	})
	keys, err := b.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.LedgerKey{btc, tencentKey}, keys)

	hash := cache.HashKey(btc.String())
	mock.ExpectTxPipeline()
	mock.ExpectDel("fc:ledger:" + hash).SetVal(1)
	mock.ExpectHDel("fc:ledgers", hash).SetVal(1)
	mock.ExpectTxPipelineExec()
	require.NoError(t, b.Delete(context.Background(), btc))

	assert.NoError(t, mock.ExpectationsWereMet())
}
