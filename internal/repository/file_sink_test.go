package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	name := "700.HK_collection_2024-01-03T09-05-07-123Z_3records.json"
	require.NoError(t, sink.Write(context.Background(), name, []byte(`[1,2,3]`)))

	got, err := os.ReadFile(filepath.Join(dir, "exports", name))
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestFileSinkSanitizesSymbolSeparators(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), "BTC/USDT_chunk_1_of_2_x.json", []byte(`[]`)))
	_, err = os.Stat(filepath.Join(dir, "BTC_USDT_chunk_1_of_2_x.json"))
	assert.NoError(t, err)
}

func TestFileSinkRejectsBadInput(t *testing.T) {
	_, err := NewFileSink("")
	assert.Error(t, err)

	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, sink.Write(context.Background(), "..", []byte(`[]`)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Write(ctx, "a.json", []byte(`[]`)), context.Canceled)
}
