package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-etl/config"
	"ride-etl/utils"
)

func newTestBleve(t *testing.T) *BleveIndexer {
	t.Helper()
	idx, err := NewBleveIndexer(filepath.Join(t.TempDir(), "index"), utils.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveRecreateReplacesIndex(t *testing.T) {
	ctx := context.Background()
	idx := newTestBleve(t)
	require.NoError(t, idx.Ping(ctx))

	for run := 0; run < 2; run++ {
		require.NoError(t, idx.Recreate(ctx, "trips"))
		for _, id := range []string{"CNR1", "CNR2", "CNR3"} {
			docID, err := idx.Index(ctx, "trips", Document{"booking_id": id, "ride_distance": 4.5, "note": nil})
			require.NoError(t, err)
			assert.NotEmpty(t, docID)
		}
		require.NoError(t, idx.Refresh(ctx, "trips"))

		n, err := idx.Count(ctx, "trips")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n, "run %d", run)
	}
}

func TestBleveReopensAfterClose(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")

	first, err := NewBleveIndexer(dir, utils.NewNullLogger())
	require.NoError(t, err)
	require.NoError(t, first.Recreate(ctx, "trips"))
	_, err = first.Index(ctx, "trips", Document{"booking_id": "CNR1"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewBleveIndexer(dir, utils.NewNullLogger())
	require.NoError(t, err)
	defer second.Close()

	n, err := second.Count(ctx, "trips")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestBleveMissingIndex(t *testing.T) {
	idx := newTestBleve(t)
	_, err := idx.Count(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlevePingFailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	idx, err := NewBleveIndexer(file, utils.NewNullLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, idx.Ping(context.Background()), ErrBackendUnavailable)
}

func TestNewSelectsBackend(t *testing.T) {
	logger := utils.NewNullLogger()

	idx, err := New(&config.Config{SearchBackend: config.BackendBleve, BleveDir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.Equal(t, "bleve", idx.Name())

	idx, err = New(&config.Config{SearchBackend: config.BackendElasticsearch, ElasticsearchURL: "http://localhost:9200"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "elasticsearch", idx.Name())

	_, err = New(&config.Config{SearchBackend: "solr"}, logger)
	assert.Error(t, err)
}
