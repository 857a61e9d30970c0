package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-etl/utils"
)

// fakeCluster answers the handful of endpoints the indexer uses.
type fakeCluster struct {
	mu      sync.Mutex
	indexes map[string][]map[string]any
	nextID  int
	deletes int
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{indexes: make(map[string][]map[string]any)}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	index := parts[0]

	switch {
	case r.URL.Path == "/" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indexes[index]; ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodDelete:
		delete(f.indexes, index)
		f.deletes++
		fmt.Fprint(w, `{"acknowledged":true}`)
	case len(parts) == 1 && r.Method == http.MethodPut:
		if _, ok := f.indexes[index]; ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"type":"resource_already_exists_exception","reason":"index exists"}}`)
			return
		}
		f.indexes[index] = nil
		fmt.Fprintf(w, `{"acknowledged":true,"index":%q}`, index)
	case len(parts) == 2 && parts[1] == "_doc":
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"type":"parse_exception","reason":"bad body"}}`)
			return
		}
		f.indexes[index] = append(f.indexes[index], doc)
		f.nextID++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"_index":%q,"_id":"gen-%d","result":"created"}`, index, f.nextID)
	case len(parts) == 2 && parts[1] == "_refresh":
		fmt.Fprint(w, `{"_shards":{"total":1,"successful":1,"failed":0}}`)
	case len(parts) == 2 && parts[1] == "_count":
		docs, ok := f.indexes[index]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"index_not_found_exception","reason":"no such index"}}`)
			return
		}
		fmt.Fprintf(w, `{"count":%d}`, len(docs))
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestElastic(t *testing.T, url string) *ElasticIndexer {
	t.Helper()
	idx, err := NewElasticIndexer(&ElasticConfig{URL: url}, utils.NewNullLogger())
	require.NoError(t, err)
	return idx
}

func TestElasticPublishTwiceKeepsOneDocumentPerRow(t *testing.T) {
	cluster := newFakeCluster()
	srv := httptest.NewServer(cluster)
	defer srv.Close()

	ctx := context.Background()
	idx := newTestElastic(t, srv.URL)
	require.NoError(t, idx.Ping(ctx))

	for run := 0; run < 2; run++ {
		require.NoError(t, idx.Recreate(ctx, "uber_ride_analytics_clean"))
		for i := 0; i < 3; i++ {
			id, err := idx.Index(ctx, "uber_ride_analytics_clean", Document{"booking_id": fmt.Sprintf("CNR%d", i), "ride_distance": nil})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(id, "gen-"), id)
		}
		require.NoError(t, idx.Refresh(ctx, "uber_ride_analytics_clean"))

		n, err := idx.Count(ctx, "uber_ride_analytics_clean")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n, "run %d", run)
	}
	assert.Equal(t, 1, cluster.deletes, "second run must delete the first index")

	doc := cluster.indexes["uber_ride_analytics_clean"][0]
	v, present := doc["ride_distance"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestElasticPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	idx := newTestElastic(t, url)
	err := idx.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestElasticCountMissingIndex(t *testing.T) {
	srv := httptest.NewServer(newFakeCluster())
	defer srv.Close()

	_, err := newTestElastic(t, srv.URL).Count(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewElasticIndexerRequiresURL(t *testing.T) {
	_, err := NewElasticIndexer(&ElasticConfig{}, utils.NewNullLogger())
	assert.Error(t, err)
}
