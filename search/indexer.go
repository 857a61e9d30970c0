// Package search publishes cleaned trip rows to a full-text index.
package search

import (
	"context"
	"fmt"

	"ride-etl/config"
	"ride-etl/utils"
)

// Document is the body of one indexed row: column name to value. A nil value
// is an absent field.
type Document map[string]any

// Indexer is implemented by every search backend.
type Indexer interface {
	// Name returns the backend name.
	Name() string
	// Ping fails with ErrBackendUnavailable when the backend cannot be reached.
	Ping(ctx context.Context) error
	// Recreate deletes index if it exists and creates it empty.
	Recreate(ctx context.Context, index string) error
	// Index stores doc and returns the id the backend assigned to it.
	Index(ctx context.Context, index string, doc Document) (string, error)
	// Refresh makes indexed documents visible to Count and searches.
	Refresh(ctx context.Context, index string) error
	Count(ctx context.Context, index string) (uint64, error)
	Close() error
}

// New returns the indexer selected by cfg.SearchBackend.
func New(cfg *config.Config, logger *utils.Logger) (Indexer, error) {
	switch cfg.SearchBackend {
	case config.BackendElasticsearch:
		idx, err := NewElasticIndexer(&ElasticConfig{
			URL:      cfg.ElasticsearchURL,
			Username: cfg.ElasticsearchUsername,
			Password: cfg.ElasticsearchPassword,
		}, logger.Named("elasticsearch"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	case config.BackendBleve:
		idx, err := NewBleveIndexer(cfg.BleveDir, logger.Named("bleve"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("search: unsupported backend %q", cfg.SearchBackend)
	}
}
