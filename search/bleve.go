package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"ride-etl/utils"
)

// BleveIndexer stores each index as a bleve directory under a base path.
// Documents get random UUIDs as ids.
type BleveIndexer struct {
	dir     string
	logger  *utils.Logger
	indexes map[string]bleve.Index
}

// NewBleveIndexer creates an indexer rooted at dir. Nothing is opened until
// the first call that needs an index.
func NewBleveIndexer(dir string, logger *utils.Logger) (*BleveIndexer, error) {
	if dir == "" {
		return nil, fmt.Errorf("bleve index path required")
	}
	return &BleveIndexer{dir: dir, logger: logger, indexes: make(map[string]bleve.Index)}, nil
}

func (b *BleveIndexer) Name() string {
	return "bleve"
}

func (b *BleveIndexer) path(index string) string {
	return filepath.Join(b.dir, index+".bleve")
}

// Ping checks that the base directory exists or can be created.
func (b *BleveIndexer) Ping(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return &Error{Op: "Ping", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	info, err := os.Stat(b.dir)
	if err != nil || !info.IsDir() {
		return &Error{Op: "Ping", Err: ErrBackendUnavailable, Msg: b.dir + " is not a directory"}
	}
	return nil
}

func (b *BleveIndexer) Recreate(ctx context.Context, index string) error {
	if idx, ok := b.indexes[index]; ok {
		if err := idx.Close(); err != nil {
			return &Error{Op: "Recreate", Err: err, Msg: "close " + index}
		}
		delete(b.indexes, index)
	}

	path := b.path(index)
	if _, err := os.Stat(path); err == nil {
		b.logger.Info("Deleting existing index %s", index)
	}
	if err := os.RemoveAll(path); err != nil {
		return &Error{Op: "Recreate", Err: err, Msg: "delete " + index}
	}

	idx, err := bleve.New(path, bleve.NewIndexMapping())
	if err != nil {
		return &Error{Op: "Recreate", Err: err, Msg: "create " + index}
	}
	b.indexes[index] = idx
	return nil
}

func (b *BleveIndexer) open(index string) (bleve.Index, error) {
	if idx, ok := b.indexes[index]; ok {
		return idx, nil
	}
	idx, err := bleve.Open(b.path(index))
	if err == bleve.ErrorIndexPathDoesNotExist {
		return nil, &Error{Op: "Open", Err: ErrNotFound, Msg: index}
	}
	if err != nil {
		return nil, &Error{Op: "Open", Err: err, Msg: index}
	}
	b.indexes[index] = idx
	return idx, nil
}

func (b *BleveIndexer) Index(ctx context.Context, index string, doc Document) (string, error) {
	idx, err := b.open(index)
	if err != nil {
		return "", err
	}

	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if v != nil {
			body[k] = v
		}
	}

	id := uuid.NewString()
	if err := idx.Index(id, body); err != nil {
		return "", &Error{Op: "Index", Err: ErrIndexingFailed, Msg: err.Error()}
	}
	return id, nil
}

// Refresh is a no-op: bleve documents are searchable once Index returns.
func (b *BleveIndexer) Refresh(ctx context.Context, index string) error {
	_, err := b.open(index)
	return err
}

func (b *BleveIndexer) Count(ctx context.Context, index string) (uint64, error) {
	idx, err := b.open(index)
	if err != nil {
		return 0, err
	}
	n, err := idx.DocCount()
	if err != nil {
		return 0, &Error{Op: "Count", Err: err}
	}
	return n, nil
}

// Close closes every open index.
func (b *BleveIndexer) Close() error {
	var result *multierror.Error
	for name, idx := range b.indexes {
		if err := idx.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close index %s: %w", name, err))
		}
		delete(b.indexes, name)
	}
	return result.ErrorOrNil()
}
