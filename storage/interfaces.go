package storage

import (
	"context"

	"ride-etl/models"
)

// RowSource yields positional rows for the bulk insert. A nil element is a
// SQL NULL. Next returns io.EOF once the source is exhausted.
type RowSource interface {
	Next() ([]any, error)
}

// TripStore is the interface any relational backend for trips must satisfy.
type TripStore interface {
	Recreate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	InsertAll(ctx context.Context, src RowSource) (int, error)
	FetchAll(ctx context.Context) (*models.Dataset, error)
	Close() error
}
