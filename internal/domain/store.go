package domain

import (
	"context"
	"errors"
)

// ErrStoreWrite marks a failed durable write. A write failure is fatal to
// the ingestion call that triggered it.
var ErrStoreWrite = errors.New("store write failed")

// ErrStoreRead marks a failed scan; fatal to the read call only.
var ErrStoreRead = errors.New("store read failed")

// RecordStore owns the durability of prediction records and the
// assignment of their ids and timestamps. Create and GetAll are the only
// operations the ingestion and aggregation paths use; the rest are
// administrative.
type RecordStore interface {
	Create(ctx context.Context, record PredictionRecord) (PredictionRecord, error)
	GetAll(ctx context.Context) ([]PredictionRecord, error)
	GetByID(ctx context.Context, id int64) (PredictionRecord, error)
	Update(ctx context.Context, record PredictionRecord) (PredictionRecord, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// EventConsumer processes batches of prediction events pulled off the
// bus by the alert worker.
type EventConsumer interface {
	Process(events []PredictionEvent) error
}
