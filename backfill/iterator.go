package backfill

import (
	"context"

	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// ItemIterator walks the item store in fixed-size batches.
type ItemIterator struct {
	store     storage.ItemStore
	batchSize int
}

// NewItemIterator creates a new item iterator.
// batchSize: number of items per batch (defaults to DefaultBatchSize when <= 0)
func NewItemIterator(store storage.ItemStore, batchSize int) *ItemIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ItemIterator{
		store:     store,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of items in store order.
// Iteration stops on first error from fn or when all items are processed.
// Context cancellation is checked between batches.
func (it *ItemIterator) ForEach(ctx context.Context, fn func([]*core.Item) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	items, err := it.store.ListItems(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(items); start += it.batchSize {
		end := min(start+it.batchSize, len(items))

		if err := fn(items[start:end]); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
