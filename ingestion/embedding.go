package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/backfill"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// embeddingProcessor generates embeddings for newly written items.
type embeddingProcessor struct {
	items  storage.ItemRepository
	batch  *backfill.BatchProcessor
	logger *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(items storage.ItemRepository, provider ai.Provider, maxRetries int, retryDelay time.Duration, logger *slog.Logger) (processor, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		items:  items,
		batch:  backfill.NewBatchProcessor(items, provider, maxRetries, retryDelay),
		logger: logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the specified items.
// Items deleted or embedded in the meantime are skipped.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Debug("processing items for embeddings", "items", len(ids))

	slices.Sort(ids)

	items, err := ep.items.GetItems(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving items", "err", err)
		return err
	}

	outcome, err := ep.batch.Process(ctx, items)
	if err != nil {
		return err
	}
	if len(outcome.Failures) > 0 {
		return fmt.Errorf("%d of %d items could not be embedded: %w",
			len(outcome.Failures), outcome.Attempted, outcome.Failures[0])
	}

	ep.logger.Debug("embedded items", "generated", outcome.Generated, "skipped", outcome.Skipped)
	return nil
}
