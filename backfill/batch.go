package backfill

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
	"github.com/poiesic/semsearch/vector"
)

// BatchOutcome tallies the result of processing one batch.
type BatchOutcome struct {
	// Attempted is the number of items in the batch that had no vector.
	Attempted int
	Generated int
	Skipped   int
	Failures  []ItemFailure
}

// BatchProcessor handles embedding generation for batches of items.
type BatchProcessor struct {
	store          storage.ItemStore
	provider       ai.Provider
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: single-item retry attempts after a retryable batch failure
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(store storage.ItemStore, provider ai.Provider, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		provider:       provider,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "backfill"),
	}
}

// Process embeds every item of the batch that has no vector and stores the
// normalized result. Per-item failures are collected in the outcome; the
// returned error is non-nil only when ctx is done.
func (bp *BatchProcessor) Process(ctx context.Context, items []*core.Item) (*BatchOutcome, error) {
	outcome := &BatchOutcome{}

	pending := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item.HasVector() {
			outcome.Skipped++
			continue
		}
		pending = append(pending, item)
	}
	outcome.Attempted = len(pending)
	if len(pending) == 0 {
		return outcome, nil
	}

	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	texts := make([]string, len(pending))
	for i, item := range pending {
		texts[i] = item.CanonicalText()
	}

	result := bp.provider.EmbedBatch(ctx, texts)
	failed := make(map[int]error, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.Index] = f.Err
	}

	retryWaited := false
	for i, item := range pending {
		vec := result.Vectors[i]
		err, isFailed := failed[i]

		if isFailed {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcome, ctxErr
			}
			if ai.IsRetryable(err) && bp.maxRetries > 0 {
				if !retryWaited {
					if sleepErr := sleep(ctx, bp.retryBaseDelay); sleepErr != nil {
						return outcome, sleepErr
					}
					retryWaited = true
				}
				vec, err = bp.retryItem(ctx, texts[i])
				if ctxErr := ctx.Err(); ctxErr != nil {
					return outcome, ctxErr
				}
			}
			if err != nil {
				bp.fail(outcome, item, err)
				continue
			}
		}

		bp.storeVector(ctx, outcome, item, vec)
	}

	return outcome, nil
}

func (bp *BatchProcessor) retryItem(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := RetryIf(ctx, func() error {
		var err error
		vec, err = bp.provider.Embed(ctx, text)
		return err
	}, ai.IsRetryable, bp.maxRetries, bp.retryBaseDelay)
	return vec, err
}

// storeVector persists one vector, treating a concurrent writer's vector as a skip.
func (bp *BatchProcessor) storeVector(ctx context.Context, outcome *BatchOutcome, item *core.Item, vec []float32) {
	err := bp.store.SetVector(ctx, item.Id, vector.Normalize(vec))
	switch {
	case err == nil:
		outcome.Generated++
	case errors.Is(err, storage.ErrVectorExists):
		bp.logger.Debug("item embedded concurrently, skipping", "itemID", item.Id)
		outcome.Skipped++
	default:
		bp.fail(outcome, item, err)
	}
}

func (bp *BatchProcessor) fail(outcome *BatchOutcome, item *core.Item, err error) {
	bp.logger.Warn("failed to embed item", "itemID", item.Id, "code", item.Code, "err", err)
	outcome.Failures = append(outcome.Failures, ItemFailure{ItemID: item.Id, Code: item.Code, Err: err})
}
