// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// Summary reports the outcome of a backfill run.
type Summary struct {
	Generated int
	Skipped   int
	Failed    int
	Failures  []ItemFailure
	Elapsed   time.Duration
}

func (s *Summary) merge(o *BatchOutcome) {
	if o == nil {
		return
	}
	s.Generated += o.Generated
	s.Skipped += o.Skipped
	s.Failed += len(o.Failures)
	s.Failures = append(s.Failures, o.Failures...)
}

// Backfiller orchestrates embedding generation for every item without a vector.
type Backfiller struct {
	store     storage.ItemStore
	provider  ai.Provider
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ItemIterator
	logger    *slog.Logger
}

// Option configures a Backfiller.
type Option func(*Backfiller) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backfiller) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "backfill")
		b.processor.logger = b.logger
		return nil
	}
}

// NewBackfiller creates a new backfiller.
// progress: where to write progress output (typically os.Stderr); nil discards it
func NewBackfiller(store storage.ItemStore, provider ai.Provider, config *Config, progress io.Writer, opts ...Option) (*Backfiller, error) {
	if store == nil {
		return nil, ErrItemStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	config = config.normalized()
	if progress == nil {
		progress = io.Discard
	}

	b := &Backfiller{
		store:     store,
		provider:  provider,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, provider, config.MaxRetries, config.RetryDelay),
		iterator:  NewItemIterator(store, config.BatchSize),
		logger:    slog.Default().With("component", "backfill"),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Run embeds every item that has no vector.
// Item failures are summarized and never abort the run. Cancelling ctx stops
// the run; the partial summary is returned together with ctx.Err().
func (b *Backfiller) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}

	items, err := b.store.ListItems(ctx)
	if err != nil {
		summary.Elapsed = time.Since(started)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		return summary, fmt.Errorf("failed to list items: %w", err)
	}

	pending := 0
	for _, item := range items {
		if !item.HasVector() {
			pending++
		}
	}
	if pending == 0 {
		summary.Skipped = len(items)
		summary.Elapsed = time.Since(started)
		fmt.Fprintf(b.progress, "No items need embedding (%d items already embedded)\n", len(items))
		return summary, nil
	}

	b.logger.Info("starting backfill",
		"provider", b.provider.Name(), "items", len(items), "pending", pending,
		"batchSize", b.config.BatchSize, "concurrency", b.config.Concurrency)
	fmt.Fprintf(b.progress, "Starting backfill of %d items with %s (batch size: %d)\n",
		pending, b.provider.Name(), b.config.BatchSize)

	pool, err := ants.NewPool(b.config.Concurrency)
	if err != nil {
		return summary, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	tracker := NewProgressTracker(b.progress, pending, b.config.ReportInterval)
	tracker.Start()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		taskErr error
	)
	err = b.iterator.ForEach(ctx, func(batch []*core.Item) error {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			outcome, err := b.processor.Process(ctx, batch)

			mu.Lock()
			summary.merge(outcome)
			if err != nil && taskErr == nil {
				taskErr = err
			}
			mu.Unlock()

			tracker.Record(outcome.Attempted, len(outcome.Failures))
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()
	tracker.Finish()
	summary.Elapsed = time.Since(started)

	if ctxErr := ctx.Err(); ctxErr != nil {
		b.logger.Warn("backfill cancelled",
			"generated", summary.Generated, "skipped", summary.Skipped, "failed", summary.Failed)
		return summary, ctxErr
	}
	if err == nil {
		err = taskErr
	}
	if err != nil {
		return summary, fmt.Errorf("backfill aborted: %w", err)
	}

	b.logger.Info("backfill complete",
		"generated", summary.Generated, "skipped", summary.Skipped, "failed", summary.Failed,
		"elapsed", summary.Elapsed)
	fmt.Fprintf(b.progress, "Backfill complete. Generated %d, skipped %d, failed %d in %v\n",
		summary.Generated, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))

	return summary, nil
}
