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


// Package semsearch wires the item store, the active embedding provider,
// semantic search, backfill, and write-time ingestion into one Engine.
package semsearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/ai/providers"
	"github.com/poiesic/semsearch/backfill"
	"github.com/poiesic/semsearch/ingestion"
	"github.com/poiesic/semsearch/search"
	"github.com/poiesic/semsearch/storage"
	"github.com/poiesic/semsearch/storage/badger"
)

// Engine owns the storage backend and the provider for its lifetime.
type Engine struct {
	backend  *badger.Backend
	items    storage.ItemRepository
	stamps   storage.StampRepository
	provider ai.Provider
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig selects and configures the embedding provider.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from configuration.
func WithProvider(provider ai.Provider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory; the path is ignored.
func WithInMemory() Option {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// BackfillOutcome is delivered once by StartBackfill.
type BackfillOutcome struct {
	Reconcile *backfill.ReconcileResult
	Summary   *backfill.Summary
	Err       error
}

// Open opens the catalog at filePath and constructs the configured provider.
// An unavailable provider is logged, not treated as an error.
func Open(filePath string, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger.With("component", "engine")

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = providers.New(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	items, err := badger.NewItemRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	if !provider.IsAvailable() {
		logger.Warn("embedding provider is not available; searches and backfill will fail until it is",
			"provider", provider.Name())
	} else {
		logger.Info("embedding provider ready", "provider", provider.Name(), "dimension", provider.Dimension())
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		backend:  backend,
		items:    items,
		stamps:   badger.NewStampRepository(backend),
		provider: provider,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Close stops background work and closes the store.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()

	if err := e.items.Close(); err != nil {
		e.logger.Error("error closing item repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Items returns the item repository.
func (e *Engine) Items() storage.ItemRepository {
	return e.items
}

// Stamps returns the corpus stamp repository.
func (e *Engine) Stamps() storage.StampRepository {
	return e.stamps
}

// Provider returns the active embedding provider.
func (e *Engine) Provider() ai.Provider {
	return e.provider
}

// NewSearcher creates a searcher over the engine's items.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.items, e.provider, opts...)
}

// NewBackfiller creates a backfiller over the engine's items.
// A nil config uses backfill.DefaultConfig().
func (e *Engine) NewBackfiller(config *backfill.Config, progress io.Writer) (*backfill.Backfiller, error) {
	return backfill.NewBackfiller(e.items, e.provider, config, progress)
}

// Reconcile clears stored vectors that were produced by another provider.
func (e *Engine) Reconcile(ctx context.Context) (*backfill.ReconcileResult, error) {
	return backfill.Reconcile(ctx, e.stamps, e.items, e.provider)
}

// NewIngestionPipeline creates a write-time embedding pipeline.
// The caller must Release it.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(e.items, e.provider, opts...)
}

// StartBackfill reconciles the corpus with the provider and then backfills
// missing vectors in the background. The returned channel receives exactly
// one outcome. The run stops when ctx is cancelled or the engine is closed.
func (e *Engine) StartBackfill(ctx context.Context) <-chan BackfillOutcome {
	out := make(chan BackfillOutcome, 1)

	runCtx, stop := context.WithCancel(ctx)
	unregister := context.AfterFunc(e.ctx, stop)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(out)
		defer unregister()
		defer stop()

		out <- e.runBackfill(runCtx)
	}()

	return out
}

func (e *Engine) runBackfill(ctx context.Context) BackfillOutcome {
	var outcome BackfillOutcome

	outcome.Reconcile, outcome.Err = e.Reconcile(ctx)
	if outcome.Err != nil {
		e.logger.Error("error reconciling corpus", "err", outcome.Err)
		return outcome
	}

	if !e.provider.IsAvailable() {
		outcome.Err = fmt.Errorf("%w: %s", ai.ErrProviderUnavailable, e.provider.Name())
		e.logger.Warn("skipping backfill", "err", outcome.Err)
		return outcome
	}

	backfiller, err := backfill.NewBackfiller(e.items, e.provider, nil, nil, backfill.WithLogger(e.logger))
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Summary, outcome.Err = backfiller.Run(ctx)
	if outcome.Err != nil {
		e.logger.Error("backfill did not complete", "err", outcome.Err)
	}
	return outcome
}
