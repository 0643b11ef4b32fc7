package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// Pipeline orchestrates the ingestion and embedding of catalog items.
type Pipeline struct {
	items         storage.ItemRepository
	embeddingPool *ants.Pool
	embeddingProc processor
	maxRetries    int
	retryDelay    time.Duration
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithRetry sets how often a retryable embedding failure is retried per item.
// Default is 2 retries with a 500ms base delay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		p.maxRetries = max(maxRetries, 0)
		p.retryDelay = max(baseDelay, 0)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(items storage.ItemRepository, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		items:         items,
		embeddingPool: embeddingPool,
		maxRetries:    2,
		retryDelay:    500 * time.Millisecond,
		logger:        slog.Default().With("component", "ingestion"),
		ctx:           ctx,
		cancel:        cancel,
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processors after options are applied (so they get final config)
	embeddingProc, err := newEmbeddingProcessor(items, provider, p.maxRetries, p.retryDelay, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest validates and stores items, then embeds them asynchronously.
// Returns the stored items with IDs assigned. Embedding errors are logged
// and leave the item without a vector.
func (p *Pipeline) Ingest(ctx context.Context, items ...*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	added, err := p.items.AddItems(ctx, items...)
	if err != nil {
		return nil, err
	}

	p.submit(pendingIDs(added)...)
	return added, nil
}

// Update stores changed items. Items whose canonical text changed lose their
// vector in storage and are re-embedded asynchronously.
func (p *Pipeline) Update(ctx context.Context, items ...*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	updated, err := p.items.UpdateItems(ctx, items...)
	if err != nil {
		return nil, err
	}

	p.submit(pendingIDs(updated)...)
	return updated, nil
}

// Wait blocks until all submitted embedding work has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release cancels in-flight work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.cancel()
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}

func (p *Pipeline) submit(ids ...core.ID) {
	if len(ids) == 0 {
		return
	}

	p.wg.Add(1)
	err := p.embeddingPool.Submit(func() {
		defer p.wg.Done()
		if err := p.embeddingProc.process(p.ctx, ids...); err != nil {
			p.logger.Error("error processing embeddings", "items", len(ids), "err", err)
		}
	})
	if err != nil {
		p.wg.Done()
		p.logger.Error("error submitting embedding task", "items", len(ids), "err", err)
	}
}

func pendingIDs(items []*core.Item) []core.ID {
	ids := make([]core.ID, 0, len(items))
	for _, item := range items {
		if !item.HasVector() {
			ids = append(ids, item.Id)
		}
	}
	return ids
}
