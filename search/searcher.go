package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
	"github.com/poiesic/semsearch/vector"
)

const (
	// DefaultLimit is the result count used when a call sets none.
	DefaultLimit = 5

	// DefaultThreshold is the minimum similarity used when a call sets none.
	DefaultThreshold = 0.65
)

// Searcher provides semantic search over catalog items.
type Searcher struct {
	store            storage.ItemStore
	provider         ai.Provider
	defaultLimit     int
	defaultThreshold float64
	queryTimeout     time.Duration
	logger           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithDefaultLimit sets the limit used when a call passes no WithLimit.
func WithDefaultLimit(limit int) Option {
	return func(s *Searcher) error {
		if err := core.ValidateLimit(limit); err != nil {
			return err
		}
		s.defaultLimit = limit
		return nil
	}
}

// WithDefaultThreshold sets the threshold used when a call passes no WithThreshold.
func WithDefaultThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if err := core.ValidateThreshold(threshold); err != nil {
			return err
		}
		s.defaultThreshold = threshold
		return nil
	}
}

// WithQueryTimeout bounds the query embedding call. Zero disables the bound.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout < 0 {
			return fmt.Errorf("query timeout must not be negative: %v", timeout)
		}
		s.queryTimeout = timeout
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.ItemStore, provider ai.Provider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrItemStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	s := &Searcher{
		store:            store,
		provider:         provider,
		defaultLimit:     DefaultLimit,
		defaultThreshold: DefaultThreshold,
		logger:           slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchOption adjusts a single search call.
type SearchOption func(*searchParams)

type searchParams struct {
	limit     int
	threshold float64
	monitor   SearchMonitor
}

// WithLimit caps the number of returned results.
func WithLimit(limit int) SearchOption {
	return func(p *searchParams) {
		p.limit = limit
	}
}

// WithThreshold sets the minimum similarity a result must reach.
func WithThreshold(threshold float64) SearchOption {
	return func(p *searchParams) {
		p.threshold = threshold
	}
}

// WithMonitor attaches a monitor that receives callbacks at each stage.
func WithMonitor(monitor SearchMonitor) SearchOption {
	return func(p *searchParams) {
		if monitor != nil {
			p.monitor = monitor
		}
	}
}

// Search returns the items most similar to query, best first.
func (s *Searcher) Search(ctx context.Context, query string, opts ...SearchOption) (*core.SearchResponse, error) {
	started := time.Now()

	params := searchParams{
		limit:     s.defaultLimit,
		threshold: s.defaultThreshold,
		monitor:   &noopMonitor{},
	}
	for _, opt := range opts {
		opt(&params)
	}

	query, err := core.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateLimit(params.limit); err != nil {
		return nil, err
	}
	if err := core.ValidateThreshold(params.threshold); err != nil {
		return nil, err
	}

	monitor := params.monitor
	monitor.Start(query, params.limit, params.threshold)

	queryVector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(queryVector))

	items, err := s.store.ListItems(ctx)
	if err != nil {
		s.logger.Error("error listing items", "err", err)
		return nil, err
	}

	var results []*core.SearchResult
	withVector := 0
	for _, item := range items {
		if !item.HasVector() {
			continue
		}
		withVector++

		similarity, err := vector.Cosine(queryVector, item.Vector)
		if err != nil {
			cerr := &CorpusError{
				ItemID:            item.Id,
				ItemDimension:     len(item.Vector),
				ProviderDimension: len(queryVector),
				Err:               err,
			}
			s.logger.Error("stored vector does not match query dimension",
				"itemID", item.Id, "itemDimension", len(item.Vector), "queryDimension", len(queryVector))
			return nil, cerr
		}

		// NaN never passes.
		if !(similarity >= params.threshold) {
			continue
		}
		monitor.Candidate(item, similarity)
		results = append(results, &core.SearchResult{Item: item, Similarity: similarity})
	}
	monitor.AfterScan(len(items), withVector)

	// Ties keep scan order.
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	total := len(results)
	if len(results) > params.limit {
		results = results[:params.limit]
	}
	for i, result := range results {
		result.Rank = i + 1
	}
	if results == nil {
		results = []*core.SearchResult{}
	}

	response := &core.SearchResponse{
		Query:         query,
		Results:       results,
		TotalResults:  total,
		ExecutionTime: time.Since(started),
	}
	monitor.Finish(response)

	s.logger.Debug("search complete",
		"query", query, "scanned", len(items), "matches", total, "returned", len(results),
		"elapsed", response.ExecutionTime)
	return response, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	embedCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	queryVector, err := s.provider.Embed(embedCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(embedCtx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("query embedding timed out", "provider", s.provider.Name(), "timeout", s.queryTimeout)
			return nil, fmt.Errorf("%w: %w: %v", ErrSearchTimeout, context.DeadlineExceeded, err)
		}
		s.logger.Error("error generating embedding for query", "provider", s.provider.Name(), "err", err)
		return nil, err
	}
	return queryVector, nil
}
