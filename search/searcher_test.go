package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/ai/mock"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
	"github.com/poiesic/semsearch/storage/badger"
	"github.com/poiesic/semsearch/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.ItemRepository {
	t.Helper()
	items, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})
	return items
}

// unitAt returns a 2D unit vector whose cosine similarity with [1, 0] is sim.
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

// seedItems stores one item per vector; a nil vector leaves the item unembedded.
func seedItems(t *testing.T, repo storage.ItemRepository, vectors ...[]float32) []*core.Item {
	t.Helper()
	ctx := context.Background()
	items := make([]*core.Item, len(vectors))
	for i := range vectors {
		items[i] = &core.Item{Code: fmt.Sprintf("SKU-%d", i), Name: fmt.Sprintf("Item %d", i)}
	}
	added, err := repo.AddItems(ctx, items...)
	require.NoError(t, err)
	for i, vec := range vectors {
		if vec != nil {
			require.NoError(t, repo.SetVector(ctx, added[i].Id, vec))
		}
	}
	return added
}

// fixedQueryProvider embeds every query as [1, 0].
func fixedQueryProvider() *mock.Provider {
	provider := mock.NewProvider(2)
	provider.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	return provider
}

func TestNewSearcher(t *testing.T) {
	store := newTestStore(t)
	provider := mock.NewProvider(2)

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store, provider)
		require.NoError(t, err)
		assert.Equal(t, DefaultLimit, searcher.defaultLimit)
		assert.Equal(t, DefaultThreshold, searcher.defaultThreshold)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(store, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher.logger)
	})

	t.Run("with custom logger", func(t *testing.T) {
		_, err := NewSearcher(store, provider, WithLogger(slog.Default()))
		require.NoError(t, err)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewSearcher(nil, provider)
		assert.Equal(t, ErrItemStoreRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(store, nil)
		assert.Equal(t, ErrProviderRequired, err)
	})

	t.Run("invalid defaults", func(t *testing.T) {
		_, err := NewSearcher(store, provider, WithDefaultLimit(0))
		assert.ErrorIs(t, err, core.ErrInvalidLimit)

		_, err = NewSearcher(store, provider, WithDefaultThreshold(2))
		assert.ErrorIs(t, err, core.ErrInvalidThreshold)

		_, err = NewSearcher(store, provider, WithQueryTimeout(-time.Second))
		assert.Error(t, err)
	})
}

func TestSearch_RankingThresholdAndLimit(t *testing.T) {
	store := newTestStore(t)
	added := seedItems(t, store, unitAt(0.9), unitAt(0.5), unitAt(0.9), unitAt(0.3))

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "trail shoes", WithThreshold(0.4), WithLimit(2))
	require.NoError(t, err)

	assert.Equal(t, "trail shoes", resp.Query)
	assert.Equal(t, 3, resp.TotalResults)
	require.Len(t, resp.Results, 2)

	// Equal similarities keep scan order.
	assert.Equal(t, added[0].Id, resp.Results[0].Item.Id)
	assert.Equal(t, added[2].Id, resp.Results[1].Item.Id)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 2, resp.Results[1].Rank)
	assert.InDelta(t, 0.9, resp.Results[0].Similarity, 1e-6)
	assert.Positive(t, resp.ExecutionTime)
}

func TestSearch_ResultsOrderedAndAboveThreshold(t *testing.T) {
	store := newTestStore(t)
	seedItems(t, store, unitAt(0.2), unitAt(0.7), unitAt(0.95), unitAt(0.66), unitAt(0.8))

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "query", WithLimit(10))
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	for i, result := range resp.Results {
		assert.GreaterOrEqual(t, result.Similarity, DefaultThreshold)
		assert.Equal(t, i+1, result.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Results[i-1].Similarity, result.Similarity)
		}
	}
}

func TestSearch_ThresholdIsInclusive(t *testing.T) {
	store := newTestStore(t)
	seedItems(t, store, []float32{1, 0}, []float32{0, 1})

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "query", WithThreshold(1))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1.0, resp.Results[0].Similarity)
}

func TestSearch_DefaultLimit(t *testing.T) {
	store := newTestStore(t)
	vectors := make([][]float32, 8)
	for i := range vectors {
		vectors[i] = []float32{1, 0}
	}
	seedItems(t, store, vectors...)

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, resp.Results, DefaultLimit)
	assert.Equal(t, 8, resp.TotalResults)

	searcher, err = NewSearcher(store, fixedQueryProvider(), WithDefaultLimit(3))
	require.NoError(t, err)
	resp, err = searcher.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestSearch_EmptyQuery(t *testing.T) {
	store := newTestStore(t)
	provider := mock.NewProvider(2)
	searcher, err := NewSearcher(store, provider)
	require.NoError(t, err)

	for _, query := range []string{"", "   ", "\n\t"} {
		resp, err := searcher.Search(context.Background(), query)
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, core.ErrEmptyQuery)
		assert.ErrorIs(t, err, core.ErrValidation)
	}
	assert.Zero(t, provider.CallCount())
}

func TestSearch_InvalidOptions(t *testing.T) {
	store := newTestStore(t)
	provider := mock.NewProvider(2)
	searcher, err := NewSearcher(store, provider)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "query", WithLimit(0))
	assert.ErrorIs(t, err, core.ErrInvalidLimit)

	_, err = searcher.Search(context.Background(), "query", WithThreshold(-1.5))
	assert.ErrorIs(t, err, core.ErrInvalidThreshold)

	assert.Zero(t, provider.CallCount())
}

func TestSearch_TrimsQuery(t *testing.T) {
	store := newTestStore(t)
	provider := mock.NewProvider(2)
	searcher, err := NewSearcher(store, provider)
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "  red boots  ")
	require.NoError(t, err)
	assert.Equal(t, "red boots", resp.Query)
	assert.Equal(t, []string{"red boots"}, provider.EmbeddedTexts())
}

func TestSearch_EmptyCorpus(t *testing.T) {
	store := newTestStore(t)
	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TotalResults)
}

func TestSearch_SkipsItemsWithoutVector(t *testing.T) {
	store := newTestStore(t)
	added := seedItems(t, store, nil, []float32{1, 0}, nil)

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, added[1].Id, resp.Results[0].Item.Id)
}

// staticStore serves a fixed item list without storage validation.
type staticStore struct {
	items []*core.Item
}

func (s *staticStore) ListItems(ctx context.Context) ([]*core.Item, error) {
	return s.items, nil
}

func (s *staticStore) GetVector(ctx context.Context, id core.ID) ([]float32, error) {
	for _, item := range s.items {
		if item.Id == id {
			return item.Vector, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *staticStore) SetVector(ctx context.Context, id core.ID, vec []float32) error {
	return storage.ErrVectorExists
}

func TestSearch_NonFiniteSimilarityIsExcluded(t *testing.T) {
	store := &staticStore{items: []*core.Item{
		{Id: 1, Code: "NAN", Name: "NaN", Vector: []float32{float32(math.NaN()), 0}},
		{Id: 2, Code: "OK", Name: "Fine", Vector: []float32{1, 0}},
		{Id: 3, Code: "INF", Name: "Inf", Vector: []float32{float32(math.Inf(1)), 0}},
	}}
	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), "anything", WithThreshold(-1))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, core.ID(2), resp.Results[0].Item.Id)
	assert.Equal(t, 1, resp.TotalResults)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	added := seedItems(t, store, []float32{1, 0}, []float32{1, 0, 0})

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorpusInconsistent)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)

	var cerr *CorpusError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, added[1].Id, cerr.ItemID)
	assert.Equal(t, 3, cerr.ItemDimension)
	assert.Equal(t, 2, cerr.ProviderDimension)
}

func TestSearch_ProviderFailure(t *testing.T) {
	store := newTestStore(t)
	seedItems(t, store, []float32{1, 0})

	provider := mock.NewProvider(2)
	providerErr := ai.NewError("mock", ai.ErrProviderUnavailable, true, errors.New("connection refused"))
	provider.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, providerErr
	}

	searcher, err := NewSearcher(store, provider)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrSearchTimeout)
}

func TestSearch_QueryTimeout(t *testing.T) {
	store := newTestStore(t)
	provider := mock.NewProvider(2)
	provider.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		<-ctx.Done()
		return nil, ai.Classify("mock", ctx.Err())
	}

	searcher, err := NewSearcher(store, provider, WithQueryTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrSearchTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearch_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	seedItems(t, store, []float32{1, 0})

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = searcher.Search(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_Concurrent(t *testing.T) {
	store := newTestStore(t)
	seedItems(t, store, unitAt(0.9), unitAt(0.8), unitAt(0.7))

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := searcher.Search(context.Background(), "query")
			if assert.NoError(t, err) {
				assert.Len(t, resp.Results, 3)
			}
		}()
	}
	wg.Wait()
}

func TestSearchWithMonitor(t *testing.T) {
	store := newTestStore(t)
	seedItems(t, store, unitAt(0.9), nil, unitAt(0.1))

	searcher, err := NewSearcher(store, fixedQueryProvider())
	require.NoError(t, err)

	monitor := &testMonitor{}
	resp, err := searcher.Search(context.Background(), "test query", WithMonitor(monitor))
	require.NoError(t, err)

	assert.Equal(t, "test query", monitor.query)
	assert.Equal(t, 2, monitor.dimension)
	assert.Equal(t, 3, monitor.scanned)
	assert.Equal(t, 2, monitor.withVector)
	assert.Equal(t, 1, monitor.candidates)
	assert.Same(t, resp, monitor.response)
}

// testMonitor is a simple test implementation of SearchMonitor
type testMonitor struct {
	query      string
	dimension  int
	scanned    int
	withVector int
	candidates int
	response   *core.SearchResponse
}

func (m *testMonitor) Start(query string, _ int, _ float64) { m.query = query }
func (m *testMonitor) AfterQueryEmbedding(dimension int)    { m.dimension = dimension }
func (m *testMonitor) AfterScan(scanned, withVector int) {
	m.scanned, m.withVector = scanned, withVector
}
func (m *testMonitor) Candidate(_ *core.Item, _ float64)     { m.candidates++ }
func (m *testMonitor) Finish(response *core.SearchResponse) { m.response = response }
