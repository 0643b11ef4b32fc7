package precomputed

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("same text same vector across instances", func(t *testing.T) {
		p1, err := New(WithDimension(64))
		require.NoError(t, err)
		p2, err := New(WithDimension(64))
		require.NoError(t, err)

		a, err := p1.Embed(ctx, "Widget")
		require.NoError(t, err)
		b, err := p1.Embed(ctx, "Widget")
		require.NoError(t, err)
		c, err := p2.Embed(ctx, "Widget")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Equal(t, a, c)
		assert.Len(t, a, 64)
		assert.InDelta(t, 1.0, vector.Norm(a), 1e-5)
		assert.Equal(t, int64(3), p1.Misses()+p2.Misses())
	})

	t.Run("normalization applies to fallback keys", func(t *testing.T) {
		p, err := New(WithDimension(32))
		require.NoError(t, err)
		a, _ := p.Embed(ctx, "  WIDGET ")
		b, _ := p.Embed(ctx, "widget")
		assert.Equal(t, a, b)
	})

	t.Run("different text different vector", func(t *testing.T) {
		p, err := New(WithDimension(32))
		require.NoError(t, err)
		a, _ := p.Embed(ctx, "widget")
		b, _ := p.Embed(ctx, "gadget")
		assert.NotEqual(t, a, b)
	})

	t.Run("matches package level fallback", func(t *testing.T) {
		p, err := New(WithDimension(16))
		require.NoError(t, err)
		got, err := p.Embed(ctx, "Widget")
		require.NoError(t, err)
		assert.Equal(t, FallbackVector("widget", 16), got)
	})
}

func TestProvider_CacheHit(t *testing.T) {
	ctx := context.Background()
	stored := []float32{0.1, 0.2, 0.3}

	p, err := New(WithDimension(3), WithEmbeddings(map[string][]float32{"Wireless Earbuds": stored}))
	require.NoError(t, err)
	assert.Equal(t, 1, p.CacheSize())

	got, err := p.Embed(ctx, " wireless earbuds")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.Equal(t, int64(0), p.Misses())

	// Mutating the returned slice must not affect the table
	got[0] = 9
	again, _ := p.Embed(ctx, "wireless earbuds")
	assert.Equal(t, float32(0.1), again[0])
}

func TestProvider_Strict(t *testing.T) {
	p, err := New(WithDimension(3), WithStrict(true))
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
	assert.False(t, ai.IsRetryable(err))
}

func TestProvider_AddEmbedding(t *testing.T) {
	p, err := New(WithDimension(2))
	require.NoError(t, err)

	require.NoError(t, p.AddEmbedding("Widget", []float32{1, 0}))
	err = p.AddEmbedding("Gadget", []float32{1, 0, 0})
	assert.ErrorIs(t, err, ai.ErrMalformedResponse)

	t.Run("concurrent readers and writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = p.Embed(context.Background(), "widget")
			}()
			go func() {
				defer wg.Done()
				_ = p.AddEmbedding("widget", []float32{0, 1})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, p.CacheSize())
	})
}

func TestProvider_EmbedBatch(t *testing.T) {
	p, err := New(WithDimension(4))
	require.NoError(t, err)

	result := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	assert.Empty(t, result.Failures)
	require.Len(t, result.Vectors, 3)
	for _, v := range result.Vectors {
		assert.Len(t, v, 4)
	}
}

func TestProvider_Descriptor(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	d := ai.Describe(p)
	assert.Equal(t, ai.Descriptor{Name: "precomputed", Dimension: DefaultDimension, Available: true}, d)
}

func TestNewProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")
	content := `[{"text": "Trail Shoe", "vector": [1, 0]}, {"text": "bad", "vector": [1, 0, 0]}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := ai.NewConfig(ai.WithDimension(2), ai.WithPrecomputedFile(path, false))
	provider, err := NewProvider(cfg)
	require.NoError(t, err)

	p := provider.(*Provider)
	assert.Equal(t, 1, p.CacheSize(), "wrong-dimension entry is rejected")

	got, err := p.Embed(context.Background(), "trail shoe")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, got)

	t.Run("missing file leaves the provider unavailable", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithPrecomputedFile(filepath.Join(dir, "nope.json"), false))
		provider, err := NewProvider(cfg)
		require.NoError(t, err)
		assert.False(t, provider.IsAvailable())

		_, err = provider.Embed(context.Background(), "trail shoe")
		assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
		assert.False(t, ai.IsRetryable(err))

		result := provider.EmbedBatch(context.Background(), []string{"a", "b"})
		require.Len(t, result.Failures, 2)
		assert.ErrorIs(t, result.Failures[0].Err, ai.ErrProviderUnavailable)
	})
}

func TestParse(t *testing.T) {
	t.Run("object form", func(t *testing.T) {
		entries, err := Parse([]byte(`{"a": [1, 2], "b": [3, 4]}`))
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 4}, entries["b"])
	})

	t.Run("empty", func(t *testing.T) {
		entries, err := Parse([]byte("  "))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Parse([]byte(`{"a": "not a vector"}`))
		assert.Error(t, err)
	})
}

func TestWithLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := New(WithDimension(4), WithLogger(logger))
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "unknown text")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "component=precomputed-provider")
}
