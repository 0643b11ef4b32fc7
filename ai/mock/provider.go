package mock

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/vector"
)

// DefaultDimension is used by NewProvider when dim <= 0.
const DefaultDimension = 384

// Provider is a test double for ai.Provider.
// It allows custom behavior injection via function fields and is safe for
// concurrent use as long as the fields are set before use.
type Provider struct {
	// EmbedFunc is called by Embed if set.
	// If nil, uses default deterministic behavior.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedBatchFunc is called by EmbedBatch if set.
	// If nil, EmbedBatch calls Embed for each text.
	EmbedBatchFunc func(ctx context.Context, texts []string) *ai.BatchResult

	// ProviderName is returned by Name. Default "mock".
	ProviderName string

	// Available is returned by IsAvailable. Default true.
	Available bool

	dimension int
	calls     atomic.Int64
	mu        sync.Mutex
	texts     []string
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a mock provider with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewProvider(dim int) *Provider {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Provider{
		ProviderName: ai.ProviderMock,
		Available:    true,
		dimension:    dim,
	}
}

// NewFromConfig builds a mock provider from configuration.
//
// Returns ai.Provider interface for consistency with production constructors.
func NewFromConfig(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewProvider(config.Dimension), nil
}

// Embed returns EmbedFunc's result or a deterministic vector.
func (m *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return DeterministicVector(text, m.dimension), nil
}

// EmbedBatch returns EmbedBatchFunc's result or embeds each text through Embed.
func (m *Provider) EmbedBatch(ctx context.Context, texts []string) *ai.BatchResult {
	if m.EmbedBatchFunc != nil {
		m.calls.Add(1)
		return m.EmbedBatchFunc(ctx, texts)
	}
	return ai.EmbedSequential(ctx, texts, m.Embed)
}

// Dimension returns the configured dimension.
func (m *Provider) Dimension() int {
	return m.dimension
}

// Name returns ProviderName.
func (m *Provider) Name() string {
	return m.ProviderName
}

// IsAvailable returns Available.
func (m *Provider) IsAvailable() bool {
	return m.Available
}

// CallCount returns the number of embedding calls made.
func (m *Provider) CallCount() int {
	return int(m.calls.Load())
}

// EmbeddedTexts returns every text passed to Embed, in call order.
func (m *Provider) EmbeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call count and recorded texts and removes injected functions.
func (m *Provider) Reset() {
	m.calls.Store(0)
	m.mu.Lock()
	m.texts = nil
	m.mu.Unlock()
	m.EmbedFunc = nil
	m.EmbedBatchFunc = nil
}

// DeterministicVector creates a unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vec[i] = float32(seed%1000) / 1000.0
	}
	return vector.Normalize(vec)
}
