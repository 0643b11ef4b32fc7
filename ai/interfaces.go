package ai

import "context"

// Provider generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Provider interface {
	// Embed generates a vector embedding for a single text string.
	// The returned vector always has exactly Dimension() elements; a backend
	// response of any other length is reported as ErrMalformedResponse.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// Each item succeeds or fails independently. The result always holds one
	// Vectors entry per input text, nil for the failed ones, which are also
	// listed in Failures.
	EmbedBatch(ctx context.Context, texts []string) *BatchResult

	// Dimension returns the length of every vector this provider produces.
	// It is fixed for the lifetime of the instance.
	Dimension() int

	// Name identifies the provider strategy (e.g. "openai", "ollama").
	Name() string

	// IsAvailable is a cheap configuration and liveness check.
	// It never panics and never blocks for long.
	IsAvailable() bool
}

// BatchFailure describes one item of a batch that could not be embedded.
type BatchFailure struct {
	Index int
	Text  string
	Err   error
}

// BatchResult holds the per-item outcome of Provider.EmbedBatch.
type BatchResult struct {
	// Vectors is parallel to the input texts. Failed entries are nil.
	Vectors [][]float32

	// Failures lists every failed index in ascending order.
	Failures []BatchFailure
}

// NewBatchResult creates a result sized for n inputs.
func NewBatchResult(n int) *BatchResult {
	return &BatchResult{Vectors: make([][]float32, n)}
}

// Fail records a failure for the item at index.
func (r *BatchResult) Fail(index int, text string, err error) {
	r.Vectors[index] = nil
	r.Failures = append(r.Failures, BatchFailure{Index: index, Text: text, Err: err})
}

// Succeeded returns the number of items that received a vector.
func (r *BatchResult) Succeeded() int {
	return len(r.Vectors) - len(r.Failures)
}

// Descriptor identifies the active provider strategy.
type Descriptor struct {
	Name      string
	Dimension int
	Available bool
}

// Describe returns the descriptor of p.
func Describe(p Provider) Descriptor {
	return Descriptor{
		Name:      p.Name(),
		Dimension: p.Dimension(),
		Available: p.IsAvailable(),
	}
}
