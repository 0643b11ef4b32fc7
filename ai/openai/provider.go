package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/semsearch/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultDimension = 1536
	largeDimension   = 3072
	defaultBatchSize = 512
)

// Provider implements ai.Provider on top of a langchaingo OpenAI client.
type Provider struct {
	name      string
	dimension int
	timeout   time.Duration
	embedder  embeddings.Embedder // nil when the configuration is unusable
	reason    string              // why embedder is nil
	logger    *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// DimensionForModel returns the output dimension of an OpenAI embedding model.
func DimensionForModel(model string) int {
	if strings.Contains(model, "3-large") {
		return largeDimension
	}
	return defaultDimension
}

// NewProvider creates a provider for the direct OpenAI API.
// A missing or malformed key does not fail construction; the provider then
// reports IsAvailable() == false and every call fails with
// ai.ErrProviderUnavailable.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	return newProvider(config, nil)
}

func newProvider(config *ai.Config, httpClient *http.Client) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dimension := DimensionForModel(config.OpenAIModel)
	if config.Dimension > 0 {
		dimension = config.Dimension
	}

	p := &Provider{
		name:      ai.ProviderOpenAI,
		dimension: dimension,
		timeout:   config.RequestTimeout,
		logger:    slog.Default().With("component", "openai-provider"),
	}

	if !strings.HasPrefix(config.OpenAIKey, "sk-") {
		p.reason = "OpenAI API key missing or not of the form sk-..."
		p.logger.Warn("provider not configured", "reason", p.reason)
		return p, nil
	}

	opts := []openai.Option{
		openai.WithToken(config.OpenAIKey),
		openai.WithBaseURL(config.OpenAIBaseURL),
		openai.WithEmbeddingModel(config.OpenAIModel),
	}
	if config.Dimension > 0 {
		opts = append(opts, openai.WithEmbeddingDimensions(config.Dimension))
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}
	if err := p.connect(opts...); err != nil {
		return nil, err
	}
	return p, nil
}

// connect builds the langchaingo client and wraps it in a batching embedder.
func (p *Provider) connect(opts ...openai.Option) error {
	client, err := openai.New(opts...)
	if err != nil {
		return err
	}
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(defaultBatchSize),
	)
	if err != nil {
		return err
	}
	p.embedder = embedder
	return nil
}

// Name returns the provider selector value.
func (p *Provider) Name() string {
	return p.name
}

// Dimension returns the fixed output dimension.
func (p *Provider) Dimension() int {
	return p.dimension
}

// IsAvailable reports whether the provider was configured with usable credentials.
func (p *Provider) IsAvailable() bool {
	return p.embedder != nil
}

// Embed generates a vector embedding for a single text string.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.embedder == nil {
		return nil, p.unavailable()
	}
	p.logger.Debug("generating embedding for single text", "length", len(text))

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	vectors, err := p.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		err = ai.Classify(p.name, err)
		p.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, ai.NewError(p.name, ai.ErrMalformedResponse, false,
			errors.New("embedder returned no vectors"))
	}
	if err := ai.CheckDimension(p.name, p.dimension, vectors[0]); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch sends texts through the native batch endpoint.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) *ai.BatchResult {
	if len(texts) == 0 {
		return ai.NewBatchResult(0)
	}
	if p.embedder == nil {
		return ai.FromNativeBatch(p.name, p.dimension, texts, nil, p.unavailable())
	}
	p.logger.Debug("generating embeddings for texts", "count", len(texts))

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		p.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
	}
	return ai.FromNativeBatch(p.name, p.dimension, texts, vectors, err)
}

func (p *Provider) unavailable() error {
	return ai.NewError(p.name, ai.ErrProviderUnavailable, false, errors.New(p.reason))
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
