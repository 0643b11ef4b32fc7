// Package ollama provides an embedding provider backed by a local Ollama
// model server. Ollama has no batch embedding call in the API version this
// targets, so EmbedBatch embeds texts one at a time.
package ollama

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/semsearch/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	defaultDimension = 768
	probeTimeout     = 2 * time.Second
)

// modelDimensions maps known embedding models to their output width.
var modelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// DimensionForModel returns the output dimension for an Ollama model name.
// Tags such as ":latest" are ignored. Unknown models default to 768.
func DimensionForModel(model string) int {
	base, _, _ := strings.Cut(model, ":")
	if dim, ok := modelDimensions[base]; ok {
		return dim
	}
	return defaultDimension
}

// Provider implements ai.Provider against the Ollama HTTP API.
type Provider struct {
	host       string
	model      string
	dimension  int
	timeout    time.Duration
	client     embeddings.EmbedderClient // nil when the configuration is unusable
	reason     string                    // why client is nil
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates an Ollama provider. An unusable host does not fail
// construction; the provider then reports IsAvailable() == false.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	return newProvider(config, http.DefaultClient)
}

func newProvider(config *ai.Config, httpClient *http.Client) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Provider{
		host:       config.OllamaHost,
		model:      config.OllamaModel,
		dimension:  DimensionForModel(config.OllamaModel),
		timeout:    config.RequestTimeout,
		httpClient: httpClient,
		logger:     slog.Default().With("component", "ollama-provider", "model", config.OllamaModel),
	}

	if _, err := url.Parse(config.OllamaHost); err != nil {
		p.reason = "invalid Ollama host: " + err.Error()
		p.logger.Warn("provider not configured", "reason", p.reason)
		return p, nil
	}

	llm, err := ollama.New(
		ollama.WithServerURL(config.OllamaHost),
		ollama.WithModel(config.OllamaModel),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		p.reason = "creating Ollama client: " + err.Error()
		p.logger.Warn("provider not configured", "reason", p.reason)
		return p, nil
	}
	p.client = llm
	return p, nil
}

// Name returns "ollama".
func (p *Provider) Name() string {
	return ai.ProviderOllama
}

// Dimension returns the output dimension of the configured model.
func (p *Provider) Dimension() int {
	return p.dimension
}

// IsAvailable probes GET /api/tags with a short timeout.
func (p *Provider) IsAvailable() bool {
	if p.client == nil || p.host == "" || p.model == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("ollama liveness probe failed", "err", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Embed generates a vector embedding for a single text string.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.client == nil {
		return nil, ai.NewError(p.Name(), ai.ErrProviderUnavailable, false, errors.New(p.reason))
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	vectors, err := p.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		err = ai.Classify(p.Name(), err)
		p.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, ai.NewError(p.Name(), ai.ErrMalformedResponse, false,
			errors.New("server returned no embedding"))
	}
	if err := ai.CheckDimension(p.Name(), p.dimension, vectors[0]); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds each text with its own request.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) *ai.BatchResult {
	p.logger.Debug("generating embeddings sequentially", "count", len(texts))
	return ai.EmbedSequential(ctx, texts, p.Embed)
}
