// Package vertex provides an embedding provider for Google Vertex AI text
// embedding models, called through the REST predict endpoint with an OAuth2
// access token.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/semsearch/ai"
)

const (
	dimension = 768

	// maxInstances is the per-request instance limit of the gecko models.
	maxInstances = 5
)

type predictRequest struct {
	Instances []instance `json:"instances"`
}

type instance struct {
	Content string `json:"content"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// Provider implements ai.Provider for Vertex AI.
type Provider struct {
	endpoint   string // full :predict URL, empty when unconfigured
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a Vertex AI provider. Project, location and token are
// all required for IsAvailable to report true.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base := fmt.Sprintf("https://%s-aiplatform.googleapis.com", config.VertexLocation)
	return newProvider(config, base, http.DefaultClient), nil
}

func newProvider(config *ai.Config, baseURL string, httpClient *http.Client) *Provider {
	p := &Provider{
		token:      config.VertexToken,
		timeout:    config.RequestTimeout,
		httpClient: httpClient,
		logger:     slog.Default().With("component", "vertex-provider"),
	}
	if config.VertexProject == "" || config.VertexLocation == "" || config.VertexToken == "" {
		p.logger.Warn("provider not configured", "reason", "project, location and token are required")
		return p
	}
	p.endpoint = fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		baseURL, config.VertexProject, config.VertexLocation, config.VertexModel)
	return p
}

// Name returns "vertex".
func (p *Provider) Name() string {
	return ai.ProviderVertex
}

// Dimension returns 768.
func (p *Provider) Dimension() int {
	return dimension
}

// IsAvailable reports whether project, location and token were configured.
func (p *Provider) IsAvailable() bool {
	return p.endpoint != ""
}

// Embed generates a vector embedding for a single text string.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.predict(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, ai.NewError(p.Name(), ai.ErrMalformedResponse, false,
			fmt.Errorf("expected 1 prediction, received %d", len(vectors)))
	}
	if err := ai.CheckDimension(p.Name(), dimension, vectors[0]); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch sends texts in chunks of the per-request instance limit.
// A failed request fails only the items of its chunk.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) *ai.BatchResult {
	result := ai.NewBatchResult(len(texts))
	for start := 0; start < len(texts); start += maxInstances {
		end := min(start+maxInstances, len(texts))
		chunk := texts[start:end]

		vectors, err := p.predict(ctx, chunk)
		part := ai.FromNativeBatch(p.Name(), dimension, chunk, vectors, err)
		copy(result.Vectors[start:end], part.Vectors)
		for _, f := range part.Failures {
			f.Index += start
			result.Failures = append(result.Failures, f)
		}
	}
	return result
}

func (p *Provider) predict(ctx context.Context, texts []string) ([][]float32, error) {
	if p.endpoint == "" {
		return nil, ai.NewError(p.Name(), ai.ErrProviderUnavailable, false,
			fmt.Errorf("vertex provider is not configured"))
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	payload := predictRequest{Instances: make([]instance, len(texts))}
	for i, text := range texts {
		payload.Instances[i] = instance{Content: text}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, ai.Classify(p.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, ai.Classify(p.Name(), err)
	}
	defer resp.Body.Close()

	if err := ai.CheckResponse(resp); err != nil {
		p.logger.Error("vertex predict failed", "count", len(texts), "err", err)
		return nil, ai.Classify(p.Name(), err)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, ai.NewError(p.Name(), ai.ErrMalformedResponse, false, err)
	}

	vectors := make([][]float32, len(decoded.Predictions))
	for i, pred := range decoded.Predictions {
		vectors[i] = pred.Embeddings.Values
	}
	return vectors, nil
}
