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


package ai

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Provider selector values.
const (
	ProviderPrecomputed = "precomputed"
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure-openai"
	ProviderOllama      = "ollama"
	ProviderVertex      = "vertex"
	ProviderMock        = "mock"
)

// KnownProviders lists every accepted value of Config.Provider.
var KnownProviders = []string{
	ProviderPrecomputed,
	ProviderOpenAI,
	ProviderAzureOpenAI,
	ProviderOllama,
	ProviderVertex,
	ProviderMock,
}

// Config holds the provider selector and the per-provider connection settings.
// Settings are read once when the provider is constructed. Missing
// credentials do not fail construction; they make IsAvailable return false.
type Config struct {
	// Provider selects the active strategy. One of KnownProviders.
	// Default: "precomputed"
	Provider string

	// Dimension overrides the provider's output dimension when non-zero.
	// Only the precomputed, openai and mock providers honor it.
	Dimension int

	// RequestTimeout bounds each outbound embedding call.
	// Default: 30s
	RequestTimeout time.Duration

	// OpenAIKey is the bearer token for the direct OpenAI API.
	OpenAIKey string
	// OpenAIModel is the embedding model identifier.
	// Example: "text-embedding-3-small", "text-embedding-3-large"
	OpenAIModel string
	// OpenAIBaseURL is the API base URL.
	// Default: "https://api.openai.com/v1"
	OpenAIBaseURL string

	// AzureEndpoint is the resource endpoint, e.g. "https://myres.openai.azure.com".
	AzureEndpoint string
	// AzureKey is sent in the api-key header.
	AzureKey string
	// AzureDeployment is the embedding deployment name.
	AzureDeployment string
	// AzureAPIVersion is the REST API version.
	// Default: "2023-05-15"
	AzureAPIVersion string

	// OllamaHost is the base URL of the local model server.
	// Default: "http://localhost:11434"
	OllamaHost string
	// OllamaModel is the embedding model pulled on the server.
	// Default: "nomic-embed-text"
	OllamaModel string

	// VertexProject is the GCP project ID.
	VertexProject string
	// VertexLocation is the GCP region.
	// Default: "us-central1"
	VertexLocation string
	// VertexModel is the publisher model.
	// Default: "textembedding-gecko@003"
	VertexModel string
	// VertexToken is an OAuth2 access token for the Vertex AI API.
	VertexToken string

	// PrecomputedFile is a JSON file with precomputed embeddings.
	// Empty means an empty table; every lookup then uses the fallback.
	PrecomputedFile string
	// PrecomputedStrict makes cache misses fail instead of falling back to
	// a deterministic pseudo-random vector.
	PrecomputedStrict bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the active provider strategy.
func WithProvider(name string) ConfigOption {
	return func(c *Config) {
		c.Provider = name
	}
}

// WithDimension overrides the output dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithRequestTimeout sets the per-call timeout for live providers.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithOpenAI sets the direct OpenAI credentials and model.
func WithOpenAI(key, model string) ConfigOption {
	return func(c *Config) {
		c.OpenAIKey = key
		if model != "" {
			c.OpenAIModel = model
		}
	}
}

// WithOpenAIBaseURL points the OpenAI provider at a different API host.
func WithOpenAIBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.OpenAIBaseURL = url
	}
}

// WithAzure sets the Azure OpenAI endpoint, key and deployment.
func WithAzure(endpoint, key, deployment string) ConfigOption {
	return func(c *Config) {
		c.AzureEndpoint = endpoint
		c.AzureKey = key
		if deployment != "" {
			c.AzureDeployment = deployment
		}
	}
}

// WithOllama sets the Ollama host and model.
func WithOllama(host, model string) ConfigOption {
	return func(c *Config) {
		if host != "" {
			c.OllamaHost = host
		}
		if model != "" {
			c.OllamaModel = model
		}
	}
}

// WithVertex sets the Vertex AI project, location and access token.
func WithVertex(project, location, token string) ConfigOption {
	return func(c *Config) {
		c.VertexProject = project
		if location != "" {
			c.VertexLocation = location
		}
		c.VertexToken = token
	}
}

// WithPrecomputedFile sets the precomputed embeddings file.
func WithPrecomputedFile(path string, strict bool) ConfigOption {
	return func(c *Config) {
		c.PrecomputedFile = path
		c.PrecomputedStrict = strict
	}
}

// DefaultConfig returns a Config that needs no network access.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderPrecomputed,
		RequestTimeout:  30 * time.Second,
		OpenAIModel:     "text-embedding-3-small",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		AzureDeployment: "text-embedding-ada-002",
		AzureAPIVersion: "2023-05-15",
		OllamaHost:      "http://localhost:11434",
		OllamaModel:     "nomic-embed-text",
		VertexLocation:  "us-central1",
		VertexModel:     "textembedding-gecko@003",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithOpenAI(os.Getenv("OPENAI_API_KEY"), "text-embedding-3-large"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// The selector is lower-cased and trailing slashes are removed from URLs.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.OpenAIBaseURL = strings.TrimSuffix(strings.TrimSpace(c.OpenAIBaseURL), "/")
	c.AzureEndpoint = strings.TrimSuffix(strings.TrimSpace(c.AzureEndpoint), "/")
	c.OllamaHost = strings.TrimSuffix(strings.TrimSpace(c.OllamaHost), "/")
	// Ollama's native API lives at the root, not under the OpenAI-compatible /v1.
	c.OllamaHost = strings.TrimSuffix(c.OllamaHost, "/v1")
	c.OpenAIKey = strings.TrimSpace(c.OpenAIKey)
	c.AzureKey = strings.TrimSpace(c.AzureKey)
	c.VertexToken = strings.TrimSpace(c.VertexToken)
}

// Validate checks the parts of the configuration that make construction
// impossible. It automatically normalizes the configuration first.
// Missing credentials are not validation errors.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Provider == "" {
		return errors.New("ai config: Provider is required")
	}
	if !slices.Contains(KnownProviders, c.Provider) {
		return fmt.Errorf("ai config: %w %q (known: %s)", ErrUnknownProvider, c.Provider, strings.Join(KnownProviders, ", "))
	}
	if c.Dimension < 0 {
		return errors.New("ai config: Dimension cannot be negative")
	}
	if c.RequestTimeout < 0 {
		return errors.New("ai config: RequestTimeout cannot be negative")
	}
	return nil
}
