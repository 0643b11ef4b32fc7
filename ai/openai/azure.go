package openai

import (
	"log/slog"
	"net/http"

	"github.com/poiesic/semsearch/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

const azureDimension = 1536

// NewAzureProvider creates a provider for an Azure OpenAI embedding deployment.
// Both endpoint and key are required for IsAvailable to report true.
//
// Returns ai.Provider interface to enforce abstraction.
func NewAzureProvider(config *ai.Config) (ai.Provider, error) {
	return newAzureProvider(config, nil)
}

func newAzureProvider(config *ai.Config, httpClient *http.Client) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:      ai.ProviderAzureOpenAI,
		dimension: azureDimension,
		timeout:   config.RequestTimeout,
		logger:    slog.Default().With("component", "azure-openai-provider"),
	}

	if config.AzureEndpoint == "" || config.AzureKey == "" || config.AzureDeployment == "" {
		p.reason = "Azure OpenAI endpoint, key and deployment are required"
		p.logger.Warn("provider not configured", "reason", p.reason)
		return p, nil
	}

	opts := []openai.Option{
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithBaseURL(config.AzureEndpoint),
		openai.WithToken(config.AzureKey),
		openai.WithAPIVersion(config.AzureAPIVersion),
		openai.WithEmbeddingModel(config.AzureDeployment),
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}
	if err := p.connect(opts...); err != nil {
		return nil, err
	}
	return p, nil
}
