// Package providers constructs the active embedding provider from configuration.
package providers

import (
	"fmt"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/ai/mock"
	"github.com/poiesic/semsearch/ai/ollama"
	"github.com/poiesic/semsearch/ai/openai"
	"github.com/poiesic/semsearch/ai/precomputed"
	"github.com/poiesic/semsearch/ai/vertex"
)

// Constructor builds a provider from configuration.
type Constructor func(config *ai.Config) (ai.Provider, error)

var constructors = map[string]Constructor{
	ai.ProviderPrecomputed: precomputed.NewProvider,
	ai.ProviderOpenAI:      openai.NewProvider,
	ai.ProviderAzureOpenAI: openai.NewAzureProvider,
	ai.ProviderOllama:      ollama.NewProvider,
	ai.ProviderVertex:      vertex.NewProvider,
	ai.ProviderMock:        mock.NewFromConfig,
}

// New validates config and constructs the provider named by config.Provider.
// A nil config selects ai.DefaultConfig().
func New(config *ai.Config) (ai.Provider, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	construct, ok := constructors[config.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, config.Provider)
	}
	provider, err := construct(config)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", config.Provider, err)
	}
	return provider, nil
}
