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


// Package ai provides the embedding provider abstraction used by semsearch.
//
// A Provider turns text into a fixed-dimension vector. Exactly one provider
// is active per process; it is chosen by the Provider field of Config and
// constructed by ai/providers. Vectors produced by different providers must
// never be compared, so the storage layer stamps the corpus with the
// Descriptor of the provider that produced it.
//
// # Implementation Packages
//
//   - ai/precomputed: Offline provider backed by a static table, with a
//     deterministic fallback for unseen text
//   - ai/openai: Direct OpenAI API and Azure OpenAI deployments
//   - ai/ollama: Local Ollama model server
//   - ai/vertex: Google Vertex AI text embedding models
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Errors
//
// Providers report failures as *ProviderError values whose Kind is one of
// ErrProviderUnavailable, ErrProviderQuotaExceeded or ErrMalformedResponse.
// Callers use errors.Is to branch on the kind and IsRetryable to decide
// between "try again" and "fix configuration".
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ollama.NewProvider, etc.) return
// the ai.Provider interface. Test utility constructors (mock.NewProvider)
// return CONCRETE types to enable test assertions and behavior injection via
// the mock's public fields and methods (EmbedFunc, CallCount, Reset).
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOllama))
//	provider, err := providers.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !provider.IsAvailable() {
//	    log.Println("embedding provider is not reachable")
//	}
//	vec, err := provider.Embed(ctx, "waterproof hiking boots")
package ai
