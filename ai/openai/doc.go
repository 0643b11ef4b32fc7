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


// Package openai provides embedding providers for the OpenAI API and for
// Azure OpenAI deployments.
//
// Both use the langchaingo OpenAI client and its batching embedder, so a
// batch is sent as one request per langchaingo batch. They differ only in
// authentication and URL layout:
//
//   - NewProvider: Bearer token against api.openai.com (or a compatible host)
//   - NewAzureProvider: api-key header against
//     {endpoint}/openai/deployments/{deployment}/embeddings?api-version=...
//
// # Usage
//
//	config := ai.NewConfig(ai.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "text-embedding-3-large"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vec, err := provider.Embed(ctx, "sample text") // 3072 values
package openai
