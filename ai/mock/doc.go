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


// Package mock provides test doubles for ai.Provider.
//
// # Usage
//
//	provider := mock.NewProvider(3)
//	provider.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := provider.CallCount()
//
// # Default Behavior
//
// Without injected functions the provider returns deterministic unit vectors
// derived from an FNV hash of the text, reports itself available and embeds
// batches sequentially through Embed.
package mock
