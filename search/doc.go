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


// Package search provides semantic search over the item catalog.
//
// The Searcher embeds the query with the active ai.Provider, scans every
// item in the store, scores each stored vector by cosine similarity,
// drops candidates below the threshold, and returns the best matches
// ranked from 1.
//
// Search is a linear scan. Many searches may run concurrently against one
// Searcher; it holds no mutable state.
package search
