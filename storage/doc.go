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


// Package storage provides the storage abstraction layer for semsearch.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Search depends only on the narrow ItemStore; backfill
// and ingestion use the full ItemRepository.
//
// # Architecture
//
//   - ItemStore: The read/scan and vector-write operations search and backfill need
//   - ItemRepository: ItemStore plus catalog maintenance (add, update, delete, lookup)
//   - StampRepository: Persists the CorpusStamp of the provider that produced the vectors
//
// # Vector Invariants
//
// Stored vectors are never mutated in place. SetVector fails with
// ErrVectorExists when the item already carries a vector. UpdateItems clears
// the vector when the item's canonical text changes, and ClearVectors drops
// every vector when the active provider changes.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	items, err := badger.NewItemRepository(backend)
//
// Use in tests with in-memory storage:
//
//	items, stamps, backend, err := badger.NewMemoryRepositories()
package storage
