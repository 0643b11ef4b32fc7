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


package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/semsearch/core"
)

var (
	// ErrItemStoreRequired is returned when an item store is not provided.
	ErrItemStoreRequired = errors.New("item store required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrSearchTimeout is returned when the query embedding exceeds the query timeout.
	ErrSearchTimeout = errors.New("search timed out")

	// ErrCorpusInconsistent is returned when a stored vector cannot be compared
	// with the query vector.
	ErrCorpusInconsistent = errors.New("corpus inconsistent with provider")
)

// CorpusError describes a stored vector whose dimension differs from the query's.
type CorpusError struct {
	ItemID            core.ID
	ItemDimension     int
	ProviderDimension int
	Err               error
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("%v: item %d has dimension %d, query has %d: %v",
		ErrCorpusInconsistent, e.ItemID, e.ItemDimension, e.ProviderDimension, e.Err)
}

// Unwrap exposes both ErrCorpusInconsistent and the underlying cause.
func (e *CorpusError) Unwrap() []error {
	return []error{ErrCorpusInconsistent, e.Err}
}
