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


package core

import "errors"

// Domain validation errors
var (
	// ErrValidation is the root of all caller-facing input errors.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyQuery indicates a search query that is empty after trimming.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidLimit indicates a result limit below 1.
	ErrInvalidLimit = errors.New("limit must be at least 1")

	// ErrInvalidThreshold indicates a similarity threshold outside [-1, 1].
	ErrInvalidThreshold = errors.New("threshold must be between -1 and 1")

	// ErrInvalidItem indicates an Item failed validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrEmptyCode indicates the item Code field is empty.
	ErrEmptyCode = errors.New("item code cannot be empty")

	// ErrEmptyName indicates the item Name field is empty.
	ErrEmptyName = errors.New("item name cannot be empty")
)
