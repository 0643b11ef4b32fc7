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

import (
	"fmt"
	"math"
	"strings"
)

// ValidateItem validates an Item according to domain rules.
//
// Validation rules:
//   - Code must not be empty
//   - Name must not be empty
//
// NOT validated (populated by processors):
//   - Vector (can be empty until backfill or ingestion runs)
//   - ID (0 is valid before the database assigns one)
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: %w: item is nil", ErrValidation, ErrInvalidItem)
	}

	if strings.TrimSpace(item.Code) == "" {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidItem, ErrEmptyCode)
	}

	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidItem, ErrEmptyName)
	}

	return nil
}

// ValidateQuery trims the query and rejects it if nothing remains.
// Returns the trimmed query on success.
func ValidateQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrEmptyQuery)
	}
	return trimmed, nil
}

// ValidateLimit checks that a result limit is usable.
func ValidateLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w: %w: got %d", ErrValidation, ErrInvalidLimit, limit)
	}
	return nil
}

// ValidateThreshold checks that a similarity threshold lies within the
// range cosine similarity can produce.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return fmt.Errorf("%w: %w: got %v", ErrValidation, ErrInvalidThreshold, threshold)
	}
	return nil
}
