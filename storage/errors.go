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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateCode indicates an item with the same catalog code already exists.
	ErrDuplicateCode = errors.New("duplicate item code")

	// ErrVectorExists indicates an attempt to overwrite a stored vector.
	ErrVectorExists = errors.New("item already has a vector")

	// ErrEmptyVector indicates an attempt to store an empty vector.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrNonFiniteVector indicates an attempt to store a vector holding NaN or Inf.
	ErrNonFiniteVector = errors.New("vector contains non-finite values")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
