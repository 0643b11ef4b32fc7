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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// StampRepository implements storage.StampRepository for BadgerDB.
type StampRepository struct {
	backend *Backend
}

var _ storage.StampRepository = (*StampRepository)(nil)

// NewStampRepository creates a new StampRepository.
func NewStampRepository(backend *Backend) *StampRepository {
	return &StampRepository{
		backend: backend,
	}
}

// SaveStamp persists the corpus stamp.
func (r *StampRepository) SaveStamp(ctx context.Context, stamp *core.CorpusStamp) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		stamp.UpdatedAt = time.Now().UTC()
		if err := tx.Set([]byte(stampKey), storage.MarshalStamp(stamp)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadStamp retrieves the corpus stamp.
// Returns nil, nil if no stamp exists.
func (r *StampRepository) LoadStamp(ctx context.Context) (*core.CorpusStamp, error) {
	var stamp *core.CorpusStamp
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(stampKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			stamp, unmarshalErr = storage.UnmarshalStamp(val)
			return unmarshalErr
		})
	}, false)

	return stamp, err
}
