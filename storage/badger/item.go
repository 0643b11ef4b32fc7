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
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
	"github.com/poiesic/semsearch/vector"
)

// ItemRepository implements storage.ItemRepository for BadgerDB.
type ItemRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(backend *Backend) (*ItemRepository, error) {
	idSeq, err := backend.GetSequence(itemIDSeq)
	if err != nil {
		return nil, err
	}

	return &ItemRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ItemRepository) Close() error {
	return r.idSeq.Release()
}

// AddItems adds one or more items to storage.
func (r *ItemRepository) AddItems(ctx context.Context, items ...*core.Item) ([]*core.Item, error) {
	for _, item := range items {
		if err := core.ValidateItem(item); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, item := range items {
			codeKey := makeItemCodeKey(item.Code)
			taken, err := keyExists(tx, codeKey)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %s", storage.ErrDuplicateCode, item.Code)
			}

			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			item.Id = core.ID(nextID)

			item.InsertedAt = time.Now().UTC()
			item.UpdatedAt = item.InsertedAt

			if err := tx.Set(makeItemKey(item.Id), storage.MarshalItem(item)); err != nil {
				return err
			}
			if err := tx.Set(codeKey, storage.MarshalID(item.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateItems updates existing items.
// A change to the canonical text drops the stored vector.
func (r *ItemRepository) UpdateItems(ctx context.Context, items ...*core.Item) ([]*core.Item, error) {
	for _, item := range items {
		if err := core.ValidateItem(item); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithRetryingTx(func(tx *badger.Txn) error {
		for _, item := range items {
			key := makeItemKey(item.Id)

			old, err := readItem(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: item %d", storage.ErrNotFound, item.Id)
			}

			if old.Code != item.Code {
				newCodeKey := makeItemCodeKey(item.Code)
				taken, err := keyExists(tx, newCodeKey)
				if err != nil {
					return err
				}
				if taken {
					return fmt.Errorf("%w: %s", storage.ErrDuplicateCode, item.Code)
				}
				if err := tx.Delete(makeItemCodeKey(old.Code)); err != nil {
					return err
				}
				if err := tx.Set(newCodeKey, storage.MarshalID(item.Id)); err != nil {
					return err
				}
			}

			if old.CanonicalText() == item.CanonicalText() {
				item.Vector = old.Vector
			} else {
				item.Vector = nil
			}
			item.InsertedAt = old.InsertedAt
			item.UpdatedAt = time.Now().UTC()

			if err := tx.Set(key, storage.MarshalItem(item)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// DeleteItems removes items by their IDs.
func (r *ItemRepository) DeleteItems(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeItemKey(id)

			item, err := readItem(tx, key)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("%w: item %d", storage.ErrNotFound, id)
			}

			if err := tx.Delete(makeItemCodeKey(item.Code)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetItem retrieves a single item by ID.
func (r *ItemRepository) GetItem(ctx context.Context, id core.ID) (*core.Item, error) {
	var result *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readItem(tx, makeItemKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetItems retrieves multiple items by their IDs.
func (r *ItemRepository) GetItems(ctx context.Context, ids ...core.ID) ([]*core.Item, error) {
	var result []*core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := readItem(tx, makeItemKey(id))
			if err != nil {
				return err
			}
			if item != nil {
				result = append(result, item)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetItemByCode retrieves an item through the code index.
func (r *ItemRepository) GetItemByCode(ctx context.Context, code string) (*core.Item, error) {
	var result *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		entry, err := tx.Get(makeItemCodeKey(code))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id core.ID
		if err := entry.Value(func(val []byte) error {
			var unmarshalErr error
			id, unmarshalErr = storage.UnmarshalID(val)
			return unmarshalErr
		}); err != nil {
			return err
		}

		result, err = readItem(tx, makeItemKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListItems returns every item ordered by ID.
func (r *ItemRepository) ListItems(ctx context.Context) ([]*core.Item, error) {
	var results []*core.Item
	err := r.scanItems(ctx, func(item *core.Item) {
		results = append(results, item)
	})
	return results, err
}

// GetVector returns a copy of the stored vector of an item.
func (r *ItemRepository) GetVector(ctx context.Context, id core.ID) ([]float32, error) {
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(item.Vector), nil
}

// SetVector stores the vector of an item that has none.
func (r *ItemRepository) SetVector(ctx context.Context, id core.ID, vec []float32) error {
	if len(vec) == 0 {
		return storage.ErrEmptyVector
	}
	if !vector.IsFinite(vec) {
		return fmt.Errorf("%w: item %d", storage.ErrNonFiniteVector, id)
	}

	return r.backend.WithRetryingTx(func(tx *badger.Txn) error {
		key := makeItemKey(id)
		item, err := readItem(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: item %d", storage.ErrNotFound, id)
		}
		if item.HasVector() {
			return fmt.Errorf("%w: item %d", storage.ErrVectorExists, id)
		}

		item.Vector = slices.Clone(vec)
		if err := tx.Set(key, storage.MarshalItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// ClearVectors removes every stored vector. Each item is cleared in its own
// conflict-checked transaction, so concurrent updates to other fields are
// preserved. A vector stored after its item has been cleared is kept.
func (r *ItemRepository) ClearVectors(ctx context.Context) (int, error) {
	var embedded []core.ID
	err := r.scanItems(ctx, func(item *core.Item) {
		if item.HasVector() {
			embedded = append(embedded, item.Id)
		}
	})
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, id := range embedded {
		if err := ctx.Err(); err != nil {
			return cleared, err
		}
		changed := false
		err := r.backend.WithRetryingTx(func(tx *badger.Txn) error {
			changed = false
			key := makeItemKey(id)
			item, err := readItem(tx, key)
			if err != nil {
				return err
			}
			if item == nil || !item.HasVector() {
				return nil
			}
			item.Vector = nil
			if err := tx.Set(key, storage.MarshalItem(item)); err != nil {
				return err
			}
			changed = true
			return tx.Commit()
		})
		if err != nil {
			return cleared, err
		}
		if changed {
			cleared++
		}
	}

	if cleared > 0 {
		r.backend.logger.Info("cleared stored vectors", "count", cleared)
	}
	return cleared, nil
}

// CountItems returns the number of items and how many carry a vector.
func (r *ItemRepository) CountItems(ctx context.Context) (total, withVector int, err error) {
	err = r.scanItems(ctx, func(item *core.Item) {
		total++
		if item.HasVector() {
			withVector++
		}
	})
	return total, withVector, err
}

// Helper methods

// scanItems visits every item in key order, stopping early if ctx is done.
func (r *ItemRepository) scanItems(ctx context.Context, visit func(*core.Item)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item *core.Item
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				item, unmarshalErr = storage.UnmarshalItem(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			visit(item)
		}
		return nil
	}, false)
}

// readItem reads an item from the transaction.
// Returns nil, nil if the key doesn't exist.
func readItem(tx *badger.Txn, key []byte) (*core.Item, error) {
	entry, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var item *core.Item
	err = entry.Value(func(val []byte) error {
		var unmarshalErr error
		item, unmarshalErr = storage.UnmarshalItem(val)
		return unmarshalErr
	})
	return item, err
}

func keyExists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}
