package storage

import (
	"context"

	"github.com/poiesic/semsearch/core"
)

// ItemStore is the collaborator the search service and backfill process consume.
// Implementations must be thread-safe and support concurrent access.
type ItemStore interface {
	// ListItems returns every item in scan order.
	// Scan order is stable for an unchanged store.
	ListItems(ctx context.Context) ([]*core.Item, error)

	// GetVector returns the stored vector of an item, or nil if it has none.
	// Returns ErrNotFound if the item doesn't exist.
	GetVector(ctx context.Context, id core.ID) ([]float32, error)

	// SetVector stores the vector of an item that has none.
	// Returns ErrVectorExists if a vector is already stored and
	// ErrNotFound if the item doesn't exist. Vectors holding NaN or Inf are
	// refused with ErrNonFiniteVector. The write is atomic.
	SetVector(ctx context.Context, id core.ID, vector []float32) error
}

// ItemRepository provides operations for managing catalog items.
type ItemRepository interface {
	ItemStore

	// AddItems adds one or more items to storage.
	// Generates new IDs from the sequence and sets InsertedAt/UpdatedAt.
	// Returns ErrDuplicateCode if an item with the same Code exists.
	// Returns the items with generated IDs and timestamps populated.
	AddItems(ctx context.Context, items ...*core.Item) ([]*core.Item, error)

	// UpdateItems updates the catalog attributes of existing items.
	// The stored vector is kept when the canonical text is unchanged and
	// cleared otherwise; the Vector field of the input is ignored.
	// Returns ErrNotFound if any item doesn't exist.
	UpdateItems(ctx context.Context, items ...*core.Item) ([]*core.Item, error)

	// DeleteItems removes items by their IDs.
	// Returns ErrNotFound if any item doesn't exist.
	DeleteItems(ctx context.Context, ids ...core.ID) error

	// GetItem retrieves a single item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetItem(ctx context.Context, id core.ID) (*core.Item, error)

	// GetItems retrieves multiple items by their IDs.
	// Returns only the items that exist (no error for missing items).
	GetItems(ctx context.Context, ids ...core.ID) ([]*core.Item, error)

	// GetItemByCode retrieves an item by its external catalog code.
	// Returns ErrNotFound if no item has that code.
	GetItemByCode(ctx context.Context, code string) (*core.Item, error)

	// ClearVectors removes every stored vector. Returns the number cleared.
	ClearVectors(ctx context.Context) (int, error)

	// CountItems returns the total number of items and how many carry a vector.
	CountItems(ctx context.Context) (total, withVector int, err error)

	// Close releases resources held by the repository.
	Close() error
}

// StampRepository persists the corpus stamp.
type StampRepository interface {
	// SaveStamp persists the stamp, setting UpdatedAt.
	SaveStamp(ctx context.Context, stamp *core.CorpusStamp) error

	// LoadStamp returns the stored stamp.
	// Returns nil, nil if no stamp exists.
	LoadStamp(ctx context.Context) (*core.CorpusStamp, error)
}
