package backfill

import (
	"errors"
	"fmt"

	"github.com/poiesic/semsearch/core"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrItemStoreRequired is returned when an item store is not provided.
	ErrItemStoreRequired = errors.New("item store required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")
)

// ItemFailure records an item that could not be embedded or stored.
type ItemFailure struct {
	ItemID core.ID
	Code   string
	Err    error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("item %d (%s): %v", f.ItemID, f.Code, f.Err)
}

func (f ItemFailure) Unwrap() error {
	return f.Err
}
