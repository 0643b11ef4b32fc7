package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// ReconcileResult reports what Reconcile found and did.
type ReconcileResult struct {
	// Previous is the stamp found in storage, nil on a fresh store.
	Previous *core.CorpusStamp
	Current  core.CorpusStamp
	// Stale is set when the stored vectors did not come from the provider.
	Stale bool
	// Cleared is the number of vectors dropped.
	Cleared int
}

// Reconcile makes the stored vectors consistent with provider.
//
// When the stored stamp names another provider or dimension every vector is
// cleared so the next backfill regenerates the whole corpus. A store without
// a stamp keeps its vectors only if they all have the provider's dimension.
// The provider's stamp is saved whenever it differs from the stored one.
//
// Run it before anything starts writing vectors from provider; a vector an
// earlier provider writes while clearing is in progress may survive.
func Reconcile(ctx context.Context, stamps storage.StampRepository, items storage.ItemRepository, provider ai.Provider) (*ReconcileResult, error) {
	logger := slog.Default().With("component", "reconcile")

	previous, err := stamps.LoadStamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus stamp: %w", err)
	}

	result := &ReconcileResult{
		Previous: previous,
		Current:  core.CorpusStamp{Provider: provider.Name(), Dimension: provider.Dimension()},
	}

	stale := false
	switch {
	case previous == nil:
		stale, err = hasForeignVectors(ctx, items, provider.Dimension())
		if err != nil {
			return nil, err
		}
	case !previous.Matches(provider.Name(), provider.Dimension()):
		stale = true
	}

	result.Stale = stale
	if stale {
		from := "unstamped corpus"
		if previous != nil {
			from = fmt.Sprintf("%s/%d", previous.Provider, previous.Dimension)
		}
		logger.Warn("embedding provider changed, clearing stored vectors",
			"from", from, "to", fmt.Sprintf("%s/%d", provider.Name(), provider.Dimension()))

		result.Cleared, err = items.ClearVectors(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to clear vectors: %w", err)
		}
	}

	if previous == nil || stale {
		if err := stamps.SaveStamp(ctx, &result.Current); err != nil {
			return nil, fmt.Errorf("failed to save corpus stamp: %w", err)
		}
	}

	return result, nil
}

func hasForeignVectors(ctx context.Context, items storage.ItemStore, dimension int) (bool, error) {
	all, err := items.ListItems(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list items: %w", err)
	}
	for _, item := range all {
		if item.HasVector() && len(item.Vector) != dimension {
			return true, nil
		}
	}
	return false, nil
}
