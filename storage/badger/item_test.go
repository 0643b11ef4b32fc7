package badger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItemRepo(t *testing.T) storage.ItemRepository {
	t.Helper()
	items, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		items.Close()
		backend.Close()
	})
	return items
}

func sampleItems() []*core.Item {
	return []*core.Item{
		{Code: "BOOT-1", Name: "Summit Boot", Manufacturer: "Northpeak", Category: "Footwear", Description: "Waterproof hiking boot"},
		{Code: "TENT-2", Name: "Ridge Tent", Manufacturer: "Northpeak", Category: "Shelter", Description: "Two person tent"},
		{Code: "LAMP-3", Name: "Glow Lamp", Category: "Lighting"},
	}
}

func TestItemRepository_AddAndGet(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	added, err := repo.AddItems(ctx, sampleItems()...)
	require.NoError(t, err)
	require.Len(t, added, 3)

	for _, item := range added {
		assert.NotZero(t, item.Id)
		assert.False(t, item.InsertedAt.IsZero())
		assert.Equal(t, item.InsertedAt, item.UpdatedAt)
	}

	got, err := repo.GetItem(ctx, added[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "Ridge Tent", got.Name)

	byCode, err := repo.GetItemByCode(ctx, "LAMP-3")
	require.NoError(t, err)
	assert.Equal(t, added[2].Id, byCode.Id)

	_, err = repo.GetItem(ctx, core.ID(9999))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetItemByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	some, err := repo.GetItems(ctx, added[0].Id, core.ID(9999))
	require.NoError(t, err)
	assert.Len(t, some, 1)
}

func TestItemRepository_AddValidation(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	_, err := repo.AddItems(ctx, &core.Item{Code: "X-1"})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = repo.AddItems(ctx, &core.Item{Code: "X-1", Name: "First"})
	require.NoError(t, err)

	_, err = repo.AddItems(ctx, &core.Item{Code: "X-1", Name: "Second"})
	assert.ErrorIs(t, err, storage.ErrDuplicateCode)

	// Duplicates inside one batch are rejected and nothing is written.
	_, err = repo.AddItems(ctx,
		&core.Item{Code: "Y-1", Name: "A"},
		&core.Item{Code: "Y-1", Name: "B"},
	)
	assert.ErrorIs(t, err, storage.ErrDuplicateCode)

	_, err = repo.GetItemByCode(ctx, "Y-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestItemRepository_ListItemsInInsertionOrder(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	var batch []*core.Item
	for i := 0; i < 300; i++ {
		batch = append(batch, &core.Item{Code: fmt.Sprintf("SKU-%03d", i), Name: fmt.Sprintf("Item %d", i)})
	}
	_, err := repo.AddItems(ctx, batch...)
	require.NoError(t, err)

	listed, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 300)
	for i, item := range listed {
		assert.Equal(t, fmt.Sprintf("SKU-%03d", i), item.Code)
	}
}

func TestItemRepository_ListItemsEmpty(t *testing.T) {
	repo := newTestItemRepo(t)

	listed, err := repo.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestItemRepository_ListItemsCancelled(t *testing.T) {
	repo := newTestItemRepo(t)
	_, err := repo.AddItems(context.Background(), sampleItems()...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.ListItems(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestItemRepository_Vectors(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	added, err := repo.AddItems(ctx, sampleItems()...)
	require.NoError(t, err)
	id := added[0].Id

	vec, err := repo.GetVector(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, vec)

	require.NoError(t, repo.SetVector(ctx, id, []float32{0.6, 0.8}))

	vec, err = repo.GetVector(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)

	t.Run("stored vectors are never overwritten", func(t *testing.T) {
		err := repo.SetVector(ctx, id, []float32{1, 0})
		assert.ErrorIs(t, err, storage.ErrVectorExists)

		vec, err := repo.GetVector(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.6, 0.8}, vec)
	})

	t.Run("returned vector is a copy", func(t *testing.T) {
		vec, err := repo.GetVector(ctx, id)
		require.NoError(t, err)
		vec[0] = 42

		again, err := repo.GetVector(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, float32(0.6), again[0])
	})

	t.Run("missing item", func(t *testing.T) {
		assert.ErrorIs(t, repo.SetVector(ctx, core.ID(9999), []float32{1}), storage.ErrNotFound)
		_, err := repo.GetVector(ctx, core.ID(9999))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.ErrorIs(t, repo.SetVector(ctx, added[1].Id, nil), storage.ErrEmptyVector)
	})

	t.Run("non-finite vector", func(t *testing.T) {
		err := repo.SetVector(ctx, added[1].Id, []float32{float32(math.NaN()), 1})
		assert.ErrorIs(t, err, storage.ErrNonFiniteVector)
		vec, err := repo.GetVector(ctx, added[1].Id)
		require.NoError(t, err)
		assert.Empty(t, vec)
	})

	total, withVector, err := repo.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, withVector)
}

func TestItemRepository_ConcurrentSetVector(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	added, err := repo.AddItems(ctx, &core.Item{Code: "C-1", Name: "Contended"})
	require.NoError(t, err)
	id := added[0].Id

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.SetVector(ctx, id, []float32{float32(i + 1)})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrVectorExists)
	}
	assert.Equal(t, 1, succeeded)
}

func TestItemRepository_Update(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	added, err := repo.AddItems(ctx, sampleItems()...)
	require.NoError(t, err)
	require.NoError(t, repo.SetVector(ctx, added[0].Id, []float32{1, 0}))
	require.NoError(t, repo.SetVector(ctx, added[1].Id, []float32{0, 1}))

	t.Run("same canonical text keeps vector", func(t *testing.T) {
		item, err := repo.GetItem(ctx, added[0].Id)
		require.NoError(t, err)
		item.Code = "BOOT-1A"
		item.Vector = nil

		_, err = repo.UpdateItems(ctx, item)
		require.NoError(t, err)

		got, err := repo.GetItemByCode(ctx, "BOOT-1A")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, got.Vector)
		assert.True(t, added[0].InsertedAt.Truncate(time.Microsecond).Equal(got.InsertedAt))

		_, err = repo.GetItemByCode(ctx, "BOOT-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("changed text clears vector", func(t *testing.T) {
		item, err := repo.GetItem(ctx, added[1].Id)
		require.NoError(t, err)
		item.Description = "Four person tent"

		_, err = repo.UpdateItems(ctx, item)
		require.NoError(t, err)

		vec, err := repo.GetVector(ctx, item.Id)
		require.NoError(t, err)
		assert.Nil(t, vec)
	})

	t.Run("code collision", func(t *testing.T) {
		item, err := repo.GetItem(ctx, added[2].Id)
		require.NoError(t, err)
		item.Code = "TENT-2"

		_, err = repo.UpdateItems(ctx, item)
		assert.ErrorIs(t, err, storage.ErrDuplicateCode)
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := repo.UpdateItems(ctx, &core.Item{Id: 9999, Code: "Z", Name: "Z"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestItemRepository_Delete(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	added, err := repo.AddItems(ctx, sampleItems()...)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteItems(ctx, added[0].Id))

	_, err = repo.GetItem(ctx, added[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The code is free again.
	_, err = repo.AddItems(ctx, &core.Item{Code: "BOOT-1", Name: "Replacement"})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteItems(ctx, core.ID(9999)), storage.ErrNotFound)
}

func TestItemRepository_ClearVectors(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	added, err := repo.AddItems(ctx, sampleItems()...)
	require.NoError(t, err)
	require.NoError(t, repo.SetVector(ctx, added[0].Id, []float32{1}))
	require.NoError(t, repo.SetVector(ctx, added[2].Id, []float32{1}))

	cleared, err := repo.ClearVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	total, withVector, err := repo.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Zero(t, withVector)

	cleared, err = repo.ClearVectors(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared)

	// Cleared items accept a fresh vector.
	require.NoError(t, repo.SetVector(ctx, added[0].Id, []float32{0.5}))
}

func TestItemRepository_ClearVectorsKeepsConcurrentUpdates(t *testing.T) {
	repo := newTestItemRepo(t)
	ctx := context.Background()

	const n = 40
	items := make([]*core.Item, n)
	for i := range items {
		items[i] = &core.Item{Code: fmt.Sprintf("OLD-%d", i), Name: fmt.Sprintf("Item %d", i)}
	}
	added, err := repo.AddItems(ctx, items...)
	require.NoError(t, err)
	for _, item := range added {
		require.NoError(t, repo.SetVector(ctx, item.Id, []float32{1, 0}))
	}

	var wg sync.WaitGroup
	var updateErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i, item := range added {
			renamed := *item
			renamed.Code = fmt.Sprintf("NEW-%d", i)
			if _, err := repo.UpdateItems(ctx, &renamed); err != nil {
				updateErr = err
				return
			}
		}
	}()

	_, err = repo.ClearVectors(ctx)
	wg.Wait()
	require.NoError(t, err)
	require.NoError(t, updateErr)

	stored, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, stored, n)
	for i, item := range stored {
		assert.Equal(t, fmt.Sprintf("NEW-%d", i), item.Code, "rename of item %d was lost", i)
		assert.False(t, item.HasVector(), "item %d kept its vector", i)
	}
}
