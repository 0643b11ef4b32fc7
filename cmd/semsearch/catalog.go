package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/storage"
)

// catalogEntry is one element of an import file:
//
//	[{"code": "W-1", "name": "Widget", "manufacturer": "Acme",
//	  "category": "Tools", "description": "Does things"}]
type catalogEntry struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
	Description  string `json:"description"`
}

func loadCatalog(path string) ([]*core.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	items := make([]*core.Item, 0, len(entries))
	for i, e := range entries {
		item := &core.Item{
			Code:         e.Code,
			Name:         e.Name,
			Manufacturer: e.Manufacturer,
			Category:     e.Category,
			Description:  e.Description,
		}
		if err := core.ValidateItem(item); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// partitionByCode splits items into ones whose code is new to the store and
// ones that replace a stored item. Replacements take over the stored ID.
func partitionByCode(ctx context.Context, repo storage.ItemRepository, items []*core.Item) (fresh, replacing []*core.Item, err error) {
	for _, item := range items {
		existing, err := repo.GetItemByCode(ctx, item.Code)
		if errors.Is(err, storage.ErrNotFound) {
			fresh = append(fresh, item)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		item.Id = existing.Id
		replacing = append(replacing, item)
	}
	return fresh, replacing, nil
}
