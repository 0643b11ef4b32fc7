package precomputed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Entry is one row of the list form of a precomputed embeddings file.
type Entry struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// LoadFile reads precomputed embeddings from a JSON file. Two shapes are
// accepted:
//
//	{"wireless earbuds": [0.1, ...], ...}
//	[{"text": "wireless earbuds", "vector": [0.1, ...]}, ...]
func LoadFile(path string) (map[string][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("precomputed: reading %s: %w", path, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("precomputed: parsing %s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes either file shape accepted by LoadFile.
func Parse(data []byte) (map[string][]float32, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string][]float32{}, nil
	}

	if trimmed[0] == '[' {
		var list []Entry
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		entries := make(map[string][]float32, len(list))
		for _, e := range list {
			entries[e.Text] = e.Vector
		}
		return entries, nil
	}

	var entries map[string][]float32
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
