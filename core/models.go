package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Items receive IDs from a database sequence, so ID order is insertion order.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Item is a catalog entry that can be found by semantic search.
// Vector is empty until the backfill process or the ingestion pipeline
// embeds the item's canonical text.
type Item struct {
	Id           ID
	Code         string // External catalog code, unique per store
	Name         string
	Manufacturer string
	Category     string
	Description  string
	Vector       []float32
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// HasVector reports whether the item carries a stored embedding.
func (i *Item) HasVector() bool {
	return len(i.Vector) > 0
}

// CanonicalText builds the text that is embedded for the item:
//
//	name + " by " + manufacturer + " in " + category + ". " + description
//
// Empty parts are omitted together with their separator.
func (i *Item) CanonicalText() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(i.Name))
	if m := strings.TrimSpace(i.Manufacturer); m != "" {
		if sb.Len() > 0 {
			sb.WriteString(" by ")
		}
		sb.WriteString(m)
	}
	if c := strings.TrimSpace(i.Category); c != "" {
		if sb.Len() > 0 {
			sb.WriteString(" in ")
		}
		sb.WriteString(c)
	}
	if d := strings.TrimSpace(i.Description); d != "" {
		if sb.Len() > 0 {
			sb.WriteString(". ")
		}
		sb.WriteString(d)
	}
	return sb.String()
}

// CorpusStamp records which provider produced the vectors held by a store.
// A store whose stamp disagrees with the active provider must be re-embedded.
type CorpusStamp struct {
	Provider  string
	Dimension int
	UpdatedAt time.Time
}

// Matches reports whether the stamp was written for a provider with the given
// name and output dimension.
func (s *CorpusStamp) Matches(provider string, dimension int) bool {
	return s.Provider == provider && s.Dimension == dimension
}

// SearchResult is a single ranked match.
type SearchResult struct {
	Item       *Item
	Similarity float64
	Rank       int // 1-based
}

// SearchResponse is the outcome of one search call.
type SearchResponse struct {
	Query         string
	Results       []*SearchResult
	TotalResults  int // Candidates at or above the threshold before the limit was applied
	ExecutionTime time.Duration
}
