package search

import (
	"github.com/poiesic/semsearch/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, limit int, threshold float64)
	AfterQueryEmbedding(dimension int)
	AfterScan(scanned, withVector int)
	Candidate(item *core.Item, similarity float64)
	Finish(response *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int, _ float64)  {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)         {}
func (n *noopMonitor) AfterScan(_, _ int)                {}
func (n *noopMonitor) Candidate(_ *core.Item, _ float64) {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)     {}
