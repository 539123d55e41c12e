package retrieve

import "github.com/poiesic/relatio/core"

// RetrievalMonitor provides hooks to observe a query's progress through the
// retrieval stages. Implement this interface to track intermediate results.
type RetrievalMonitor interface {
	Start(queryID, query string)
	AfterBroadRetrieval(candidates []core.RetrievalCandidate)
	AfterFiltering(candidates []core.RetrievalCandidate)
	AfterRanking(candidates []core.RetrievalCandidate)
	ExpansionHit(seed core.RetrievalCandidate, added core.RetrievalCandidate)
	ExpansionSkipped(queryID string)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                                              {}
func (n *noopMonitor) AfterBroadRetrieval(_ []core.RetrievalCandidate)                {}
func (n *noopMonitor) AfterFiltering(_ []core.RetrievalCandidate)                     {}
func (n *noopMonitor) AfterRanking(_ []core.RetrievalCandidate)                       {}
func (n *noopMonitor) ExpansionHit(_ core.RetrievalCandidate, _ core.RetrievalCandidate) {}
func (n *noopMonitor) ExpansionSkipped(_ string)                                      {}
func (n *noopMonitor) Finish(_ *Result)                                               {}
