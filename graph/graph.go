package graph

import "github.com/poiesic/relatio/core"

// Graph is an adjacency view over a set of relationship edges, keyed by
// stable ids rather than object links so reference cycles are harmless.
type Graph struct {
	adjacency map[core.ID][]core.RelationshipEdge
	count     int
}

// NewGraph builds a Graph from an edge list.
func NewGraph(edges []core.RelationshipEdge) *Graph {
	g := &Graph{adjacency: make(map[core.ID][]core.RelationshipEdge)}
	g.Add(edges...)
	return g
}

// Add indexes edges under both endpoints. Directed edges stay directed in
// the edge value itself; indexing them under the target as well lets the
// expansion stage walk reference chains backwards (a reply points at the
// thread root, but retrieval usually lands on the root first).
func (g *Graph) Add(edges ...core.RelationshipEdge) {
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		g.adjacency[e.From] = append(g.adjacency[e.From], e)
		g.adjacency[e.To] = append(g.adjacency[e.To], e)
		g.count++
	}
}

// Neighbors returns all edges incident to an id. The returned slice is
// shared; callers must not modify it.
func (g *Graph) Neighbors(id core.ID) []core.RelationshipEdge {
	return g.adjacency[id]
}

// Len returns the number of edges in the graph.
func (g *Graph) Len() int {
	return g.count
}

// Other returns the endpoint of an edge that is not the given id.
func Other(e core.RelationshipEdge, id core.ID) core.ID {
	if e.From == id {
		return e.To
	}
	return e.From
}
