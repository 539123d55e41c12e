package badger

import (
	"context"
	"testing"

	"github.com/poiesic/relatio/core"
)

func TestEdgeRecordBasics(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	a := core.DocumentID(core.SourceTypeMail, "msg-a")
	b := core.DocumentID(core.SourceTypeMail, "msg-b")
	c := core.DocumentID(core.SourceTypeMail, "msg-c")

	edges := []core.RelationshipEdge{
		{From: a, To: b, Kind: core.EdgeReference, Weight: 1.0, Directed: true},
		{From: a, To: b, Kind: core.EdgeTemporal, Weight: 0.8},
		{From: b, To: c, Kind: core.EdgeCollaborative, Weight: 0.5},
	}
	if err := repos.Edges.PutEdges(ctx, edges...); err != nil {
		t.Fatalf("failed to put edges: %v", err)
	}

	// b sees all three edges; a sees two; c sees one.
	forB, err := repos.Edges.GetEdgesFor(ctx, b)
	if err != nil {
		t.Fatalf("failed to get edges for b: %v", err)
	}
	if len(forB) != 3 {
		t.Errorf("got %d edges for b, want 3", len(forB))
	}

	forA, err := repos.Edges.GetEdgesFor(ctx, a)
	if err != nil {
		t.Fatalf("failed to get edges for a: %v", err)
	}
	if len(forA) != 2 {
		t.Errorf("got %d edges for a, want 2", len(forA))
	}

	// A directed reference is reachable from its target. The retrieval
	// engine walks references backwards when expanding matches.
	foundReference := false
	for _, edge := range forB {
		if edge.Kind == core.EdgeReference && edge.From == a {
			foundReference = true
			if !edge.Directed {
				t.Error("reference edge lost its direction")
			}
		}
	}
	if !foundReference {
		t.Error("reference edge not reachable from target endpoint")
	}

	all, err := repos.Edges.AllEdges(ctx)
	if err != nil {
		t.Fatalf("failed to get all edges: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d total edges, want 3", len(all))
	}
}

func TestEdgeOverwriteSamePairAndKind(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	a := core.ID(100)
	b := core.ID(200)

	first := core.RelationshipEdge{From: a, To: b, Kind: core.EdgeTemporal, Weight: 0.9}
	if err := repos.Edges.PutEdges(ctx, first); err != nil {
		t.Fatalf("failed to put edge: %v", err)
	}

	// Recomputing the same pair replaces, never duplicates.
	second := core.RelationshipEdge{From: a, To: b, Kind: core.EdgeTemporal, Weight: 0.4}
	if err := repos.Edges.PutEdges(ctx, second); err != nil {
		t.Fatalf("failed to overwrite edge: %v", err)
	}

	edges, err := repos.Edges.GetEdgesFor(ctx, a)
	if err != nil {
		t.Fatalf("failed to get edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].Weight != 0.4 {
		t.Errorf("edge weight %f, want 0.4", edges[0].Weight)
	}
}

func TestEdgeDeleteRemovesBothSides(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	a := core.ID(1)
	b := core.ID(2)
	c := core.ID(3)

	edges := []core.RelationshipEdge{
		{From: a, To: b, Kind: core.EdgeTemporal, Weight: 0.7},
		{From: b, To: c, Kind: core.EdgeTemporal, Weight: 0.6},
	}
	if err := repos.Edges.PutEdges(ctx, edges...); err != nil {
		t.Fatalf("failed to put edges: %v", err)
	}

	if err := repos.Edges.DeleteEdgesFor(ctx, b); err != nil {
		t.Fatalf("failed to delete edges for b: %v", err)
	}

	// Both neighbors lost their entries too, not just b.
	for _, id := range []core.ID{a, b, c} {
		remaining, err := repos.Edges.GetEdgesFor(ctx, id)
		if err != nil {
			t.Fatalf("failed to get edges for %d: %v", id, err)
		}
		if len(remaining) != 0 {
			t.Errorf("got %d edges for %d after delete, want 0", len(remaining), id)
		}
	}

	all, err := repos.Edges.AllEdges(ctx)
	if err != nil {
		t.Fatalf("failed to get all edges: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("got %d edges remaining, want 0", len(all))
	}
}

func TestEdgeValidationRejected(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	self := core.RelationshipEdge{From: 5, To: 5, Kind: core.EdgeTemporal, Weight: 0.5}
	if err := repos.Edges.PutEdges(ctx, self); err == nil {
		t.Error("expected validation error for self edge")
	}
}
