// Package graph derives and stores the relationship graph between documents
// and chunks.
//
// Edges are computed from weak signals: creation-time proximity, embedding
// similarity, explicit references, and shared authorship. They are derived
// data, recomputed or incrementally extended as new documents arrive, never
// hand-edited. Multiple edge kinds may link the same pair; ranking combines
// them later.
//
// The Propagator pushes summarized context from related documents onto
// chunks, so thread membership and co-authorship survive into ranking and
// filtering even when the chunk text says nothing about them.
package graph
