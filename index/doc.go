// Package index defines the vector index boundary used by ingestion and
// retrieval.
//
// The engine treats the index as a black-box nearest-neighbor store keyed by
// chunk id. Two implementations exist: a local scan over the badger store
// (storage/badger) for single-node deployments, and a remote qdrant adapter
// (index/qdrant) for larger corpora. Both honor the same Filter semantics so
// the retrieval stages don't care which one is wired in.
package index
