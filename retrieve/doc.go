// Package retrieve implements multi-stage contextual retrieval: broad
// vector search, metadata filtering, multi-signal ranking, and graph-based
// context expansion, followed by an explainable response transformation.
//
// The four stages run strictly sequentially for one query; independent
// queries are safe to run in parallel. Only stage 1 can fail a query; an
// expansion timeout degrades to the ranked set with a flag instead.
package retrieve
