// Package chunker splits normalized documents into overlapping, bounded
// text chunks.
//
// Content is first segmented into sentence-like units; a chunk never splits
// inside a unit. Units are packed into a chunk until the size limit would be
// exceeded, and each new chunk is seeded with a trailing window of units from
// the previous one so adjacent chunks share context. Quoted reply sections in
// conversational documents are hard boundaries and never merge with live
// content.
//
// Chunking is deterministic: the same document and settings always produce
// the same chunk sequence. Embedding happens downstream.
package chunker
