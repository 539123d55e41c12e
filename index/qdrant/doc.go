// Package qdrant adapts a remote qdrant collection to the index.Index
// boundary. Metadata predicates are translated into qdrant payload
// conditions so filtering happens server-side.
package qdrant
