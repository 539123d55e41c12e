package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/relatio/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec"
	documentDatePrefix = "docrecd"
	chunkPrefix        = "chkrec"
	chunkDocPrefix     = "chkrecd"
	edgePrefix         = "edgrec"
	edgeIncidentPrefix = "edgreci"
	cursorPrefix       = "synccur"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeDocumentDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeDocumentDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := documentDatePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocumentDateKey generates a partial key for date range queries.
func makePartialDocumentDateKey(timestamp time.Time) []byte {
	prefix := documentDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeChunkDocKey generates a composite key for the chunk-by-document index.
// Format: prefix:documentID:index
func makeChunkDocKey(documentID core.ID, index int) []byte {
	prefix := chunkDocPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// BigEndian keeps chunks sorted by document, then by position
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makePartialChunkDocKey generates a partial key for one document's chunks.
func makePartialChunkDocKey(documentID core.ID) []byte {
	prefix := chunkDocPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeEdgeKey generates a key for an edge. Endpoints plus kind identify an
// edge, so recomputing a pair overwrites rather than duplicates.
// Format: prefix:from:to:kind
func makeEdgeKey(edge *core.RelationshipEdge) []byte {
	prefix := edgePrefix + ":"
	buf := make([]byte, len(prefix)+17)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(edge.From))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(edge.To))
	offset += 8
	buf[offset] = byte(edge.Kind)
	return buf
}

// makeEdgeIncidentKey generates a key for the incidence index, pointing an
// endpoint at one of its edges.
// Format: prefix:endpoint:from:to:kind
func makeEdgeIncidentKey(endpoint core.ID, edge *core.RelationshipEdge) []byte {
	prefix := edgeIncidentPrefix + ":"
	buf := make([]byte, len(prefix)+25)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(endpoint))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(edge.From))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(edge.To))
	offset += 8
	buf[offset] = byte(edge.Kind)
	return buf
}

// makePartialEdgeIncidentKey generates a partial key for one endpoint's edges.
func makePartialEdgeIncidentKey(endpoint core.ID) []byte {
	prefix := edgeIncidentPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(endpoint))
	return buf
}

// makeCursorKey generates a key for a source's sync cursor.
func makeCursorKey(source string) []byte {
	return []byte(fmt.Sprintf("%s:%s", cursorPrefix, source))
}
