package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that the same logical
// entity always maps to the same ID, regardless of which worker ingested it.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID generates the ID for a document from its source type and the
// identifier assigned by the source system. IDs are source-qualified, so
// documents from different sources never collide.
func DocumentID(source SourceType, externalID string) ID {
	return IDFromContent(source.String() + "/" + externalID)
}

// ChunkID generates the ID for a chunk from its owning document and position.
func ChunkID(documentID ID, index int) ID {
	return IDFromContent(strconv.FormatUint(uint64(documentID), 16) + "#" + strconv.Itoa(index))
}

// SourceType identifies the system a document was ingested from.
type SourceType int

const (
	// SourceTypeMail represents email-like conversational documents.
	SourceTypeMail SourceType = iota + 1
	// SourceTypeWiki represents wiki-style knowledge base pages.
	SourceTypeWiki
	// SourceTypeFile represents plain files from a filesystem source.
	SourceTypeFile
	// SourceTypeOther represents any other document origin.
	SourceTypeOther
)

// String returns the canonical lowercase name of the source type.
func (s SourceType) String() string {
	switch s {
	case SourceTypeMail:
		return "mail"
	case SourceTypeWiki:
		return "wiki"
	case SourceTypeFile:
		return "file"
	case SourceTypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseSourceType converts a canonical name back into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch s {
	case "mail":
		return SourceTypeMail, nil
	case "wiki":
		return SourceTypeWiki, nil
	case "file":
		return SourceTypeFile, nil
	case "other":
		return SourceTypeOther, nil
	default:
		return 0, ErrInvalidSourceType
	}
}

// ContentType classifies what kind of text a chunk holds.
type ContentType int

const (
	// ContentTypeText is ordinary prose.
	ContentTypeText ContentType = iota + 1
	// ContentTypeCode is source code or preformatted text.
	ContentTypeCode
	// ContentTypeStructured is tabular or list-heavy content.
	ContentTypeStructured
	// ContentTypeQuotedThread is quoted/forwarded material in a conversation.
	ContentTypeQuotedThread
	// ContentTypeOversized marks a single unit that exceeded the chunk size
	// limit and was emitted whole rather than truncated.
	ContentTypeOversized
)

// String returns the canonical name of the content type.
func (c ContentType) String() string {
	switch c {
	case ContentTypeText:
		return "text"
	case ContentTypeCode:
		return "code"
	case ContentTypeStructured:
		return "structured"
	case ContentTypeQuotedThread:
		return "quoted-thread"
	case ContentTypeOversized:
		return "oversized"
	default:
		return "unknown"
	}
}

// Marker tags a structural feature observed in a chunk's text.
type Marker int

const (
	// MarkerHeading indicates the chunk starts at or contains a heading.
	MarkerHeading Marker = iota + 1
	// MarkerListItem indicates the chunk contains list items.
	MarkerListItem
	// MarkerQuote indicates the chunk contains quoted lines.
	MarkerQuote
)

// Document is a normalized unit of source content. It is immutable once
// ingested; a re-sync with changed content produces a new Version and the
// chunks of the previous version are invalidated.
type Document struct {
	Id           ID
	SourceType   SourceType
	ExternalID   string // identifier assigned by the source system
	Title        string
	Content      string
	Author       string
	Participants []string
	References   []ID // documents this one replies to or links to, in order
	CreatedAt    time.Time
	ModifiedAt   time.Time
	Version      int
}

// ContextTag is a summarized piece of context propagated onto a chunk from
// a related document, e.g. the thread it belongs to or a co-author.
type ContextTag struct {
	Kind   string // "thread" or "co-author"
	Value  string
	Origin ID // document the tag was propagated from
}

// InheritedMetadata is the copy-on-create snapshot of the owning document's
// attributes, plus any context tags propagated from related documents.
type InheritedMetadata struct {
	Author      string
	SourceType  SourceType
	Title       string
	CreatedAt   time.Time
	ContextTags []ContextTag
}

// Chunk is a bounded, semantically coherent text unit derived from a
// Document. A chunk belongs to exactly one document, and chunk indices
// within a document are contiguous starting at 0.
type Chunk struct {
	Id              ID
	DocumentId      ID
	Index           int
	Text            string
	OverlapWithPrev int // length in bytes of text shared with the previous chunk
	ContentType     ContentType
	Markers         []Marker
	Inherited       InheritedMetadata
	Vector          []float32 // empty until the embedding processor runs
}

// EdgeKind identifies the signal a relationship edge was derived from.
type EdgeKind int

const (
	// EdgeTemporal links items created close together in time.
	EdgeTemporal EdgeKind = iota + 1
	// EdgeSemantic links items whose vectors are similar.
	EdgeSemantic
	// EdgeReference links a document to one it explicitly references.
	EdgeReference
	// EdgeCollaborative links items sharing authors or participants.
	EdgeCollaborative
)

// String returns the canonical name of the edge kind.
func (k EdgeKind) String() string {
	switch k {
	case EdgeTemporal:
		return "temporal"
	case EdgeSemantic:
		return "semantic"
	case EdgeReference:
		return "reference"
	case EdgeCollaborative:
		return "collaborative"
	default:
		return "unknown"
	}
}

// RelationshipEdge is a derived, weighted, typed link between two chunks or
// documents. Edges are recomputed from signals, never hand-edited. Multiple
// edges of different kinds may exist between the same pair.
type RelationshipEdge struct {
	From     ID
	To       ID
	Kind     EdgeKind
	Weight   float32 // in [0, 1]
	Directed bool    // reference edges are directed, others are not
}

// SyncCursor records how far ingestion has progressed for one source, so an
// interrupted sync can resume without re-reading everything.
type SyncCursor struct {
	Source         string // connector name, e.g. "mail" or "wiki"
	LastExternalID string
	Watermark      time.Time // ModifiedAt of the last document ingested
}

// RetrievalCandidate is a transient scoring record produced by the retrieval
// engine. Related candidates arrived via graph expansion rather than direct
// similarity matching; Via records the edge that justified their inclusion.
type RetrievalCandidate struct {
	ChunkId      ID
	DocumentId   ID
	Similarity   float32
	ContextScore float32
	FinalScore   float32
	Related      bool
	Via          *RelationshipEdge
}
