package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocumentID_SourceQualified(t *testing.T) {
	// The same external identifier from two different sources must not collide.
	mailID := DocumentID(SourceTypeMail, "1234")
	wikiID := DocumentID(SourceTypeWiki, "1234")

	if mailID == wikiID {
		t.Errorf("DocumentID() collided across sources: %d", mailID)
	}

	if mailID != DocumentID(SourceTypeMail, "1234") {
		t.Errorf("DocumentID() is not deterministic")
	}
}

func TestChunkID(t *testing.T) {
	docID := DocumentID(SourceTypeFile, "notes.txt")

	if ChunkID(docID, 0) == ChunkID(docID, 1) {
		t.Errorf("ChunkID() collided for different indices")
	}

	otherDoc := DocumentID(SourceTypeFile, "other.txt")
	if ChunkID(docID, 0) == ChunkID(otherDoc, 0) {
		t.Errorf("ChunkID() collided across documents")
	}

	if ChunkID(docID, 3) != ChunkID(docID, 3) {
		t.Errorf("ChunkID() is not deterministic")
	}
}

func TestSourceType_String(t *testing.T) {
	tests := []struct {
		source SourceType
		want   string
	}{
		{SourceTypeMail, "mail"},
		{SourceTypeWiki, "wiki"},
		{SourceTypeFile, "file"},
		{SourceTypeOther, "other"},
		{SourceType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.source.String(); got != tt.want {
				t.Errorf("SourceType.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSourceType(t *testing.T) {
	for _, source := range []SourceType{SourceTypeMail, SourceTypeWiki, SourceTypeFile, SourceTypeOther} {
		got, err := ParseSourceType(source.String())
		if err != nil {
			t.Errorf("ParseSourceType(%q) error = %v", source.String(), err)
		}
		if got != source {
			t.Errorf("ParseSourceType(%q) = %v, want %v", source.String(), got, source)
		}
	}

	if _, err := ParseSourceType("carrier-pigeon"); err == nil {
		t.Errorf("ParseSourceType() accepted an unknown name")
	}
}

func TestEdgeKind_String(t *testing.T) {
	tests := []struct {
		kind EdgeKind
		want string
	}{
		{EdgeTemporal, "temporal"},
		{EdgeSemantic, "semantic"},
		{EdgeReference, "reference"},
		{EdgeCollaborative, "collaborative"},
		{EdgeKind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EdgeKind.String() = %v, want %v", got, tt.want)
		}
	}
}
