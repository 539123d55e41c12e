package core

import (
	"testing"
	"time"
)

func TestDocumentMUS_RoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 589000, time.UTC)

	doc := Document{
		Id:           DocumentID(SourceTypeMail, "msg-42"),
		SourceType:   SourceTypeMail,
		ExternalID:   "msg-42",
		Title:        "Re: deployment window",
		Content:      "We should move the window to Thursday.",
		Author:       "ana@example.com",
		Participants: []string{"ana@example.com", "bo@example.com"},
		References:   []ID{DocumentID(SourceTypeMail, "msg-41")},
		CreatedAt:    created,
		ModifiedAt:   created.Add(5 * time.Minute),
		Version:      2,
	}

	bs := make([]byte, DocumentMUS.Size(doc))
	n := DocumentMUS.Marshal(doc, bs)
	if n != len(bs) {
		t.Fatalf("Marshal wrote %d bytes, Size() said %d", n, len(bs))
	}

	got, n, err := DocumentMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if n != len(bs) {
		t.Errorf("Unmarshal consumed %d bytes, want %d", n, len(bs))
	}

	if got.Id != doc.Id || got.ExternalID != doc.ExternalID || got.Content != doc.Content {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Participants) != 2 || got.Participants[1] != "bo@example.com" {
		t.Errorf("participants mismatch: %v", got.Participants)
	}
	if len(got.References) != 1 || got.References[0] != doc.References[0] {
		t.Errorf("references mismatch: %v", got.References)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) || !got.ModifiedAt.Equal(doc.ModifiedAt) {
		t.Errorf("timestamps mismatch: %v / %v", got.CreatedAt, got.ModifiedAt)
	}
	if got.Version != 2 {
		t.Errorf("version mismatch: %d", got.Version)
	}
}

func TestChunkMUS_RoundTrip(t *testing.T) {
	docID := DocumentID(SourceTypeWiki, "page-7")
	chunk := Chunk{
		Id:              ChunkID(docID, 1),
		DocumentId:      docID,
		Index:           1,
		Text:            "## Rollout\nThe rollout happens in two phases.",
		OverlapWithPrev: 12,
		ContentType:     ContentTypeText,
		Markers:         []Marker{MarkerHeading},
		Inherited: InheritedMetadata{
			Author:     "ana@example.com",
			SourceType: SourceTypeWiki,
			Title:      "Rollout plan",
			CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			ContextTags: []ContextTag{
				{Kind: "co-author", Value: "bo@example.com", Origin: 99},
			},
		},
		Vector: []float32{0.1, -0.25, 0.5},
	}

	bs := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, bs)

	got, _, err := ChunkMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Id != chunk.Id || got.DocumentId != chunk.DocumentId || got.Index != 1 {
		t.Errorf("identity mismatch: %+v", got)
	}
	if got.Text != chunk.Text || got.OverlapWithPrev != 12 {
		t.Errorf("text mismatch: %+v", got)
	}
	if got.ContentType != ContentTypeText {
		t.Errorf("content type mismatch: %v", got.ContentType)
	}
	if len(got.Markers) != 1 || got.Markers[0] != MarkerHeading {
		t.Errorf("markers mismatch: %v", got.Markers)
	}
	if got.Inherited.Author != "ana@example.com" || len(got.Inherited.ContextTags) != 1 {
		t.Errorf("inherited mismatch: %+v", got.Inherited)
	}
	if got.Inherited.ContextTags[0].Origin != 99 {
		t.Errorf("context tag origin mismatch: %+v", got.Inherited.ContextTags[0])
	}
	if len(got.Vector) != 3 || got.Vector[1] != -0.25 {
		t.Errorf("vector mismatch: %v", got.Vector)
	}
}

func TestChunkMUS_EmptyVector(t *testing.T) {
	chunk := Chunk{
		Id:         1,
		DocumentId: 2,
		Index:      0,
		Text:       "pending embedding",
	}

	bs := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, bs)

	got, _, err := ChunkMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got.Vector) != 0 {
		t.Errorf("expected empty vector, got %v", got.Vector)
	}
}

func TestRelationshipEdgeMUS_RoundTrip(t *testing.T) {
	edge := RelationshipEdge{
		From:     10,
		To:       20,
		Kind:     EdgeReference,
		Weight:   0.75,
		Directed: true,
	}

	bs := make([]byte, RelationshipEdgeMUS.Size(edge))
	RelationshipEdgeMUS.Marshal(edge, bs)

	got, _, err := RelationshipEdgeMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != edge {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, edge)
	}
}

func TestSyncCursorMUS_RoundTrip(t *testing.T) {
	cursor := SyncCursor{
		Source:         "mail",
		LastExternalID: "msg-500",
		Watermark:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	bs := make([]byte, SyncCursorMUS.Size(cursor))
	SyncCursorMUS.Marshal(cursor, bs)

	got, _, err := SyncCursorMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Source != "mail" || got.LastExternalID != "msg-500" || !got.Watermark.Equal(cursor.Watermark) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestTimeMUS_ZeroTime(t *testing.T) {
	var zero time.Time

	bs := make([]byte, TimeMUS.Size(zero))
	TimeMUS.Marshal(zero, bs)

	got, _, err := TimeMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.IsZero() {
		t.Errorf("zero time did not survive round trip: %v", got)
	}
}
