package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/storage"
)

func testDocument(externalID string, created time.Time) *core.Document {
	return &core.Document{
		Id:         core.DocumentID(core.SourceTypeMail, externalID),
		SourceType: core.SourceTypeMail,
		ExternalID: externalID,
		Title:      "Subject " + externalID,
		Content:    "Body of message " + externalID,
		Author:     "ana@example.com",
		CreatedAt:  created,
		Version:    1,
	}
}

func TestDocumentRecordBasics(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	created := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	doc := testDocument("msg-001", created)

	if err := repos.Documents.PutDocuments(ctx, doc); err != nil {
		t.Fatalf("failed to put document: %v", err)
	}

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}
	if got.Title != doc.Title || got.Author != doc.Author {
		t.Errorf("got %q by %q, want %q by %q", got.Title, got.Author, doc.Title, doc.Author)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created at %v, want %v", got.CreatedAt, created)
	}

	if err := repos.Documents.DeleteDocuments(ctx, doc.Id); err != nil {
		t.Fatalf("failed to delete document: %v", err)
	}
	if _, err := repos.Documents.GetDocument(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDocumentGetMissing(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Documents.GetDocument(ctx, core.ID(42)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// GetDocuments skips missing ids without failing.
	doc := testDocument("msg-present", time.Now().UTC())
	if err := repos.Documents.PutDocuments(ctx, doc); err != nil {
		t.Fatalf("failed to put document: %v", err)
	}
	docs, err := repos.Documents.GetDocuments(ctx, doc.Id, core.ID(42))
	if err != nil {
		t.Fatalf("failed to get documents: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d documents, want 1", len(docs))
	}
}

func TestDocumentOverwriteMovesDateIndex(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	first := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	second := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

	doc := testDocument("msg-move", first)
	if err := repos.Documents.PutDocuments(ctx, doc); err != nil {
		t.Fatalf("failed to put document: %v", err)
	}

	doc.CreatedAt = second
	doc.Version = 2
	if err := repos.Documents.PutDocuments(ctx, doc); err != nil {
		t.Fatalf("failed to overwrite document: %v", err)
	}

	// The old index entry must be gone, or the January window would
	// surface a stale hit.
	janDocs, err := repos.Documents.GetDocumentsByDateRange(ctx,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to query january: %v", err)
	}
	if len(janDocs) != 0 {
		t.Errorf("got %d documents in january, want 0", len(janDocs))
	}

	febDocs, err := repos.Documents.GetDocumentsByDateRange(ctx,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to query february: %v", err)
	}
	if len(febDocs) != 1 || febDocs[0].Version != 2 {
		t.Errorf("expected version 2 document in february, got %v", febDocs)
	}
}

func TestDocumentDateRangeOrdering(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	// Insert out of order; the date index should return them sorted.
	for _, offset := range []int{3, 0, 2, 1} {
		doc := testDocument("msg-ord-"+string(rune('a'+offset)), base.Add(time.Duration(offset)*time.Hour))
		if err := repos.Documents.PutDocuments(ctx, doc); err != nil {
			t.Fatalf("failed to put document: %v", err)
		}
	}

	docs, err := repos.Documents.GetDocumentsByDateRange(ctx, base, base.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("failed to query range: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("got %d documents, want 4", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].CreatedAt.Before(docs[i-1].CreatedAt) {
			t.Errorf("documents out of order at position %d", i)
		}
	}

	// A narrower window excludes documents outside it.
	docs, err = repos.Documents.GetDocumentsByDateRange(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("failed to query narrow range: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d documents in narrow window, want 2", len(docs))
	}
}

func TestDocumentList(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		doc := testDocument("msg-list-"+string(rune('a'+i)), time.Now().UTC())
		if err := repos.Documents.PutDocuments(ctx, doc); err != nil {
			t.Fatalf("failed to put document: %v", err)
		}
	}

	docs, err := repos.Documents.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("failed to list documents: %v", err)
	}
	if len(docs) != 5 {
		t.Errorf("got %d documents, want 5", len(docs))
	}
}

func TestDocumentValidationRejected(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("failed to open repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	bad := &core.Document{Id: 7, SourceType: core.SourceTypeMail, ExternalID: "x"}
	if err := repos.Documents.PutDocuments(ctx, bad); !errors.Is(err, core.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for empty content, got %v", err)
	}
}
