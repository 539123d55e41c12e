package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/relatio/core"
)

// documentRecord is the on-disk JSON shape consumed by FileSource.
type documentRecord struct {
	SourceType   string    `json:"source_type"`
	ExternalID   string    `json:"external_id"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content"`
	Author       string    `json:"author,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	References   []string  `json:"references,omitempty"` // external ids within the same source
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at,omitempty"`
}

// FileSource reads JSON documents from a file or directory. A file holds
// either a single document object or an array of them; a directory is
// walked for .json files. The sync watermark is the document ModifiedAt,
// falling back to CreatedAt.
type FileSource struct {
	name string
	path string
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source named name reading from path.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (s *FileSource) Name() string {
	return s.name
}

// Fetch loads every document newer than the cursor watermark, ordered by
// modification time. The whole set comes back as one batch; filesystem
// corpora are small enough not to need paging.
func (s *FileSource) Fetch(ctx context.Context, cursor *core.SyncCursor) ([]core.Document, *core.SyncCursor, error) {
	records, err := s.load()
	if err != nil {
		return nil, nil, err
	}

	var docs []core.Document
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		doc, err := rec.toDocument()
		if err != nil {
			return nil, nil, err
		}
		if cursor != nil && !watermark(&doc).After(cursor.Watermark) {
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, nil, nil
	}

	slices.SortFunc(docs, func(a, b core.Document) int {
		return watermark(&a).Compare(watermark(&b))
	})

	last := &docs[len(docs)-1]
	next := &core.SyncCursor{
		Source:         s.name,
		LastExternalID: last.ExternalID,
		Watermark:      watermark(last),
	}
	return docs, next, nil
}

func (s *FileSource) load() ([]documentRecord, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return readRecordFile(s.path)
	}

	var records []documentRecord
	err = filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		fileRecords, err := readRecordFile(path)
		if err != nil {
			return err
		}
		records = append(records, fileRecords...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func readRecordFile(path string) ([]documentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []documentRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return records, nil
	}

	var record documentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []documentRecord{record}, nil
}

func (rec *documentRecord) toDocument() (core.Document, error) {
	sourceType, err := core.ParseSourceType(rec.SourceType)
	if err != nil {
		return core.Document{}, fmt.Errorf("document %q: %w", rec.ExternalID, err)
	}

	references := make([]core.ID, 0, len(rec.References))
	for _, ref := range rec.References {
		references = append(references, core.DocumentID(sourceType, ref))
	}

	return core.Document{
		Id:           core.DocumentID(sourceType, rec.ExternalID),
		SourceType:   sourceType,
		ExternalID:   rec.ExternalID,
		Title:        rec.Title,
		Content:      rec.Content,
		Author:       rec.Author,
		Participants: rec.Participants,
		References:   references,
		CreatedAt:    rec.CreatedAt,
		ModifiedAt:   rec.ModifiedAt,
	}, nil
}

func watermark(doc *core.Document) time.Time {
	if !doc.ModifiedAt.IsZero() {
		return doc.ModifiedAt
	}
	return doc.CreatedAt
}
