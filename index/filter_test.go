package index

import (
	"testing"
	"time"

	"github.com/poiesic/relatio/core"
)

func filterChunk(source core.SourceType, author string, created time.Time) *core.Chunk {
	return &core.Chunk{
		Id:         1,
		DocumentId: 2,
		Text:       "text",
		Inherited: core.InheritedMetadata{
			SourceType: source,
			Author:     author,
			CreatedAt:  created,
		},
	}
}

func TestFilter_MatchChunk(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	chunk := filterChunk(core.SourceTypeMail, "ana@example.com", created)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{
			name:   "zero filter matches everything",
			filter: Filter{},
			want:   true,
		},
		{
			name:   "matching source type",
			filter: Filter{SourceTypes: []core.SourceType{core.SourceTypeMail, core.SourceTypeWiki}},
			want:   true,
		},
		{
			name:   "non-matching source type",
			filter: Filter{SourceTypes: []core.SourceType{core.SourceTypeFile}},
			want:   false,
		},
		{
			name:   "matching author",
			filter: Filter{Author: "ana@example.com"},
			want:   true,
		},
		{
			name:   "non-matching author",
			filter: Filter{Author: "bo@example.com"},
			want:   false,
		},
		{
			name:   "inside time range",
			filter: Filter{After: created.Add(-time.Hour), Before: created.Add(time.Hour)},
			want:   true,
		},
		{
			name:   "before range",
			filter: Filter{After: created.Add(time.Hour)},
			want:   false,
		},
		{
			name:   "after range",
			filter: Filter{Before: created.Add(-time.Hour)},
			want:   false,
		},
		{
			name:   "combined predicates all match",
			filter: Filter{SourceTypes: []core.SourceType{core.SourceTypeMail}, Author: "ana@example.com", After: created.Add(-time.Minute)},
			want:   true,
		},
		{
			name:   "combined predicates one fails",
			filter: Filter{SourceTypes: []core.SourceType{core.SourceTypeMail}, Author: "bo@example.com"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.MatchChunk(chunk); got != tt.want {
				t.Errorf("MatchChunk() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_MatchChunk_MissingTimestamp(t *testing.T) {
	chunk := filterChunk(core.SourceTypeWiki, "", time.Time{})

	// A time-bounded filter cannot match a chunk without a timestamp.
	f := Filter{After: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	if f.MatchChunk(chunk) {
		t.Error("chunk without timestamp matched a time-bounded filter")
	}

	if !(Filter{}).MatchChunk(chunk) {
		t.Error("zero filter should match a chunk without timestamp")
	}
}

func TestFilter_IsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if !(Filter{MinSimilarity: 0.5}).IsZero() {
		t.Error("similarity floor alone should still be zero")
	}
	if (Filter{Author: "x"}).IsZero() {
		t.Error("author filter should not be zero")
	}
}
