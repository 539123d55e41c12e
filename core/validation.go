// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - ExternalID must not be empty
//   - SourceType must be valid
//   - CreatedAt must not be in the future
//
// NOT validated (populated later):
//   - Version (0 is valid for first ingest)
//   - Author/Participants (optional; edge kinds are skipped when absent)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if doc.ExternalID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyExternalID)
	}

	if err := ValidateSourceType(doc.SourceType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !doc.CreatedAt.IsZero() && !IsValidTimestamp(doc.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - DocumentId must be set (every chunk has exactly one owning document)
//   - Index must not be negative
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the embedding processor runs)
//   - Inherited.ContextTags (can be empty until propagation runs)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: chunk has no owning document", ErrInvalidChunk)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}

	return nil
}

// ValidateEdge validates a RelationshipEdge according to domain rules.
func ValidateEdge(edge *RelationshipEdge) error {
	if edge == nil {
		return fmt.Errorf("%w: edge is nil", ErrInvalidEdge)
	}

	if edge.From == edge.To {
		return fmt.Errorf("%w: %w", ErrInvalidEdge, ErrSelfEdge)
	}

	if edge.Weight < 0 || edge.Weight > 1 {
		return fmt.Errorf("%w: %w (got %f)", ErrInvalidEdge, ErrWeightOutOfRange, edge.Weight)
	}

	switch edge.Kind {
	case EdgeTemporal, EdgeSemantic, EdgeReference, EdgeCollaborative:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEdge, edge.Kind)
	}

	return nil
}

// ValidateSourceType validates that a SourceType has a valid value.
func ValidateSourceType(source SourceType) error {
	switch source {
	case SourceTypeMail, SourceTypeWiki, SourceTypeFile, SourceTypeOther:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidSourceType, source)
	}
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
