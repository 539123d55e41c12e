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


package chunker

import (
	"fmt"
	"strings"

	"github.com/poiesic/relatio/core"
)

// DefaultMaxChunkSize is the default chunk size limit in bytes.
const DefaultMaxChunkSize = 512

// DefaultOverlapSize is the default overlap budget in bytes.
const DefaultOverlapSize = 128

// Chunker splits documents into overlapping chunks.
type Chunker struct {
	maxSize int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxChunkSize sets the chunk size limit in bytes.
func WithMaxChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithOverlapSize sets the overlap budget in bytes.
func WithOverlapSize(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize: DefaultMaxChunkSize,
		overlap: DefaultOverlapSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.maxSize {
		c.overlap = c.maxSize / 4
	}

	return c
}

// Chunk splits a document into an ordered sequence of chunks. Indices are
// contiguous starting at 0 and chunk ids are derived from the document id
// and index, so the same inputs always yield the same sequence.
func (c *Chunker) Chunk(doc *core.Document) ([]core.Chunk, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("chunking document: %w", err)
	}

	inherited := core.InheritedMetadata{
		Author:     doc.Author,
		SourceType: doc.SourceType,
		Title:      doc.Title,
		CreatedAt:  doc.CreatedAt,
	}

	var chunks []core.Chunk
	for _, b := range segment(doc.Content, doc.SourceType) {
		for _, p := range c.pack(b.units) {
			idx := len(chunks)
			chunks = append(chunks, core.Chunk{
				Id:              core.ChunkID(doc.Id, idx),
				DocumentId:      doc.Id,
				Index:           idx,
				Text:            joinUnits(p.units),
				OverlapWithPrev: p.overlap,
				ContentType:     classify(p.units, b.quoted, p.oversized),
				Markers:         collectMarkers(p.units),
				Inherited:       inherited,
			})
		}
	}

	return chunks, nil
}

// packed is one chunk's worth of units before materialization.
type packed struct {
	units     []unit
	overlap   int // byte length of the seed shared with the previous chunk
	oversized bool
}

// pack groups a block's units into chunks. Each chunk after the first is
// seeded with trailing units of the previous one, up to the overlap budget.
// A single unit larger than the size limit becomes its own oversized chunk.
func (c *Chunker) pack(units []unit) []packed {
	var (
		out     []packed
		cur     []unit
		curLen  int
		seedLen int // portion of cur that is seed text, 0 once a fresh unit lands
	)

	cost := func(u unit) int {
		if curLen > 0 {
			return len(u.text) + 1 // separator
		}
		return len(u.text)
	}

	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, packed{units: cur, overlap: seedLen})
		cur, seedLen = c.seed(cur)
		curLen = seedLen
	}

	for _, u := range units {
		if len(u.text) > c.maxSize {
			// Oversized unit becomes its own chunk; it never packs with
			// neighbors or a seed.
			if curLen > seedLen {
				flush()
			}
			out = append(out, packed{units: []unit{u}, oversized: true})
			cur, curLen, seedLen = nil, 0, 0
			continue
		}

		if curLen+cost(u) > c.maxSize {
			if curLen == seedLen {
				// Only seed text so far and the next unit still doesn't fit:
				// drop the seed instead of emitting a seed-only chunk.
				cur, curLen, seedLen = nil, 0, 0
			} else {
				flush()
				if curLen+cost(u) > c.maxSize {
					cur, curLen, seedLen = nil, 0, 0
				}
			}
		}
		curLen += cost(u)
		cur = append(cur, u)
	}
	if curLen > seedLen {
		out = append(out, packed{units: cur, overlap: seedLen})
	}

	return out
}

// seed returns the trailing units of a closed chunk that fit the overlap
// budget, along with their joined byte length.
func (c *Chunker) seed(units []unit) ([]unit, int) {
	var (
		start = len(units)
		total int
	)
	for start > 0 {
		add := len(units[start-1].text)
		if total > 0 {
			add += 1
		}
		if total+add > c.overlap {
			break
		}
		total += add
		start--
	}
	if start == len(units) {
		return nil, 0
	}
	seeded := make([]unit, len(units)-start)
	copy(seeded, units[start:])
	return seeded, total
}

// joinUnits renders chunk text. Structural units sit on their own lines,
// plain sentences are joined with spaces.
func joinUnits(units []unit) string {
	var sb strings.Builder
	for i, u := range units {
		if i > 0 {
			if u.code || u.marker != 0 || units[i-1].code || units[i-1].marker != 0 {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(u.text)
	}
	return sb.String()
}

// classify derives a chunk's content type from its units.
func classify(units []unit, quoted, oversized bool) core.ContentType {
	if oversized {
		return core.ContentTypeOversized
	}
	if quoted {
		return core.ContentTypeQuotedThread
	}

	var code, list int
	for _, u := range units {
		if u.code {
			code++
		}
		if u.marker == core.MarkerListItem {
			list++
		}
	}
	if code == len(units) {
		return core.ContentTypeCode
	}
	if list*2 >= len(units) {
		return core.ContentTypeStructured
	}
	return core.ContentTypeText
}

// collectMarkers gathers the distinct structural markers present in a chunk.
func collectMarkers(units []unit) []core.Marker {
	var (
		markers []core.Marker
		seen    [4]bool
	)
	for _, u := range units {
		if u.marker == 0 || seen[u.marker] {
			continue
		}
		seen[u.marker] = true
		markers = append(markers, u.marker)
	}
	return markers
}
