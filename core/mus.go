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
	"errors"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the domain types. Field order is part of
// the storage format; append new fields at the end only.

var errNegativeLength = errors.New("negative length")

// zeroTimeSentinel marks a zero time.Time on the wire. UnixMicro of the zero
// time overflows, so it cannot be stored directly.
const zeroTimeSentinel = int64(math.MinInt64)

// IDMUS serializes ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// TimeMUS serializes timestamps as UnixMicro UTC.
var TimeMUS = timeMUS{}

type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	v := zeroTimeSentinel
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Marshal(v, bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == zeroTimeSentinel {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	v := zeroTimeSentinel
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Size(v)
}

// IDSliceMUS serializes slices of IDs.
var IDSliceMUS = idSliceMUS{}

type idSliceMUS struct{}

func (idSliceMUS) Marshal(ids []ID, bs []byte) int {
	n := varint.Int.Marshal(len(ids), bs)
	for _, id := range ids {
		n += IDMUS.Marshal(id, bs[n:])
	}
	return n
}

func (idSliceMUS) Unmarshal(bs []byte) ([]ID, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	ids := make([]ID, length)
	for i := range ids {
		var m int
		ids[i], m, err = IDMUS.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return ids, n, nil
}

func (idSliceMUS) Size(ids []ID) int {
	size := varint.Int.Size(len(ids))
	for _, id := range ids {
		size += IDMUS.Size(id)
	}
	return size
}

// StringSliceMUS serializes slices of strings.
var StringSliceMUS = stringSliceMUS{}

type stringSliceMUS struct{}

func (stringSliceMUS) Marshal(v []string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringSliceMUS) Unmarshal(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]string, length)
	for i := range v {
		var m int
		v[i], m, err = ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (stringSliceMUS) Size(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// VectorMUS serializes embedding vectors.
var VectorMUS = vectorMUS{}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := range v {
		var m int
		v[i], m, err = raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// ContextTagMUS serializes ContextTag values.
var ContextTagMUS = contextTagMUS{}

type contextTagMUS struct{}

func (contextTagMUS) Marshal(t ContextTag, bs []byte) int {
	n := ord.String.Marshal(t.Kind, bs)
	n += ord.String.Marshal(t.Value, bs[n:])
	n += IDMUS.Marshal(t.Origin, bs[n:])
	return n
}

func (contextTagMUS) Unmarshal(bs []byte) (ContextTag, int, error) {
	var (
		t   ContextTag
		m   int
		err error
	)
	t.Kind, m, err = ord.String.Unmarshal(bs)
	n := m
	if err != nil {
		return t, n, err
	}
	t.Value, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return t, n, err
	}
	t.Origin, m, err = IDMUS.Unmarshal(bs[n:])
	n += m
	return t, n, err
}

func (contextTagMUS) Size(t ContextTag) int {
	return ord.String.Size(t.Kind) + ord.String.Size(t.Value) + IDMUS.Size(t.Origin)
}

// InheritedMetadataMUS serializes InheritedMetadata values.
var InheritedMetadataMUS = inheritedMetadataMUS{}

type inheritedMetadataMUS struct{}

func (inheritedMetadataMUS) Marshal(im InheritedMetadata, bs []byte) int {
	n := ord.String.Marshal(im.Author, bs)
	n += varint.Int.Marshal(int(im.SourceType), bs[n:])
	n += ord.String.Marshal(im.Title, bs[n:])
	n += TimeMUS.Marshal(im.CreatedAt, bs[n:])
	n += varint.Int.Marshal(len(im.ContextTags), bs[n:])
	for _, tag := range im.ContextTags {
		n += ContextTagMUS.Marshal(tag, bs[n:])
	}
	return n
}

func (inheritedMetadataMUS) Unmarshal(bs []byte) (InheritedMetadata, int, error) {
	var (
		im  InheritedMetadata
		m   int
		err error
	)
	im.Author, m, err = ord.String.Unmarshal(bs)
	n := m
	if err != nil {
		return im, n, err
	}
	var st int
	st, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return im, n, err
	}
	im.SourceType = SourceType(st)
	im.Title, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return im, n, err
	}
	im.CreatedAt, m, err = TimeMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return im, n, err
	}
	var length int
	length, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return im, n, err
	}
	if length < 0 {
		return im, n, errNegativeLength
	}
	if length > 0 {
		im.ContextTags = make([]ContextTag, length)
		for i := range im.ContextTags {
			im.ContextTags[i], m, err = ContextTagMUS.Unmarshal(bs[n:])
			n += m
			if err != nil {
				return im, n, err
			}
		}
	}
	return im, n, nil
}

func (inheritedMetadataMUS) Size(im InheritedMetadata) int {
	size := ord.String.Size(im.Author) +
		varint.Int.Size(int(im.SourceType)) +
		ord.String.Size(im.Title) +
		TimeMUS.Size(im.CreatedAt) +
		varint.Int.Size(len(im.ContextTags))
	for _, tag := range im.ContextTags {
		size += ContextTagMUS.Size(tag)
	}
	return size
}

// DocumentMUS serializes Document values.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) int {
	n := IDMUS.Marshal(d.Id, bs)
	n += varint.Int.Marshal(int(d.SourceType), bs[n:])
	n += ord.String.Marshal(d.ExternalID, bs[n:])
	n += ord.String.Marshal(d.Title, bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += ord.String.Marshal(d.Author, bs[n:])
	n += StringSliceMUS.Marshal(d.Participants, bs[n:])
	n += IDSliceMUS.Marshal(d.References, bs[n:])
	n += TimeMUS.Marshal(d.CreatedAt, bs[n:])
	n += TimeMUS.Marshal(d.ModifiedAt, bs[n:])
	n += varint.Int.Marshal(d.Version, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (Document, int, error) {
	var (
		d   Document
		m   int
		err error
	)
	d.Id, m, err = IDMUS.Unmarshal(bs)
	n := m
	if err != nil {
		return d, n, err
	}
	var st int
	st, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.SourceType = SourceType(st)
	d.ExternalID, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.Title, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.Content, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.Author, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.Participants, m, err = StringSliceMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.References, m, err = IDSliceMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.CreatedAt, m, err = TimeMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.ModifiedAt, m, err = TimeMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return d, n, err
	}
	d.Version, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	return d, n, err
}

func (documentMUS) Size(d Document) int {
	return IDMUS.Size(d.Id) +
		varint.Int.Size(int(d.SourceType)) +
		ord.String.Size(d.ExternalID) +
		ord.String.Size(d.Title) +
		ord.String.Size(d.Content) +
		ord.String.Size(d.Author) +
		StringSliceMUS.Size(d.Participants) +
		IDSliceMUS.Size(d.References) +
		TimeMUS.Size(d.CreatedAt) +
		TimeMUS.Size(d.ModifiedAt) +
		varint.Int.Size(d.Version)
}

// ChunkMUS serializes Chunk values.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) int {
	n := IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.DocumentId, bs[n:])
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += varint.Int.Marshal(c.OverlapWithPrev, bs[n:])
	n += varint.Int.Marshal(int(c.ContentType), bs[n:])
	n += varint.Int.Marshal(len(c.Markers), bs[n:])
	for _, marker := range c.Markers {
		n += varint.Int.Marshal(int(marker), bs[n:])
	}
	n += InheritedMetadataMUS.Marshal(c.Inherited, bs[n:])
	n += VectorMUS.Marshal(c.Vector, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (Chunk, int, error) {
	var (
		c   Chunk
		m   int
		err error
	)
	c.Id, m, err = IDMUS.Unmarshal(bs)
	n := m
	if err != nil {
		return c, n, err
	}
	c.DocumentId, m, err = IDMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.Index, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.Text, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.OverlapWithPrev, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	var ct int
	ct, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.ContentType = ContentType(ct)
	var length int
	length, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	if length < 0 {
		return c, n, errNegativeLength
	}
	if length > 0 {
		c.Markers = make([]Marker, length)
		for i := range c.Markers {
			var marker int
			marker, m, err = varint.Int.Unmarshal(bs[n:])
			n += m
			if err != nil {
				return c, n, err
			}
			c.Markers[i] = Marker(marker)
		}
	}
	c.Inherited, m, err = InheritedMetadataMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.Vector, m, err = VectorMUS.Unmarshal(bs[n:])
	n += m
	return c, n, err
}

func (chunkMUS) Size(c Chunk) int {
	size := IDMUS.Size(c.Id) +
		IDMUS.Size(c.DocumentId) +
		varint.Int.Size(c.Index) +
		ord.String.Size(c.Text) +
		varint.Int.Size(c.OverlapWithPrev) +
		varint.Int.Size(int(c.ContentType)) +
		varint.Int.Size(len(c.Markers))
	for _, marker := range c.Markers {
		size += varint.Int.Size(int(marker))
	}
	size += InheritedMetadataMUS.Size(c.Inherited)
	size += VectorMUS.Size(c.Vector)
	return size
}

// RelationshipEdgeMUS serializes RelationshipEdge values.
var RelationshipEdgeMUS = relationshipEdgeMUS{}

type relationshipEdgeMUS struct{}

func (relationshipEdgeMUS) Marshal(e RelationshipEdge, bs []byte) int {
	n := IDMUS.Marshal(e.From, bs)
	n += IDMUS.Marshal(e.To, bs[n:])
	n += varint.Int.Marshal(int(e.Kind), bs[n:])
	n += raw.Float32.Marshal(e.Weight, bs[n:])
	n += ord.Bool.Marshal(e.Directed, bs[n:])
	return n
}

func (relationshipEdgeMUS) Unmarshal(bs []byte) (RelationshipEdge, int, error) {
	var (
		e   RelationshipEdge
		m   int
		err error
	)
	e.From, m, err = IDMUS.Unmarshal(bs)
	n := m
	if err != nil {
		return e, n, err
	}
	e.To, m, err = IDMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	var kind int
	kind, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	e.Kind = EdgeKind(kind)
	e.Weight, m, err = raw.Float32.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	e.Directed, m, err = ord.Bool.Unmarshal(bs[n:])
	n += m
	return e, n, err
}

func (relationshipEdgeMUS) Size(e RelationshipEdge) int {
	return IDMUS.Size(e.From) +
		IDMUS.Size(e.To) +
		varint.Int.Size(int(e.Kind)) +
		raw.Float32.Size(e.Weight) +
		ord.Bool.Size(e.Directed)
}

// SyncCursorMUS serializes SyncCursor values.
var SyncCursorMUS = syncCursorMUS{}

type syncCursorMUS struct{}

func (syncCursorMUS) Marshal(c SyncCursor, bs []byte) int {
	n := ord.String.Marshal(c.Source, bs)
	n += ord.String.Marshal(c.LastExternalID, bs[n:])
	n += TimeMUS.Marshal(c.Watermark, bs[n:])
	return n
}

func (syncCursorMUS) Unmarshal(bs []byte) (SyncCursor, int, error) {
	var (
		c   SyncCursor
		m   int
		err error
	)
	c.Source, m, err = ord.String.Unmarshal(bs)
	n := m
	if err != nil {
		return c, n, err
	}
	c.LastExternalID, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return c, n, err
	}
	c.Watermark, m, err = TimeMUS.Unmarshal(bs[n:])
	n += m
	return c, n, err
}

func (syncCursorMUS) Size(c SyncCursor) int {
	return ord.String.Size(c.Source) +
		ord.String.Size(c.LastExternalID) +
		TimeMUS.Size(c.Watermark)
}
