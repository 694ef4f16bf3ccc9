package core

import (
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for types persisted in the chunk index.
// Field order is part of the storage format and must not change.

// IDMUS serializes IDs as varint-encoded uint64.
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

// TextChunkMUS serializes TextChunks: id, text, source, then the embedding
// vector as a varint length prefix followed by the elements.
var TextChunkMUS = textChunkMUS{}

type textChunkMUS struct{}

var _ mus.Serializer[TextChunk] = textChunkMUS{}

func (textChunkMUS) Marshal(c TextChunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += ord.String.Marshal(c.Text, bs[n:])
	n += ord.String.Marshal(c.Source, bs[n:])
	n += varint.PositiveInt.Marshal(len(c.Vector), bs[n:])
	for _, f := range c.Vector {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (textChunkMUS) Unmarshal(bs []byte) (c TextChunk, n int, err error) {
	var n1 int
	c.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var length int
	length, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length > 0 {
		c.Vector = make([]float32, length)
		for i := 0; i < length; i++ {
			c.Vector[i], n1, err = varint.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	return
}

func (textChunkMUS) Size(c TextChunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += ord.String.Size(c.Text)
	size += ord.String.Size(c.Source)
	size += varint.PositiveInt.Size(len(c.Vector))
	for _, f := range c.Vector {
		size += varint.Float32.Size(f)
	}
	return size
}

func (s textChunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
