package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateQuery(t *testing.T) {
	t.Run("valid query", func(t *testing.T) {
		err := ValidateQuery(&Query{Question: "What is a Beholder's armor class?"})
		assert.NoError(t, err)
	})

	t.Run("session id is optional", func(t *testing.T) {
		err := ValidateQuery(&Query{Question: "How does grappling work?", SessionID: "abc-123"})
		assert.NoError(t, err)
	})

	t.Run("nil query", func(t *testing.T) {
		err := ValidateQuery(nil)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("empty question", func(t *testing.T) {
		err := ValidateQuery(&Query{})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	})

	t.Run("whitespace-only question", func(t *testing.T) {
		err := ValidateQuery(&Query{Question: "   \t\n"})
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	})
}

func TestValidateChunk(t *testing.T) {
	t.Run("valid chunk", func(t *testing.T) {
		err := ValidateChunk(&TextChunk{Text: "some lore", Source: "Rules: Combat"})
		assert.NoError(t, err)
	})

	t.Run("vector and id are not required", func(t *testing.T) {
		err := ValidateChunk(&TextChunk{Text: "some lore", Source: "Rules: Combat"})
		assert.NoError(t, err)
	})

	t.Run("nil chunk", func(t *testing.T) {
		err := ValidateChunk(nil)
		assert.ErrorIs(t, err, ErrInvalidChunk)
	})

	t.Run("empty text", func(t *testing.T) {
		err := ValidateChunk(&TextChunk{Source: "Rules: Combat"})
		assert.ErrorIs(t, err, ErrEmptyChunkText)
	})

	t.Run("empty source", func(t *testing.T) {
		err := ValidateChunk(&TextChunk{Text: "some lore"})
		assert.ErrorIs(t, err, ErrEmptyChunkSource)
	})
}
