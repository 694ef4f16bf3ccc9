package unstructured

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/ai/mock"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIndex is a scripted storage.ChunkIndex keyed by query text: the
// expected vector for each text is precomputed with the mock embedder, so
// each variant's search can be answered independently of goroutine order.
type stubIndex struct {
	mu        sync.Mutex
	byText    map[string][]*core.ChunkMatch
	err       error
	callCount int
}

func newStubIndex(byText map[string][]*core.ChunkMatch) *stubIndex {
	return &stubIndex{byText: byText}
}

func (s *stubIndex) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error) {
	s.mu.Lock()
	s.callCount++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	for text, matches := range s.byText {
		if reflect.DeepEqual(vector, mock.DeterministicVector(text, 384)) {
			if len(matches) > limit {
				matches = matches[:limit]
			}
			return matches, nil
		}
	}
	return nil, nil
}

func (s *stubIndex) Close() error { return nil }

func (s *stubIndex) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func chunk(id core.ID, source string) *core.TextChunk {
	return &core.TextChunk{Id: id, Text: "chunk text", Source: source}
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	question := "How does grappling work?"

	t.Run("merges variants keeping each chunk's best score", func(t *testing.T) {
		grappling := chunk(1, "Rules: Grappling")
		conditions := chunk(2, "Rules: Conditions")

		index := newStubIndex(map[string][]*core.ChunkMatch{
			question: {
				{Chunk: grappling, Score: 0.91},
				{Chunk: conditions, Score: 0.70},
			},
			"What are the rules for grabbing a creature?": {
				{Chunk: grappling, Score: 0.74},
			},
		})
		completer := mock.NewMockCompleter(
			`["What are the rules for grabbing a creature?"]`)
		retriever, err := NewRetriever(completer, mock.NewMockEmbedder(), index,
			WithExpansions(1))
		require.NoError(t, err)
		defer retriever.Release()

		matches, err := retriever.Retrieve(ctx, question)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		// No duplicate identifiers, best score wins, ranked descending.
		assert.Equal(t, core.ID(1), matches[0].Chunk.Id)
		assert.InDelta(t, 0.91, matches[0].Score, 1e-6)
		assert.Equal(t, core.ID(2), matches[1].Chunk.Id)
		assert.Equal(t, 2, index.calls())
	})

	t.Run("expansion failure degrades to the original question", func(t *testing.T) {
		index := newStubIndex(map[string][]*core.ChunkMatch{
			question: {{Chunk: chunk(1, "Rules: Grappling"), Score: 0.8}},
		})
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "", errors.New("service unavailable")
		}
		retriever, err := NewRetriever(completer, mock.NewMockEmbedder(), index)
		require.NoError(t, err)
		defer retriever.Release()

		matches, err := retriever.Retrieve(ctx, question)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
		assert.Equal(t, 1, index.calls())
	})

	t.Run("unparseable expansion degrades to the original question", func(t *testing.T) {
		index := newStubIndex(map[string][]*core.ChunkMatch{
			question: {{Chunk: chunk(1, "Rules: Grappling"), Score: 0.8}},
		})
		completer := mock.NewMockCompleter("Here are some rephrasings: 1. ...")
		retriever, err := NewRetriever(completer, mock.NewMockEmbedder(), index)
		require.NoError(t, err)
		defer retriever.Release()

		matches, err := retriever.Retrieve(ctx, question)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
		assert.Equal(t, 1, index.calls())
	})

	t.Run("truncates the merged set to top-k", func(t *testing.T) {
		var many []*core.ChunkMatch
		for i := 1; i <= 8; i++ {
			many = append(many, &core.ChunkMatch{
				Chunk: chunk(core.ID(i), "Player's Handbook"),
				Score: float32(i) / 10,
			})
		}
		index := newStubIndex(map[string][]*core.ChunkMatch{question: many})
		retriever, err := NewRetriever(mock.NewMockCompleter(), mock.NewMockEmbedder(), index,
			WithExpansions(0), WithTopK(3))
		require.NoError(t, err)
		defer retriever.Release()

		matches, err := retriever.Retrieve(ctx, question)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.InDelta(t, 0.8, matches[0].Score, 1e-6)
		assert.InDelta(t, 0.6, matches[2].Score, 1e-6)
	})

	t.Run("no matches is an empty result, not an error", func(t *testing.T) {
		index := newStubIndex(map[string][]*core.ChunkMatch{})
		completer := mock.NewMockCompleter(`["paraphrase one","paraphrase two"]`)
		retriever, err := NewRetriever(completer, mock.NewMockEmbedder(), index)
		require.NoError(t, err)
		defer retriever.Release()

		matches, err := retriever.Retrieve(ctx, question)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("fails only when every variant search fails", func(t *testing.T) {
		index := newStubIndex(nil)
		index.err = errors.New("index unavailable")
		retriever, err := NewRetriever(mock.NewMockCompleter(), mock.NewMockEmbedder(), index,
			WithExpansions(0))
		require.NoError(t, err)
		defer retriever.Release()

		_, err = retriever.Retrieve(ctx, question)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index unavailable")
	})

	t.Run("expansion request is bounded and excludes the original", func(t *testing.T) {
		index := newStubIndex(map[string][]*core.ChunkMatch{})
		completer := mock.NewMockCompleter(
			`["one","two","three","four","five","How does grappling work?"]`)
		retriever, err := NewRetriever(completer, mock.NewMockEmbedder(), index,
			WithExpansions(3))
		require.NoError(t, err)
		defer retriever.Release()

		_, err = retriever.Retrieve(ctx, question)
		require.NoError(t, err)
		// Original plus at most three variants; the echoed original is not
		// searched twice.
		assert.Equal(t, 4, index.calls())
	})
}

func TestRetriever_IndexIntegration(t *testing.T) {
	ctx := context.Background()
	question := "How does grappling work?"

	repository, backend, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	defer backend.Close()

	// Give the target chunk the exact vector the embedder will produce for
	// the question, so it scores at the top.
	chunks := []*core.TextChunk{
		{
			Text:   "A grapple ends if the target is incapacitated or moved out of reach.",
			Source: "Rules: Grappling",
			Vector: mock.DeterministicVector(question, 384),
		},
		{
			Text:   "Tieflings are descended from infernal bloodlines.",
			Source: "Lore: Tieflings",
			Vector: mock.DeterministicVector("tiefling ancestry", 384),
		},
	}
	_, err = repository.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	retriever, err := NewRetriever(mock.NewMockCompleter(), mock.NewMockEmbedder(), repository,
		WithExpansions(0))
	require.NoError(t, err)
	defer retriever.Release()

	matches, err := retriever.Retrieve(ctx, question)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Rules: Grappling", matches[0].Chunk.Source)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-3)
}

func TestNewRetriever_Validation(t *testing.T) {
	index := newStubIndex(nil)

	_, err := NewRetriever(nil, mock.NewMockEmbedder(), index)
	assert.ErrorIs(t, err, ErrCompleterRequired)

	_, err = NewRetriever(mock.NewMockCompleter(), nil, index)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewRetriever(mock.NewMockCompleter(), mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewRetriever(mock.NewMockCompleter(), mock.NewMockEmbedder(), index, WithTopK(0))
	assert.Error(t, err)
}
