package oracle

import (
	"context"
	"testing"

	"github.com/candlekeep/oracle/ai/mock"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/schema"
	"github.com/candlekeep/oracle/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOracle(t *testing.T, completer *mock.MockCompleter) *Oracle {
	t.Helper()
	ctx := context.Background()

	executor, loader, err := sqlite.NewMemoryStore(ctx, schema.Monsters(), core.Rows{
		{"name": "Beholder", "type": "Aberration", "armor_class": 18, "hit_points": 180, "challenge_rating": "13"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { loader.Close() })

	provider := mock.NewMockProviderWithServices(completer, mock.NewMockEmbedder())
	o, err := New("", "",
		WithExecutor(executor),
		WithInMemoryIndex(),
		WithProvider(provider))
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestOracle_Answer_Structured(t *testing.T) {
	completer := mock.NewMockCompleter(
		"structured\nThe question asks for a numeric stat.",
		"SELECT armor_class FROM monsters WHERE name = 'Beholder'",
		"A Beholder has an armor class of 18.")
	o := newTestOracle(t, completer)

	envelope := o.Answer(context.Background(), "What is a Beholder's armor class?", "session-9")
	require.True(t, envelope.Success, "message: %s", envelope.Message)
	assert.Contains(t, envelope.Answer, "18")
	assert.Equal(t, core.RouteStructured, envelope.Route)
	assert.Equal(t, []string{core.SourceMonsterStore}, envelope.Sources)
	assert.Equal(t, "session-9", envelope.SessionID)
	assert.Equal(t, 1, envelope.Diagnostics.Attempts)
}

func TestOracle_Answer_Unstructured(t *testing.T) {
	question := "How does grappling work?"
	completer := mock.NewMockCompleter(
		"unstructured\nThe question asks about a rule.",
		`["What are the rules for grabbing a creature?"]`,
		"Grappling ends when the target is incapacitated or moved out of reach.")
	o := newTestOracle(t, completer)

	// Give the chunk the exact vector the mock embedder will produce for
	// the question so it ranks at the top.
	_, err := o.ChunkRepository().AddChunks(context.Background(), &core.TextChunk{
		Text:   "A grapple ends if the target is incapacitated or moved out of reach.",
		Source: "Rules: Grappling",
		Vector: mock.DeterministicVector(question, 384),
	})
	require.NoError(t, err)

	envelope := o.Answer(context.Background(), question, "")
	require.True(t, envelope.Success, "message: %s", envelope.Message)
	assert.Equal(t, core.RouteUnstructured, envelope.Route)
	assert.Contains(t, envelope.Sources, "Rules: Grappling")
}

func TestOracle_Answer_NoEvidence(t *testing.T) {
	completer := mock.NewMockCompleter(
		"structured\nAsks for a stat.",
		"SELECT armor_class FROM monsters WHERE name = 'Tarrasque'")
	o := newTestOracle(t, completer)

	envelope := o.Answer(context.Background(), "What is a Tarrasque's armor class?", "")
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)
	// Classification and generation only; no synthesis call was made.
	assert.Equal(t, 2, completer.CallCount())
}

func TestOracle_Narrate(t *testing.T) {
	completer := mock.NewMockCompleter("Fog curls through the silent village.")
	o := newTestOracle(t, completer)

	narration, err := o.Narrate(context.Background(), "Describe a haunted village.", "mysterious")
	require.NoError(t, err)
	assert.Equal(t, "Fog curls through the silent village.", narration)

	t.Run("unknown style tag narrates in the neutral voice", func(t *testing.T) {
		completer.Enqueue("The village sits quietly at dusk.")
		narration, err := o.Narrate(context.Background(), "Describe a village.", "unknown-tag")
		require.NoError(t, err)
		assert.NotEmpty(t, narration)
	})
}

func TestOracle_Close(t *testing.T) {
	completer := mock.NewMockCompleter()
	o := newTestOracle(t, completer)
	assert.NoError(t, o.Close())
}
