package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/ai/mock"
	"github.com/candlekeep/oracle/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNarratorEngine(t *testing.T, completer *mock.MockCompleter) *Engine {
	t.Helper()
	eng, err := New(classify(core.RouteStructured),
		&stubStructured{}, &stubUnstructured{}, completer)
	require.NoError(t, err)
	return eng
}

func TestEngine_Narrate(t *testing.T) {
	ctx := context.Background()

	t.Run("generates prose in the requested style", func(t *testing.T) {
		completer := mock.NewMockCompleter("Fog curls around the rotting door frames.")
		eng := newNarratorEngine(t, completer)

		narration, err := eng.Narrate(ctx, "Describe a haunted village.", core.StyleMysterious)
		require.NoError(t, err)
		assert.Equal(t, "Fog curls around the rotting door frames.", narration)

		requests := completer.Requests()
		require.Len(t, requests, 1)
		assert.Contains(t, requests[0].System, "atmosphere")
		assert.Contains(t, requests[0].Prompt, "haunted village")
	})

	t.Run("each style shapes the persona differently", func(t *testing.T) {
		for style, fragment := range map[core.Style]string{
			core.StyleMysterious: "atmosphere",
			core.StyleDramatic:   "tension",
			core.StyleAction:     "pace",
		} {
			completer := mock.NewMockCompleter("prose")
			eng := newNarratorEngine(t, completer)
			_, err := eng.Narrate(ctx, "Describe a scene.", style)
			require.NoError(t, err)
			assert.Contains(t, completer.Requests()[0].System, fragment, "style %v", style)
		}
	})

	t.Run("neutral style carries no directive", func(t *testing.T) {
		completer := mock.NewMockCompleter("The village sits quietly at dusk.")
		eng := newNarratorEngine(t, completer)

		_, err := eng.Narrate(ctx, "Describe a village.", core.StyleNeutral)
		require.NoError(t, err)
		assert.Equal(t, narratorBasePrompt, completer.Requests()[0].System)
	})

	t.Run("unrecognized style value falls back to neutral", func(t *testing.T) {
		completer := mock.NewMockCompleter("The village sits quietly at dusk.")
		eng := newNarratorEngine(t, completer)

		narration, err := eng.Narrate(ctx, "Describe a village.", core.Style(42))
		require.NoError(t, err)
		assert.NotEmpty(t, narration)
		assert.Equal(t, narratorBasePrompt, completer.Requests()[0].System)
	})

	t.Run("unknown style tag parses to neutral", func(t *testing.T) {
		assert.Equal(t, core.StyleNeutral, core.ParseStyle("unknown-tag"))
	})

	t.Run("retries once after a transient failure", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			if completer.CallCount() == 1 {
				return "", errors.New("temporarily overloaded")
			}
			return "The dragon descends.", nil
		}
		eng := newNarratorEngine(t, completer)

		narration, err := eng.Narrate(ctx, "A dragon attacks.", core.StyleAction)
		require.NoError(t, err)
		assert.Equal(t, "The dragon descends.", narration)
		assert.Equal(t, 2, completer.CallCount())
	})

	t.Run("persistent failure stops after the single retry", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "", errors.New("service unavailable")
		}
		eng := newNarratorEngine(t, completer)

		_, err := eng.Narrate(ctx, "A dragon attacks.", core.StyleNeutral)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNarrationFailed)
		assert.Equal(t, narrationAttempts, completer.CallCount())
	})

	t.Run("empty prompt is rejected", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		eng := newNarratorEngine(t, completer)

		_, err := eng.Narrate(ctx, "   ", core.StyleNeutral)
		assert.ErrorIs(t, err, ErrNarrationFailed)
		assert.Equal(t, 0, completer.CallCount())
	})
}
