package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/ai/mock"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/schema"
	"github.com/candlekeep/oracle/storage"
	"github.com/candlekeep/oracle/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExecutor returns scripted outcomes in call order.
type stubExecutor struct {
	outcomes []stubOutcome
	calls    int
}

type stubOutcome struct {
	rows core.Rows
	err  error
}

func (s *stubExecutor) Execute(ctx context.Context, statement string) (core.Rows, error) {
	outcome := s.outcomes[s.calls%len(s.outcomes)]
	s.calls++
	return outcome.rows, outcome.err
}

func (s *stubExecutor) Close() error { return nil }

func newMonsterStore(t *testing.T) storage.TabularExecutor {
	t.Helper()
	executor, loader, err := sqlite.NewMemoryStore(context.Background(), schema.Monsters(), core.Rows{
		{"name": "Beholder", "type": "Aberration", "armor_class": 18, "hit_points": 180, "challenge_rating": "13"},
		{"name": "Goblin", "type": "Humanoid", "armor_class": 15, "hit_points": 7, "challenge_rating": "1/4"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { loader.Close() })
	return executor
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		completer := mock.NewMockCompleter(
			"SELECT armor_class FROM monsters WHERE name = 'Beholder'")
		retriever, err := NewRetriever(completer, newMonsterStore(t), schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "What is a Beholder's armor class?")
		require.True(t, result.Succeeded())
		assert.Equal(t, 1, result.Attempts)
		require.Len(t, result.Rows, 1)
		assert.EqualValues(t, 18, result.Rows[0]["armor_class"])
	})

	t.Run("strips code fences from generated statements", func(t *testing.T) {
		completer := mock.NewMockCompleter(
			"```sql\nSELECT name FROM monsters WHERE armor_class > 16\n```")
		retriever, err := NewRetriever(completer, newMonsterStore(t), schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "Which monsters have AC above 16?")
		require.True(t, result.Succeeded())
		assert.Equal(t, "Beholder", result.Rows[0]["name"])
	})

	t.Run("repairs a bad column on attempt two", func(t *testing.T) {
		completer := mock.NewMockCompleter(
			"SELECT ac FROM monsters WHERE name = 'Beholder'",
			"SELECT armor_class FROM monsters WHERE name = 'Beholder'")
		retriever, err := NewRetriever(completer, newMonsterStore(t), schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "What is a Beholder's armor class?")
		require.True(t, result.Succeeded())
		assert.Equal(t, 2, result.Attempts)

		// The repair prompt must carry the failed statement and the store's
		// error text.
		requests := completer.Requests()
		require.Len(t, requests, 2)
		assert.Contains(t, requests[1].Prompt, "SELECT ac FROM monsters")
		assert.Contains(t, requests[1].Prompt, "ac")
	})

	t.Run("zero rows is an empty result, never retried", func(t *testing.T) {
		completer := mock.NewMockCompleter(
			"SELECT name FROM monsters WHERE name = 'Tarrasque'")
		retriever, err := NewRetriever(completer, newMonsterStore(t), schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "What is a Tarrasque's armor class?")
		assert.False(t, result.Succeeded())
		assert.True(t, result.Empty())
		assert.Equal(t, core.FailureEmpty, result.Failure)
		assert.Equal(t, 1, result.Attempts)
		assert.Equal(t, 1, completer.CallCount())
	})

	t.Run("persistent failure terminates at exactly the attempt bound", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "SELEC broken", nil
		}
		executor := &stubExecutor{outcomes: []stubOutcome{
			{err: storage.NewSyntaxError(`near "SELEC": syntax error`)},
		}}
		retriever, err := NewRetriever(completer, executor, schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "What is a Beholder's armor class?")
		assert.False(t, result.Succeeded())
		assert.Equal(t, core.FailureSyntax, result.Failure)
		assert.Equal(t, DefaultMaxAttempts, result.Attempts)
		assert.Equal(t, DefaultMaxAttempts, completer.CallCount())
		assert.Equal(t, DefaultMaxAttempts, executor.calls)
		assert.Contains(t, result.FailureDetail, "syntax error")
	})

	t.Run("timeout is terminal without repair", func(t *testing.T) {
		completer := mock.NewMockCompleter("SELECT name FROM monsters")
		executor := &stubExecutor{outcomes: []stubOutcome{
			{err: storage.NewTimeoutError("context deadline exceeded")},
		}}
		retriever, err := NewRetriever(completer, executor, schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "List every monster.")
		assert.Equal(t, core.FailureTimeout, result.Failure)
		assert.Equal(t, 1, result.Attempts)
		assert.Equal(t, 1, executor.calls)
	})

	t.Run("completer failure is a typed failure", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "", errors.New("service unavailable")
		}
		retriever, err := NewRetriever(completer, newMonsterStore(t), schema.Monsters())
		require.NoError(t, err)

		result := retriever.Retrieve(ctx, "What is a Goblin's armor class?")
		assert.False(t, result.Succeeded())
		assert.Equal(t, core.FailureExecution, result.Failure)
		assert.Contains(t, result.FailureDetail, "service unavailable")
	})

	t.Run("schema is rendered into the generation prompt", func(t *testing.T) {
		completer := mock.NewMockCompleter(
			"SELECT name FROM monsters WHERE challenge_rating = '13'")
		retriever, err := NewRetriever(completer, newMonsterStore(t), schema.Monsters())
		require.NoError(t, err)

		retriever.Retrieve(ctx, "Show me all CR 13 monsters.")
		requests := completer.Requests()
		require.Len(t, requests, 1)
		assert.Contains(t, requests[0].System, "monsters")
		assert.Contains(t, requests[0].System, "armor_class")
		assert.Contains(t, requests[0].System, "challenge_rating")
	})
}

func TestNewRetriever_Options(t *testing.T) {
	completer := mock.NewMockCompleter()
	executor := &stubExecutor{outcomes: []stubOutcome{
		{err: storage.NewSyntaxError("syntax error")},
	}}

	t.Run("custom attempt bound", func(t *testing.T) {
		completer.Reset()
		completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "SELECT broken", nil
		}
		retriever, err := NewRetriever(completer, executor, schema.Monsters(), WithMaxAttempts(1))
		require.NoError(t, err)

		result := retriever.Retrieve(context.Background(), "anything")
		assert.Equal(t, 1, result.Attempts)
	})

	t.Run("rejects non-positive bound", func(t *testing.T) {
		_, err := NewRetriever(completer, executor, schema.Monsters(), WithMaxAttempts(0))
		assert.Error(t, err)
	})

	t.Run("rejects invalid descriptor", func(t *testing.T) {
		_, err := NewRetriever(completer, executor, &schema.Descriptor{})
		assert.Error(t, err)
	})
}
