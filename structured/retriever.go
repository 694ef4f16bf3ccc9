// Package structured turns a natural-language question into a statement
// against the tabular monster store, executing it through a bounded
// self-correction loop: generate, execute, and on failure feed the store's
// error text back into the model for a repaired statement.
package structured

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/schema"
	"github.com/candlekeep/oracle/storage"
)

// DefaultMaxAttempts bounds the generate-execute-repair loop.
const DefaultMaxAttempts = 3

const generationTemperature = 0.1

// Retriever retrieves tabular evidence via text-to-SQL with self-correction.
// Safe for concurrent use: all state is read-only after construction.
type Retriever struct {
	completer   ai.Completer
	executor    storage.TabularExecutor
	descriptor  *schema.Descriptor
	maxAttempts int
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithMaxAttempts overrides the statement generation bound.
func WithMaxAttempts(n int) Option {
	return func(r *Retriever) error {
		if n < 1 {
			return fmt.Errorf("max attempts must be at least 1, got %d", n)
		}
		r.maxAttempts = n
		return nil
	}
}

// NewRetriever creates a structured retriever over the given collaborators.
func NewRetriever(completer ai.Completer, executor storage.TabularExecutor, descriptor *schema.Descriptor, opts ...Option) (*Retriever, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	r := &Retriever{
		completer:   completer,
		executor:    executor,
		descriptor:  descriptor,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default().With("component", "structured-retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve generates and executes a statement for the question, repairing it
// on failure up to the attempt bound. The outcome is always a typed
// ExecutionResult, never a panic or an unhandled error: zero matching rows is
// reported as an empty result and is terminal, since the statement itself
// was valid.
func (r *Retriever) Retrieve(ctx context.Context, question string) *core.ExecutionResult {
	statement := core.Statement{Attempt: 1}

	for {
		text, err := r.generate(ctx, question, statement)
		if err != nil {
			r.logger.Warn("statement generation failed",
				"attempt", statement.Attempt, "err", err)
			return &core.ExecutionResult{
				Attempts:      statement.Attempt,
				Failure:       failureKindForContext(ctx, core.FailureExecution),
				FailureDetail: "statement generation failed: " + err.Error(),
			}
		}
		statement.Text = text

		rows, err := r.executor.Execute(ctx, text)
		if err == nil {
			if len(rows) == 0 {
				r.logger.Debug("statement matched no rows",
					"attempt", statement.Attempt)
				return &core.ExecutionResult{
					Statement: text,
					Attempts:  statement.Attempt,
					Failure:   core.FailureEmpty,
				}
			}
			r.logger.Debug("statement executed",
				"attempt", statement.Attempt, "rows", len(rows))
			return &core.ExecutionResult{
				Statement: text,
				Rows:      rows,
				Attempts:  statement.Attempt,
			}
		}

		kind := storage.FailureKindOf(err)
		r.logger.Warn("statement failed",
			"attempt", statement.Attempt, "kind", kind, "err", err)

		// A timeout will not be fixed by a repaired statement, and the
		// context that carried it is usually already dead.
		if kind == core.FailureTimeout || statement.Attempt >= r.maxAttempts {
			return &core.ExecutionResult{
				Statement:     text,
				Attempts:      statement.Attempt,
				Failure:       kind,
				FailureDetail: err.Error(),
			}
		}

		statement = core.Statement{
			Text:       text,
			Attempt:    statement.Attempt + 1,
			PriorError: err.Error(),
		}
	}
}

// generate asks the model for a statement, or a repaired one when the prior
// attempt's error is present.
func (r *Retriever) generate(ctx context.Context, question string, statement core.Statement) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "User Question: %s\n", question)
	if statement.PriorError != "" {
		fmt.Fprintf(&prompt, "\nYour previous query failed.\nPrevious query:\n%s\n\nError from the database:\n%s\n\nWrite a corrected SQLite query that fixes this error:",
			statement.Text, statement.PriorError)
	} else {
		prompt.WriteString("Write a SQLite query:")
	}

	response, err := r.completer.Complete(ctx, ai.CompletionRequest{
		System:      r.systemPrompt(),
		Prompt:      prompt.String(),
		Temperature: generationTemperature,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(ai.StripCodeFence(response))
	if text == "" {
		return "", fmt.Errorf("model produced an empty statement")
	}
	return text, nil
}

func (r *Retriever) systemPrompt() string {
	return fmt.Sprintf(`You are a SQLite expert for D&D monster data.

Database Schema:
Table: %s
%s

IMPORTANT NOTES:
- Output a single read-only SELECT statement and nothing else.
- challenge_rating is TEXT, not a number - use LIKE for CR comparisons, or CAST(challenge_rating AS INTEGER) for whole-number ratings.
- Use the LIKE operator for text searches in abilities, special_abilities, etc.
- Only reference columns declared in the schema above.`,
		r.descriptor.Table, r.descriptor.Render())
}

// failureKindForContext upgrades a failure to a timeout when the context
// expired, so callers can distinguish deadline pressure from a bad statement.
func failureKindForContext(ctx context.Context, fallback core.FailureKind) core.FailureKind {
	if ctx.Err() != nil {
		return core.FailureTimeout
	}
	return fallback
}
