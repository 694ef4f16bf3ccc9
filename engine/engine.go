// Copyright 2025 Candlekeep Labs
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


// Package engine drives a question through routing, retrieval, and answer
// synthesis, and hosts the retrieval-free narrator. Each request moves
// through an explicit state machine; every terminal state, including total
// retrieval failure, produces a well-formed response envelope.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/core"
)

// DefaultBranchTimeout bounds each retrieval branch. On an ambiguous route
// the two branches run concurrently, so it also bounds the retrieval phase
// as a whole.
const DefaultBranchTimeout = 30 * time.Second

const synthesisTemperature = 0.7

// RouteClassifier decides which retrieval path handles a question.
type RouteClassifier interface {
	Classify(ctx context.Context, question string) core.RouteDecision
}

// StructuredRetriever retrieves tabular evidence for a question.
type StructuredRetriever interface {
	Retrieve(ctx context.Context, question string) *core.ExecutionResult
}

// UnstructuredRetriever retrieves ranked lore chunks for a question.
type UnstructuredRetriever interface {
	Retrieve(ctx context.Context, question string) ([]*core.ChunkMatch, error)
	Expansions() int
}

// state tracks a request through the answer pipeline, for logging.
type state int

const (
	stateReceived state = iota
	stateRouted
	stateRetrieving
	stateSynthesizing
	stateCompleted
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateReceived:
		return "received"
	case stateRouted:
		return "routed"
	case stateRetrieving:
		return "retrieving"
	case stateSynthesizing:
		return "synthesizing"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Engine is the hybrid orchestrator. It holds no per-request state and is
// safe for concurrent use; each question is an independent unit of work.
type Engine struct {
	classifier    RouteClassifier
	structured    StructuredRetriever
	unstructured  UnstructuredRetriever
	completer     ai.Completer
	branchTimeout time.Duration
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithBranchTimeout overrides the per-branch retrieval timeout.
func WithBranchTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout <= 0 {
			return fmt.Errorf("branch timeout must be positive, got %v", timeout)
		}
		e.branchTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "engine")
		return nil
	}
}

// New creates an engine over the given collaborators.
func New(classifier RouteClassifier, structuredRetriever StructuredRetriever, unstructuredRetriever UnstructuredRetriever, completer ai.Completer, opts ...Option) (*Engine, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if structuredRetriever == nil {
		return nil, ErrStructuredRetrieverRequired
	}
	if unstructuredRetriever == nil {
		return nil, ErrUnstructuredRetrieverRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	e := &Engine{
		classifier:    classifier,
		structured:    structuredRetriever,
		unstructured:  unstructuredRetriever,
		completer:     completer,
		branchTimeout: DefaultBranchTimeout,
		logger:        slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Answer runs one question through routing, retrieval, and synthesis.
// It never returns an error or panics outward: every outcome, including an
// invalid query or total retrieval failure, is a complete envelope with the
// failure reason in Message when Success is false.
func (e *Engine) Answer(ctx context.Context, query *core.Query) *core.ResponseEnvelope {
	started := time.Now()

	envelope := &core.ResponseEnvelope{}
	if query != nil {
		envelope.SessionID = query.SessionID
	}
	if err := core.ValidateQuery(query); err != nil {
		envelope.Message = err.Error()
		return envelope
	}

	current := stateReceived
	logger := e.logger.With("session", envelope.SessionID)
	logger.Debug("question received", "state", current)

	decision := e.classifier.Classify(ctx, query.Question)
	current = stateRouted
	envelope.Route = decision.Route
	logger.Debug("question routed", "state", current,
		"route", decision.Route, "justification", decision.Justification)

	current = stateRetrieving
	evidence, diagnostics := e.retrieve(ctx, query.Question, decision.Route)
	diagnostics.Elapsed = time.Since(started)
	envelope.Diagnostics = diagnostics

	if evidence.IsEmpty() {
		// Without grounding there is nothing to synthesize from. Asking
		// the model anyway would fabricate an answer.
		current = stateFailed
		logger.Info("no evidence found", "state", current, "route", decision.Route)
		envelope.Message = MessageNoEvidence
		return envelope
	}

	current = stateSynthesizing
	logger.Debug("synthesizing answer", "state", current,
		"rows", len(evidence.Rows), "chunks", len(evidence.Chunks))

	answer, err := e.synthesize(ctx, query.Question, evidence)
	if err != nil {
		current = stateFailed
		logger.Error("synthesis failed", "state", current, "err", err)
		envelope.Message = MessageSynthesisFailed + ": " + err.Error()
		envelope.Diagnostics.Elapsed = time.Since(started)
		return envelope
	}

	current = stateCompleted
	envelope.Answer = answer
	envelope.Sources = evidence.Sources()
	envelope.Success = true
	envelope.Diagnostics.Elapsed = time.Since(started)
	logger.Info("question answered", "state", current,
		"route", decision.Route, "elapsed", envelope.Diagnostics.Elapsed)
	return envelope
}

// retrieve dispatches to the retriever(s) selected by the route. On an
// ambiguous route both branches run concurrently and independently, each
// under its own timeout; a branch failure degrades that branch to empty
// evidence without affecting the other.
func (e *Engine) retrieve(ctx context.Context, question string, route core.Route) (*core.Evidence, core.Diagnostics) {
	evidence := &core.Evidence{}
	var diagnostics core.Diagnostics

	switch route {
	case core.RouteStructured:
		evidence.Rows, diagnostics.Attempts = e.retrieveRows(ctx, question)
	case core.RouteUnstructured:
		evidence.Chunks = e.retrieveChunks(ctx, question)
		diagnostics.Expansions = e.unstructured.Expansions()
	default:
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			evidence.Rows, diagnostics.Attempts = e.retrieveRows(ctx, question)
		}()
		go func() {
			defer wg.Done()
			evidence.Chunks = e.retrieveChunks(ctx, question)
		}()
		wg.Wait()
		diagnostics.Expansions = e.unstructured.Expansions()
	}

	return evidence, diagnostics
}

// retrieveRows runs the structured branch. A typed failure or an empty
// result is reported as no rows; the caller decides whether that is fatal.
func (e *Engine) retrieveRows(ctx context.Context, question string) (core.Rows, int) {
	branchCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	result := e.structured.Retrieve(branchCtx, question)
	if !result.Succeeded() {
		e.logger.Debug("structured branch produced no evidence",
			"failure", result.Failure, "detail", result.FailureDetail,
			"attempts", result.Attempts)
		return nil, result.Attempts
	}
	return result.Rows, result.Attempts
}

// retrieveChunks runs the unstructured branch. Errors degrade to empty
// evidence.
func (e *Engine) retrieveChunks(ctx context.Context, question string) []*core.ChunkMatch {
	branchCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	chunks, err := e.unstructured.Retrieve(branchCtx, question)
	if err != nil {
		e.logger.Warn("unstructured branch failed", "err", err)
		return nil
	}
	return chunks
}

// synthesize asks the model for a final answer grounded in the evidence.
// When both kinds of evidence are present the prompt carries both and asks
// the model to reconcile them.
func (e *Engine) synthesize(ctx context.Context, question string, evidence *core.Evidence) (string, error) {
	system, prompt := synthesisPrompt(question, evidence)

	response, err := e.completer.Complete(ctx, ai.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: synthesisTemperature,
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(response)
	if answer == "" {
		return "", fmt.Errorf("model produced an empty answer")
	}
	return answer, nil
}

func synthesisPrompt(question string, evidence *core.Evidence) (system, prompt string) {
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n", question)

	switch {
	case evidence.HasStructured() && evidence.HasUnstructured():
		system = "You are a master Dungeon Master with access to D&D monster data and an expert knowledge of the 5th Edition rules."
		b.WriteString("\nDatabase results:\n")
		b.WriteString(renderRows(evidence.Rows))
		b.WriteString("\nRelevant D&D information:\n")
		b.WriteString(renderChunks(evidence.Chunks))
		b.WriteString("\nUsing both the database results and the quoted passages, provide a single coherent answer. If they disagree, prefer the database for numeric facts and the passages for rules and lore:")
	case evidence.HasStructured():
		system = "You are a helpful Dungeon Master assistant with access to D&D monster data."
		b.WriteString("\nDatabase results:\n")
		b.WriteString(renderRows(evidence.Rows))
		b.WriteString("\nProvide a clear, helpful answer based on this data:")
	default:
		system = "You are a master Dungeon Master, an expert in D&D 5th Edition."
		b.WriteString("\nRelevant D&D information:\n")
		b.WriteString(renderChunks(evidence.Chunks))
		b.WriteString("\nProvide a comprehensive and engaging answer:")
	}

	return system, b.String()
}

// renderRows formats tabular evidence for the synthesis prompt, one row per
// line with fields in a stable order.
func renderRows(rows core.Rows) string {
	var b strings.Builder
	for _, row := range rows {
		fields := make([]string, 0, len(row))
		for name := range row {
			fields = append(fields, name)
		}
		sort.Strings(fields)

		parts := make([]string, 0, len(fields))
		for _, name := range fields {
			parts = append(parts, fmt.Sprintf("%s: %v", name, row[name]))
		}
		b.WriteString("- " + strings.Join(parts, ", ") + "\n")
	}
	return b.String()
}

// renderChunks formats lore evidence for the synthesis prompt in rank order,
// labeling each passage with its source.
func renderChunks(chunks []*core.ChunkMatch) string {
	var b strings.Builder
	for _, match := range chunks {
		fmt.Fprintf(&b, "[Source: %s]\n%s\n\n", match.Chunk.Source, match.Chunk.Text)
	}
	return b.String()
}
