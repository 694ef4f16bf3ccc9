package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Chunk IDs are generated by content-based hashing so that identical
// content always maps to the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Route identifies the retrieval path chosen for a question.
type Route int

const (
	// RouteStructured answers from the tabular monster store.
	RouteStructured Route = iota + 1
	// RouteUnstructured answers from the lore chunk index.
	RouteUnstructured
	// RouteAmbiguous dispatches to both retrievers.
	RouteAmbiguous
)

// String returns the lowercase label used in prompts and envelopes.
func (r Route) String() string {
	switch r {
	case RouteStructured:
		return "structured"
	case RouteUnstructured:
		return "unstructured"
	case RouteAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// ParseRoute maps a classifier label to a Route.
// Returns false if the label is not one of the recognized values.
func ParseRoute(label string) (Route, bool) {
	switch label {
	case "structured":
		return RouteStructured, true
	case "unstructured":
		return RouteUnstructured, true
	case "ambiguous":
		return RouteAmbiguous, true
	default:
		return 0, false
	}
}

// RouteDecision is the outcome of classifying a question.
// Produced once per query and never persisted.
type RouteDecision struct {
	Route         Route
	Justification string
}

// Query is an incoming question. Immutable once received.
// SessionID is opaque and used only for grouping in logs and envelopes;
// no state is read from it.
type Query struct {
	Question  string
	SessionID string
}

// Statement is a candidate statement for the tabular store, together with
// the retry-loop state that produced it. It lives only within a single
// structured retrieval.
type Statement struct {
	Text       string
	Attempt    int    // 1-based attempt counter
	PriorError string // error text that prompted regeneration, empty on attempt 1
}

// Row is a single result row from the tabular store.
type Row map[string]any

// Rows is an ordered sequence of result rows.
type Rows []Row

// FailureKind classifies a structured retrieval outcome.
type FailureKind int

const (
	// FailureNone means rows were returned.
	FailureNone FailureKind = iota
	// FailureSyntax means the store rejected the statement as malformed.
	FailureSyntax
	// FailureExecution means the statement was valid but failed to run.
	FailureExecution
	// FailureTimeout means execution exceeded its deadline.
	FailureTimeout
	// FailureEmpty means the statement ran but matched zero rows.
	// This is a terminal outcome, never retried.
	FailureEmpty
)

// String returns a short label for diagnostics.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureSyntax:
		return "syntax"
	case FailureExecution:
		return "execution"
	case FailureTimeout:
		return "timeout"
	case FailureEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ExecutionResult is the outcome of one structured retrieval, either rows
// or a typed failure. Consumed immediately by the retry loop or synthesis.
type ExecutionResult struct {
	Statement     string
	Rows          Rows
	Attempts      int
	Failure       FailureKind
	FailureDetail string
}

// Succeeded reports whether execution produced at least one row.
func (r *ExecutionResult) Succeeded() bool {
	return r.Failure == FailureNone
}

// Empty reports whether a valid statement matched zero rows.
func (r *ExecutionResult) Empty() bool {
	return r.Failure == FailureEmpty
}

// TextChunk is an embedded fragment of the lore corpus.
type TextChunk struct {
	Id     ID
	Text   string
	Source string
	Vector []float32 // embedding, populated at index time
}

// ChunkMatch pairs a chunk with its similarity score relative to a sub-query.
type ChunkMatch struct {
	Chunk *TextChunk
	Score float32
}

// Evidence is the retrieved material passed to synthesis: tabular rows,
// ranked lore chunks, or both when an ambiguous route succeeds twice.
type Evidence struct {
	Rows   Rows
	Chunks []*ChunkMatch
}

// HasStructured reports whether tabular rows are present.
func (e *Evidence) HasStructured() bool {
	return len(e.Rows) > 0
}

// HasUnstructured reports whether lore chunks are present.
func (e *Evidence) HasUnstructured() bool {
	return len(e.Chunks) > 0
}

// IsEmpty reports whether no evidence of either kind is present.
func (e *Evidence) IsEmpty() bool {
	return !e.HasStructured() && !e.HasUnstructured()
}

// SourceMonsterStore is the source label attached to tabular evidence.
const SourceMonsterStore = "Monster Database"

// Sources derives the distinct source labels for the envelope, tabular
// provenance first, then chunk labels in rank order.
func (e *Evidence) Sources() []string {
	sources := make([]string, 0, 1+len(e.Chunks))
	seen := make(map[string]bool)
	if e.HasStructured() {
		sources = append(sources, SourceMonsterStore)
		seen[SourceMonsterStore] = true
	}
	for _, match := range e.Chunks {
		label := match.Chunk.Source
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		sources = append(sources, label)
	}
	return sources
}

// Diagnostics carries optional per-request metadata in the envelope.
type Diagnostics struct {
	Attempts   int           // structured statement generations
	Expansions int           // paraphrased sub-queries issued
	Elapsed    time.Duration // total request time
}

// ResponseEnvelope is the sole externally visible output of a query.
// Constructed exactly once per query and never mutated after return.
type ResponseEnvelope struct {
	Answer      string
	Route       Route
	Sources     []string
	Success     bool
	Message     string // failure reason when Success is false
	SessionID   string
	Diagnostics Diagnostics
}

// Style selects the narrator persona for creative generation.
type Style int

const (
	// StyleNeutral is the fallback persona.
	StyleNeutral Style = iota
	// StyleMysterious favors atmosphere and the unknown.
	StyleMysterious
	// StyleDramatic favors tension and high stakes.
	StyleDramatic
	// StyleAction favors pace and movement.
	StyleAction
)

// String returns the lowercase style tag.
func (s Style) String() string {
	switch s {
	case StyleMysterious:
		return "mysterious"
	case StyleDramatic:
		return "dramatic"
	case StyleAction:
		return "action"
	default:
		return "neutral"
	}
}

// ParseStyle maps a style tag to a Style. Unrecognized tags fall back to
// StyleNeutral rather than failing.
func ParseStyle(tag string) Style {
	switch tag {
	case "mysterious":
		return StyleMysterious
	case "dramatic":
		return StyleDramatic
	case "action":
		return StyleAction
	default:
		return StyleNeutral
	}
}
