package engine

import "errors"

var (
	// ErrClassifierRequired is returned when a nil classifier is supplied.
	ErrClassifierRequired = errors.New("classifier is required")

	// ErrStructuredRetrieverRequired is returned when a nil structured
	// retriever is supplied.
	ErrStructuredRetrieverRequired = errors.New("structured retriever is required")

	// ErrUnstructuredRetrieverRequired is returned when a nil unstructured
	// retriever is supplied.
	ErrUnstructuredRetrieverRequired = errors.New("unstructured retriever is required")

	// ErrCompleterRequired is returned when a nil completer is supplied.
	ErrCompleterRequired = errors.New("completer is required")

	// ErrNarrationFailed indicates the narrator could not produce prose
	// after its transient retry.
	ErrNarrationFailed = errors.New("narration failed")
)

// Terminal failure reasons surfaced in the response envelope.
const (
	// MessageNoEvidence is returned when every retrieval branch failed or
	// came back empty. No synthesis call is made in this case.
	MessageNoEvidence = "could not find an answer to this question in the monster store or the lore corpus"

	// MessageSynthesisFailed is returned when evidence was retrieved but
	// the final answer could not be generated.
	MessageSynthesisFailed = "found relevant material but failed to generate an answer"
)
