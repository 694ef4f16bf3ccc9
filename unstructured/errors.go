package unstructured

import "errors"

var (
	// ErrCompleterRequired is returned when a nil completer is supplied.
	ErrCompleterRequired = errors.New("completer is required")

	// ErrEmbedderRequired is returned when a nil embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrIndexRequired is returned when a nil chunk index is supplied.
	ErrIndexRequired = errors.New("chunk index is required")
)
