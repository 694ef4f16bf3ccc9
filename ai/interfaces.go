package ai

import "context"

// Completer provides stateless text completion. It backs every generative
// step in the engine: route classification, statement generation and repair,
// query expansion, answer synthesis, and narration.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends a prompt to the language model and returns the raw
	// completion text. Callers must treat the completion as untrusted input
	// and validate it before use. Returns an error if the service is
	// unavailable or the call times out; the context deadline bounds the
	// call.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Completer and Embedder instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Completer returns the text completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
