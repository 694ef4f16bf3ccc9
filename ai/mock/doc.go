// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Completer, ai.Embedder,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Scripted completions, returned in order
//	completer := mock.NewMockCompleter("structured", "SELECT name FROM monsters")
//
//	// Custom behavior injection
//	completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
//	    return "", errors.New("service unavailable")
//	}
//
//	// Check call counts and inspect prompts
//	count := completer.CallCount()
//	prompts := completer.Requests()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockCompleter: Pops scripted responses; empty string once exhausted
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockProvider: Aggregates mock completer and embedder
package mock
