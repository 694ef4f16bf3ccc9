package mock

import (
	"context"
	"sync"

	"github.com/candlekeep/oracle/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields or a scripted
// queue of canned completions.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, responses are popped from the scripted queue; once the queue
	// is exhausted, Complete returns an empty string.
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (string, error)

	mu        sync.Mutex
	responses []string
	requests  []ai.CompletionRequest
	callCount int
}

// NewMockCompleter creates a mock completer with no scripted responses.
// Note: Returns concrete type to allow test assertions.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{responses: responses}
}

// Complete returns the next scripted response, or delegates to CompleteFunc.
func (m *MockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	fn := m.CompleteFunc
	var response string
	if fn == nil && len(m.responses) > 0 {
		response = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return response, nil
}

// Enqueue appends scripted responses to the queue.
func (m *MockCompleter) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of the requests seen so far, in call order.
func (m *MockCompleter) Requests() []ai.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make([]ai.CompletionRequest, len(m.requests))
	copy(requests, m.requests)
	return requests
}

// Reset clears the call count, recorded requests, scripted responses, and custom function.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.responses = nil
	m.CompleteFunc = nil
}
