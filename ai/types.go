package ai

import "strings"

// CompletionRequest carries one prompt and its constraints to a Completer.
type CompletionRequest struct {
	// System is an optional persona or task framing instruction.
	System string

	// Prompt is the user-turn text.
	Prompt string

	// Temperature controls sampling randomness. Zero is deterministic and
	// is the right choice for classification and statement generation;
	// creative generation uses higher values.
	Temperature float64

	// JSONMode asks the model to emit a single JSON value. The completion
	// must still be validated by the caller.
	JSONMode bool
}

// StripCodeFence removes a surrounding markdown code fence from a completion,
// including an optional language tag such as ```sql or ```json. Models add
// fences even when told not to, so every consumer of completion text should
// pass it through here before parsing.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence line
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.ContainsAny(s[:idx], " \t") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
