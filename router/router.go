// Package router classifies incoming questions into a retrieval route.
//
// Classification is advisory: the classifier never returns an error. A
// completion failure, or a completion that is not one of the known labels,
// falls back to the ambiguous route, which the engine resolves by running
// both retrievers.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/core"
)

// classificationTemperature is kept low for consistent labeling.
const classificationTemperature = 0.1

const systemPrompt = `You are an expert query routing assistant for a Dungeons & Dragons knowledge base. Your task is to classify the user's question into one of three categories based on its intent: 'structured', 'unstructured', or 'ambiguous'.

'structured' questions ask for specific, factual data about game entities, such as monster statistics. These questions often involve numbers, lists, comparisons, or filtering.
Examples:
- "What is a Beholder's armor class?"
- "List all monsters with resistance to cold damage."
- "Which dragon has more hit points, an adult red or an adult black?"
- "Show me all CR 5 monsters."
- "What monsters have a Strength score above 20?"

'unstructured' questions ask about rules, lore, spell descriptions, or ask for creative narrative content. These questions are typically explanatory or generative in nature.
Examples:
- "How does the grappling condition work?"
- "Can you describe a spooky, haunted forest?"
- "What is the history of the elves in the Forgotten Realms?"
- "Explain how spell slots work in D&D 5e."
- "Create a description for a tavern scene."

'ambiguous' questions mix both kinds of intent, or could reasonably be answered from either source.
Examples:
- "Tell me about Beholders."
- "How dangerous is an adult red dragon?"

Respond with exactly two lines: the first line is the single classification word and nothing else, the second line is a one-sentence justification.`

// Classifier routes questions using a language model.
type Classifier struct {
	completer ai.Completer
	logger    *slog.Logger
}

// NewClassifier creates a classifier backed by the given completer.
func NewClassifier(completer ai.Completer) *Classifier {
	return &Classifier{
		completer: completer,
		logger:    slog.Default().With("component", "router"),
	}
}

// Classify decides which retrieval route should handle the question.
// It never fails: any completion error or unrecognized label yields the
// ambiguous route so the caller can try both sources.
func (c *Classifier) Classify(ctx context.Context, question string) core.RouteDecision {
	response, err := c.completer.Complete(ctx, ai.CompletionRequest{
		System:      systemPrompt,
		Prompt:      fmt.Sprintf("User Question: %s\nClassification:", question),
		Temperature: classificationTemperature,
	})
	if err != nil {
		c.logger.Warn("classification failed, falling back to ambiguous", "err", err)
		return core.RouteDecision{
			Route:         core.RouteAmbiguous,
			Justification: "classifier unavailable: " + err.Error(),
		}
	}

	decision, ok := parseDecision(response)
	if !ok {
		c.logger.Warn("unrecognized classification, falling back to ambiguous",
			"response", response)
		return core.RouteDecision{
			Route:         core.RouteAmbiguous,
			Justification: "classifier produced an unrecognized label",
		}
	}

	c.logger.Debug("question classified", "route", decision.Route)
	return decision
}

// parseDecision extracts a route label and justification from a completion.
// The first line carries the label; anything after it is justification.
func parseDecision(response string) (core.RouteDecision, bool) {
	cleaned := strings.TrimSpace(ai.StripCodeFence(response))
	if cleaned == "" {
		return core.RouteDecision{}, false
	}

	label := cleaned
	justification := ""
	if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
		label = cleaned[:idx]
		justification = strings.TrimSpace(cleaned[idx+1:])
	}
	label = strings.ToLower(strings.Trim(strings.TrimSpace(label), ".'\""))

	route, ok := core.ParseRoute(label)
	if !ok {
		return core.RouteDecision{}, false
	}

	return core.RouteDecision{Route: route, Justification: justification}, true
}
