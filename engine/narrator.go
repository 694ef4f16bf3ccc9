package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/core"
)

const (
	narrationTemperature = 0.9

	// narrationAttempts allows one transient-error retry, no more.
	narrationAttempts = 2
	narrationDelay    = 500 * time.Millisecond
)

const narratorBasePrompt = "You are a master storyteller narrating a Dungeons & Dragons adventure. Stay in the scene the prompt describes and narrate in the second person, addressing the party directly."

// styleDirectives shape the narrator persona per style. A style outside the
// map, including any unrecognized value, narrates in the neutral voice.
var styleDirectives = map[core.Style]string{
	core.StyleMysterious: "Favor atmosphere, shadow, and the unknown. Hint at what lurks beneath rather than revealing it.",
	core.StyleDramatic:   "Heighten tension and stakes. Give weight to every choice and consequence.",
	core.StyleAction:     "Keep the pace fast and physical. Short sentences, vivid movement, immediate danger.",
}

// Narrate produces free-form prose for a creative prompt in the given style.
// No retrieval is involved. A transient completion failure is retried once
// with backoff; persistent failure returns ErrNarrationFailed.
func (e *Engine) Narrate(ctx context.Context, prompt string, style core.Style) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", ErrNarrationFailed)
	}

	system := narratorBasePrompt
	if directive, ok := styleDirectives[style]; ok {
		system += " " + directive
	}

	var narration string
	err := retry.Do(
		func() error {
			response, err := e.completer.Complete(ctx, ai.CompletionRequest{
				System:      system,
				Prompt:      prompt,
				Temperature: narrationTemperature,
			})
			if err != nil {
				return err
			}
			narration = strings.TrimSpace(response)
			if narration == "" {
				return fmt.Errorf("model produced empty narration")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(narrationAttempts),
		retry.Delay(narrationDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNarrationFailed, err)
	}

	e.logger.Debug("narration generated", "style", style)
	return narration, nil
}
