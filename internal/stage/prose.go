package stage

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/story"
)

// errEmptyProse marks a blank prose response; it gets the same single
// regeneration a zero-record outline does.
var errEmptyProse = errors.New("empty prose response")

// Prose fills one scene's content. Unlike the outline stages the raw
// response is the product; the only validation is non-emptiness.
type Prose struct {
	Base
}

// NewProse builds the scene-content stage.
func NewProse(gen agent.TextGenerator, config Config, logger *slog.Logger) *Prose {
	return &Prose{Base: NewBase("scene_content", gen, config, logger)}
}

// Run executes the stage for a single scene and returns its prose.
func (p *Prose) Run(ctx context.Context, sc story.Scene, chapter story.Chapter, setting *story.Setting) (string, error) {
	prompt := prosePrompt(sc, chapter, setting)

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		raw, err := p.generate(ctx, proseSystemPrompt, prompt)
		if err != nil {
			return "", &Error{Stage: p.name, Attempt: attempt, Cause: err}
		}
		if content := strings.TrimSpace(raw); content != "" {
			return content, nil
		}
		lastErr = errEmptyProse
		p.logger.Warn("empty prose response, regenerating once", "scene", sc.ID, "attempt", attempt)
	}

	return "", &Error{Stage: p.name, Attempt: 2, Cause: lastErr}
}
