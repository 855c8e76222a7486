package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// Characters produces the run's character roster and assigns the run-local
// ids every later stage references.
type Characters struct {
	Base
}

// NewCharacters builds the characters stage.
func NewCharacters(gen agent.TextGenerator, config Config, logger *slog.Logger) *Characters {
	return &Characters{Base: NewBase("characters", gen, config, logger)}
}

// Run executes the stage. When the model marks no character as main, the
// first record is promoted so the parts stage always has a primary arc
// owner.
func (c *Characters) Run(ctx context.Context, req story.GenerationRequest, summary parse.StorySummary) ([]story.Character, []parse.Warning, error) {
	characters, warnings, err := generateParsed(ctx, c.Base, systemPrompt, charactersPrompt(req, summary), parse.Characters)
	if err != nil {
		return nil, nil, err
	}

	hasMain := false
	for i := range characters {
		characters[i].ID = fmt.Sprintf("char_%d", i+1)
		hasMain = hasMain || characters[i].IsMain
	}
	if !hasMain && len(characters) > 0 {
		characters[0].IsMain = true
		c.logger.Warn("no main character marked, promoting first", "name", characters[0].Name)
		warnings = append(warnings, parse.Warning{Block: 1, Field: "role", Note: "no main character, promoted first record"})
	}

	return characters, warnings, nil
}
