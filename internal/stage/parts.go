package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// Parts produces the act structure: ordered parts, each carrying the macro
// character arcs its chapters will realize.
type Parts struct {
	Base
}

// NewParts builds the parts stage.
func NewParts(gen agent.TextGenerator, config Config, logger *slog.Logger) *Parts {
	return &Parts{Base: NewBase("parts", gen, config, logger)}
}

// Run executes the stage. A part whose arcs all failed name resolution
// falls back to a minimal arc for the main character so chapter generation
// always has an arc to realize.
func (p *Parts) Run(ctx context.Context, req story.GenerationRequest, summary parse.StorySummary, characters []story.Character) ([]story.Part, []parse.Warning, error) {
	refs := characterRefs(characters)
	parseFn := func(raw string) ([]story.Part, []parse.Warning, error) {
		return parse.Parts(raw, refs)
	}

	parts, warnings, err := generateParsed(ctx, p.Base, systemPrompt, partsPrompt(req, summary, characters), parseFn)
	if err != nil {
		return nil, nil, err
	}

	mainID := mainCharacterID(characters)
	for i := range parts {
		parts[i].ID = fmt.Sprintf("part_%d", i+1)
		if len(parts[i].Arcs) == 0 && mainID != "" {
			p.logger.Warn("part has no usable arcs, falling back to main character", "part", parts[i].Title)
			warnings = append(warnings, parse.Warning{Block: i + 1, Field: "arcs", Note: "no usable arcs, defaulted to main character"})
			parts[i].Arcs = []story.CharacterArc{{
				CharacterID:       mainID,
				Virtue:            story.VirtueCourage,
				EstimatedChapters: req.ChaptersPerPart,
			}}
		}
	}
	return parts, warnings, nil
}

func characterRefs(characters []story.Character) parse.RefTable {
	pairs := make(map[string]string, len(characters))
	for _, c := range characters {
		pairs[c.Name] = c.ID
	}
	return parse.NewRefTable(pairs)
}

func settingRefs(settings []story.Setting) parse.RefTable {
	pairs := make(map[string]string, len(settings))
	for _, s := range settings {
		pairs[s.Name] = s.ID
	}
	return parse.NewRefTable(pairs)
}

func mainCharacterID(characters []story.Character) string {
	for _, c := range characters {
		if c.IsMain {
			return c.ID
		}
	}
	if len(characters) > 0 {
		return characters[0].ID
	}
	return ""
}
