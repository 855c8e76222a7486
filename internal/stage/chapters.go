package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// Chapters produces one part's chapter outline. Chapter order indices are
// global across parts so seed bookkeeping and causal links stay totally
// ordered; startOrder is the index of this part's first chapter.
type Chapters struct {
	Base
}

// NewChapters builds the chapters stage.
func NewChapters(gen agent.TextGenerator, config Config, logger *slog.Logger) *Chapters {
	return &Chapters{Base: NewBase("chapters", gen, config, logger)}
}

// Run executes the stage for a single part. trailing holds the last
// chapters of the previous part for causal-link context; empty for the
// first part.
//
// Structural guarantees on the returned outline:
//   - exactly req.ChaptersPerPart records (surplus truncated, shortfall
//     kept, both warned)
//   - arc positions non-decreasing in order-index order (violations raised
//     to the running maximum)
//   - every chapter has a primary character (defaulted from the part's
//     first arc when the model dropped it)
func (c *Chapters) Run(ctx context.Context, req story.GenerationRequest, part story.Part, characters []story.Character, trailing []story.Chapter, startOrder int) ([]story.Chapter, []parse.Warning, error) {
	refs := characterRefs(characters)
	parseFn := func(raw string) ([]story.Chapter, []parse.Warning, error) {
		return parse.Chapters(raw, refs, startOrder)
	}

	chapters, warnings, err := generateParsed(ctx, c.Base, systemPrompt, chaptersPrompt(req, part, characters, trailing), parseFn)
	if err != nil {
		return nil, nil, err
	}

	if len(chapters) > req.ChaptersPerPart {
		c.logger.Warn("model returned surplus chapters, truncating",
			"part", part.Title,
			"want", req.ChaptersPerPart,
			"got", len(chapters))
		warnings = append(warnings, parse.Warning{Field: "chapters", Note: fmt.Sprintf("surplus records truncated to %d", req.ChaptersPerPart)})
		chapters = chapters[:req.ChaptersPerPart]
	} else if len(chapters) < req.ChaptersPerPart {
		c.logger.Warn("model returned fewer chapters than requested",
			"part", part.Title,
			"want", req.ChaptersPerPart,
			"got", len(chapters))
		warnings = append(warnings, parse.Warning{Field: "chapters", Note: fmt.Sprintf("only %d of %d chapters produced", len(chapters), req.ChaptersPerPart)})
	}

	fallbackCharacter := ""
	if len(part.Arcs) > 0 {
		fallbackCharacter = part.Arcs[0].CharacterID
	}

	maxRank := -1
	maxPos := story.ArcBeginning
	for i := range chapters {
		chapters[i].PartID = part.ID
		chapters[i].ID = fmt.Sprintf("chapter_%d", chapters[i].Order+1)

		if chapters[i].CharacterID == "" && fallbackCharacter != "" {
			chapters[i].CharacterID = fallbackCharacter
			warnings = append(warnings, parse.Warning{Block: i + 1, Field: "primary character", Note: "missing, defaulted to part's leading arc"})
		}

		// Arc positions must be non-decreasing within the part. A
		// regression is mechanically fixable: raise it to the running
		// maximum instead of failing the run.
		if rank := chapters[i].ArcPosition.Rank(); rank < maxRank {
			c.logger.Warn("arc position regressed, raising",
				"chapter", chapters[i].Title,
				"position", chapters[i].ArcPosition,
				"raised_to", maxPos)
			warnings = append(warnings, parse.Warning{Block: i + 1, Field: "arc position", Note: fmt.Sprintf("%s regressed, raised to %s", chapters[i].ArcPosition, maxPos)})
			chapters[i].ArcPosition = maxPos
		} else {
			maxRank = rank
			maxPos = chapters[i].ArcPosition
		}
	}

	return chapters, warnings, nil
}
