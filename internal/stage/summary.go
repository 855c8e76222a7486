package stage

import (
	"context"
	"log/slog"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// Summary produces the story's title, one-paragraph summary and themes from
// the user's premise. Everything downstream keys off this record.
type Summary struct {
	Base
}

// NewSummary builds the story-summary stage.
func NewSummary(gen agent.TextGenerator, config Config, logger *slog.Logger) *Summary {
	return &Summary{Base: NewBase("story_summary", gen, config, logger)}
}

// Run executes the stage.
func (s *Summary) Run(ctx context.Context, req story.GenerationRequest) (parse.StorySummary, []parse.Warning, error) {
	return generateParsed(ctx, s.Base, systemPrompt, summaryPrompt(req), parse.Summary)
}
