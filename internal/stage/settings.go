package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// DefaultSettingCount is how many settings a run generates. The request
// carries no hint for this; three gives scenes enough variety without
// diluting the sensory palettes.
const DefaultSettingCount = 3

// Settings produces the run's setting palettes.
type Settings struct {
	Base
	count int
}

// NewSettings builds the settings stage.
func NewSettings(gen agent.TextGenerator, config Config, logger *slog.Logger) *Settings {
	return &Settings{Base: NewBase("settings", gen, config, logger), count: DefaultSettingCount}
}

// Run executes the stage.
func (s *Settings) Run(ctx context.Context, summary parse.StorySummary, characters []story.Character) ([]story.Setting, []parse.Warning, error) {
	settings, warnings, err := generateParsed(ctx, s.Base, systemPrompt, settingsPrompt(summary, characters, s.count), parse.Settings)
	if err != nil {
		return nil, nil, err
	}
	for i := range settings {
		settings[i].ID = fmt.Sprintf("setting_%d", i+1)
	}
	return settings, warnings, nil
}
