package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// Scenes produces one chapter's scene breakdown and enforces the virtue
// invariant: exactly one scene per chapter carries cycle phase virtue, and
// that scene lands emotional beat elevation at suggested length long.
type Scenes struct {
	Base
}

// NewScenes builds the scene-breakdown stage.
func NewScenes(gen agent.TextGenerator, config Config, logger *slog.Logger) *Scenes {
	return &Scenes{Base: NewBase("scenes", gen, config, logger)}
}

// Run executes the stage for a single chapter.
func (s *Scenes) Run(ctx context.Context, req story.GenerationRequest, chapter story.Chapter, characters []story.Character, settings []story.Setting) ([]story.Scene, []parse.Warning, error) {
	charRefs := characterRefs(characters)
	setRefs := settingRefs(settings)
	parseFn := func(raw string) ([]story.Scene, []parse.Warning, error) {
		return parse.Scenes(raw, charRefs, setRefs)
	}

	scenes, warnings, err := generateParsed(ctx, s.Base, systemPrompt, scenesPrompt(req, chapter, characters, settings), parseFn)
	if err != nil {
		return nil, nil, err
	}

	for i := range scenes {
		scenes[i].ChapterID = chapter.ID
		scenes[i].ID = fmt.Sprintf("%s_scene_%d", chapter.ID, i+1)
	}

	scenes, repairs := repairVirtueScene(scenes)
	for _, r := range repairs {
		s.logger.Warn("virtue invariant repaired", "chapter", chapter.Title, "note", r.Note)
	}
	warnings = append(warnings, repairs...)

	return scenes, warnings, nil
}

// beatTension ranks emotional beats by how naturally they escalate into a
// virtue climax, used to pick the promotion candidate when the model marked
// no virtue scene.
var beatTension = map[story.EmotionalBeat]int{
	story.BeatTension:   5,
	story.BeatFear:      4,
	story.BeatDespair:   3,
	story.BeatHope:      2,
	story.BeatCatharsis: 1,
}

// repairVirtueScene makes the virtue invariant hold without failing the
// run. Zero virtue scenes: the highest-tension scene is promoted. Multiple:
// the first keeps the phase, the rest demote to confrontation. The virtue
// scene's beat and length are then forced to elevation/long.
func repairVirtueScene(scenes []story.Scene) ([]story.Scene, []parse.Warning) {
	if len(scenes) == 0 {
		return scenes, nil
	}

	var warnings []parse.Warning
	virtueIdx := -1
	for i := range scenes {
		if scenes[i].CyclePhase != story.PhaseVirtue {
			continue
		}
		if virtueIdx == -1 {
			virtueIdx = i
			continue
		}
		scenes[i].CyclePhase = story.PhaseConfrontation
		warnings = append(warnings, parse.Warning{Block: i + 1, Field: "cycle phase", Note: "extra virtue scene demoted to confrontation"})
	}

	if virtueIdx == -1 {
		virtueIdx = 0
		best := -1
		for i := range scenes {
			if rank := beatTension[scenes[i].EmotionalBeat]; rank > best {
				best = rank
				virtueIdx = i
			}
		}
		scenes[virtueIdx].CyclePhase = story.PhaseVirtue
		warnings = append(warnings, parse.Warning{Block: virtueIdx + 1, Field: "cycle phase", Note: "no virtue scene, promoted highest-tension scene"})
	}

	if scenes[virtueIdx].EmotionalBeat != story.BeatElevation {
		warnings = append(warnings, parse.Warning{Block: virtueIdx + 1, Field: "emotional beat", Note: "virtue scene beat forced to elevation"})
		scenes[virtueIdx].EmotionalBeat = story.BeatElevation
	}
	if scenes[virtueIdx].SuggestedLength != story.LengthLong {
		warnings = append(warnings, parse.Warning{Block: virtueIdx + 1, Field: "suggested length", Note: "virtue scene length forced to long"})
		scenes[virtueIdx].SuggestedLength = story.LengthLong
	}

	return scenes, warnings
}
