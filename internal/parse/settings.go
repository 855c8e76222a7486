package parse

import (
	"strings"

	"github.com/storyloom/narrative/internal/story"
)

// Extraction table for the setting-palette schema.
var settingFields = struct {
	description, sights, sounds, smells, textures, tastes fieldSpec
	amplification, mood                                   fieldSpec
}{
	description:   fieldSpec{key: "description"},
	sights:        fieldSpec{key: "sights", aliases: []string{"sight"}},
	sounds:        fieldSpec{key: "sounds", aliases: []string{"sound"}},
	smells:        fieldSpec{key: "smells", aliases: []string{"smell"}},
	textures:      fieldSpec{key: "textures", aliases: []string{"touch"}},
	tastes:        fieldSpec{key: "tastes", aliases: []string{"taste"}},
	amplification: fieldSpec{key: "cycle amplification", aliases: []string{"amplification"}},
	mood:          fieldSpec{key: "mood", aliases: []string{"resonance"}},
}

// Settings parses a setting-palette response. The cycle-amplification field
// holds "phase: note" lines keyed by cycle phase; unrecognized phases are
// dropped with a warning.
func Settings(raw string) ([]story.Setting, []Warning, error) {
	blocks, err := SplitBlocks(raw)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	settings := make([]story.Setting, 0, len(blocks))
	for _, b := range blocks {
		s := story.Setting{
			Name:        b.Title,
			Description: settingFields.description.getOptional(b),
		}
		if body := settingFields.sights.getOptional(b); body != "" {
			s.Sights = splitList(body)
		}
		if body := settingFields.sounds.getOptional(b); body != "" {
			s.Sounds = splitList(body)
		}
		if body := settingFields.smells.getOptional(b); body != "" {
			s.Smells = splitList(body)
		}
		if body := settingFields.textures.getOptional(b); body != "" {
			s.Textures = splitList(body)
		}
		if body := settingFields.tastes.getOptional(b); body != "" {
			s.Tastes = splitList(body)
		}
		if body := settingFields.mood.getOptional(b); body != "" {
			s.Mood = splitList(body)
		}
		if body := settingFields.amplification.getOptional(b); body != "" {
			s.Amplification = parseAmplification(b, body, &warnings)
		}
		settings = append(settings, s)
	}
	return settings, warnings, nil
}

func parseAmplification(b Block, body string, warnings *[]Warning) map[story.CyclePhase]string {
	amp := make(map[story.CyclePhase]string)
	for _, line := range splitListLines(body) {
		phaseText, note, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		phase, recognized := story.ParseCyclePhase(phaseText)
		if !recognized {
			*warnings = append(*warnings, Warning{Block: b.Index, Field: "cycle amplification", Note: "unknown phase " + strings.TrimSpace(phaseText) + " dropped"})
			continue
		}
		amp[phase] = strings.TrimSpace(note)
	}
	if len(amp) == 0 {
		return nil
	}
	return amp
}
