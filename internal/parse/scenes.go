package parse

import (
	"github.com/storyloom/narrative/internal/story"
)

// Extraction table for the scene-list schema.
var sceneFields = struct {
	summary, cyclePhase, emotionalBeat, characterFocus fieldSpec
	setting, sensoryAnchors, dialogueBalance, length   fieldSpec
}{
	summary:         fieldSpec{key: "summary"},
	cyclePhase:      fieldSpec{key: "cycle phase", aliases: []string{"phase"}, def: "setup"},
	emotionalBeat:   fieldSpec{key: "emotional beat", aliases: []string{"beat"}, def: "tension"},
	characterFocus:  fieldSpec{key: "character focus", aliases: []string{"characters"}},
	setting:         fieldSpec{key: "setting", aliases: []string{"location"}},
	sensoryAnchors:  fieldSpec{key: "sensory anchors", aliases: []string{"sensory details"}},
	dialogueBalance: fieldSpec{key: "dialogue balance", aliases: []string{"balance"}, def: "balanced"},
	length:          fieldSpec{key: "suggested length", aliases: []string{"length"}, def: "medium"},
}

// Scenes parses a scene-list response for one chapter. Character and
// setting names are resolved against their reference tables; order indices
// follow block order from 0.
func Scenes(raw string, characters, settings RefTable) ([]story.Scene, []Warning, error) {
	blocks, err := SplitBlocks(raw)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	scenes := make([]story.Scene, 0, len(blocks))
	for i, b := range blocks {
		sc := story.Scene{
			Title:   b.Title,
			Summary: sceneFields.summary.get(b, &warnings),
			Order:   i,
		}

		phase, ok := story.ParseCyclePhase(firstLine(sceneFields.cyclePhase.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "cycle phase", Note: "unrecognized, defaulted to setup"})
		}
		sc.CyclePhase = phase

		beat, ok := story.ParseEmotionalBeat(firstLine(sceneFields.emotionalBeat.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "emotional beat", Note: "unrecognized, defaulted to tension"})
		}
		sc.EmotionalBeat = beat

		balance, ok := story.ParseDialogueBalance(firstLine(sceneFields.dialogueBalance.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "dialogue balance", Note: "unrecognized, defaulted to balanced"})
		}
		sc.DialogueBalance = balance

		length, ok := story.ParseSuggestedLength(firstLine(sceneFields.length.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "suggested length", Note: "unrecognized, defaulted to medium"})
		}
		sc.SuggestedLength = length

		if body := sceneFields.characterFocus.getOptional(b); body != "" {
			sc.FocusCharacters = resolveNames(b, "character focus", splitList(body), characters, &warnings)
		}

		if name := firstLine(sceneFields.setting.getOptional(b)); name != "" {
			if id, found := settings.Lookup(name); found {
				sc.SettingID = id
			} else {
				warnings = append(warnings, Warning{Block: b.Index, Field: "setting", Note: "unknown name " + name + " dropped"})
			}
		}

		if body := sceneFields.sensoryAnchors.getOptional(b); body != "" {
			sc.SensoryAnchors = splitList(body)
		}

		scenes = append(scenes, sc)
	}
	return scenes, warnings, nil
}
