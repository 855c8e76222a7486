package stage

import (
	"context"
	"strings"
	"testing"

	"github.com/storyloom/narrative/internal/story"
)

func TestRepairVirtueScenePromotes(t *testing.T) {
	scenes := []story.Scene{
		{Title: "A", CyclePhase: story.PhaseSetup, EmotionalBeat: story.BeatHope},
		{Title: "B", CyclePhase: story.PhaseConfrontation, EmotionalBeat: story.BeatTension},
		{Title: "C", CyclePhase: story.PhaseConsequence, EmotionalBeat: story.BeatRelief},
	}

	repaired, warnings := repairVirtueScene(scenes)

	var virtueCount, virtueIdx int
	for i, sc := range repaired {
		if sc.CyclePhase == story.PhaseVirtue {
			virtueCount++
			virtueIdx = i
		}
	}
	if virtueCount != 1 {
		t.Fatalf("got %d virtue scenes, want 1", virtueCount)
	}
	if virtueIdx != 1 {
		t.Errorf("promoted scene %d, want 1 (highest tension)", virtueIdx)
	}
	if repaired[virtueIdx].EmotionalBeat != story.BeatElevation {
		t.Errorf("virtue scene beat = %q, want elevation", repaired[virtueIdx].EmotionalBeat)
	}
	if repaired[virtueIdx].SuggestedLength != story.LengthLong {
		t.Errorf("virtue scene length = %q, want long", repaired[virtueIdx].SuggestedLength)
	}
	if len(warnings) == 0 {
		t.Error("promotion should produce warnings")
	}
}

func TestRepairVirtueSceneDemotesExtras(t *testing.T) {
	scenes := []story.Scene{
		{Title: "A", CyclePhase: story.PhaseVirtue, EmotionalBeat: story.BeatElevation, SuggestedLength: story.LengthLong},
		{Title: "B", CyclePhase: story.PhaseVirtue, EmotionalBeat: story.BeatJoy},
		{Title: "C", CyclePhase: story.PhaseVirtue, EmotionalBeat: story.BeatFear},
	}

	repaired, warnings := repairVirtueScene(scenes)

	if repaired[0].CyclePhase != story.PhaseVirtue {
		t.Error("first virtue scene should keep its phase")
	}
	for i := 1; i < len(repaired); i++ {
		if repaired[i].CyclePhase != story.PhaseConfrontation {
			t.Errorf("scene %d phase = %q, want confrontation", i, repaired[i].CyclePhase)
		}
	}
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2 demotions", len(warnings))
	}
}

func TestRepairVirtueSceneAlreadyValid(t *testing.T) {
	scenes := []story.Scene{
		{Title: "A", CyclePhase: story.PhaseSetup},
		{Title: "B", CyclePhase: story.PhaseVirtue, EmotionalBeat: story.BeatElevation, SuggestedLength: story.LengthLong},
	}

	_, warnings := repairVirtueScene(scenes)
	if len(warnings) != 0 {
		t.Errorf("valid breakdown should produce no warnings, got %v", warnings)
	}
}

func TestRepairVirtueSceneEmpty(t *testing.T) {
	repaired, warnings := repairVirtueScene(nil)
	if repaired != nil || warnings != nil {
		t.Error("empty input should pass through untouched")
	}
}

func TestScenesRunAssignsIDs(t *testing.T) {
	raw := strings.Join([]string{
		"# SCENE 1: One\n## Summary\nFirst.\n## Cycle Phase\nsetup",
		"# SCENE 2: Two\n## Summary\nSecond.\n## Cycle Phase\nvirtue\n## Emotional Beat\nelevation\n## Suggested Length\nlong",
	}, "\n\n")
	gen := &scriptGen{responses: []string{raw}}

	s := NewScenes(gen, DefaultConfig(), nil)
	scenes, _, err := s.Run(context.Background(),
		story.GenerationRequest{ScenesPerChapter: 2},
		story.Chapter{ID: "chapter_3", Title: "The Storm"},
		nil, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(scenes))
	}
	if scenes[0].ID != "chapter_3_scene_1" {
		t.Errorf("scene ID = %q, want chapter_3_scene_1", scenes[0].ID)
	}
	if scenes[0].ChapterID != "chapter_3" {
		t.Errorf("ChapterID = %q, want chapter_3", scenes[0].ChapterID)
	}
}
