package persist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/storyloom/narrative/internal/story"
)

func sampleStory() *story.Story {
	return &story.Story{
		Title:   "The Hollow Lighthouse",
		Premise: "a keeper and a storm",
		Summary: "A keeper guards a light.",
		Characters: []story.Character{
			{ID: "char_1", Name: "Mara Voss", IsMain: true},
			{ID: "char_2", Name: "Tobin Hale"},
		},
		Settings: []story.Setting{
			{
				ID:   "setting_1",
				Name: "The Lighthouse",
				Amplification: map[story.CyclePhase]string{
					story.PhaseSetup:  "fog muffles the shoreline",
					story.PhaseVirtue: "the beam cuts through the storm",
				},
			},
		},
		Parts: []story.Part{
			{
				ID:    "part_1",
				Title: "Act One",
				Order: 0,
				Arcs: []story.CharacterArc{
					{
						CharacterID:       "char_1",
						InternalAdversity: "doubt",
						ExternalAdversity: "the storm",
						Virtue:            story.VirtueCourage,
						EstimatedChapters: 1,
					},
				},
				Chapters: []story.Chapter{
					{
						ID:          "chapter_1",
						PartID:      "part_1",
						Title:       "The Crack",
						CharacterID: "char_1",
						ArcPosition: story.ArcBeginning,
						Order:       0,
						Scenes: []story.Scene{
							{ID: "chapter_1_scene_1", ChapterID: "chapter_1", Title: "Landing", SettingID: "setting_1", Order: 0},
							{ID: "chapter_1_scene_2", ChapterID: "chapter_1", Title: "Climb", Order: 1},
						},
					},
				},
			},
		},
	}
}

func sampleSeeds() []story.Seed {
	return []story.Seed{
		{ID: "cracked-lantern", Description: "a hairline crack", PlantedChapter: 0},
	}
}

func TestWriterCommit(t *testing.T) {
	store := NewMemStore()
	w := NewWriter(store, nil)

	storyID, err := w.Commit(context.Background(), "run-1", sampleStory(), sampleSeeds())
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if storyID == "" {
		t.Fatal("Commit() returned empty story id")
	}

	counts := map[string]int{
		"stories": 1, "characters": 2, "settings": 1,
		"parts": 1, "part_arcs": 1, "chapters": 1, "scenes": 2, "seeds": 1,
	}
	for table, want := range counts {
		if got := len(store.Rows(table)); got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}

	// Children reference durable parent ids, not transient ones.
	chapter := store.Rows("chapters")[0]
	if chapter["part_id"] == "part_1" {
		t.Error("chapter part_id was not rewritten to a durable id")
	}
	if chapter["part_id"] != store.Rows("parts")[0]["id"] {
		t.Error("chapter part_id does not match the durable part id")
	}

	arc := store.Rows("part_arcs")[0]
	if arc["part_id"] != store.Rows("parts")[0]["id"] {
		t.Error("arc part_id does not match the durable part id")
	}
	if arc["character_id"] != store.Rows("characters")[0]["id"] {
		t.Error("arc character_id does not match the durable character id")
	}

	setting := store.Rows("settings")[0]
	if amp, _ := setting["amplification"].(string); !strings.Contains(amp, "setup: fog muffles the shoreline") {
		t.Errorf("amplification = %q, want it to carry the setup note", amp)
	}
}

func TestWriterDeterministicIDs(t *testing.T) {
	a, _ := NewWriter(NewMemStore(), nil).Commit(context.Background(), "run-1", sampleStory(), nil)
	b, _ := NewWriter(NewMemStore(), nil).Commit(context.Background(), "run-1", sampleStory(), nil)
	c, _ := NewWriter(NewMemStore(), nil).Commit(context.Background(), "run-2", sampleStory(), nil)

	if a != b {
		t.Errorf("same run produced different story ids: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different runs must produce different story ids")
	}
}

func TestWriterResumeSkipsCommittedBatches(t *testing.T) {
	store := NewMemStore()
	store.FailAfter = 2 // story and characters succeed, settings fails
	w := NewWriter(store, nil)

	_, err := w.Commit(context.Background(), "run-1", sampleStory(), sampleSeeds())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("first Commit() error = %v, want ErrStoreUnavailable", err)
	}
	if got := len(store.Rows("characters")); got != 2 {
		t.Fatalf("characters rows after failure = %d, want 2 (earlier batches retained)", got)
	}

	store.FailAfter = 0
	storyID, err := w.Commit(context.Background(), "run-1", sampleStory(), sampleSeeds())
	if err != nil {
		t.Fatalf("resumed Commit() error: %v", err)
	}
	if storyID == "" {
		t.Fatal("resumed Commit() returned empty story id")
	}

	// No duplicates from the resume: committed batches were skipped.
	if got := len(store.Rows("stories")); got != 1 {
		t.Errorf("stories rows = %d, want 1", got)
	}
	if got := len(store.Rows("characters")); got != 2 {
		t.Errorf("characters rows = %d, want 2", got)
	}
	if got := len(store.Rows("scenes")); got != 2 {
		t.Errorf("scenes rows = %d, want 2", got)
	}
}

func TestWriterErrorNamesBatch(t *testing.T) {
	store := NewMemStore()
	store.FailAfter = 1
	w := NewWriter(store, nil)

	_, err := w.Commit(context.Background(), "run-1", sampleStory(), nil)
	if err == nil {
		t.Fatal("Commit() should fail")
	}
	if got := err.Error(); !strings.Contains(got, "characters") {
		t.Errorf("error %q should name the failing batch", got)
	}
}
