package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/storyloom/narrative/internal/story"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteInsertAndIgnoreDuplicates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	records := []Record{{
		"id": "story-1", "title": "The Hollow Lighthouse", "premise": "p",
		"summary": "s", "genre": "g", "tone": "t", "themes": "courage",
	}}
	if _, err := store.Insert(ctx, "stories", records); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	// A resumed commit replays rows a half-finished batch already wrote.
	if _, err := store.Insert(ctx, "stories", records); err != nil {
		t.Fatalf("replayed Insert() error: %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM stories").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("stories rows = %d, want 1 (duplicates ignored)", count)
	}
}

func TestSQLiteRejectsUnknownTable(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Insert(context.Background(), "run_batches", []Record{{"run_id": "x"}}); err == nil {
		t.Fatal("Insert() must refuse tables outside the allowlist")
	}
}

func TestSQLiteBatchMarker(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	last, err := store.LastBatch(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastBatch() error: %v", err)
	}
	if last != 0 {
		t.Errorf("LastBatch() = %d for unknown run, want 0", last)
	}

	for _, batch := range []int{1, 2, 3} {
		if err := store.SetLastBatch(ctx, "run-1", batch); err != nil {
			t.Fatalf("SetLastBatch(%d) error: %v", batch, err)
		}
	}
	last, err = store.LastBatch(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastBatch() error: %v", err)
	}
	if last != 3 {
		t.Errorf("LastBatch() = %d, want 3", last)
	}
}

func TestSQLiteWriterCommit(t *testing.T) {
	store := openTestStore(t)
	w := NewWriter(store, nil)

	storyID, err := w.Commit(context.Background(), "run-1", sampleStory(), sampleSeeds())
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	var gotID string
	if err := store.db.QueryRow("SELECT id FROM stories").Scan(&gotID); err != nil {
		t.Fatal(err)
	}
	if gotID != storyID {
		t.Errorf("stored story id = %q, want %q", gotID, storyID)
	}

	var scenes int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM scenes").Scan(&scenes); err != nil {
		t.Fatal(err)
	}
	if scenes != 2 {
		t.Errorf("scenes rows = %d, want 2", scenes)
	}
}

func TestSQLiteStoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	w := NewWriter(store, nil)
	ctx := context.Background()

	storyID, err := w.Commit(ctx, "run-1", sampleStory(), sampleSeeds())
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	got, err := store.Story(ctx, storyID)
	if err != nil {
		t.Fatalf("Story() error: %v", err)
	}
	if got.Title != "The Hollow Lighthouse" {
		t.Errorf("title = %q, want %q", got.Title, "The Hollow Lighthouse")
	}
	if len(got.Characters) != 2 || len(got.Settings) != 1 || len(got.Parts) != 1 {
		t.Fatalf("tree shape = %d characters, %d settings, %d parts; want 2, 1, 1",
			len(got.Characters), len(got.Settings), len(got.Parts))
	}
	if !got.Characters[0].IsMain {
		t.Error("first character lost its is_main flag")
	}
	if note := got.Settings[0].Amplification[story.PhaseVirtue]; note != "the beam cuts through the storm" {
		t.Errorf("virtue amplification = %q, want the committed note", note)
	}

	arcs := got.Parts[0].Arcs
	if len(arcs) != 1 {
		t.Fatalf("arcs = %d, want 1", len(arcs))
	}
	if arcs[0].Virtue != story.VirtueCourage || arcs[0].InternalAdversity != "doubt" {
		t.Errorf("arc = %+v, want the committed courage arc", arcs[0])
	}
	if arcs[0].CharacterID != got.Characters[0].ID {
		t.Errorf("arc character_id = %q, want durable character id %q", arcs[0].CharacterID, got.Characters[0].ID)
	}

	chapters := got.Parts[0].Chapters
	if len(chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(chapters))
	}
	if chapters[0].ArcPosition != story.ArcBeginning {
		t.Errorf("arc position = %q, want %q", chapters[0].ArcPosition, story.ArcBeginning)
	}
	if chapters[0].PartID != got.Parts[0].ID {
		t.Errorf("chapter part_id = %q, want durable part id %q", chapters[0].PartID, got.Parts[0].ID)
	}

	scenes := chapters[0].Scenes
	if len(scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(scenes))
	}
	if scenes[0].Title != "Landing" || scenes[1].Title != "Climb" {
		t.Errorf("scene order = [%q, %q], want [Landing, Climb]", scenes[0].Title, scenes[1].Title)
	}
}

func TestSQLiteStoryNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Story(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
