package continuity

import (
	"errors"
	"testing"

	"github.com/storyloom/narrative/internal/story"
)

func TestLedgerPlantAndResolve(t *testing.T) {
	l := NewLedger()

	if err := l.Plant(story.Seed{ID: "cracked-lantern", Description: "a hairline crack", PlantedChapter: 0}); err != nil {
		t.Fatalf("Plant() error: %v", err)
	}
	if err := l.Resolve("cracked-lantern", 2); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	seed, ok := l.Get("cracked-lantern")
	if !ok {
		t.Fatal("Get() did not find planted seed")
	}
	if !seed.Resolved {
		t.Error("seed should be resolved")
	}
	if seed.ResolvedChapter != 2 {
		t.Errorf("ResolvedChapter = %d, want 2", seed.ResolvedChapter)
	}
}

func TestLedgerDuplicatePlant(t *testing.T) {
	l := NewLedger()
	if err := l.Plant(story.Seed{ID: "dup", PlantedChapter: 0}); err != nil {
		t.Fatalf("first Plant() error: %v", err)
	}
	err := l.Plant(story.Seed{ID: "dup", PlantedChapter: 1})
	if !errors.Is(err, ErrDuplicateSeed) {
		t.Fatalf("second Plant() error = %v, want ErrDuplicateSeed", err)
	}
}

func TestLedgerUnknownResolve(t *testing.T) {
	l := NewLedger()
	err := l.Resolve("never-planted", 3)
	if !errors.Is(err, ErrUnknownSeed) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownSeed", err)
	}
}

func TestLedgerForwardReference(t *testing.T) {
	l := NewLedger()
	if err := l.Plant(story.Seed{ID: "seed", PlantedChapter: 4}); err != nil {
		t.Fatalf("Plant() error: %v", err)
	}

	tests := []struct {
		name    string
		chapter int
		wantErr bool
	}{
		{"same chapter", 4, true},
		{"earlier chapter", 2, true},
		{"next chapter", 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Resolve("seed", tt.chapter)
			if tt.wantErr && !errors.Is(err, ErrForwardReference) {
				t.Errorf("Resolve(%d) error = %v, want ErrForwardReference", tt.chapter, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Resolve(%d) unexpected error: %v", tt.chapter, err)
			}
		})
	}
}

func TestLedgerOpenThreads(t *testing.T) {
	l := NewLedger()
	for i, id := range []string{"a", "b", "c"} {
		if err := l.Plant(story.Seed{ID: id, PlantedChapter: i}); err != nil {
			t.Fatalf("Plant(%s) error: %v", id, err)
		}
	}
	if err := l.Resolve("b", 5); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	open := l.OpenThreads()
	if len(open) != 2 {
		t.Fatalf("OpenThreads() = %d seeds, want 2", len(open))
	}
	if open[0].ID != "a" || open[1].ID != "c" {
		t.Errorf("OpenThreads() order = [%s, %s], want [a, c]", open[0].ID, open[1].ID)
	}

	if got := l.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if all := l.All(); len(all) != 3 || all[0].ID != "a" {
		t.Errorf("All() = %v, want planting order a, b, c", all)
	}
}

func TestLedgerResolvedByChapter(t *testing.T) {
	l := NewLedger()
	l.Plant(story.Seed{ID: "x", PlantedChapter: 0})
	l.Plant(story.Seed{ID: "y", PlantedChapter: 1})
	l.Resolve("x", 3)
	l.Resolve("y", 3)

	grouped := l.ResolvedByChapter()
	if len(grouped[3]) != 2 {
		t.Fatalf("grouped[3] = %d seeds, want 2", len(grouped[3]))
	}
	if grouped[3][0].ID != "x" {
		t.Errorf("grouped[3][0] = %s, want x (planting order)", grouped[3][0].ID)
	}
}
