package parse

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantBlocks int
		wantErr    error
	}{
		{
			name:       "single block",
			raw:        "# SCENE 1: Opening\n## Summary\nA door creaks.\n",
			wantBlocks: 1,
		},
		{
			name:       "preamble discarded",
			raw:        "Here are your scenes:\n\n# SCENE 1: Opening\n## Summary\nA door.\n\n# SCENE 2: Chase\n## Summary\nA run.\n",
			wantBlocks: 2,
		},
		{
			name:       "period separator accepted",
			raw:        "# CHAPTER 3. The Storm\n## Summary\nWind rises.\n",
			wantBlocks: 1,
		},
		{
			name:    "no headers",
			raw:     "I'm sorry, I can't help with that request.",
			wantErr: ErrNoRecords,
		},
		{
			name:    "empty input",
			raw:     "",
			wantErr: ErrNoRecords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := SplitBlocks(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SplitBlocks() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitBlocks() unexpected error: %v", err)
			}
			if len(blocks) != tt.wantBlocks {
				t.Fatalf("SplitBlocks() got %d blocks, want %d", len(blocks), tt.wantBlocks)
			}
		})
	}
}

func TestSplitBlocksHeaderParts(t *testing.T) {
	blocks, err := SplitBlocks("# Chapter 7: The Long Night\n## Summary\nDarkness holds.\n")
	if err != nil {
		t.Fatalf("SplitBlocks() error: %v", err)
	}
	b := blocks[0]
	if b.Kind != "CHAPTER" {
		t.Errorf("Kind = %q, want CHAPTER", b.Kind)
	}
	if b.Index != 7 {
		t.Errorf("Index = %d, want 7", b.Index)
	}
	if b.Title != "The Long Night" {
		t.Errorf("Title = %q, want The Long Night", b.Title)
	}
	if got := b.Fields["summary"]; got != "Darkness holds." {
		t.Errorf("Fields[summary] = %q", got)
	}
}

func TestFieldNameNormalization(t *testing.T) {
	fields := splitFields("##   Cycle   Phase  \nvirtue\n## summary\ntext\n")
	if got := fields["cycle phase"]; got != "virtue" {
		t.Errorf("normalized field lookup failed, got %q", got)
	}
}

func TestScenesDefaults(t *testing.T) {
	raw := "# SCENE 1: Quiet Before\n## Summary\nThe crew waits.\n"
	scenes, warnings, err := Scenes(raw, RefTable{}, RefTable{})
	if err != nil {
		t.Fatalf("Scenes() error: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes, want 1", len(scenes))
	}

	sc := scenes[0]
	if got, want := string(sc.CyclePhase), "setup"; got != want {
		t.Errorf("CyclePhase = %q, want %q", got, want)
	}
	if got, want := string(sc.EmotionalBeat), "tension"; got != want {
		t.Errorf("EmotionalBeat = %q, want %q", got, want)
	}
	if got, want := string(sc.DialogueBalance), "balanced"; got != want {
		t.Errorf("DialogueBalance = %q, want %q", got, want)
	}
	if got, want := string(sc.SuggestedLength), "medium"; got != want {
		t.Errorf("SuggestedLength = %q, want %q", got, want)
	}

	for _, field := range []string{"cycle phase", "emotional beat", "dialogue balance", "suggested length"} {
		if !hasWarning(warnings, field) {
			t.Errorf("missing warning for defaulted field %q", field)
		}
	}
}

func TestScenesNameResolution(t *testing.T) {
	characters := NewRefTable(map[string]string{"Mara Voss": "char_1", "Tobin Hale": "char_2"})
	settings := NewRefTable(map[string]string{"The Lighthouse": "setting_1"})

	raw := strings.Join([]string{
		"# SCENE 1: Landing",
		"## Summary",
		"Boots on wet stone.",
		"## Cycle Phase",
		"confrontation",
		"## Emotional Beat",
		"fear",
		"## Character Focus",
		"- mara voss",
		"- The Stranger",
		"## Setting",
		"the lighthouse",
		"## Dialogue Balance",
		"dialogue-heavy",
		"## Suggested Length",
		"short",
		"",
	}, "\n")

	scenes, warnings, err := Scenes(raw, characters, settings)
	if err != nil {
		t.Fatalf("Scenes() error: %v", err)
	}
	sc := scenes[0]

	if len(sc.FocusCharacters) != 1 || sc.FocusCharacters[0] != "char_1" {
		t.Errorf("FocusCharacters = %v, want [char_1]", sc.FocusCharacters)
	}
	if sc.SettingID != "setting_1" {
		t.Errorf("SettingID = %q, want setting_1", sc.SettingID)
	}
	if !hasWarningNote(warnings, "The Stranger") {
		t.Errorf("expected a dropped-name warning for The Stranger, got %v", warnings)
	}
	if got, want := string(sc.CyclePhase), "confrontation"; got != want {
		t.Errorf("CyclePhase = %q, want %q", got, want)
	}
	if got, want := string(sc.EmotionalBeat), "fear"; got != want {
		t.Errorf("EmotionalBeat = %q, want %q", got, want)
	}
}

func TestScenesThreeBlockOrder(t *testing.T) {
	raw := strings.Join([]string{
		"# SCENE 1: One\n## Summary\nFirst.\n## Cycle Phase\nsetup",
		"# SCENE 2: Two\n## Summary\nSecond.\n## Cycle Phase\nvirtue",
		"# SCENE 3: Three\n## Summary\nThird.\n## Cycle Phase\nconsequence",
	}, "\n\n")

	scenes, _, err := Scenes(raw, RefTable{}, RefTable{})
	if err != nil {
		t.Fatalf("Scenes() error: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("got %d scenes, want 3", len(scenes))
	}
	for i, sc := range scenes {
		if sc.Order != i {
			t.Errorf("scene %d Order = %d, want %d", i, sc.Order, i)
		}
	}
	if string(scenes[1].CyclePhase) != "virtue" {
		t.Errorf("scene 2 phase = %q, want virtue", scenes[1].CyclePhase)
	}
}

func TestChaptersSeeds(t *testing.T) {
	characters := NewRefTable(map[string]string{"Mara Voss": "char_1"})
	raw := strings.Join([]string{
		"# CHAPTER 1: The Crack",
		"## Summary",
		"The lantern cracks.",
		"## Primary Character",
		"Mara Voss",
		"## Arc Position",
		"beginning",
		"## Adversity Type",
		"environmental",
		"## Virtue",
		"wisdom",
		"## Seeds Planted",
		"- cracked-lantern: a hairline crack in the glass -> the light fails in the storm",
		"- strange letter",
		"## Seeds Resolved",
		"- old-debt",
		"",
	}, "\n")

	chapters, _, err := Chapters(raw, characters, 3)
	if err != nil {
		t.Fatalf("Chapters() error: %v", err)
	}
	ch := chapters[0]

	if ch.Order != 3 {
		t.Errorf("Order = %d, want 3 (startOrder offset)", ch.Order)
	}
	if ch.CharacterID != "char_1" {
		t.Errorf("CharacterID = %q, want char_1", ch.CharacterID)
	}
	if len(ch.SeedsPlanted) != 2 {
		t.Fatalf("got %d planted seeds, want 2", len(ch.SeedsPlanted))
	}

	first := ch.SeedsPlanted[0]
	if first.ID != "cracked-lantern" {
		t.Errorf("seed ID = %q, want cracked-lantern", first.ID)
	}
	if first.Description != "a hairline crack in the glass" {
		t.Errorf("seed Description = %q", first.Description)
	}
	if first.ExpectedPayoff != "the light fails in the storm" {
		t.Errorf("seed ExpectedPayoff = %q", first.ExpectedPayoff)
	}
	if first.PlantedChapter != 3 {
		t.Errorf("seed PlantedChapter = %d, want 3", first.PlantedChapter)
	}

	second := ch.SeedsPlanted[1]
	if second.ID != "strange-letter" {
		t.Errorf("seed ID = %q, want strange-letter", second.ID)
	}

	if len(ch.SeedsResolved) != 1 || ch.SeedsResolved[0] != "old-debt" {
		t.Errorf("SeedsResolved = %v, want [old-debt]", ch.SeedsResolved)
	}
	if got, want := string(ch.AdversityType), "environmental"; got != want {
		t.Errorf("AdversityType = %q, want %q", got, want)
	}
	if got, want := string(ch.Virtue), "wisdom"; got != want {
		t.Errorf("Virtue = %q, want %q", got, want)
	}
}

func TestChaptersEnumDefaults(t *testing.T) {
	raw := "# CHAPTER 1: Bare\n## Summary\nNothing else.\n"
	chapters, warnings, err := Chapters(raw, RefTable{}, 0)
	if err != nil {
		t.Fatalf("Chapters() error: %v", err)
	}
	ch := chapters[0]
	if got, want := string(ch.ArcPosition), "middle"; got != want {
		t.Errorf("ArcPosition = %q, want %q", got, want)
	}
	if got, want := string(ch.AdversityType), "external"; got != want {
		t.Errorf("AdversityType = %q, want %q", got, want)
	}
	if got, want := string(ch.Virtue), "courage"; got != want {
		t.Errorf("Virtue = %q, want %q", got, want)
	}
	if len(warnings) == 0 {
		t.Error("expected warnings for defaulted fields")
	}
}

func TestSummary(t *testing.T) {
	raw := "# STORY 1: The Hollow Lighthouse\n## Summary\nA keeper holds the line.\n## Themes\ncourage, duty\n\n# STORY 2: Duplicate\n## Summary\nRepeat.\n"
	s, warnings, err := Summary(raw)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if s.Title != "The Hollow Lighthouse" {
		t.Errorf("Title = %q", s.Title)
	}
	if len(s.Themes) != 2 {
		t.Errorf("Themes = %v, want 2 items", s.Themes)
	}
	if !hasWarningNote(warnings, "extra summary blocks ignored") {
		t.Errorf("expected extra-blocks warning, got %v", warnings)
	}
}

func TestParts(t *testing.T) {
	characters := NewRefTable(map[string]string{"Mara Voss": "char_1"})
	raw := strings.Join([]string{
		"# PART 1: The Arrival",
		"## Summary",
		"Mara takes the post.",
		"## Arcs",
		"- Mara Voss | doubts her resolve | the storm season | courage | earns trust | the light falters | 3",
		"- Nobody Known | x | y | z",
		"",
	}, "\n")

	parts, warnings, err := Parts(raw, characters)
	if err != nil {
		t.Fatalf("Parts() error: %v", err)
	}
	p := parts[0]
	if len(p.Arcs) != 1 {
		t.Fatalf("got %d arcs, want 1 (unknown name dropped)", len(p.Arcs))
	}

	arc := p.Arcs[0]
	if arc.CharacterID != "char_1" {
		t.Errorf("CharacterID = %q", arc.CharacterID)
	}
	if arc.InternalAdversity != "doubts her resolve" {
		t.Errorf("InternalAdversity = %q", arc.InternalAdversity)
	}
	if string(arc.Virtue) != "courage" {
		t.Errorf("Virtue = %q", arc.Virtue)
	}
	if arc.EstimatedChapters != 3 {
		t.Errorf("EstimatedChapters = %d, want 3", arc.EstimatedChapters)
	}
	if !hasWarningNote(warnings, "Nobody Known") {
		t.Errorf("expected dropped-arc warning, got %v", warnings)
	}
}

func TestCharacters(t *testing.T) {
	raw := strings.Join([]string{
		"# CHARACTER 1: Mara Voss",
		"## Role",
		"Main protagonist",
		"## Core Trait",
		"steadfast",
		"## Traits",
		"patient, wry",
		"",
		"# CHARACTER 2: Tobin Hale",
		"## Core Trait",
		"restless",
		"",
	}, "\n")

	characters, _, err := Characters(raw)
	if err != nil {
		t.Fatalf("Characters() error: %v", err)
	}
	if len(characters) != 2 {
		t.Fatalf("got %d characters, want 2", len(characters))
	}
	if !characters[0].IsMain {
		t.Error("first character should be main")
	}
	if characters[1].IsMain {
		t.Error("second character should not be main (role defaulted to supporting)")
	}
	if len(characters[0].Traits) != 2 {
		t.Errorf("Traits = %v, want 2 items", characters[0].Traits)
	}
}

func TestSettingsAmplification(t *testing.T) {
	raw := strings.Join([]string{
		"# SETTING 1: The Lighthouse",
		"## Description",
		"Stone and brass.",
		"## Sights",
		"- beam sweep",
		"## Cycle Amplification",
		"- setup: quiet routines feel fragile",
		"- virtue: the lamp room becomes a stage",
		"- nonsense: dropped line",
		"",
	}, "\n")

	settings, warnings, err := Settings(raw)
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	s := settings[0]
	if len(s.Amplification) != 2 {
		t.Fatalf("Amplification = %v, want 2 entries", s.Amplification)
	}
	if got := s.Amplification["virtue"]; got != "the lamp room becomes a stage" {
		t.Errorf("Amplification[virtue] = %q", got)
	}
	if !hasWarningNote(warnings, "nonsense") {
		t.Errorf("expected unknown-phase warning, got %v", warnings)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"bullets", "- one\n- two\n* three", []string{"one", "two", "three"}},
		{"commas", "one, two, three", []string{"one", "two", "three"}},
		{"mixed", "- one, two\n- three", []string{"one", "two", "three"}},
		{"blank lines skipped", "one\n\n\ntwo", []string{"one", "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.body)
			if len(got) != len(tt.want) {
				t.Fatalf("splitList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Cracked Lantern", "cracked-lantern"},
		{"  The Old Debt!  ", "the-old-debt"},
		{"seed_42", "seed-42"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func hasWarning(warnings []Warning, field string) bool {
	for _, w := range warnings {
		if w.Field == field {
			return true
		}
	}
	return false
}

func hasWarningNote(warnings []Warning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Note, substr) {
			return true
		}
	}
	return false
}
