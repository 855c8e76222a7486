package story

// Core entities produced by a generation run. In-memory ids are transient
// ("char_1", "setting_2", ...); the persistence writer mints durable UUIDs
// and rewrites references at commit time.

// Story is the root of a generated narrative tree.
type Story struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Premise    string      `json:"premise"`
	Summary    string      `json:"summary"`
	Genre      string      `json:"genre"`
	Tone       string      `json:"tone"`
	Themes     []string    `json:"themes,omitempty"`
	Characters []Character `json:"characters"`
	Settings   []Setting   `json:"settings"`
	Parts      []Part      `json:"parts"`
}

// Character is produced once per run by the characters stage and referenced
// by id from chapters and scenes.
type Character struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	IsMain       bool     `json:"is_main"`
	CoreTrait    string   `json:"core_trait"`
	InternalFlaw string   `json:"internal_flaw"`
	ExternalGoal string   `json:"external_goal"`
	Traits       []string `json:"traits,omitempty"`
	Values       []string `json:"values,omitempty"`
	Backstory    string   `json:"backstory,omitempty"`
	Appearance   string   `json:"appearance,omitempty"`
	Voice        string   `json:"voice,omitempty"`
}

// Setting carries the sensory palette scenes draw their anchors from.
type Setting struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Sights        []string              `json:"sights,omitempty"`
	Sounds        []string              `json:"sounds,omitempty"`
	Smells        []string              `json:"smells,omitempty"`
	Textures      []string              `json:"textures,omitempty"`
	Tastes        []string              `json:"tastes,omitempty"`
	Amplification map[CyclePhase]string `json:"amplification,omitempty"`
	Mood          []string              `json:"mood,omitempty"`
}

// Part is one act of the story. Order indices are contiguous from 0.
type Part struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Summary  string         `json:"summary"`
	Order    int            `json:"order"`
	Arcs     []CharacterArc `json:"arcs"`
	Chapters []Chapter      `json:"chapters"`
}

// CharacterArc describes one character's macro arc across a part.
type CharacterArc struct {
	CharacterID       string     `json:"character_id"`
	InternalAdversity string     `json:"internal_adversity"`
	ExternalAdversity string     `json:"external_adversity"`
	Virtue            VirtueType `json:"virtue"`
	Consequence       string     `json:"consequence"`
	NewAdversity      string     `json:"new_adversity"`
	EstimatedChapters int        `json:"estimated_chapters"`
}

// Chapter models one complete adversity → virtuous choice → consequence
// cycle for its focus character.
type Chapter struct {
	ID               string        `json:"id"`
	PartID           string        `json:"part_id"`
	Title            string        `json:"title"`
	Summary          string        `json:"summary"`
	CharacterID      string        `json:"character_id"`
	ArcPosition      ArcPosition   `json:"arc_position"`
	AdversityType    AdversityType `json:"adversity_type"`
	Virtue           VirtueType    `json:"virtue"`
	FocusCharacters  []string      `json:"focus_characters,omitempty"`
	SeedsPlanted     []Seed        `json:"seeds_planted,omitempty"`
	SeedsResolved    []string      `json:"seeds_resolved,omitempty"`
	ConnectsPrevious string        `json:"connects_previous,omitempty"`
	CreatesNext      string        `json:"creates_next,omitempty"`
	Order            int           `json:"order"`
	Scenes           []Scene       `json:"scenes"`
}

// Scene is the leaf unit of the tree; Content is filled by the final stage.
type Scene struct {
	ID              string          `json:"id"`
	ChapterID       string          `json:"chapter_id"`
	Title           string          `json:"title"`
	Summary         string          `json:"summary"`
	CyclePhase      CyclePhase      `json:"cycle_phase"`
	EmotionalBeat   EmotionalBeat   `json:"emotional_beat"`
	FocusCharacters []string        `json:"focus_characters,omitempty"`
	SettingID       string          `json:"setting_id,omitempty"`
	SensoryAnchors  []string        `json:"sensory_anchors,omitempty"`
	DialogueBalance DialogueBalance `json:"dialogue_balance"`
	SuggestedLength SuggestedLength `json:"suggested_length"`
	Content         string          `json:"content,omitempty"`
	Order           int             `json:"order"`
}

// Seed is a narrative setup planted in one chapter and expected to pay off
// in a later one. Resolution bookkeeping lives in the continuity ledger.
type Seed struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	ExpectedPayoff  string `json:"expected_payoff,omitempty"`
	PlantedChapter  int    `json:"planted_chapter"`
	Resolved        bool   `json:"resolved"`
	ResolvedChapter int    `json:"resolved_chapter,omitempty"`
}

// GenerationRequest is the caller's input to a run. Hints are advisory
// bounds on the shape of the tree, not hard prose constraints.
type GenerationRequest struct {
	Prompt           string `json:"prompt" validate:"required,min=10,max=10000"`
	Genre            string `json:"genre,omitempty" validate:"omitempty,max=100"`
	Tone             string `json:"tone,omitempty" validate:"omitempty,max=100"`
	CharacterCount   int    `json:"character_count,omitempty" validate:"omitempty,min=1,max=12"`
	PartCount        int    `json:"part_count,omitempty" validate:"omitempty,min=1,max=8"`
	ChaptersPerPart  int    `json:"chapters_per_part,omitempty" validate:"omitempty,min=1,max=20"`
	ScenesPerChapter int    `json:"scenes_per_chapter,omitempty" validate:"omitempty,min=1,max=12"`
}

// ApplyDefaults fills unset hints with the platform defaults.
func (r *GenerationRequest) ApplyDefaults() {
	if r.CharacterCount == 0 {
		r.CharacterCount = 4
	}
	if r.PartCount == 0 {
		r.PartCount = 3
	}
	if r.ChaptersPerPart == 0 {
		r.ChaptersPerPart = 4
	}
	if r.ScenesPerChapter == 0 {
		r.ScenesPerChapter = 5
	}
}
