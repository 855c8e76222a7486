package story

// Narrative enums. Parse helpers are lenient: unrecognized values fall back
// to the zero-equivalent default so a sloppy model response degrades into a
// usable record instead of a failed stage.

// CyclePhase tags a scene's position in the chapter's adversity cycle.
type CyclePhase string

const (
	PhaseSetup         CyclePhase = "setup"
	PhaseConfrontation CyclePhase = "confrontation"
	PhaseVirtue        CyclePhase = "virtue"
	PhaseConsequence   CyclePhase = "consequence"
	PhaseTransition    CyclePhase = "transition"
)

// ParseCyclePhase maps free text onto a CyclePhase, defaulting to setup.
func ParseCyclePhase(s string) (CyclePhase, bool) {
	switch CyclePhase(normalize(s)) {
	case PhaseSetup, PhaseConfrontation, PhaseVirtue, PhaseConsequence, PhaseTransition:
		return CyclePhase(normalize(s)), true
	}
	return PhaseSetup, false
}

// EmotionalBeat is the dominant feeling a scene should land.
type EmotionalBeat string

const (
	BeatFear      EmotionalBeat = "fear"
	BeatHope      EmotionalBeat = "hope"
	BeatTension   EmotionalBeat = "tension"
	BeatRelief    EmotionalBeat = "relief"
	BeatElevation EmotionalBeat = "elevation"
	BeatCatharsis EmotionalBeat = "catharsis"
	BeatDespair   EmotionalBeat = "despair"
	BeatJoy       EmotionalBeat = "joy"
)

// ParseEmotionalBeat maps free text onto an EmotionalBeat, defaulting to tension.
func ParseEmotionalBeat(s string) (EmotionalBeat, bool) {
	switch EmotionalBeat(normalize(s)) {
	case BeatFear, BeatHope, BeatTension, BeatRelief, BeatElevation, BeatCatharsis, BeatDespair, BeatJoy:
		return EmotionalBeat(normalize(s)), true
	}
	return BeatTension, false
}

// ArcPosition is a chapter's position within its part's character arc.
type ArcPosition string

const (
	ArcBeginning  ArcPosition = "beginning"
	ArcMiddle     ArcPosition = "middle"
	ArcClimax     ArcPosition = "climax"
	ArcResolution ArcPosition = "resolution"
)

var arcRank = map[ArcPosition]int{
	ArcBeginning:  0,
	ArcMiddle:     1,
	ArcClimax:     2,
	ArcResolution: 3,
}

// Rank orders arc positions beginning < middle < climax < resolution.
func (a ArcPosition) Rank() int {
	return arcRank[a]
}

// ParseArcPosition maps free text onto an ArcPosition, defaulting to middle.
func ParseArcPosition(s string) (ArcPosition, bool) {
	switch ArcPosition(normalize(s)) {
	case ArcBeginning, ArcMiddle, ArcClimax, ArcResolution:
		return ArcPosition(normalize(s)), true
	}
	return ArcMiddle, false
}

// AdversityType classifies the chapter's central obstacle.
type AdversityType string

const (
	AdversityInternal AdversityType = "internal"
	AdversityExternal AdversityType = "external"
	AdversityBoth     AdversityType = "both"
)

// ParseAdversityType maps free text onto an AdversityType, defaulting to external.
func ParseAdversityType(s string) (AdversityType, bool) {
	switch AdversityType(normalize(s)) {
	case AdversityInternal, AdversityExternal, AdversityBoth:
		return AdversityType(normalize(s)), true
	}
	return AdversityExternal, false
}

// VirtueType is the virtuous quality exercised at the chapter's climax.
type VirtueType string

const (
	VirtueCourage    VirtueType = "courage"
	VirtueCompassion VirtueType = "compassion"
	VirtueIntegrity  VirtueType = "integrity"
	VirtueLoyalty    VirtueType = "loyalty"
	VirtueWisdom     VirtueType = "wisdom"
	VirtueSacrifice  VirtueType = "sacrifice"
)

// ParseVirtueType maps free text onto a VirtueType, defaulting to courage.
func ParseVirtueType(s string) (VirtueType, bool) {
	switch VirtueType(normalize(s)) {
	case VirtueCourage, VirtueCompassion, VirtueIntegrity, VirtueLoyalty, VirtueWisdom, VirtueSacrifice:
		return VirtueType(normalize(s)), true
	}
	return VirtueCourage, false
}

// DialogueBalance tags a scene's intended dialogue/description mix.
type DialogueBalance string

const (
	BalanceDialogueHeavy    DialogueBalance = "dialogue-heavy"
	BalanceBalanced         DialogueBalance = "balanced"
	BalanceDescriptionHeavy DialogueBalance = "description-heavy"
)

// ParseDialogueBalance maps free text onto a DialogueBalance, defaulting to balanced.
func ParseDialogueBalance(s string) (DialogueBalance, bool) {
	switch DialogueBalance(normalize(s)) {
	case BalanceDialogueHeavy, BalanceBalanced, BalanceDescriptionHeavy:
		return DialogueBalance(normalize(s)), true
	}
	return BalanceBalanced, false
}

// SuggestedLength is the prose-stage sizing hint for a scene.
type SuggestedLength string

const (
	LengthShort  SuggestedLength = "short"
	LengthMedium SuggestedLength = "medium"
	LengthLong   SuggestedLength = "long"
)

// ParseSuggestedLength maps free text onto a SuggestedLength, defaulting to medium.
func ParseSuggestedLength(s string) (SuggestedLength, bool) {
	switch SuggestedLength(normalize(s)) {
	case LengthShort, LengthMedium, LengthLong:
		return SuggestedLength(normalize(s)), true
	}
	return LengthMedium, false
}
