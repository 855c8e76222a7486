package stage

import (
	"fmt"
	"strings"

	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/story"
)

// Prompt builders. All of them are pure functions of their inputs: the same
// stage input always yields the same prompt, which is what makes the
// parse-failure retry ("regenerate with the same input") well defined.

const systemPrompt = `You are a story architect for serialized fiction.
Respond only in the requested outline format. Each record starts with a
"# KIND n: Title" header followed by "## Field" sections. Do not add
commentary outside the records.`

const proseSystemPrompt = `You are a novelist writing one scene of a
serialized story. Respond with the scene's prose only, no headers or notes.`

func summaryPrompt(req story.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("Write a story summary for the following premise.\n\n")
	fmt.Fprintf(&b, "Premise: %s\n", req.Prompt)
	if req.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", req.Genre)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	b.WriteString("\nRespond with exactly 1 record:\n")
	b.WriteString("# STORY 1: <title>\n## Summary\n## Themes\n")
	return b.String()
}

func charactersPrompt(req story.GenerationRequest, summary parse.StorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create the character roster for %q.\n\n", summary.Title)
	fmt.Fprintf(&b, "Story summary: %s\n", summary.Summary)
	fmt.Fprintf(&b, "\nRespond with exactly %d records, the first marked main:\n", req.CharacterCount)
	b.WriteString("# CHARACTER n: <name>\n## Role\n## Core Trait\n## Internal Flaw\n## External Goal\n")
	b.WriteString("## Traits\n## Values\n## Backstory\n## Appearance\n## Voice\n")
	return b.String()
}

func settingsPrompt(summary parse.StorySummary, characters []story.Character, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create the setting palette for %q.\n\n", summary.Title)
	fmt.Fprintf(&b, "Story summary: %s\n", summary.Summary)
	b.WriteString("Characters: " + characterNames(characters) + "\n")
	fmt.Fprintf(&b, "\nRespond with exactly %d records:\n", count)
	b.WriteString("# SETTING n: <name>\n## Description\n## Sights\n## Sounds\n## Smells\n")
	b.WriteString("## Textures\n## Tastes\n## Cycle Amplification\n## Mood\n")
	return b.String()
}

func partsPrompt(req story.GenerationRequest, summary parse.StorySummary, characters []story.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create the part outline for %q.\n\n", summary.Title)
	fmt.Fprintf(&b, "Story summary: %s\n", summary.Summary)
	b.WriteString("Characters: " + characterNames(characters) + "\n")
	fmt.Fprintf(&b, "\nRespond with exactly %d records:\n", req.PartCount)
	b.WriteString("# PART n: <title>\n## Summary\n## Arcs\n")
	b.WriteString("Each arc line: name | internal adversity | external adversity | virtue | consequence | new adversity | estimated chapters\n")
	return b.String()
}

func chaptersPrompt(req story.GenerationRequest, part story.Part, characters []story.Character, trailing []story.Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create the chapter outline for part %d, %q.\n\n", part.Order+1, part.Title)
	fmt.Fprintf(&b, "Part summary: %s\n", part.Summary)
	b.WriteString("Characters: " + characterNames(characters) + "\n")

	for _, arc := range part.Arcs {
		fmt.Fprintf(&b, "Arc: character %s must face %s / %s, exercise %s, and earn %s.\n",
			arc.CharacterID, arc.InternalAdversity, arc.ExternalAdversity, arc.Virtue, arc.Consequence)
	}
	if len(part.Arcs) > req.ChaptersPerPart {
		b.WriteString("Fewer chapters than arcs: merge arcs into shared chapters, the first arc leading.\n")
	}

	if len(trailing) > 0 {
		b.WriteString("\nThe previous part ended with:\n")
		for _, ch := range trailing {
			fmt.Fprintf(&b, "- %s: %s (next adversity: %s)\n", ch.Title, ch.Summary, ch.CreatesNext)
		}
		b.WriteString("The first chapter must follow causally from these.\n")
	}

	fmt.Fprintf(&b, "\nRespond with exactly %d records:\n", req.ChaptersPerPart)
	b.WriteString("# CHAPTER n: <title>\n## Summary\n## Primary Character\n## Arc Position\n")
	b.WriteString("## Adversity Type\n## Virtue\n## Character Focus\n## Seeds Planted\n")
	b.WriteString("## Seeds Resolved\n## Connects To Previous\n## Creates Next Adversity\n")
	b.WriteString("Seed lines: id: description -> expected payoff. Resolve only seeds planted in earlier chapters.\n")
	b.WriteString("Arc positions must progress beginning, middle, climax, resolution in order.\n")
	return b.String()
}

func scenesPrompt(req story.GenerationRequest, chapter story.Chapter, characters []story.Character, settings []story.Setting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create the scene breakdown for chapter %d, %q.\n\n", chapter.Order+1, chapter.Title)
	fmt.Fprintf(&b, "Chapter summary: %s\n", chapter.Summary)
	fmt.Fprintf(&b, "Virtue of the chapter: %s. Adversity: %s.\n", chapter.Virtue, chapter.AdversityType)
	b.WriteString("Characters: " + characterNames(characters) + "\n")
	b.WriteString("Settings: " + settingNames(settings) + "\n")
	fmt.Fprintf(&b, "\nRespond with exactly %d records:\n", req.ScenesPerChapter)
	b.WriteString("# SCENE n: <title>\n## Summary\n## Cycle Phase\n## Emotional Beat\n")
	b.WriteString("## Character Focus\n## Setting\n## Sensory Anchors\n## Dialogue Balance\n## Suggested Length\n")
	b.WriteString("Exactly one scene carries cycle phase virtue with emotional beat elevation and suggested length long.\n")
	return b.String()
}

func prosePrompt(sc story.Scene, chapter story.Chapter, setting *story.Setting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the prose for scene %d of chapter %q.\n\n", sc.Order+1, chapter.Title)
	fmt.Fprintf(&b, "Scene: %s\n", sc.Summary)
	fmt.Fprintf(&b, "Cycle phase: %s. Emotional beat: %s. Length: %s. Balance: %s.\n",
		sc.CyclePhase, sc.EmotionalBeat, sc.SuggestedLength, sc.DialogueBalance)
	if setting != nil {
		fmt.Fprintf(&b, "Setting: %s. %s\n", setting.Name, setting.Description)
		if note, ok := setting.Amplification[sc.CyclePhase]; ok {
			fmt.Fprintf(&b, "Amplify: %s\n", note)
		}
	}
	if len(sc.SensoryAnchors) > 0 {
		b.WriteString("Sensory anchors: " + strings.Join(sc.SensoryAnchors, ", ") + "\n")
	}
	return b.String()
}

func characterNames(characters []story.Character) string {
	names := make([]string, len(characters))
	for i, c := range characters {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func settingNames(settings []story.Setting) string {
	names := make([]string, len(settings))
	for i, s := range settings {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
