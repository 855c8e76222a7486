package parse

import (
	"strings"

	"github.com/storyloom/narrative/internal/story"
)

// Extraction table for the chapter-list schema. Enum fields default through
// their Parse helpers, so the table only carries textual defaults.
var chapterFields = struct {
	summary, character, arcPosition, adversity, virtue fieldSpec
	focus, seedsPlanted, seedsResolved                 fieldSpec
	connectsPrevious, createsNext                      fieldSpec
}{
	summary:          fieldSpec{key: "summary"},
	character:        fieldSpec{key: "primary character", aliases: []string{"character", "focus character"}},
	arcPosition:      fieldSpec{key: "arc position"},
	adversity:        fieldSpec{key: "adversity type", aliases: []string{"adversity"}},
	virtue:           fieldSpec{key: "virtue", aliases: []string{"virtue type"}},
	focus:            fieldSpec{key: "character focus", aliases: []string{"focus characters"}},
	seedsPlanted:     fieldSpec{key: "seeds planted", aliases: []string{"seeds"}},
	seedsResolved:    fieldSpec{key: "seeds resolved", aliases: []string{"payoffs"}},
	connectsPrevious: fieldSpec{key: "connects to previous", aliases: []string{"connection to previous"}},
	createsNext:      fieldSpec{key: "creates next adversity", aliases: []string{"next adversity"}},
}

// Chapters parses a chapter-list response. Character names in the focus and
// primary-character fields are resolved against the character reference
// table; order indices follow block order, offset by startOrder so chapter
// numbering stays global across parts.
func Chapters(raw string, characters RefTable, startOrder int) ([]story.Chapter, []Warning, error) {
	blocks, err := SplitBlocks(raw)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	chapters := make([]story.Chapter, 0, len(blocks))
	for i, b := range blocks {
		order := startOrder + i
		ch := story.Chapter{
			Title:   b.Title,
			Summary: chapterFields.summary.get(b, &warnings),
			Order:   order,
		}

		pos, ok := story.ParseArcPosition(firstLine(chapterFields.arcPosition.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "arc position", Note: "unrecognized, defaulted to middle"})
		}
		ch.ArcPosition = pos

		adv, ok := story.ParseAdversityType(firstLine(chapterFields.adversity.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "adversity type", Note: "unrecognized, defaulted to external"})
		}
		ch.AdversityType = adv

		virtue, ok := story.ParseVirtueType(firstLine(chapterFields.virtue.get(b, &warnings)))
		if !ok {
			warnings = append(warnings, Warning{Block: b.Index, Field: "virtue", Note: "unrecognized, defaulted to courage"})
		}
		ch.Virtue = virtue

		if name := firstLine(chapterFields.character.getOptional(b)); name != "" {
			if id, found := characters.Lookup(name); found {
				ch.CharacterID = id
			} else {
				warnings = append(warnings, Warning{Block: b.Index, Field: "primary character", Note: "unknown name " + name + " dropped"})
			}
		}

		if body := chapterFields.focus.getOptional(b); body != "" {
			ch.FocusCharacters = resolveNames(b, "character focus", splitList(body), characters, &warnings)
		}

		if body := chapterFields.seedsPlanted.getOptional(b); body != "" {
			ch.SeedsPlanted = parseSeeds(body, order)
		}
		if body := chapterFields.seedsResolved.getOptional(b); body != "" {
			ch.SeedsResolved = seedIDs(splitListLines(body))
		}

		ch.ConnectsPrevious = chapterFields.connectsPrevious.getOptional(b)
		ch.CreatesNext = chapterFields.createsNext.getOptional(b)

		chapters = append(chapters, ch)
	}
	return chapters, warnings, nil
}

// parseSeeds reads seed items of the form "id: description -> expected
// payoff". Items missing the arrow keep an empty payoff; items missing the
// id separator use the whole line as both id slug and description.
func parseSeeds(body string, chapterOrder int) []story.Seed {
	var seeds []story.Seed
	for _, line := range splitListLines(body) {
		seed := story.Seed{PlantedChapter: chapterOrder}
		rest := line
		if id, tail, ok := strings.Cut(line, ":"); ok {
			seed.ID = slug(id)
			rest = tail
		} else {
			seed.ID = slug(line)
		}
		if desc, payoff, ok := strings.Cut(rest, "->"); ok {
			seed.Description = strings.TrimSpace(desc)
			seed.ExpectedPayoff = strings.TrimSpace(payoff)
		} else {
			seed.Description = strings.TrimSpace(rest)
		}
		seeds = append(seeds, seed)
	}
	return seeds
}

// splitListLines is splitList without comma expansion: seed descriptions
// legitimately contain commas.
func splitListLines(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func seedIDs(lines []string) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if id, _, ok := strings.Cut(line, ":"); ok {
			ids = append(ids, slug(id))
		} else {
			ids = append(ids, slug(line))
		}
	}
	return ids
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "-")
}
