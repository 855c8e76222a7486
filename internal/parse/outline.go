package parse

import (
	"strconv"
	"strings"

	"github.com/storyloom/narrative/internal/story"
)

// StorySummary is the parsed result of the story-summary schema: a single
// "# STORY 1: Title" block.
type StorySummary struct {
	Title   string
	Summary string
	Themes  []string
}

var storyFields = struct {
	summary, themes fieldSpec
}{
	summary: fieldSpec{key: "summary", aliases: []string{"premise"}},
	themes:  fieldSpec{key: "themes", aliases: []string{"theme"}},
}

// Summary parses a story-summary response. Extra blocks beyond the first
// are ignored with a warning; the model occasionally repeats itself.
func Summary(raw string) (StorySummary, []Warning, error) {
	blocks, err := SplitBlocks(raw)
	if err != nil {
		return StorySummary{}, nil, err
	}

	var warnings []Warning
	b := blocks[0]
	if len(blocks) > 1 {
		warnings = append(warnings, Warning{Block: blocks[1].Index, Field: "", Note: "extra summary blocks ignored"})
	}

	s := StorySummary{
		Title:   b.Title,
		Summary: storyFields.summary.get(b, &warnings),
	}
	if body := storyFields.themes.getOptional(b); body != "" {
		s.Themes = splitList(body)
	}
	return s, warnings, nil
}

// Extraction table for the part-outline schema.
var partFields = struct {
	summary, arcs fieldSpec
}{
	summary: fieldSpec{key: "summary"},
	arcs:    fieldSpec{key: "arcs", aliases: []string{"character arcs"}},
}

// Parts parses a part-outline response. Arc lines use pipe-separated
// fields: name | internal adversity | external adversity | virtue |
// consequence | new adversity | estimated chapters. Short lines keep their
// leading fields; unresolvable character names drop the arc with a warning.
func Parts(raw string, characters RefTable) ([]story.Part, []Warning, error) {
	blocks, err := SplitBlocks(raw)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	parts := make([]story.Part, 0, len(blocks))
	for i, b := range blocks {
		p := story.Part{
			Title:   b.Title,
			Summary: partFields.summary.get(b, &warnings),
			Order:   i,
		}
		for _, line := range splitListLines(partFields.arcs.getOptional(b)) {
			arc, ok := parseArc(b, line, characters, &warnings)
			if ok {
				p.Arcs = append(p.Arcs, arc)
			}
		}
		parts = append(parts, p)
	}
	return parts, warnings, nil
}

func parseArc(b Block, line string, characters RefTable, warnings *[]Warning) (story.CharacterArc, bool) {
	cols := strings.Split(line, "|")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	id, ok := characters.Lookup(cols[0])
	if !ok {
		*warnings = append(*warnings, Warning{Block: b.Index, Field: "arcs", Note: "unknown name " + cols[0] + " dropped"})
		return story.CharacterArc{}, false
	}

	arc := story.CharacterArc{CharacterID: id, EstimatedChapters: 1}
	get := func(i int) string {
		if i < len(cols) {
			return cols[i]
		}
		return ""
	}
	arc.InternalAdversity = get(1)
	arc.ExternalAdversity = get(2)
	virtue, recognized := story.ParseVirtueType(get(3))
	if !recognized && get(3) != "" {
		*warnings = append(*warnings, Warning{Block: b.Index, Field: "arcs", Note: "unrecognized virtue " + get(3) + " defaulted to courage"})
	}
	arc.Virtue = virtue
	arc.Consequence = get(4)
	arc.NewAdversity = get(5)
	if n, err := strconv.Atoi(get(6)); err == nil && n > 0 {
		arc.EstimatedChapters = n
	}
	return arc, true
}
