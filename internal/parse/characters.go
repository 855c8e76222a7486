package parse

import (
	"strings"

	"github.com/storyloom/narrative/internal/story"
)

// Extraction table for the character-roster schema.
var characterFields = struct {
	role, coreTrait, internalFlaw, externalGoal fieldSpec
	traits, values, backstory, appearance, voice fieldSpec
}{
	role:         fieldSpec{key: "role", def: "supporting"},
	coreTrait:    fieldSpec{key: "core trait", aliases: []string{"trait"}},
	internalFlaw: fieldSpec{key: "internal flaw", aliases: []string{"flaw"}},
	externalGoal: fieldSpec{key: "external goal", aliases: []string{"goal"}},
	traits:       fieldSpec{key: "traits", aliases: []string{"personality"}},
	values:       fieldSpec{key: "values"},
	backstory:    fieldSpec{key: "backstory", aliases: []string{"background"}},
	appearance:   fieldSpec{key: "appearance", aliases: []string{"physical description"}},
	voice:        fieldSpec{key: "voice", aliases: []string{"voice description"}},
}

// Characters parses a character-roster response. The block title is the
// character's name; ids are assigned by the caller.
func Characters(raw string) ([]story.Character, []Warning, error) {
	blocks, err := SplitBlocks(raw)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	characters := make([]story.Character, 0, len(blocks))
	for _, b := range blocks {
		ch := story.Character{
			Name:         b.Title,
			IsMain:       strings.Contains(strings.ToLower(characterFields.role.get(b, &warnings)), "main"),
			CoreTrait:    firstLine(characterFields.coreTrait.getOptional(b)),
			InternalFlaw: firstLine(characterFields.internalFlaw.getOptional(b)),
			ExternalGoal: firstLine(characterFields.externalGoal.getOptional(b)),
			Backstory:    characterFields.backstory.getOptional(b),
			Appearance:   characterFields.appearance.getOptional(b),
			Voice:        characterFields.voice.getOptional(b),
		}
		if body := characterFields.traits.getOptional(b); body != "" {
			ch.Traits = splitList(body)
		}
		if body := characterFields.values.getOptional(b); body != "" {
			ch.Values = splitList(body)
		}
		characters = append(characters, ch)
	}
	return characters, warnings, nil
}
