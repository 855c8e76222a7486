package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/storyloom/narrative/internal/story"
)

// ErrNotFound indicates the requested story id has no committed row.
var ErrNotFound = errors.New("story not found")

// Story loads a committed story tree back out of the database. Continuity
// bookkeeping (seed plant/resolve placement) is not reconstructed; the seeds
// table holds it flat for reporting queries.
func (s *SQLiteStore) Story(ctx context.Context, id string) (*story.Story, error) {
	st := &story.Story{ID: id}
	var themes string
	err := s.db.QueryRowContext(ctx,
		`SELECT title, premise, summary, genre, tone, themes FROM stories WHERE id = ?`, id).
		Scan(&st.Title, &st.Premise, &st.Summary, &st.Genre, &st.Tone, &themes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	st.Themes = splitCSV(themes)

	if st.Characters, err = s.charactersFor(ctx, id); err != nil {
		return nil, err
	}
	if st.Settings, err = s.settingsFor(ctx, id); err != nil {
		return nil, err
	}
	if st.Parts, err = s.partsFor(ctx, id); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) charactersFor(ctx context.Context, storyID string) ([]story.Character, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, is_main, core_trait, internal_flaw, external_goal,
		        traits, "values", backstory, appearance, voice
		 FROM characters WHERE story_id = ? ORDER BY rowid`, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var characters []story.Character
	for rows.Next() {
		var c story.Character
		var traits, values string
		if err := rows.Scan(&c.ID, &c.Name, &c.IsMain, &c.CoreTrait, &c.InternalFlaw,
			&c.ExternalGoal, &traits, &values, &c.Backstory, &c.Appearance, &c.Voice); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		c.Traits = splitCSV(traits)
		c.Values = splitCSV(values)
		characters = append(characters, c)
	}
	return characters, rows.Err()
}

func (s *SQLiteStore) settingsFor(ctx context.Context, storyID string) ([]story.Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, sights, sounds, smells, textures, tastes,
		        amplification, mood
		 FROM settings WHERE story_id = ? ORDER BY rowid`, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var settings []story.Setting
	for rows.Next() {
		var st story.Setting
		var sights, sounds, smells, textures, tastes, amplification, mood string
		if err := rows.Scan(&st.ID, &st.Name, &st.Description,
			&sights, &sounds, &smells, &textures, &tastes, &amplification, &mood); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		st.Sights = splitCSV(sights)
		st.Sounds = splitCSV(sounds)
		st.Smells = splitCSV(smells)
		st.Textures = splitCSV(textures)
		st.Tastes = splitCSV(tastes)
		st.Amplification = decodeAmplification(amplification)
		st.Mood = splitCSV(mood)
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

func decodeAmplification(encoded string) map[story.CyclePhase]string {
	if encoded == "" {
		return nil
	}
	amp := make(map[story.CyclePhase]string)
	for _, line := range strings.Split(encoded, "\n") {
		phase, note, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		amp[story.CyclePhase(strings.TrimSpace(phase))] = strings.TrimSpace(note)
	}
	return amp
}

func (s *SQLiteStore) partsFor(ctx context.Context, storyID string) ([]story.Part, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, summary, order_index FROM parts
		 WHERE story_id = ? ORDER BY order_index`, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var parts []story.Part
	for rows.Next() {
		var p story.Part
		if err := rows.Scan(&p.ID, &p.Title, &p.Summary, &p.Order); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for i := range parts {
		arcs, err := s.arcsFor(ctx, parts[i].ID)
		if err != nil {
			return nil, err
		}
		parts[i].Arcs = arcs

		chapters, err := s.chaptersFor(ctx, parts[i].ID)
		if err != nil {
			return nil, err
		}
		parts[i].Chapters = chapters
	}
	return parts, nil
}

func (s *SQLiteStore) arcsFor(ctx context.Context, partID string) ([]story.CharacterArc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT character_id, internal_adversity, external_adversity, virtue,
		        consequence, new_adversity, estimated_chapters
		 FROM part_arcs WHERE part_id = ? ORDER BY order_index`, partID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var arcs []story.CharacterArc
	for rows.Next() {
		var arc story.CharacterArc
		var virtue string
		if err := rows.Scan(&arc.CharacterID, &arc.InternalAdversity, &arc.ExternalAdversity,
			&virtue, &arc.Consequence, &arc.NewAdversity, &arc.EstimatedChapters); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		arc.Virtue = story.VirtueType(virtue)
		arcs = append(arcs, arc)
	}
	return arcs, rows.Err()
}

func (s *SQLiteStore) chaptersFor(ctx context.Context, partID string) ([]story.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, summary, character_id, focus_characters, arc_position,
		        adversity_type, virtue, connects_previous, creates_next, order_index
		 FROM chapters WHERE part_id = ? ORDER BY order_index`, partID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var chapters []story.Chapter
	for rows.Next() {
		ch := story.Chapter{PartID: partID}
		var focus, arc, adversity, virtue string
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Summary, &ch.CharacterID, &focus,
			&arc, &adversity, &virtue, &ch.ConnectsPrevious, &ch.CreatesNext, &ch.Order); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ch.FocusCharacters = splitCSV(focus)
		ch.ArcPosition = story.ArcPosition(arc)
		ch.AdversityType = story.AdversityType(adversity)
		ch.Virtue = story.VirtueType(virtue)
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for i := range chapters {
		scenes, err := s.scenesFor(ctx, chapters[i].ID)
		if err != nil {
			return nil, err
		}
		chapters[i].Scenes = scenes
	}
	return chapters, nil
}

func (s *SQLiteStore) scenesFor(ctx context.Context, chapterID string) ([]story.Scene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, summary, cycle_phase, emotional_beat, setting_id,
		        focus_characters, sensory_anchors, dialogue_balance, suggested_length,
		        content, order_index
		 FROM scenes WHERE chapter_id = ? ORDER BY order_index`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var scenes []story.Scene
	for rows.Next() {
		sc := story.Scene{ChapterID: chapterID}
		var phase, beat, focus, anchors, balance, length string
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.Summary, &phase, &beat, &sc.SettingID,
			&focus, &anchors, &balance, &length, &sc.Content, &sc.Order); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		sc.CyclePhase = story.CyclePhase(phase)
		sc.EmotionalBeat = story.EmotionalBeat(beat)
		sc.FocusCharacters = splitCSV(focus)
		sc.SensoryAnchors = splitCSV(anchors)
		sc.DialogueBalance = story.DialogueBalance(balance)
		sc.SuggestedLength = story.SuggestedLength(length)
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
