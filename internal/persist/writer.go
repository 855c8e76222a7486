package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/storyloom/narrative/internal/story"
)

// Batch order. Parents always commit before the children that reference
// them; a resume picks up at the first uncommitted batch.
const (
	batchStory = iota + 1
	batchCharacters
	batchSettings
	batchParts
	batchPartArcs
	batchChapters
	batchScenes
	batchSeeds
)

var batchNames = map[int]string{
	batchStory:      "story",
	batchCharacters: "characters",
	batchSettings:   "settings",
	batchParts:      "parts",
	batchPartArcs:   "part_arcs",
	batchChapters:   "chapters",
	batchScenes:     "scenes",
	batchSeeds:      "seeds",
}

// Writer assembles durable rows from a run's in-memory tree. Durable ids
// are minted deterministically from the run id and the transient id, which
// is what makes a resumed commit line up with rows the failed attempt
// already wrote.
type Writer struct {
	store  Store
	logger *slog.Logger
}

// NewWriter builds a Writer.
func NewWriter(store Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: store, logger: logger.With("component", "persist")}
}

// durableID derives a stable UUID for an entity within a run.
func durableID(runID, transientID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(runID+"/"+transientID)).String()
}

// Commit writes the tree in batch order and returns the durable story id.
// The tree arrives fully validated by the pipeline; the writer performs no
// business-rule validation of its own. On failure the error names the
// batch, committed batches stay committed, and re-invoking Commit with the
// same run resumes from the first batch that did not finish.
func (w *Writer) Commit(ctx context.Context, runID string, s *story.Story, seeds []story.Seed) (string, error) {
	storyID := durableID(runID, "story")

	last, err := w.store.LastBatch(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("reading batch marker: %w", err)
	}
	if last > 0 {
		w.logger.Info("resuming commit", "run_id", runID, "last_batch", batchNames[last])
	}

	id := func(transient string) string { return durableID(runID, transient) }

	batches := []struct {
		index   int
		table   string
		records func() []Record
	}{
		{batchStory, "stories", func() []Record {
			return []Record{{
				"id":      storyID,
				"title":   s.Title,
				"premise": s.Premise,
				"summary": s.Summary,
				"genre":   s.Genre,
				"tone":    s.Tone,
				"themes":  strings.Join(s.Themes, ","),
			}}
		}},
		{batchCharacters, "characters", func() []Record {
			records := make([]Record, 0, len(s.Characters))
			for _, c := range s.Characters {
				records = append(records, Record{
					"id":            id(c.ID),
					"story_id":      storyID,
					"name":          c.Name,
					"is_main":       c.IsMain,
					"core_trait":    c.CoreTrait,
					"internal_flaw": c.InternalFlaw,
					"external_goal": c.ExternalGoal,
					"traits":        strings.Join(c.Traits, ","),
					"values":        strings.Join(c.Values, ","),
					"backstory":     c.Backstory,
					"appearance":    c.Appearance,
					"voice":         c.Voice,
				})
			}
			return records
		}},
		{batchSettings, "settings", func() []Record {
			records := make([]Record, 0, len(s.Settings))
			for _, st := range s.Settings {
				records = append(records, Record{
					"id":            id(st.ID),
					"story_id":      storyID,
					"name":          st.Name,
					"description":   st.Description,
					"sights":        strings.Join(st.Sights, ","),
					"sounds":        strings.Join(st.Sounds, ","),
					"smells":        strings.Join(st.Smells, ","),
					"textures":      strings.Join(st.Textures, ","),
					"tastes":        strings.Join(st.Tastes, ","),
					"amplification": encodeAmplification(st.Amplification),
					"mood":          strings.Join(st.Mood, ","),
				})
			}
			return records
		}},
		{batchParts, "parts", func() []Record {
			records := make([]Record, 0, len(s.Parts))
			for _, p := range s.Parts {
				records = append(records, Record{
					"id":          id(p.ID),
					"story_id":    storyID,
					"title":       p.Title,
					"summary":     p.Summary,
					"order_index": p.Order,
				})
			}
			return records
		}},
		{batchPartArcs, "part_arcs", func() []Record {
			var records []Record
			for _, p := range s.Parts {
				for i, arc := range p.Arcs {
					records = append(records, Record{
						"id":                 id(p.ID + "/arc/" + strconv.Itoa(i)),
						"part_id":            id(p.ID),
						"character_id":       fkOrEmpty(id, arc.CharacterID),
						"internal_adversity": arc.InternalAdversity,
						"external_adversity": arc.ExternalAdversity,
						"virtue":             string(arc.Virtue),
						"consequence":        arc.Consequence,
						"new_adversity":      arc.NewAdversity,
						"estimated_chapters": arc.EstimatedChapters,
						"order_index":        i,
					})
				}
			}
			return records
		}},
		{batchChapters, "chapters", func() []Record {
			var records []Record
			for _, p := range s.Parts {
				for _, ch := range p.Chapters {
					records = append(records, Record{
						"id":                id(ch.ID),
						"part_id":           id(ch.PartID),
						"title":             ch.Title,
						"summary":           ch.Summary,
						"character_id":      fkOrEmpty(id, ch.CharacterID),
						"focus_characters":  joinIDs(id, ch.FocusCharacters),
						"arc_position":      string(ch.ArcPosition),
						"adversity_type":    string(ch.AdversityType),
						"virtue":            string(ch.Virtue),
						"connects_previous": ch.ConnectsPrevious,
						"creates_next":      ch.CreatesNext,
						"order_index":       ch.Order,
					})
				}
			}
			return records
		}},
		{batchScenes, "scenes", func() []Record {
			var records []Record
			for _, p := range s.Parts {
				for _, ch := range p.Chapters {
					for _, sc := range ch.Scenes {
						records = append(records, Record{
							"id":               id(sc.ID),
							"chapter_id":       id(sc.ChapterID),
							"title":            sc.Title,
							"summary":          sc.Summary,
							"cycle_phase":      string(sc.CyclePhase),
							"emotional_beat":   string(sc.EmotionalBeat),
							"setting_id":       fkOrEmpty(id, sc.SettingID),
							"focus_characters": joinIDs(id, sc.FocusCharacters),
							"sensory_anchors":  strings.Join(sc.SensoryAnchors, ","),
							"dialogue_balance": string(sc.DialogueBalance),
							"suggested_length": string(sc.SuggestedLength),
							"content":          sc.Content,
							"order_index":      sc.Order,
						})
					}
				}
			}
			return records
		}},
		{batchSeeds, "seeds", func() []Record {
			records := make([]Record, 0, len(seeds))
			for _, seed := range seeds {
				records = append(records, Record{
					"id":               durableID(runID, "seed/"+seed.ID),
					"story_id":         storyID,
					"slug":             seed.ID,
					"description":      seed.Description,
					"expected_payoff":  seed.ExpectedPayoff,
					"planted_chapter":  seed.PlantedChapter,
					"resolved":         seed.Resolved,
					"resolved_chapter": seed.ResolvedChapter,
				})
			}
			return records
		}},
	}

	for _, batch := range batches {
		if batch.index <= last {
			w.logger.Debug("skipping committed batch", "run_id", runID, "batch", batchNames[batch.index])
			continue
		}

		records := batch.records()
		if len(records) > 0 {
			if _, err := w.store.Insert(ctx, batch.table, records); err != nil {
				return "", fmt.Errorf("committing batch %s (earlier batches retained): %w", batchNames[batch.index], err)
			}
		}
		if err := w.store.SetLastBatch(ctx, runID, batch.index); err != nil {
			return "", fmt.Errorf("recording batch marker after %s: %w", batchNames[batch.index], err)
		}
		w.logger.Info("batch committed", "run_id", runID, "batch", batchNames[batch.index], "rows", len(records))
	}

	return storyID, nil
}

// encodeAmplification flattens the cycle-amplification map into sorted
// "phase: note" lines, the same shape the stages produce it in.
func encodeAmplification(amp map[story.CyclePhase]string) string {
	if len(amp) == 0 {
		return ""
	}
	phases := make([]string, 0, len(amp))
	for phase := range amp {
		phases = append(phases, string(phase))
	}
	sort.Strings(phases)
	lines := make([]string, len(phases))
	for i, phase := range phases {
		lines[i] = phase + ": " + amp[story.CyclePhase(phase)]
	}
	return strings.Join(lines, "\n")
}

// fkOrEmpty rewrites an optional foreign key, preserving emptiness.
func fkOrEmpty(id func(string) string, transient string) string {
	if transient == "" {
		return ""
	}
	return id(transient)
}

// joinIDs rewrites a list of transient ids into a comma-joined durable list.
func joinIDs(id func(string) string, transients []string) string {
	durable := make([]string, len(transients))
	for i, t := range transients {
		durable[i] = id(t)
	}
	return strings.Join(durable, ",")
}
