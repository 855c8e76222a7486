// Package continuity tracks narrative seeds across a generation run: setups
// planted in one chapter that are expected to pay off in a later one. The
// ledger is owned by the orchestrator and mutated from its goroutine only,
// in chapter order, so it carries no locking.
package continuity

import (
	"errors"
	"fmt"
	"sort"

	"github.com/storyloom/narrative/internal/story"
)

var (
	// ErrDuplicateSeed indicates a seed id was planted twice in one run.
	ErrDuplicateSeed = errors.New("duplicate seed id")

	// ErrUnknownSeed indicates a resolution referenced a seed that was
	// never planted.
	ErrUnknownSeed = errors.New("unknown seed id")

	// ErrForwardReference indicates a seed was resolved in a chapter at or
	// before the one that planted it.
	ErrForwardReference = errors.New("seed resolved at or before planting chapter")
)

// Ledger is the per-run seed registry.
type Ledger struct {
	seeds map[string]*story.Seed
	order []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seeds: make(map[string]*story.Seed)}
}

// Plant records a new seed. The seed's PlantedChapter must already be set
// to the planting chapter's order index.
func (l *Ledger) Plant(seed story.Seed) error {
	if _, exists := l.seeds[seed.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSeed, seed.ID)
	}
	s := seed
	l.seeds[seed.ID] = &s
	l.order = append(l.order, seed.ID)
	return nil
}

// Resolve marks a seed as paid off by the chapter at resolvingChapter.
// Resolution strictly after planting is the no-forward-reference rule: a
// payoff cannot land in the chapter that planted it or an earlier one.
func (l *Ledger) Resolve(seedID string, resolvingChapter int) error {
	seed, ok := l.seeds[seedID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSeed, seedID)
	}
	if resolvingChapter <= seed.PlantedChapter {
		return fmt.Errorf("%w: %s planted at chapter %d, resolved at %d",
			ErrForwardReference, seedID, seed.PlantedChapter, resolvingChapter)
	}
	seed.Resolved = true
	seed.ResolvedChapter = resolvingChapter
	return nil
}

// Get returns a copy of the seed with the given id.
func (l *Ledger) Get(seedID string) (story.Seed, bool) {
	seed, ok := l.seeds[seedID]
	if !ok {
		return story.Seed{}, false
	}
	return *seed, true
}

// OpenThreads returns all seeds never resolved, in planting order. An open
// thread is not an error: serialized fiction is allowed to leave long-range
// setups dangling for future installments. The list goes into the final
// run report.
func (l *Ledger) OpenThreads() []story.Seed {
	var open []story.Seed
	for _, id := range l.order {
		if seed := l.seeds[id]; !seed.Resolved {
			open = append(open, *seed)
		}
	}
	return open
}

// All returns every seed in planting order.
func (l *Ledger) All() []story.Seed {
	all := make([]story.Seed, 0, len(l.seeds))
	for _, id := range l.order {
		all = append(all, *l.seeds[id])
	}
	return all
}

// ResolvedByChapter returns resolved seeds grouped under their resolving
// chapter index, for the persistence writer's reference rewrite.
func (l *Ledger) ResolvedByChapter() map[int][]story.Seed {
	grouped := make(map[int][]story.Seed)
	for _, id := range l.order {
		seed := l.seeds[id]
		if seed.Resolved {
			grouped[seed.ResolvedChapter] = append(grouped[seed.ResolvedChapter], *seed)
		}
	}
	for _, seeds := range grouped {
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].PlantedChapter < seeds[j].PlantedChapter })
	}
	return grouped
}

// Len reports the number of planted seeds.
func (l *Ledger) Len() int {
	return len(l.seeds)
}
