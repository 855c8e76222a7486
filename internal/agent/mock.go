package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// MockGenerator returns deterministic canned responses for tests and dry
// runs. It inspects the prompt for the stage marker and the requested
// record count so pipeline-level tests exercise real parsing. Safe for
// concurrent use; scene-stage calls arrive from the worker pool.
type MockGenerator struct {
	// Responses overrides the canned text for a stage keyword when set.
	Responses map[string]string
	// Fail makes every call return ErrUnavailable.
	Fail bool

	mu           sync.Mutex
	calls        []Request
	chapterCalls int
}

// NewMockGenerator creates an empty mock.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Responses: make(map[string]string)}
}

var countRe = regexp.MustCompile(`exactly (\d+)`)

// Calls returns every request received so far, in order.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Generate satisfies TextGenerator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.Fail {
		return "", ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prompt := strings.ToLower(req.Prompt)
	count := 3
	if match := countRe.FindStringSubmatch(prompt); match != nil {
		count, _ = strconv.Atoi(match[1])
	}

	for key, response := range m.Responses {
		if strings.Contains(prompt, key) {
			return response, nil
		}
	}

	switch {
	case strings.Contains(prompt, "scene breakdown"):
		return mockScenes(count), nil
	case strings.Contains(prompt, "chapter outline"):
		m.mu.Lock()
		m.chapterCalls++
		call := m.chapterCalls
		m.mu.Unlock()
		return mockChapters(count, call), nil
	case strings.Contains(prompt, "character roster"):
		return mockCharacters(count), nil
	case strings.Contains(prompt, "setting palette"):
		return mockSettings(count), nil
	case strings.Contains(prompt, "story summary"):
		return "# STORY 1: The Hollow Lighthouse\n## Summary\nA keeper guards a light that holds back more than the dark.\n## Themes\ncourage, duty\n", nil
	case strings.Contains(prompt, "part outline"):
		return mockParts(count), nil
	default:
		return "The keeper climbed the stairs as the storm pressed against the glass.", nil
	}
}

// mockChapters namespaces seed ids by the chapter-outline call number so a
// multi-part run never replants an id from an earlier part.
func mockChapters(n, call int) string {
	var b strings.Builder
	positions := []string{"beginning", "middle", "climax", "resolution"}
	for i := 1; i <= n; i++ {
		pos := positions[(i-1)*len(positions)/max(n, 1)]
		fmt.Fprintf(&b, "# CHAPTER %d: Trial %d\n", i, i)
		fmt.Fprintf(&b, "## Summary\nThe keeper faces trial %d.\n", i)
		b.WriteString("## Primary Character\nMara Voss\n")
		fmt.Fprintf(&b, "## Arc Position\n%s\n", pos)
		b.WriteString("## Adversity Type\nexternal\n## Virtue\ncourage\n")
		fmt.Fprintf(&b, "## Seeds Planted\n- lantern-%d-%d: a cracked lantern -> it fails at the worst moment\n", call, i)
		if i > 1 {
			fmt.Fprintf(&b, "## Seeds Resolved\n- lantern-%d-%d\n", call, i-1)
		}
		b.WriteString("## Connects To Previous\nFollows from the prior storm.\n")
		b.WriteString("## Creates Next Adversity\nThe light begins to dim.\n\n")
	}
	return b.String()
}

func mockScenes(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "# SCENE %d: Beat %d\n", i, i)
		fmt.Fprintf(&b, "## Summary\nBeat %d of the chapter.\n", i)
		switch {
		case i == n-1 || (n == 1 && i == 1):
			b.WriteString("## Cycle Phase\nvirtue\n## Emotional Beat\nelevation\n## Suggested Length\nlong\n")
		case i == n:
			b.WriteString("## Cycle Phase\nconsequence\n## Emotional Beat\nrelief\n## Suggested Length\nshort\n")
		default:
			b.WriteString("## Cycle Phase\nsetup\n## Emotional Beat\ntension\n## Suggested Length\nmedium\n")
		}
		b.WriteString("## Character Focus\nMara Voss\n## Setting\nThe Lighthouse\n")
		b.WriteString("## Sensory Anchors\n- salt spray\n- gull cries\n")
		b.WriteString("## Dialogue Balance\nbalanced\n\n")
	}
	return b.String()
}

func mockCharacters(n int) string {
	names := []string{"Mara Voss", "Tobin Hale", "Sefa Orun", "Ilka Dray", "Corvin Ashe", "Petra Lindqvist"}
	var b strings.Builder
	for i := 1; i <= n && i <= len(names); i++ {
		fmt.Fprintf(&b, "# CHARACTER %d: %s\n", i, names[i-1])
		if i == 1 {
			b.WriteString("## Role\nmain\n")
		} else {
			b.WriteString("## Role\nsupporting\n")
		}
		b.WriteString("## Core Trait\nsteadfast\n## Internal Flaw\nfear of abandonment\n")
		b.WriteString("## External Goal\nkeep the light burning\n")
		b.WriteString("## Traits\npatient, wry\n## Values\nduty, kinship\n")
		b.WriteString("## Backstory\nRaised on the rock after the mainland flooded.\n")
		b.WriteString("## Appearance\nWeathered hands, oilskin coat.\n## Voice\nLow and deliberate.\n\n")
	}
	return b.String()
}

func mockSettings(n int) string {
	names := []string{"The Lighthouse", "The Drowned Village", "The Shoal Market"}
	var b strings.Builder
	for i := 1; i <= n && i <= len(names); i++ {
		fmt.Fprintf(&b, "# SETTING %d: %s\n", i, names[i-1])
		b.WriteString("## Description\nStone and brass above a restless sea.\n")
		b.WriteString("## Sights\nbeam sweep, wet stone\n## Sounds\nfoghorn, wind\n")
		b.WriteString("## Smells\nbrine, lamp oil\n## Textures\ncold rails\n## Tastes\nsalt\n")
		b.WriteString("## Mood\nisolated, vigilant\n\n")
	}
	return b.String()
}

func mockParts(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "# PART %d: Act %d\n", i, i)
		fmt.Fprintf(&b, "## Summary\nAct %d of the keeper's ordeal.\n", i)
		b.WriteString("## Arcs\n- Mara Voss | doubts her resolve | the storm season | courage | earns the village's trust | the light falters | 2\n\n")
	}
	return b.String()
}
