package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/persist"
	"github.com/storyloom/narrative/internal/story"
)

func drain(t *testing.T, events <-chan ProgressEvent) []ProgressEvent {
	t.Helper()
	var got []ProgressEvent
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) == 0 {
		t.Fatal("no events received")
	}
	if !got[len(got)-1].Terminal {
		t.Fatal("stream ended without a terminal event")
	}
	return got
}

func TestOrchestratorEndToEnd(t *testing.T) {
	store := persist.NewMemStore()
	o := New(agent.NewMockGenerator(), persist.NewWriter(store, nil), WithWorkers(2))

	req := story.GenerationRequest{
		Prompt:           "a lighthouse keeper holds back more than the dark",
		CharacterCount:   2,
		PartCount:        2,
		ChaptersPerPart:  2,
		ScenesPerChapter: 3,
	}
	run, events, err := o.StartGeneration(context.Background(), req)
	if err != nil {
		t.Fatalf("StartGeneration() error: %v", err)
	}

	got := drain(t, events)

	var last int64
	for _, ev := range got {
		if ev.Seq <= last {
			t.Fatalf("seq %d not strictly greater than %d", ev.Seq, last)
		}
		last = ev.Seq
	}

	terminal := got[len(got)-1]
	if terminal.Phase != PhaseComplete {
		t.Fatalf("terminal phase = %q, want complete: %s", terminal.Phase, terminal.Message)
	}
	payload, ok := terminal.Payload.(CompletePayload)
	if !ok {
		t.Fatalf("terminal payload type = %T", terminal.Payload)
	}
	if payload.Parts != 2 || payload.Chapters != 4 || payload.Scenes != 12 {
		t.Errorf("payload counts = %d/%d/%d parts/chapters/scenes, want 2/4/12",
			payload.Parts, payload.Chapters, payload.Scenes)
	}

	if run.Status != StatusComplete {
		t.Errorf("run status = %q, want complete", run.Status)
	}
	if run.StoryID == "" {
		t.Error("run should carry the durable story id")
	}

	// Every chapter holds exactly one virtue scene and all scenes have prose.
	for _, p := range run.Story.Parts {
		for _, ch := range p.Chapters {
			virtue := 0
			for _, sc := range ch.Scenes {
				if sc.CyclePhase == story.PhaseVirtue {
					virtue++
				}
				if strings.TrimSpace(sc.Content) == "" {
					t.Errorf("scene %s has no content", sc.ID)
				}
			}
			if virtue != 1 {
				t.Errorf("chapter %s has %d virtue scenes, want 1", ch.ID, virtue)
			}
		}
	}

	// Chapter orders are global across parts.
	order := 0
	for _, p := range run.Story.Parts {
		for _, ch := range p.Chapters {
			if ch.Order != order {
				t.Errorf("chapter %s order = %d, want %d", ch.ID, ch.Order, order)
			}
			order++
		}
	}

	if rows := store.Rows("stories"); len(rows) != 1 {
		t.Errorf("stories rows = %d, want 1", len(rows))
	}
	if rows := store.Rows("scenes"); len(rows) != 12 {
		t.Errorf("scenes rows = %d, want 12", len(rows))
	}
}

func TestOrchestratorRejectsInvalidRequest(t *testing.T) {
	o := New(agent.NewMockGenerator(), persist.NewWriter(persist.NewMemStore(), nil))
	_, _, err := o.StartGeneration(context.Background(), story.GenerationRequest{Prompt: "too short"})
	if err == nil {
		t.Fatal("StartGeneration() should reject a sub-minimum prompt")
	}
}

func TestOrchestratorFailureIsTerminal(t *testing.T) {
	gen := agent.NewMockGenerator()
	gen.Fail = true
	o := New(gen, persist.NewWriter(persist.NewMemStore(), nil))

	run, events, err := o.StartGeneration(context.Background(), story.GenerationRequest{
		Prompt: "a lighthouse keeper holds back more than the dark",
	})
	if err != nil {
		t.Fatalf("StartGeneration() error: %v", err)
	}

	got := drain(t, events)
	terminal := got[len(got)-1]
	if terminal.Phase != PhaseFailed {
		t.Fatalf("terminal phase = %q, want failed", terminal.Phase)
	}
	payload, ok := terminal.Payload.(FailedPayload)
	if !ok {
		t.Fatalf("terminal payload type = %T", terminal.Payload)
	}
	if payload.Phase != PhaseStorySummary {
		t.Errorf("failed phase = %q, want story_summary", payload.Phase)
	}
	if run.Status != StatusFailed {
		t.Errorf("run status = %q, want failed", run.Status)
	}
}

func TestOrchestratorRunTimeout(t *testing.T) {
	o := New(agent.NewMockGenerator(), persist.NewWriter(persist.NewMemStore(), nil),
		WithRunTimeout(time.Nanosecond))

	_, events, err := o.StartGeneration(context.Background(), story.GenerationRequest{
		Prompt: "a lighthouse keeper holds back more than the dark",
	})
	if err != nil {
		t.Fatalf("StartGeneration() error: %v", err)
	}

	got := drain(t, events)
	terminal := got[len(got)-1]
	if terminal.Phase != PhaseFailed {
		t.Fatalf("terminal phase = %q, want failed", terminal.Phase)
	}
	payload := terminal.Payload.(FailedPayload)
	if !strings.Contains(payload.Reason, "time budget") {
		t.Errorf("reason = %q, want run-timeout wording", payload.Reason)
	}
}

func TestOrchestratorParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(agent.NewMockGenerator(), persist.NewWriter(persist.NewMemStore(), nil))
	_, events, err := o.StartGeneration(ctx, story.GenerationRequest{
		Prompt: "a lighthouse keeper holds back more than the dark",
	})
	if err != nil {
		t.Fatalf("StartGeneration() error: %v", err)
	}

	got := drain(t, events)
	terminal := got[len(got)-1]
	if terminal.Phase != PhaseFailed {
		t.Fatalf("terminal phase = %q, want failed", terminal.Phase)
	}
	payload := terminal.Payload.(FailedPayload)
	if strings.Contains(payload.Reason, "time budget") {
		t.Errorf("parent cancellation must not be reported as a run timeout: %q", payload.Reason)
	}
}
