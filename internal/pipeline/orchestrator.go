// Package pipeline sequences the generation stages into a full narrative
// run: summary, characters, settings, parts, then per part a chapter
// outline and per chapter a scene breakdown and prose. A single goroutine
// drives the state machine and owns all shared run state; bounded worker
// pools are used only for the per-chapter scene work inside one part, which
// has no cross-chapter data dependency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/continuity"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/stage"
	"github.com/storyloom/narrative/internal/storage"
	"github.com/storyloom/narrative/internal/story"
)

// ErrRunTimeout indicates the run exceeded its total wall-clock budget,
// independent of any single call staying within its own timeout.
var ErrRunTimeout = errors.New("run exceeded total time budget")

// Status is a run's terminal disposition.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Run is the in-memory state of one end-to-end generation. It is owned by
// the orchestrator goroutine until the terminal event is published.
type Run struct {
	ID       string
	Request  story.GenerationRequest
	Story    story.Story
	Ledger   *continuity.Ledger
	Warnings []parse.Warning
	Status   Status
	StoryID  string
}

// Committer persists a finished tree and returns the durable story id.
type Committer interface {
	Commit(ctx context.Context, runID string, s *story.Story, seeds []story.Seed) (string, error)
}

// CompletePayload rides the terminal complete event.
type CompletePayload struct {
	StoryID     string       `json:"story_id"`
	Characters  int          `json:"characters"`
	Settings    int          `json:"settings"`
	Parts       int          `json:"parts"`
	Chapters    int          `json:"chapters"`
	Scenes      int          `json:"scenes"`
	OpenThreads []story.Seed `json:"open_threads,omitempty"`
	Warnings    int          `json:"warnings"`
}

// FailedPayload rides the terminal failed event.
type FailedPayload struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason"`
}

// Orchestrator drives generation runs.
type Orchestrator struct {
	gen            agent.TextGenerator
	committer      Committer
	stageConfig    stage.Config
	artifacts      storage.Store
	workers        int
	bufferSize     int
	runTimeout     time.Duration
	trailingWindow int
	logger         *slog.Logger
	validate       *validator.Validate
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds concurrent scene generation per part. Set it to what
// the backend's rate limit tolerates, not what throughput wants.
func WithWorkers(workers int) Option {
	return func(o *Orchestrator) {
		if workers > 0 {
			o.workers = workers
		}
	}
}

// WithRunTimeout bounds a run's total wall-clock time.
func WithRunTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.runTimeout = timeout
		}
	}
}

// WithBufferSize sets the progress queue capacity.
func WithBufferSize(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// WithStageConfig overrides the per-stage generation parameters.
func WithStageConfig(config stage.Config) Option {
	return func(o *Orchestrator) {
		o.stageConfig = config
	}
}

// WithArtifacts saves every raw model response under the run id.
func WithArtifacts(store storage.Store) Option {
	return func(o *Orchestrator) {
		o.artifacts = store
	}
}

// WithTrailingWindow sets how many trailing chapters of the previous part
// feed the next part's causal-link context.
func WithTrailingWindow(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.trailingWindow = n
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New builds an Orchestrator.
func New(gen agent.TextGenerator, committer Committer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:            gen,
		committer:      committer,
		stageConfig:    stage.DefaultConfig(),
		workers:        4,
		bufferSize:     256,
		runTimeout:     30 * time.Minute,
		trailingWindow: 2,
		logger:         slog.Default().With("component", "pipeline"),
		validate:       validator.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartGeneration validates the request and launches a run. The returned
// channel delivers progress events in strictly increasing sequence order
// and closes after the terminal complete or failed event.
func (o *Orchestrator) StartGeneration(ctx context.Context, req story.GenerationRequest) (*Run, <-chan ProgressEvent, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}
	req.ApplyDefaults()

	run := &Run{
		ID:      uuid.New().String(),
		Request: req,
		Ledger:  continuity.NewLedger(),
		Status:  StatusRunning,
	}
	queue := newProgressQueue(o.bufferSize, o.logger.With("run_id", run.ID))

	go o.execute(ctx, run, queue)

	return run, queue.stream(ctx), nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, queue *progressQueue) {
	logger := o.logger.With("run_id", run.ID)
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()

	fail := func(phase Phase, err error) {
		if errors.Is(err, context.DeadlineExceeded) && runCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", ErrRunTimeout, time.Since(start).Round(time.Second))
		}
		run.Status = StatusFailed
		logger.Error("run failed", "phase", phase, "error", err)
		queue.publish(PhaseFailed, fmt.Sprintf("generation failed during %s: %v", phase, err),
			FailedPayload{Phase: phase, Reason: err.Error()}, true)
	}

	cfg := o.stageConfig
	cfg.Artifacts = o.artifacts
	cfg.RunID = run.ID

	summaryStage := stage.NewSummary(o.gen, cfg, logger)
	charactersStage := stage.NewCharacters(o.gen, cfg, logger)
	settingsStage := stage.NewSettings(o.gen, cfg, logger)
	partsStage := stage.NewParts(o.gen, cfg, logger)
	chaptersStage := stage.NewChapters(o.gen, cfg, logger)
	scenesStage := stage.NewScenes(o.gen, cfg, logger)
	proseStage := stage.NewProse(o.gen, cfg, logger)

	// Story summary.
	if err := runCtx.Err(); err != nil {
		fail(PhaseStorySummary, err)
		return
	}
	queue.publish(PhaseStorySummary, "summarizing premise", nil, false)
	summary, warnings, err := summaryStage.Run(runCtx, run.Request)
	if err != nil {
		fail(PhaseStorySummary, err)
		return
	}
	run.Warnings = append(run.Warnings, warnings...)
	run.Story = story.Story{
		Title:   summary.Title,
		Premise: run.Request.Prompt,
		Summary: summary.Summary,
		Genre:   run.Request.Genre,
		Tone:    run.Request.Tone,
		Themes:  summary.Themes,
	}
	queue.publish(PhaseStorySummary, fmt.Sprintf("story summary ready: %q", summary.Title), nil, false)

	// Characters.
	if err := runCtx.Err(); err != nil {
		fail(PhaseCharacters, err)
		return
	}
	queue.publish(PhaseCharacters, "generating character roster", nil, false)
	characters, warnings, err := charactersStage.Run(runCtx, run.Request, summary)
	if err != nil {
		fail(PhaseCharacters, err)
		return
	}
	run.Warnings = append(run.Warnings, warnings...)
	run.Story.Characters = characters
	queue.publish(PhaseCharacters, fmt.Sprintf("%d characters generated", len(characters)), nil, false)

	// Settings.
	if err := runCtx.Err(); err != nil {
		fail(PhaseSettings, err)
		return
	}
	queue.publish(PhaseSettings, "generating setting palettes", nil, false)
	settings, warnings, err := settingsStage.Run(runCtx, summary, characters)
	if err != nil {
		fail(PhaseSettings, err)
		return
	}
	run.Warnings = append(run.Warnings, warnings...)
	run.Story.Settings = settings
	queue.publish(PhaseSettings, fmt.Sprintf("%d settings generated", len(settings)), nil, false)

	// Part outline.
	if err := runCtx.Err(); err != nil {
		fail(PhaseParts, err)
		return
	}
	queue.publish(PhaseParts, "outlining parts", nil, false)
	parts, warnings, err := partsStage.Run(runCtx, run.Request, summary, characters)
	if err != nil {
		fail(PhaseParts, err)
		return
	}
	run.Warnings = append(run.Warnings, warnings...)
	queue.publish(PhaseParts, fmt.Sprintf("%d parts outlined", len(parts)), nil, false)

	// Parts run strictly in order: chapter generation for part N needs the
	// trailing chapters of part N-1 for its causal links.
	var trailing []story.Chapter
	nextChapterOrder := 0
	for pi := range parts {
		part := &parts[pi]

		if err := runCtx.Err(); err != nil {
			fail(PhaseChapters, err)
			return
		}
		queue.publish(PhaseChapters, fmt.Sprintf("outlining chapters for part %d of %d", pi+1, len(parts)), nil, false)

		chapters, warnings, err := chaptersStage.Run(runCtx, run.Request, *part, characters, trailing, nextChapterOrder)
		if err != nil {
			fail(PhaseChapters, err)
			return
		}
		run.Warnings = append(run.Warnings, warnings...)

		// Ledger mutations happen here, on the orchestrator goroutine, in
		// chapter order. Violations are logic defects and fatal.
		for _, ch := range chapters {
			for _, seed := range ch.SeedsPlanted {
				if err := run.Ledger.Plant(seed); err != nil {
					fail(PhaseChapters, err)
					return
				}
			}
			for _, seedID := range ch.SeedsResolved {
				if err := run.Ledger.Resolve(seedID, ch.Order); err != nil {
					fail(PhaseChapters, err)
					return
				}
			}
			queue.publish(PhaseChapters,
				fmt.Sprintf("chapter %d of %d outlined for part %d", ch.Order-nextChapterOrder+1, len(chapters), pi+1),
				nil, false)
		}

		// Scene work for different chapters has no cross-chapter
		// dependency; fan out under the worker bound and reassemble by
		// order index.
		if err := runCtx.Err(); err != nil {
			fail(PhaseScenes, err)
			return
		}
		queue.publish(PhaseScenes, fmt.Sprintf("generating scenes for part %d", pi+1), nil, false)

		jobs := make([]chapterJob, len(chapters))
		for i, ch := range chapters {
			jobs[i] = chapterJob{chapter: ch}
		}

		results, err := processPool(runCtx, o.workers, jobs, logger, func(ctx context.Context, job chapterJob) (chapterResult, error) {
			return o.generateChapterScenes(ctx, job, run, scenesStage, proseStage, queue)
		})
		if err != nil {
			fail(PhaseScenes, err)
			return
		}

		byOrder := make(map[int]chapterResult, len(results))
		for _, r := range results {
			byOrder[r.order] = r
		}
		for i := range chapters {
			r := byOrder[chapters[i].Order]
			chapters[i].Scenes = r.scenes
			run.Warnings = append(run.Warnings, r.warnings...)
		}

		part.Chapters = chapters
		nextChapterOrder += len(chapters)
		if len(chapters) > o.trailingWindow {
			trailing = chapters[len(chapters)-o.trailingWindow:]
		} else {
			trailing = chapters
		}
	}
	run.Story.Parts = parts

	// Persist. The tree is fully validated by the stages; the writer adds
	// no gate of its own.
	if err := runCtx.Err(); err != nil {
		fail(PhaseAssembling, err)
		return
	}
	queue.publish(PhaseAssembling, "persisting story", nil, false)
	storyID, err := o.committer.Commit(runCtx, run.ID, &run.Story, run.Ledger.All())
	if err != nil {
		fail(PhaseAssembling, err)
		return
	}

	run.StoryID = storyID
	run.Status = StatusComplete
	payload := CompletePayload{
		StoryID:     storyID,
		Characters:  len(run.Story.Characters),
		Settings:    len(run.Story.Settings),
		Parts:       len(run.Story.Parts),
		OpenThreads: run.Ledger.OpenThreads(),
		Warnings:    len(run.Warnings),
	}
	for _, p := range run.Story.Parts {
		payload.Chapters += len(p.Chapters)
		for _, ch := range p.Chapters {
			payload.Scenes += len(ch.Scenes)
		}
	}

	logger.Info("run complete",
		"story_id", storyID,
		"chapters", payload.Chapters,
		"scenes", payload.Scenes,
		"open_threads", len(payload.OpenThreads),
		"duration", time.Since(start).Round(time.Second))
	queue.publish(PhaseComplete, fmt.Sprintf("story %q complete", run.Story.Title), payload, true)
}

type chapterJob struct {
	chapter story.Chapter
}

func (j chapterJob) ID() string {
	return j.chapter.ID
}

type chapterResult struct {
	order    int
	scenes   []story.Scene
	warnings []parse.Warning
}

// generateChapterScenes runs the scene breakdown and prose stages for one
// chapter. It touches no shared run state; results flow back through the
// pool and are merged by the orchestrator goroutine.
func (o *Orchestrator) generateChapterScenes(ctx context.Context, job chapterJob, run *Run, scenesStage *stage.Scenes, proseStage *stage.Prose, queue *progressQueue) (chapterResult, error) {
	scenes, warnings, err := scenesStage.Run(ctx, run.Request, job.chapter, run.Story.Characters, run.Story.Settings)
	if err != nil {
		return chapterResult{}, err
	}
	queue.publish(PhaseScenes, fmt.Sprintf("scene breakdown ready for %q", job.chapter.Title), nil, false)

	settingsByID := make(map[string]*story.Setting, len(run.Story.Settings))
	for i := range run.Story.Settings {
		settingsByID[run.Story.Settings[i].ID] = &run.Story.Settings[i]
	}

	for i := range scenes {
		if err := ctx.Err(); err != nil {
			return chapterResult{}, err
		}
		content, err := proseStage.Run(ctx, scenes[i], job.chapter, settingsByID[scenes[i].SettingID])
		if err != nil {
			return chapterResult{}, err
		}
		scenes[i].Content = content
		queue.publish(PhaseSceneContent,
			fmt.Sprintf("scene %d of %d written for %q", i+1, len(scenes), job.chapter.Title),
			nil, false)
	}

	return chapterResult{order: job.chapter.Order, scenes: scenes, warnings: warnings}, nil
}
