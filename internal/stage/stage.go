// Package stage implements the pipeline's generation stages. Each stage
// builds one prompt, calls the text-generation backend, parses the response
// into typed records and validates the structural invariants it is
// responsible for. Field-level defects degrade into warnings; an unusable
// response (zero records) is retried once with the same input and then
// fatal.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/parse"
	"github.com/storyloom/narrative/internal/storage"
)

// Error wraps a stage failure with the stage name and attempt count so the
// terminal progress event can name the phase that failed.
type Error struct {
	Stage   string
	Attempt int
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stage %s failed (attempt %d): %v", e.Stage, e.Attempt, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Config carries the knobs shared by all stages. Artifacts, when set,
// receives every raw response under RunID before parsing touches it.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	CallTimeout time.Duration
	Artifacts   storage.Store
	RunID       string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.8,
		MaxTokens:   4096,
		CallTimeout: 2 * time.Minute,
	}
}

// Base provides the generate-then-parse skeleton stages embed.
type Base struct {
	name   string
	gen    agent.TextGenerator
	config Config
	logger *slog.Logger
}

// NewBase builds the shared stage core.
func NewBase(name string, gen agent.TextGenerator, config Config, logger *slog.Logger) Base {
	if logger == nil {
		logger = slog.Default()
	}
	return Base{
		name:   name,
		gen:    gen,
		config: config,
		logger: logger.With("stage", name),
	}
}

// Name returns the stage name used in progress events and errors.
func (b Base) Name() string {
	return b.name
}

// generate performs one backend call under the stage's call timeout.
func (b Base) generate(ctx context.Context, system, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	start := time.Now()
	b.logger.Debug("calling generation backend", "prompt_length", len(prompt))

	raw, err := b.gen.Generate(callCtx, agent.Request{
		Prompt:      prompt,
		System:      system,
		Model:       b.config.Model,
		Temperature: b.config.Temperature,
		MaxTokens:   b.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	b.logger.Debug("generation backend responded",
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(raw))

	if b.config.Artifacts != nil {
		path := fmt.Sprintf("runs/%s/%s_%d.txt", b.config.RunID, b.name, time.Now().UnixNano())
		if err := b.config.Artifacts.Save(ctx, path, []byte(raw)); err != nil {
			b.logger.Warn("failed to save raw response artifact", "path", path, "error", err)
		}
	}

	return raw, nil
}

// generateParsed runs the generate-parse loop: a response with zero
// parseable records earns exactly one regeneration with the same input
// before the stage fails. parseFn must return parse.ErrNoRecords for an
// unusable response and is otherwise expected to degrade gracefully.
func generateParsed[T any](ctx context.Context, b Base, system, prompt string, parseFn func(raw string) (T, []parse.Warning, error)) (T, []parse.Warning, error) {
	var zero T
	var lastErr error
	attempt := 0

	for attempt = 1; attempt <= 2; attempt++ {
		raw, err := b.generate(ctx, system, prompt)
		if err != nil {
			return zero, nil, &Error{Stage: b.name, Attempt: attempt, Cause: err}
		}

		records, warnings, err := parseFn(raw)
		if err == nil {
			for _, w := range warnings {
				b.logger.Warn("parse warning", "block", w.Block, "field", w.Field, "note", w.Note)
			}
			return records, warnings, nil
		}

		lastErr = err
		if !errors.Is(err, parse.ErrNoRecords) {
			break
		}
		b.logger.Warn("unusable response, regenerating once",
			"attempt", attempt,
			"error", err)
	}
	if attempt > 2 {
		attempt = 2
	}

	return zero, nil, &Error{Stage: b.name, Attempt: attempt, Cause: lastErr}
}
