// Package agent wraps the external text-generation capability. The rest of
// the pipeline consumes it through the TextGenerator interface and treats
// the returned text as untrusted free form; turning it into typed records
// is the parser's job.
package agent

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the generation backend could not produce a
// response after retries. Fatal to the run: no stage can proceed without
// its upstream text.
var ErrUnavailable = errors.New("generation backend unavailable")

// Request carries one generation call's parameters.
type Request struct {
	Prompt      string
	System      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the single capability the pipeline needs from the
// language-model backend.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
