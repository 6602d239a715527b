package ai

import (
	"context"
	"errors"
)

// ErrEmptyCompletion indicates the provider answered without any usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// CompletionRequest is a single prompt sent to a text generation model.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	// JSON asks the provider to constrain the reply to a JSON object.
	JSON bool
}

// Completer describes a model that turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
