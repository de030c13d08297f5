package agent

import "context"

// Completer turns a prompt into generated text. Implementations block for one
// round-trip and must honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ensure GeminiClient implements Completer.
var _ Completer = (*GeminiClient)(nil)
