package llm

import (
	"context"
	"fmt"
)

// ChainExhaustedError is returned when every model in a fallback chain failed
// with a retryable error. It is terminal for the calling stage.
type ChainExhaustedError struct {
	Models  []string
	LastErr error
}

func (e *ChainExhaustedError) Error() string {
	return fmt.Sprintf("fallback chain exhausted after %d models: %v", len(e.Models), e.LastErr)
}

func (e *ChainExhaustedError) Unwrap() error {
	return e.LastErr
}

// RunChain tries call against each model in order. Retryable failures advance
// to the next model; non-retryable failures and context cancellation stop
// immediately. This is the single retry policy shared by every AI-calling
// stage.
func RunChain[T any](ctx context.Context, models []string, call func(ctx context.Context, model string) (T, error)) (T, error) {
	var zero T
	if len(models) == 0 {
		return zero, fmt.Errorf("fallback chain is empty")
	}

	var lastErr error
	for _, model := range models {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := call(ctx, model)
		if err == nil {
			return out, nil
		}
		if !Retryable(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, &ChainExhaustedError{Models: models, LastErr: lastErr}
}
