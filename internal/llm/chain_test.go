package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryableErr(model string, kind ErrorKind) error {
	return &ProviderError{Model: model, Kind: kind, Cause: fmt.Errorf("boom")}
}

func TestRunChain_FirstModelSucceeds(t *testing.T) {
	var calls []string
	out, err := RunChain(context.Background(), []string{"m1", "m2"},
		func(_ context.Context, model string) (string, error) {
			calls = append(calls, model)
			return "ok from " + model, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok from m1", out)
	assert.Equal(t, []string{"m1"}, calls)
}

func TestRunChain_AdvancesOnRetryable(t *testing.T) {
	var calls []string
	out, err := RunChain(context.Background(), []string{"m1", "m2", "m3"},
		func(_ context.Context, model string) (string, error) {
			calls = append(calls, model)
			if model != "m3" {
				return "", retryableErr(model, KindRateLimit)
			}
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"m1", "m2", "m3"}, calls)
}

func TestRunChain_Exhausted(t *testing.T) {
	_, err := RunChain(context.Background(), []string{"m1", "m2", "m3"},
		func(_ context.Context, model string) (string, error) {
			return "", retryableErr(model, KindServer)
		})
	var exhausted *ChainExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Models, 3)
}

func TestRunChain_NonRetryableStops(t *testing.T) {
	var calls int
	_, err := RunChain(context.Background(), []string{"m1", "m2"},
		func(_ context.Context, model string) (string, error) {
			calls++
			return "", retryableErr(model, KindOther)
		})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	var exhausted *ChainExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestRunChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunChain(ctx, []string{"m1"},
		func(_ context.Context, _ string) (string, error) {
			t.Fatal("call should not run after cancellation")
			return "", nil
		})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunChain_EmptyChain(t *testing.T) {
	_, err := RunChain(context.Background(), nil,
		func(_ context.Context, _ string) (string, error) { return "", nil })
	assert.Error(t, err)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, Retryable(retryableErr("m", KindRateLimit)))
	assert.True(t, Retryable(retryableErr("m", KindServer)))
	assert.True(t, Retryable(retryableErr("m", KindContextLength)))
	assert.True(t, Retryable(retryableErr("m", KindModeration)))
	assert.False(t, Retryable(retryableErr("m", KindOther)))
	assert.False(t, Retryable(fmt.Errorf("plain error")))
}
