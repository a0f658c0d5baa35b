package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
)

// ErrorKind classifies a provider failure for fallback-chain routing.
type ErrorKind string

// Error kinds. The first four advance the fallback chain; KindOther does not.
const (
	KindRateLimit     ErrorKind = "rate_limit"
	KindServer        ErrorKind = "server"
	KindContextLength ErrorKind = "context_length"
	KindModeration    ErrorKind = "moderation"
	KindOther         ErrorKind = "other"
)

// ProviderError wraps a provider failure with its model and classification.
type ProviderError struct {
	Model string
	Kind  ErrorKind
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error from %s (%s): %v", e.Model, e.Kind, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the error should advance the fallback chain to
// the next model.
func Retryable(err error) bool {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	switch provErr.Kind {
	case KindRateLimit, KindServer, KindContextLength, KindModeration:
		return true
	}
	return false
}

// classify wraps a raw provider error in a ProviderError with the right kind.
func classify(model string, err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &ProviderError{Model: model, Kind: KindModeration, Cause: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return &ProviderError{Model: model, Kind: KindRateLimit, Cause: err}
		case apiErr.Code >= 500:
			return &ProviderError{Model: model, Kind: KindServer, Cause: err}
		case apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Message), "token"):
			return &ProviderError{Model: model, Kind: KindContextLength, Cause: err}
		}
	}

	return &ProviderError{Model: model, Kind: KindOther, Cause: err}
}
