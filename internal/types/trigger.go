// Package types provides type definitions for structured data used throughout the pressroom system.
package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TriggerPayload is the body of a scheduled-trigger webhook. The delivery id
// is NOT part of the body: it comes from a provider header that stays stable
// across the provider's own retries of the same logical trigger.
type TriggerPayload struct {
	SlotID         uuid.UUID `json:"slot_id" validate:"required"`
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	TargetPlatform string    `json:"target_platform" validate:"required"`
	ContentType    string    `json:"content_type,omitempty" validate:"omitempty,oneof=longform shortform"`
	// CorrelationKey is an optional user-supplied key carried through to the
	// publication record. It is never used for idempotency.
	CorrelationKey string `json:"correlation_key,omitempty"`
}

// Validate validates the TriggerPayload using the validator.
func (p *TriggerPayload) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// VerifiedTrigger is a trigger that passed signature verification.
type VerifiedTrigger struct {
	DeliveryID string
	Payload    TriggerPayload
}
