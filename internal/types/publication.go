package types

import (
	"time"

	"github.com/google/uuid"
)

// PublicationStatus is the terminal outcome of a publish attempt.
type PublicationStatus string

// Publication status constants
const (
	PublicationSucceeded PublicationStatus = "succeeded"
	PublicationFailed    PublicationStatus = "failed"
)

// PublicationRecord is the durable audit row written after every publish
// attempt, success or failure. Records are never mutated after creation; the
// rotator reads them for cooldown checks and the quality gate for uniqueness.
type PublicationRecord struct {
	ID          uuid.UUID         `json:"id"`
	SlotID      uuid.UUID         `json:"slot_id"`
	Topic       string            `json:"topic"` // main phrase of the chosen cluster
	Platform    PlatformType      `json:"platform"`
	ContentType ContentType       `json:"content_type"`
	TokensSpent int64             `json:"tokens_spent"`
	Status      PublicationStatus `json:"status"`
	ExternalURL string            `json:"external_url,omitempty"`
	ContentHash uint64            `json:"content_hash"` // SimHash fingerprint
	FailReason  string            `json:"fail_reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
