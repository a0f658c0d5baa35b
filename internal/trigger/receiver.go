// Package trigger verifies inbound scheduled-trigger webhooks and extracts a
// retry-stable delivery identifier. Verification is pure: no side effects.
package trigger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jonathan/pressroom/internal/types"
)

// Header names used by the trigger provider.
const (
	// SignatureHeader carries hex(HMAC-SHA256(body, key)).
	SignatureHeader = "X-Trigger-Signature"
	// DeliveryIDHeader is the provider's message id, stable across the
	// provider's own retries of the same logical trigger.
	DeliveryIDHeader = "X-Trigger-Delivery"
)

// AuthError indicates a missing or invalid signature, a missing delivery id,
// or a malformed body. The webhook boundary maps it to HTTP 401.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("trigger authentication failed: %s", e.Reason)
}

// Receiver verifies trigger signatures against the current signing key and,
// during a rotation window, the next key. Either key verifying is accepted so
// keys rotate without downtime.
type Receiver struct {
	currentKey []byte
	nextKey    []byte // empty outside rotation windows
}

// NewReceiver creates a Receiver. nextKey may be empty.
func NewReceiver(currentKey, nextKey string) (*Receiver, error) {
	if currentKey == "" {
		return nil, fmt.Errorf("current signing key is required")
	}
	r := &Receiver{currentKey: []byte(currentKey)}
	if nextKey != "" {
		r.nextKey = []byte(nextKey)
	}
	return r, nil
}

// Receive verifies the signature and parses the body into a VerifiedTrigger.
// It returns *AuthError for any verification failure.
func (r *Receiver) Receive(body []byte, signature, deliveryID string) (*types.VerifiedTrigger, error) {
	if signature == "" {
		return nil, &AuthError{Reason: "missing signature header"}
	}
	if deliveryID == "" {
		return nil, &AuthError{Reason: "missing delivery id header"}
	}
	if !r.verify(body, signature) {
		return nil, &AuthError{Reason: "signature mismatch"}
	}

	var payload types.TriggerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("malformed body: %v", err)}
	}
	if err := payload.Validate(); err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("invalid payload: %v", err)}
	}

	return &types.VerifiedTrigger{DeliveryID: deliveryID, Payload: payload}, nil
}

// verify checks the signature against the current key, then the next key.
func (r *Receiver) verify(body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	if checkMAC(body, expected, r.currentKey) {
		return true
	}
	if len(r.nextKey) > 0 && checkMAC(body, expected, r.nextKey) {
		return true
	}
	return false
}

func checkMAC(body, expected, key []byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the hex signature for a body with the given key. Used by the
// external scheduler and by tests.
func Sign(body []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
