package trigger

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pressroom/internal/types"
)

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(types.TriggerPayload{
		SlotID:         uuid.New(),
		UserID:         uuid.New(),
		TargetPlatform: "wordpress",
		ContentType:    "longform",
	})
	require.NoError(t, err)
	return body
}

func TestReceive_ValidSignature(t *testing.T) {
	r, err := NewReceiver("current-key", "")
	require.NoError(t, err)

	body := validBody(t)
	verified, err := r.Receive(body, Sign(body, "current-key"), "delivery-1")
	require.NoError(t, err)
	assert.Equal(t, "delivery-1", verified.DeliveryID)
	assert.Equal(t, "wordpress", verified.Payload.TargetPlatform)
}

func TestReceive_NextKeyDuringRotation(t *testing.T) {
	r, err := NewReceiver("old-key", "new-key")
	require.NoError(t, err)

	body := validBody(t)

	// Both the outgoing and the incoming key verify during rotation.
	_, err = r.Receive(body, Sign(body, "old-key"), "d1")
	assert.NoError(t, err)
	_, err = r.Receive(body, Sign(body, "new-key"), "d2")
	assert.NoError(t, err)
}

func TestReceive_WrongKey(t *testing.T) {
	r, err := NewReceiver("current-key", "")
	require.NoError(t, err)

	body := validBody(t)
	_, err = r.Receive(body, Sign(body, "other-key"), "d1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "signature mismatch")
}

func TestReceive_MissingHeaders(t *testing.T) {
	r, err := NewReceiver("current-key", "")
	require.NoError(t, err)

	body := validBody(t)
	_, err = r.Receive(body, "", "d1")
	assert.Error(t, err)

	_, err = r.Receive(body, Sign(body, "current-key"), "")
	assert.Error(t, err)
}

func TestReceive_MalformedBody(t *testing.T) {
	r, err := NewReceiver("current-key", "")
	require.NoError(t, err)

	body := []byte(`{"slot_id": "not-a-uuid"`)
	_, err = r.Receive(body, Sign(body, "current-key"), "d1")
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestReceive_InvalidPayload(t *testing.T) {
	r, err := NewReceiver("current-key", "")
	require.NoError(t, err)

	// Valid JSON but missing required fields.
	body := []byte(fmt.Sprintf(`{"user_id": %q}`, uuid.New()))
	_, err = r.Receive(body, Sign(body, "current-key"), "d1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "invalid payload")
}

func TestReceive_NonHexSignature(t *testing.T) {
	r, err := NewReceiver("current-key", "")
	require.NoError(t, err)

	_, err = r.Receive(validBody(t), "zzzz-not-hex", "d1")
	assert.Error(t, err)
}
