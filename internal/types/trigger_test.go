package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerPayloadValidate(t *testing.T) {
	payload := TriggerPayload{
		SlotID:         uuid.New(),
		UserID:         uuid.New(),
		TargetPlatform: "wordpress",
		ContentType:    "longform",
	}
	require.NoError(t, payload.Validate())
}

func TestTriggerPayloadValidate_MissingSlot(t *testing.T) {
	payload := TriggerPayload{
		UserID:         uuid.New(),
		TargetPlatform: "wordpress",
	}
	assert.Error(t, payload.Validate())
}

func TestTriggerPayloadValidate_BadContentType(t *testing.T) {
	payload := TriggerPayload{
		SlotID:         uuid.New(),
		UserID:         uuid.New(),
		TargetPlatform: "wordpress",
		ContentType:    "medium-form",
	}
	assert.Error(t, payload.Validate())
}
