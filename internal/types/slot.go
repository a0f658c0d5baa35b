package types

import (
	"time"

	"github.com/google/uuid"
)

// ContentType distinguishes long-form articles from short-form posts.
// Rotation cooldowns are tracked independently per content type.
type ContentType string

// Content type constants
const (
	ContentTypeLongform  ContentType = "longform"
	ContentTypeShortform ContentType = "shortform"
)

// PlatformType identifies a publishing target implementation.
type PlatformType string

// Platform type constants
const (
	PlatformWordPress PlatformType = "wordpress"
	PlatformTelegram  PlatformType = "telegram"
	PlatformVK        PlatformType = "vk"
)

// ContentSlot is one (topic pool, platform, schedule) publishing configuration.
type ContentSlot struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Name        string         `json:"name"`
	Platform    PlatformType   `json:"platform"`
	ContentType ContentType    `json:"content_type"`
	Topics      []TopicCluster `json:"topics"`

	// Rotation rules
	CooldownWindow time.Duration `json:"cooldown_window"` // default 7 days
	MinPoolSize    int           `json:"min_pool_size"`   // default 3

	// Generation settings
	Language    string `json:"language,omitempty"`
	ImageCount  int    `json:"image_count"`
	TargetWords int    `json:"target_words"`

	// Secondary targets for cross-posting. A failure on one of these refunds
	// its share without aborting the lead publish.
	CrossPostPlatforms []PlatformType `json:"cross_post_platforms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DefaultCooldownWindow is the rotation cooldown applied when a slot does not
// override it.
const DefaultCooldownWindow = 7 * 24 * time.Hour

// DefaultMinPoolSize is the pool size below which selection still proceeds but
// emits an InsufficientPool warning.
const DefaultMinPoolSize = 3

// EffectiveCooldown returns the slot cooldown window, falling back to the default.
func (s *ContentSlot) EffectiveCooldown() time.Duration {
	if s.CooldownWindow > 0 {
		return s.CooldownWindow
	}
	return DefaultCooldownWindow
}

// EffectiveMinPool returns the slot minimum pool size, falling back to the default.
func (s *ContentSlot) EffectiveMinPool() int {
	if s.MinPoolSize > 0 {
		return s.MinPoolSize
	}
	return DefaultMinPoolSize
}
