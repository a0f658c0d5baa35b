package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/pressroom/internal/types"
)

// GetSlot retrieves a content slot with its topic pool, or nil if not found.
func (db *DB) GetSlot(ctx context.Context, slotID uuid.UUID) (*types.ContentSlot, error) {
	var (
		slot            types.ContentSlot
		topicsJSON      []byte
		crossPostJSON   []byte
		cooldownSeconds int64
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, name, platform, content_type, topics,
		        cooldown_seconds, min_pool_size, language, image_count,
		        target_words, cross_post_platforms, created_at
		 FROM content_slots WHERE id = $1`,
		slotID,
	).Scan(&slot.ID, &slot.UserID, &slot.Name, &slot.Platform, &slot.ContentType,
		&topicsJSON, &cooldownSeconds, &slot.MinPoolSize, &slot.Language,
		&slot.ImageCount, &slot.TargetWords, &crossPostJSON, &slot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}

	slot.CooldownWindow = time.Duration(cooldownSeconds) * time.Second
	if len(topicsJSON) > 0 {
		if err := json.Unmarshal(topicsJSON, &slot.Topics); err != nil {
			return nil, fmt.Errorf("failed to decode slot topics: %w", err)
		}
	}
	if len(crossPostJSON) > 0 {
		if err := json.Unmarshal(crossPostJSON, &slot.CrossPostPlatforms); err != nil {
			return nil, fmt.Errorf("failed to decode cross-post platforms: %w", err)
		}
	}
	return &slot, nil
}

// ListSlots retrieves all content slots owned by a user.
func (db *DB) ListSlots(ctx context.Context, userID uuid.UUID) ([]types.ContentSlot, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, name, platform, content_type, topics,
		        cooldown_seconds, min_pool_size, language, image_count,
		        target_words, cross_post_platforms, created_at
		 FROM content_slots WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []types.ContentSlot
	for rows.Next() {
		var (
			slot            types.ContentSlot
			topicsJSON      []byte
			crossPostJSON   []byte
			cooldownSeconds int64
		)
		if err := rows.Scan(&slot.ID, &slot.UserID, &slot.Name, &slot.Platform,
			&slot.ContentType, &topicsJSON, &cooldownSeconds, &slot.MinPoolSize,
			&slot.Language, &slot.ImageCount, &slot.TargetWords, &crossPostJSON,
			&slot.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slot.CooldownWindow = time.Duration(cooldownSeconds) * time.Second
		if len(topicsJSON) > 0 {
			if err := json.Unmarshal(topicsJSON, &slot.Topics); err != nil {
				return nil, fmt.Errorf("failed to decode slot topics: %w", err)
			}
		}
		if len(crossPostJSON) > 0 {
			if err := json.Unmarshal(crossPostJSON, &slot.CrossPostPlatforms); err != nil {
				return nil, fmt.Errorf("failed to decode cross-post platforms: %w", err)
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// CreateSlot inserts a new content slot and returns its ID.
func (db *DB) CreateSlot(ctx context.Context, slot *types.ContentSlot) (uuid.UUID, error) {
	topicsJSON, err := json.Marshal(slot.Topics)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal slot topics: %w", err)
	}
	crossPostJSON, err := json.Marshal(slot.CrossPostPlatforms)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal cross-post platforms: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO content_slots
		   (user_id, name, platform, content_type, topics, cooldown_seconds,
		    min_pool_size, language, image_count, target_words, cross_post_platforms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		slot.UserID, slot.Name, slot.Platform, slot.ContentType, topicsJSON,
		int64(slot.CooldownWindow/time.Second), slot.MinPoolSize, slot.Language,
		slot.ImageCount, slot.TargetWords, crossPostJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create slot: %w", err)
	}
	return id, nil
}
