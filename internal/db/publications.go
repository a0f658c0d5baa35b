package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/pressroom/internal/types"
)

// CreatePublication writes the durable audit row for a publish attempt.
// Records are append-only; nothing ever updates them.
func (db *DB) CreatePublication(ctx context.Context, rec *types.PublicationRecord) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO publication_records
		   (slot_id, topic, platform, content_type, tokens_spent, status,
		    external_url, content_hash, fail_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		rec.SlotID, rec.Topic, rec.Platform, rec.ContentType, rec.TokensSpent,
		rec.Status, rec.ExternalURL, int64(rec.ContentHash), rec.FailReason,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to create publication record: %w", err)
	}
	return nil
}

// ListRecentPublications retrieves publication records for a slot and content
// type created after the cutoff, newest first. The rotator uses this for
// cooldown checks and the quality gate for uniqueness fingerprints.
func (db *DB) ListRecentPublications(ctx context.Context, slotID uuid.UUID, contentType types.ContentType, since time.Time) ([]types.PublicationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, slot_id, topic, platform, content_type, tokens_spent,
		        status, external_url, content_hash, fail_reason, created_at
		 FROM publication_records
		 WHERE slot_id = $1 AND content_type = $2 AND created_at >= $3
		 ORDER BY created_at DESC`,
		slotID, contentType, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	return scanPublications(rows)
}

// ListPublications retrieves the most recent publication records for a slot
// regardless of age, newest first. Used for the LRU rotation fallback and the
// management API.
func (db *DB) ListPublications(ctx context.Context, slotID uuid.UUID, limit int) ([]types.PublicationRecord, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, slot_id, topic, platform, content_type, tokens_spent,
		        status, external_url, content_hash, fail_reason, created_at
		 FROM publication_records
		 WHERE slot_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		slotID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	return scanPublications(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
}

func scanPublications(rows pgxRows) ([]types.PublicationRecord, error) {
	var records []types.PublicationRecord
	for rows.Next() {
		var rec types.PublicationRecord
		var hash int64
		if err := rows.Scan(&rec.ID, &rec.SlotID, &rec.Topic, &rec.Platform,
			&rec.ContentType, &rec.TokensSpent, &rec.Status, &rec.ExternalURL,
			&hash, &rec.FailReason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		rec.ContentHash = uint64(hash)
		records = append(records, rec)
	}
	return records, nil
}
