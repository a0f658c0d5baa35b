package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/pressroom/internal/types"
)

// Checkpoint statuses. A checkpoint moves running → completed/failed/refunded.
// The running → refunding transition is a compare-and-swap: whichever party
// wins it owns the refund, the loser exits with no side effects.
const (
	CheckpointRunning   = "running"
	CheckpointCompleted = "completed"
	CheckpointFailed    = "failed"
	CheckpointRefunding = "refunding"
	CheckpointRefunded  = "refunded"
)

// JobCheckpoint is the durable record of an in-flight generation whose charge
// is large enough to be worth recovering after a process restart.
type JobCheckpoint struct {
	ID         uuid.UUID
	DeliveryID string
	UserID     uuid.UUID
	SlotID     uuid.UUID
	Charged    int64
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateCheckpoint persists a running checkpoint for a charged job.
func (db *DB) CreateCheckpoint(ctx context.Context, job *types.GenerationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO job_checkpoints (id, delivery_id, user_id, slot_id, charged, status, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET payload = $7, updated_at = NOW()`,
		job.ID, job.DeliveryID, job.UserID, job.Slot.ID, job.Charged, CheckpointRunning, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return nil
}

// SaveCheckpointDraft updates the persisted job payload mid-pipeline.
func (db *DB) SaveCheckpointDraft(ctx context.Context, job *types.GenerationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE job_checkpoints SET payload = $2, updated_at = NOW() WHERE id = $1`,
		job.ID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint draft: %w", err)
	}
	return nil
}

// ResolveCheckpoint marks a checkpoint with its terminal status.
func (db *DB) ResolveCheckpoint(ctx context.Context, jobID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE job_checkpoints SET status = $2, updated_at = NOW() WHERE id = $1`,
		jobID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve checkpoint: %w", err)
	}
	return nil
}

// ClaimCheckpointForRefund atomically moves a checkpoint from running to
// refunding. Returns true when this caller won the claim; false means another
// party already owns it (or it already resolved) and the caller must do
// nothing.
func (db *DB) ClaimCheckpointForRefund(ctx context.Context, jobID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE job_checkpoints SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = $3`,
		jobID, CheckpointRefunding, CheckpointRunning,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim checkpoint: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListStaleRunningCheckpoints returns running checkpoints older than the
// cutoff. The startup reconciler refunds these: they belong to a process that
// died mid-job.
func (db *DB) ListStaleRunningCheckpoints(ctx context.Context, olderThan time.Time) ([]JobCheckpoint, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, delivery_id, user_id, slot_id, charged, status, created_at, updated_at
		 FROM job_checkpoints
		 WHERE status = $1 AND updated_at < $2`,
		CheckpointRunning, olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []JobCheckpoint
	for rows.Next() {
		var cp JobCheckpoint
		if err := rows.Scan(&cp.ID, &cp.DeliveryID, &cp.UserID, &cp.SlotID,
			&cp.Charged, &cp.Status, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, nil
}
