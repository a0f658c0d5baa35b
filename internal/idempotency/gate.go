// Package idempotency guarantees at-most-one effectful execution per trigger
// delivery id, using a short-lived Redis lock plus a longer-lived done marker.
package idempotency

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Outcome of a TryAcquire call.
type Outcome int

// TryAcquire outcomes. Only Acquired permits side effects; the other two mean
// the caller must report a success-equivalent status so the trigger source
// does not retry.
const (
	Acquired Outcome = iota
	AlreadyProcessing
	AlreadyDone
)

// DefaultLockTTL bounds how long a crashed worker can block a legitimate
// external retry.
const DefaultLockTTL = 5 * time.Minute

// DefaultDoneTTL is how long a completed delivery id stays recognizable.
const DefaultDoneTTL = 24 * time.Hour

// Gate is the distributed idempotency gate.
type Gate struct {
	client  goredis.UniversalClient
	lockTTL time.Duration
	doneTTL time.Duration
}

// New creates a Gate with default TTLs.
func New(client goredis.UniversalClient) *Gate {
	return &Gate{client: client, lockTTL: DefaultLockTTL, doneTTL: DefaultDoneTTL}
}

// WithTTLs overrides the lock and done-marker TTLs.
func (g *Gate) WithTTLs(lockTTL, doneTTL time.Duration) *Gate {
	g.lockTTL = lockTTL
	g.doneTTL = doneTTL
	return g
}

func lockKey(deliveryID string) string {
	return "pressroom:trigger:lock:" + deliveryID
}

func doneKey(deliveryID string) string {
	return "pressroom:trigger:done:" + deliveryID
}

// TryAcquire attempts to claim the delivery id. An Acquired caller must later
// call MarkDone on success or Release on failure.
func (g *Gate) TryAcquire(ctx context.Context, deliveryID string) (Outcome, error) {
	done, err := g.client.Exists(ctx, doneKey(deliveryID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check done marker: %w", err)
	}
	if done > 0 {
		return AlreadyDone, nil
	}

	ok, err := g.client.SetNX(ctx, lockKey(deliveryID), "1", g.lockTTL).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to acquire idempotency lock: %w", err)
	}
	if !ok {
		return AlreadyProcessing, nil
	}
	return Acquired, nil
}

// MarkDone records the delivery as completed and drops the in-flight lock.
// Subsequent retries of the same delivery id resolve to AlreadyDone.
func (g *Gate) MarkDone(ctx context.Context, deliveryID string) error {
	if err := g.client.Set(ctx, doneKey(deliveryID), "1", g.doneTTL).Err(); err != nil {
		return fmt.Errorf("failed to set done marker: %w", err)
	}
	if err := g.client.Del(ctx, lockKey(deliveryID)).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Release drops the lock without a done marker, so a legitimate external
// retry can re-attempt the delivery after a failure.
func (g *Gate) Release(ctx context.Context, deliveryID string) error {
	if err := g.client.Del(ctx, lockKey(deliveryID)).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
