package server

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/db"
)

// ReconcileStaleJobs refunds checkpoints left in the running state by a
// previous process that died mid-job. The claim is a compare-and-swap, so a
// concurrently restarting replica cannot double-refund. Returns how many jobs
// were refunded.
func (s *Server) ReconcileStaleJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.deps.Store.ListStaleRunningCheckpoints(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale checkpoints: %w", err)
	}

	refunded := 0
	for _, cp := range stale {
		claimed, err := s.deps.Store.ClaimCheckpointForRefund(ctx, cp.ID)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"job_id": cp.ID, "error": err.Error(),
			}).Error("stale checkpoint claim failed")
			continue
		}
		if !claimed {
			continue
		}
		if _, err := s.deps.Ledger.Refund(ctx, cp.UserID, cp.Charged); err != nil {
			s.log.WithFields(logrus.Fields{
				"job_id": cp.ID, "error": err.Error(),
			}).Error("stale checkpoint refund failed")
			continue
		}
		if err := s.deps.Store.ResolveCheckpoint(ctx, cp.ID, db.CheckpointRefunded); err != nil {
			s.log.WithFields(logrus.Fields{
				"job_id": cp.ID, "error": err.Error(),
			}).Error("stale checkpoint resolve failed")
			continue
		}
		s.releaseGate(cp.DeliveryID)
		refunded++
	}

	if refunded > 0 {
		s.log.WithField("refunded", refunded).Info("reconciled stale jobs from previous run")
	}
	return refunded, nil
}
