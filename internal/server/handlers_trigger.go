package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/db"
	"github.com/jonathan/pressroom/internal/governor"
	"github.com/jonathan/pressroom/internal/idempotency"
	"github.com/jonathan/pressroom/internal/ledger"
	"github.com/jonathan/pressroom/internal/quality"
	"github.com/jonathan/pressroom/internal/rotation"
	"github.com/jonathan/pressroom/internal/trigger"
	"github.com/jonathan/pressroom/internal/types"
)

// maxTriggerBody bounds the webhook body size.
const maxTriggerBody = 1 << 20

// uniquenessWindow is how far back near-duplicate fingerprints are checked.
const uniquenessWindow = 30 * 24 * time.Hour

// retryAfterSeconds is the Retry-After hint returned with 503 responses.
const retryAfterSeconds = 30

// triggerResponse is the webhook's JSON body. Every business outcome returns
// 200 with a status; non-200 is reserved for authentication failures and
// capacity backpressure.
type triggerResponse struct {
	Status   string   `json:"status"` // published | duplicate | rejected | failed
	JobID    string   `json:"job_id,omitempty"`
	Topic    string   `json:"topic,omitempty"`
	URL      string   `json:"url,omitempty"`
	Score    int      `json:"score,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// handleTrigger is the scheduled-trigger webhook. It walks the full chain:
// verify → idempotency → admission → charge → rotate → generate → publish,
// with the refund guarantees each step's failure demands.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		s.errorResponse(w, &ValidationError{Message: "failed to read request body"})
		return
	}

	verified, err := s.deps.Receiver.Receive(body,
		r.Header.Get(trigger.SignatureHeader),
		r.Header.Get(trigger.DeliveryIDHeader))
	if err != nil {
		var authErr *trigger.AuthError
		if errors.As(err, &authErr) {
			s.errorResponse(w, &UnauthorizedError{Message: authErr.Reason})
			return
		}
		s.errorResponse(w, err)
		return
	}

	log := s.log.WithFields(logrus.Fields{
		"delivery_id": verified.DeliveryID,
		"slot_id":     verified.Payload.SlotID,
	})

	outcome, err := s.deps.Gate.TryAcquire(r.Context(), verified.DeliveryID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if outcome != idempotency.Acquired {
		log.Info("duplicate delivery, no-op")
		s.jsonResponse(w, http.StatusOK, triggerResponse{Status: "duplicate"})
		return
	}

	release, err := s.deps.Governor.Acquire(r.Context())
	if err != nil {
		// The job never started and nothing was charged; drop the lock so the
		// scheduler's retry can go through once capacity frees up.
		s.releaseGate(verified.DeliveryID)
		if errors.Is(err, governor.ErrTimeout) || errors.Is(err, governor.ErrDraining) {
			log.WithField("error", err.Error()).Warn("admission rejected")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		s.errorResponse(w, err)
		return
	}
	defer release()

	s.runTriggeredJob(w, r, verified, log)
}

// runTriggeredJob owns everything after slot admission. The gate lock is held
// on entry and resolved on every path: MarkDone after a successful publish,
// Release everywhere else so the scheduler's retry is admitted.
func (s *Server) runTriggeredJob(w http.ResponseWriter, r *http.Request, verified *types.VerifiedTrigger, log *logrus.Entry) {
	ctx := r.Context()
	payload := verified.Payload

	slot, err := s.deps.Store.GetSlot(ctx, payload.SlotID)
	if err != nil {
		s.releaseGate(verified.DeliveryID)
		s.errorResponse(w, err)
		return
	}
	if slot == nil || slot.UserID != payload.UserID {
		s.releaseGate(verified.DeliveryID)
		s.jsonResponse(w, http.StatusOK, triggerResponse{
			Status: "rejected", Reason: "slot not found for user",
		})
		return
	}
	if payload.ContentType != "" {
		slot.ContentType = types.ContentType(payload.ContentType)
	}

	cost := types.GenerationCost(slot.ContentType, slot.ImageCount)
	if _, err := s.deps.Ledger.Charge(ctx, slot.UserID, cost); err != nil {
		s.releaseGate(verified.DeliveryID)
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			s.jsonResponse(w, http.StatusOK, triggerResponse{
				Status: "rejected", Reason: "insufficient balance",
			})
			return
		}
		s.errorResponse(w, err)
		return
	}

	// Charged from here on: every early exit must refund.
	job := &types.GenerationJob{
		ID:          uuid.New(),
		DeliveryID:  verified.DeliveryID,
		Slot:        slot,
		UserID:      slot.UserID,
		ContentType: slot.ContentType,
		Charged:     cost,
		StartedAt:   time.Now(),
	}

	history, err := s.deps.Store.ListPublications(ctx, slot.ID, 0)
	if err != nil {
		s.settleFailure(job, "failed to load publication history: "+err.Error())
		s.errorResponse(w, err)
		return
	}
	selection, err := rotation.SelectNext(slot, history, time.Now())
	if err != nil {
		s.settleFailure(job, err.Error())
		s.jsonResponse(w, http.StatusOK, triggerResponse{
			Status: "failed", Reason: err.Error(),
		})
		return
	}
	job.Topic = selection.Topic
	if selection.PoolWarning != nil {
		job.AddWarning(selection.PoolWarning.String())
	}
	if selection.UsedLRUFallback {
		job.AddWarning("all topics on cooldown, reused least recently published")
	}
	log = log.WithField("topic", job.Topic.MainPhrase)

	// The job context is bound to the governor, not the request: a dropped
	// webhook connection must not abort a charged generation.
	jobCtx, cancel := s.deps.Governor.JobContext(s.cfg.JobDeadline)
	defer cancel()

	if err := s.deps.Orchestrator.Run(jobCtx, job); err != nil {
		log.WithField("error", err.Error()).Warn("generation failed")
		s.settleFailure(job, err.Error())
		s.jsonResponse(w, http.StatusOK, triggerResponse{
			Status: "failed", JobID: job.ID.String(), Topic: job.Topic.MainPhrase,
			Reason: err.Error(), Warnings: job.Warnings,
		})
		return
	}

	s.checkUniqueness(jobCtx, job)

	result, err := s.deps.Coordinator.Publish(jobCtx, job)
	if err != nil {
		// The coordinator already refunded and recorded the failed attempt;
		// only the checkpoint needs settling here. The delivery lock is
		// released, not marked done, so the scheduler's retry gets a fresh
		// attempt instead of a duplicate no-op.
		s.settleCheckpoint(job)
		s.releaseGate(verified.DeliveryID)
		s.jsonResponse(w, http.StatusOK, triggerResponse{
			Status: "failed", JobID: job.ID.String(), Topic: job.Topic.MainPhrase,
			Reason: err.Error(), Warnings: job.Warnings,
		})
		return
	}
	job.Warnings = append(job.Warnings, result.Warnings...)

	s.completeCheckpoint(job)
	s.markDone(verified.DeliveryID)
	log.WithFields(logrus.Fields{
		"url":   result.URL,
		"score": job.Score.Total,
	}).Info("trigger completed")
	s.jsonResponse(w, http.StatusOK, triggerResponse{
		Status: "published", JobID: job.ID.String(), Topic: job.Topic.MainPhrase,
		URL: result.URL, Score: job.Score.Total, Warnings: job.Warnings,
	})
}

// checkUniqueness compares the draft fingerprint against recent publications.
// Near-duplicates degrade to a warning, never a block.
func (s *Server) checkUniqueness(ctx context.Context, job *types.GenerationJob) {
	recent, err := s.deps.Store.ListRecentPublications(ctx, job.Slot.ID, job.ContentType,
		time.Now().Add(-uniquenessWindow))
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("uniqueness check skipped")
		return
	}
	fingerprint := quality.Fingerprint(job.Draft)
	if warning := quality.CheckUniqueness(fingerprint, recent); warning != nil {
		job.AddWarning("content is close to a recent publication on " +
			warning.Against.Topic + ", consider refreshing the topic pool")
	}
}

// settleFailure refunds a charged job that never reached a successful publish
// and records the failed attempt. It runs on a background context so a
// cancelled job context cannot strand the refund, and releases the gate lock
// so the scheduler's retry can try again.
func (s *Server) settleFailure(job *types.GenerationJob, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// A checkpoint row exists only once the orchestrator wrote one. Jobs that
	// fail before that point have no row to claim; their refund is owed
	// unconditionally.
	if job.Checkpointed {
		claimed, err := s.deps.Store.ClaimCheckpointForRefund(ctx, job.ID)
		if err != nil {
			s.log.WithField("error", err.Error()).Error("checkpoint claim failed")
		} else if !claimed {
			// Another party (the startup reconciler) owns this refund.
			s.releaseGate(job.DeliveryID)
			return
		}
	}
	if _, err := s.deps.Ledger.Refund(ctx, job.UserID, job.Charged); err != nil {
		s.log.WithFields(logrus.Fields{
			"job_id": job.ID, "error": err.Error(),
		}).Error("refund failed")
	}
	if job.Checkpointed {
		if err := s.deps.Store.ResolveCheckpoint(ctx, job.ID, db.CheckpointRefunded); err != nil {
			s.log.WithField("error", err.Error()).Error("checkpoint resolve failed")
		}
	}

	rec := &types.PublicationRecord{
		SlotID:      job.Slot.ID,
		Topic:       job.Topic.MainPhrase,
		Platform:    job.Slot.Platform,
		ContentType: job.ContentType,
		TokensSpent: job.Charged,
		Status:      types.PublicationFailed,
		FailReason:  reason,
	}
	if job.Draft != "" {
		rec.ContentHash = quality.Fingerprint(job.Draft)
	}
	if err := s.deps.Store.CreatePublication(ctx, rec); err != nil {
		s.log.WithField("error", err.Error()).Error("failed to record failed attempt")
	}

	s.releaseGate(job.DeliveryID)
}

// settleCheckpoint resolves a checkpoint whose refund was already issued by
// the publish coordinator. The row is still running at this point, so the
// claim only loses to a concurrent reconciler.
func (s *Server) settleCheckpoint(job *types.GenerationJob) {
	if !job.Checkpointed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claimed, err := s.deps.Store.ClaimCheckpointForRefund(ctx, job.ID)
	if err != nil || !claimed {
		return
	}
	if err := s.deps.Store.ResolveCheckpoint(ctx, job.ID, db.CheckpointRefunded); err != nil {
		s.log.WithField("error", err.Error()).Error("checkpoint resolve failed")
	}
}

// completeCheckpoint marks a checkpoint completed once the job published.
func (s *Server) completeCheckpoint(job *types.GenerationJob) {
	if !job.Checkpointed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.deps.Store.ResolveCheckpoint(ctx, job.ID, db.CheckpointCompleted); err != nil {
		s.log.WithField("error", err.Error()).Error("checkpoint resolve failed")
	}
}

func (s *Server) markDone(deliveryID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.deps.Gate.MarkDone(ctx, deliveryID); err != nil {
		s.log.WithField("error", err.Error()).Error("failed to mark delivery done")
	}
}

func (s *Server) releaseGate(deliveryID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.deps.Gate.Release(ctx, deliveryID); err != nil {
		s.log.WithField("error", err.Error()).Error("failed to release delivery lock")
	}
}
