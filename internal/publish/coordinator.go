package publish

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/quality"
	"github.com/jonathan/pressroom/internal/types"
)

// Ledger is the refund surface the coordinator needs. Satisfied by
// *ledger.Ledger.
type Ledger interface {
	Refund(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
}

// RecordStore persists publication audit rows. Satisfied by *db.DB.
type RecordStore interface {
	CreatePublication(ctx context.Context, record *types.PublicationRecord) error
}

// Outcome summarizes a coordinated publish across the lead platform and any
// cross-post targets.
type Outcome struct {
	URL      string
	Warnings []string
}

// Coordinator dispatches to registered publishers and keeps the ledger and
// audit trail in lock-step with the results.
type Coordinator struct {
	registry *Registry
	ledger   Ledger
	records  RecordStore
	log      *logrus.Logger
}

// NewCoordinator wires the publish coordinator.
func NewCoordinator(registry *Registry, ledger Ledger, records RecordStore, log *logrus.Logger) *Coordinator {
	return &Coordinator{registry: registry, ledger: ledger, records: records, log: log}
}

// Publish sends the job's content to its slot's lead platform and then to any
// cross-post targets. A lead failure refunds the full charge and aborts; a
// cross-post failure refunds that target's share and degrades to a warning.
// Every attempt, either way, leaves a PublicationRecord.
func (c *Coordinator) Publish(ctx context.Context, job *types.GenerationJob) (*Outcome, error) {
	fingerprint := quality.Fingerprint(job.Draft)
	req := &Request{
		Title:  job.Outline.Title,
		Body:   job.Draft,
		Images: job.Images,
	}

	secondaries := job.Slot.CrossPostPlatforms
	share := job.Charged / int64(len(secondaries)+1)
	leadShare := job.Charged - share*int64(len(secondaries))

	lead := job.Slot.Platform
	info, err := c.publishTo(ctx, lead, req)
	if err != nil {
		c.refund(ctx, job, job.Charged, "lead publish failed")
		c.record(ctx, job, lead, job.Charged, fingerprint, "", err)
		return nil, &Error{Platform: lead, Cause: err}
	}
	c.record(ctx, job, lead, leadShare, fingerprint, info.URL, nil)
	c.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"platform": lead,
		"url":      info.URL,
	}).Info("published")

	outcome := &Outcome{URL: info.URL}
	for _, platform := range secondaries {
		crossInfo, err := c.publishTo(ctx, platform, req)
		if err != nil {
			c.refund(ctx, job, share, fmt.Sprintf("cross-post to %s failed", platform))
			c.record(ctx, job, platform, share, fingerprint, "", err)
			warning := fmt.Sprintf("cross-post to %s failed, share refunded", platform)
			outcome.Warnings = append(outcome.Warnings, warning)
			c.log.WithFields(logrus.Fields{
				"job_id":   job.ID,
				"platform": platform,
				"error":    err.Error(),
			}).Warn("cross-post failed")
			continue
		}
		c.record(ctx, job, platform, share, fingerprint, crossInfo.URL, nil)
	}

	return outcome, nil
}

func (c *Coordinator) publishTo(ctx context.Context, platform types.PlatformType, req *Request) (*PostInfo, error) {
	pub, ok := c.registry.Get(platform)
	if !ok {
		return nil, fmt.Errorf("no publisher registered for %s", platform)
	}
	return pub.Publish(ctx, req)
}

func (c *Coordinator) refund(ctx context.Context, job *types.GenerationJob, amount int64, reason string) {
	if _, err := c.ledger.Refund(ctx, job.UserID, amount); err != nil {
		c.log.WithFields(logrus.Fields{
			"job_id": job.ID,
			"user":   job.UserID,
			"amount": amount,
			"error":  err.Error(),
		}).Error("refund failed")
		return
	}
	c.log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"amount": amount,
		"reason": reason,
	}).Info("refunded")
}

func (c *Coordinator) record(ctx context.Context, job *types.GenerationJob, platform types.PlatformType,
	tokens int64, fingerprint uint64, url string, publishErr error) {
	rec := &types.PublicationRecord{
		ID:          uuid.New(),
		SlotID:      job.Slot.ID,
		Topic:       job.Topic.MainPhrase,
		Platform:    platform,
		ContentType: job.ContentType,
		TokensSpent: tokens,
		Status:      types.PublicationSucceeded,
		ExternalURL: url,
		ContentHash: fingerprint,
	}
	if publishErr != nil {
		rec.Status = types.PublicationFailed
		rec.FailReason = publishErr.Error()
	}
	if err := c.records.CreatePublication(ctx, rec); err != nil {
		c.log.WithFields(logrus.Fields{
			"job_id": job.ID,
			"error":  err.Error(),
		}).Error("failed to write publication record")
	}
}
