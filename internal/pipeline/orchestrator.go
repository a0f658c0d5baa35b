// Package pipeline drives the multi-stage generation state machine:
// Researching → Outlining → Expanding → (ConditionalCritiquing) →
// ImageGenerating → Reconciling → Scored. Every AI-calling stage routes
// through a model fallback chain; structured outputs pass through the healing
// pipeline before use.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/healing"
	"github.com/jonathan/pressroom/internal/llm"
	"github.com/jonathan/pressroom/internal/quality"
	"github.com/jonathan/pressroom/internal/research"
	"github.com/jonathan/pressroom/internal/types"
)

// GenerationError is a terminal pipeline failure. Reason is safe to surface
// to the initiating user; Cause carries the technical detail for logs.
type GenerationError struct {
	Stage  types.JobStage
	Reason string
	Cause  error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed at %s: %s: %v", e.Stage, e.Reason, e.Cause)
	}
	return fmt.Sprintf("generation failed at %s: %s", e.Stage, e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// ResearchProvider gathers source pages for a topic. Implementations are best
// effort; the pipeline treats every failure as "no sources".
type ResearchProvider interface {
	GatherSources(ctx context.Context, topic types.TopicCluster, maxSources int) ([]research.Source, error)
}

// CheckpointStore persists jobs whose charge is worth recovering after a
// crash. Satisfied by *db.DB.
type CheckpointStore interface {
	CreateCheckpoint(ctx context.Context, job *types.GenerationJob) error
	SaveCheckpointDraft(ctx context.Context, job *types.GenerationJob) error
}

// Orchestrator runs generation jobs through the stage machine.
type Orchestrator struct {
	client      llm.Client
	chains      *llm.Chains
	healer      *healing.Healer
	researcher  ResearchProvider
	checkpoints CheckpointStore
	log         *logrus.Logger
}

// NewOrchestrator wires the pipeline. researcher and checkpoints may be nil;
// a nil researcher skips source gathering and a nil checkpoint store disables
// crash recovery for expensive jobs.
func NewOrchestrator(client llm.Client, chains *llm.Chains, healer *healing.Healer,
	researcher ResearchProvider, checkpoints CheckpointStore, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		client:      client,
		chains:      chains,
		healer:      healer,
		researcher:  researcher,
		checkpoints: checkpoints,
		log:         log,
	}
}

// Run executes the full pipeline on job, mutating it in place. On success the
// job carries a reconciled draft, images, and a quality score. The checkpoint
// is left in its running state either way: the caller resolves it completed
// after a successful publish, or claims it for a refund on any terminal
// failure. Job.Checkpointed records whether a row was actually written.
func (o *Orchestrator) Run(ctx context.Context, job *types.GenerationJob) error {
	if o.checkpoints != nil && job.Charged > types.CheckpointCostThreshold {
		if err := o.checkpoints.CreateCheckpoint(ctx, job); err != nil {
			return &GenerationError{Stage: job.Stage, Reason: "could not persist job state", Cause: err}
		}
		job.Checkpointed = true
	}

	o.setStage(job, types.StageResearching)
	o.runResearch(ctx, job)

	o.setStage(job, types.StageOutlining)
	if err := o.runOutline(ctx, job); err != nil {
		return err
	}

	o.setStage(job, types.StageExpanding)
	if err := o.runExpand(ctx, job); err != nil {
		return err
	}
	if job.Checkpointed {
		if err := o.checkpoints.SaveCheckpointDraft(ctx, job); err != nil {
			o.log.WithFields(logrus.Fields{
				"job_id": job.ID,
				"error":  err.Error(),
			}).Warn("failed to save draft checkpoint")
		}
	}

	// First scoring pass decides whether one critique rewrite is needed.
	job.Score = quality.Score(job.Draft, job.Topic, job.Slot)
	if job.Score.Verdict == types.VerdictCritique {
		o.setStage(job, types.StageCritiquing)
		if err := o.runCritique(ctx, job); err != nil {
			return err
		}
		job.Score = quality.Score(job.Draft, job.Topic, job.Slot)
	}
	if job.Score.Verdict == types.VerdictBlock {
		return &GenerationError{
			Stage:  types.StageScored,
			Reason: fmt.Sprintf("content quality below publishable threshold (%d/100)", job.Score.Total),
		}
	}
	if job.Score.Verdict == types.VerdictWarn {
		job.AddWarning(fmt.Sprintf("quality score %d is below the pass threshold", job.Score.Total))
	}

	o.setStage(job, types.StageImaging)
	if err := o.runImages(ctx, job); err != nil {
		return err
	}

	o.setStage(job, types.StageReconciling)
	o.runReconcile(job)

	o.setStage(job, types.StageScored)
	return nil
}

func (o *Orchestrator) setStage(job *types.GenerationJob, stage types.JobStage) {
	job.Stage = stage
	o.log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"slot":   job.Slot.Name,
		"stage":  stage,
	}).Info("pipeline stage")
}
