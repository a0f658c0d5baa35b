package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStage names a step of the generation pipeline state machine.
type JobStage string

// Pipeline stages, in execution order.
const (
	StageResearching JobStage = "researching"
	StageOutlining   JobStage = "outlining"
	StageExpanding   JobStage = "expanding"
	StageCritiquing  JobStage = "critiquing"
	StageImaging     JobStage = "imaging"
	StageReconciling JobStage = "reconciling"
	StageScored      JobStage = "scored"
)

// GeneratedImage pairs raw image bytes with their AI-authored metadata after
// reconciliation.
type GeneratedImage struct {
	Data     []byte `json:"-"`
	AltText  string `json:"alt_text"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

// ImageMeta is the per-image metadata authored alongside the draft body.
type ImageMeta struct {
	AltText  string `json:"alt_text"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

// OutlineSection is one planned section of an article.
type OutlineSection struct {
	Heading string   `json:"heading"`
	Points  []string `json:"points"`
}

// FAQEntry is one planned question and answer.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Outline is the structured output of the outlining stage.
type Outline struct {
	Title    string           `json:"title"`
	Sections []OutlineSection `json:"sections"`
	FAQ      []FAQEntry       `json:"faq,omitempty"`
}

// GenerationJob is the record of intent for one trigger-driven generation.
// It lives in memory for the duration of the pipeline; drafts above the
// checkpoint cost threshold are persisted so a restart can refund them.
type GenerationJob struct {
	ID          uuid.UUID    `json:"id"`
	DeliveryID  string       `json:"delivery_id"`
	Slot        *ContentSlot `json:"-"`
	UserID      uuid.UUID    `json:"user_id"`
	Topic       TopicCluster `json:"topic"`
	ContentType ContentType  `json:"content_type"`
	Charged     int64        `json:"charged"` // tokens charged up front

	// Checkpointed is set once a durable checkpoint row exists for this job.
	// Refund paths use it to decide whether a claim on the row is required.
	Checkpointed bool `json:"-"`

	Stage    JobStage `json:"stage"`
	Research string   `json:"research,omitempty"`
	Outline  *Outline `json:"outline,omitempty"`
	Draft    string   `json:"draft,omitempty"`
	Critique string   `json:"critique,omitempty"`

	Images     []GeneratedImage `json:"-"`
	ImageMetas []ImageMeta      `json:"image_metas,omitempty"`

	Score    *QualityScore `json:"score,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// AddWarning appends a non-fatal degradation note surfaced alongside success.
func (j *GenerationJob) AddWarning(w string) {
	j.Warnings = append(j.Warnings, w)
}

// CheckpointCostThreshold is the charge, in tokens, above which a job's draft
// is persisted durably so a process restart can resume or refund it.
const CheckpointCostThreshold = 100

// Generation charge model, in whole tokens. Charged up front; refunded on
// terminal failure.
const (
	LongformBaseCost  = 300
	ShortformBaseCost = 80
	ImageCost         = 10
)

// GenerationCost is the up-front charge for one job.
func GenerationCost(contentType ContentType, imageCount int) int64 {
	base := int64(LongformBaseCost)
	if contentType == ContentTypeShortform {
		base = ShortformBaseCost
	}
	return base + int64(imageCount)*ImageCost
}
