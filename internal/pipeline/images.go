package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/pressroom/internal/llm"
	"github.com/jonathan/pressroom/internal/prompts"
	"github.com/jonathan/pressroom/internal/schemas"
	"github.com/jonathan/pressroom/internal/types"
)

// runImages generates the slot's images concurrently, one request per image.
// Partial failure is tolerated: any successes let the job proceed with fewer
// images and a warning. Only when every request fails on every model in the
// image chain does the job fail.
func (o *Orchestrator) runImages(ctx context.Context, job *types.GenerationJob) error {
	count := job.Slot.ImageCount
	if count <= 0 {
		return nil
	}

	template, err := prompts.Get("images.json", "generate")
	if err != nil {
		return &GenerationError{Stage: types.StageImaging, Reason: "image prompt unavailable", Cause: err}
	}

	var (
		images  [][]byte
		lastErr error
	)
	for _, model := range o.chains.Image {
		images, lastErr = o.generateBatch(ctx, model, template, job, count)
		if len(images) > 0 {
			break
		}
		if lastErr != nil && !llm.Retryable(lastErr) {
			break
		}
	}

	if len(images) == 0 {
		return &GenerationError{Stage: types.StageImaging, Reason: "image generation failed on every model", Cause: lastErr}
	}
	if len(images) < count {
		job.AddWarning(fmt.Sprintf("generated %d of %d images", len(images), count))
	}

	o.generateImageMetadata(ctx, job, len(images))

	// Stash raw bytes; reconciliation pairs them with metadata.
	job.Images = make([]types.GeneratedImage, len(images))
	for i, data := range images {
		job.Images[i] = types.GeneratedImage{Data: data}
	}
	return nil
}

// generateBatch fires count concurrent requests against one model and returns
// the successes in positional order.
func (o *Orchestrator) generateBatch(ctx context.Context, model, template string, job *types.GenerationJob, count int) ([][]byte, error) {
	results := make([][]byte, count)
	var (
		mu      sync.Mutex
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			subject := job.Outline.Title
			if i < len(job.Outline.Sections) {
				subject = job.Outline.Sections[i].Heading
			}
			prompt := prompts.Format(template, map[string]string{
				"Title":   job.Outline.Title,
				"Index":   fmt.Sprintf("%d", i+1),
				"Count":   fmt.Sprintf("%d", count),
				"Context": subject,
			})

			data, err := o.client.GenerateImage(gctx, model, prompt)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				o.log.WithFields(logrus.Fields{
					"job_id": job.ID,
					"model":  model,
					"index":  i + 1,
					"error":  err.Error(),
				}).Warn("image request failed")
				return nil
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var images [][]byte
	for _, data := range results {
		if data != nil {
			images = append(images, data)
		}
	}
	return images, lastErr
}

// imageMetaResult mirrors the image metadata schema.
type imageMetaResult struct {
	Images []types.ImageMeta `json:"images"`
}

// generateImageMetadata asks a cheap model for alt text, captions, and
// filenames. Failure is non-fatal: reconciliation pads with generic metadata.
func (o *Orchestrator) generateImageMetadata(ctx context.Context, job *types.GenerationJob, count int) {
	template, err := prompts.Get("images.json", "metadata")
	if err != nil {
		return
	}

	var outlineText string
	for _, s := range job.Outline.Sections {
		outlineText += "- " + s.Heading + "\n"
	}
	prompt := prompts.Format(template, map[string]string{
		"Title":   job.Outline.Title,
		"Count":   fmt.Sprintf("%d", count),
		"Outline": outlineText,
	})

	completion, err := llm.RunChain(ctx, o.chains.Critique,
		func(ctx context.Context, model string) (*llm.Completion, error) {
			return o.client.CompleteJSON(ctx, model, prompt)
		})
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"job_id": job.ID,
			"error":  err.Error(),
		}).Warn("image metadata generation failed, using generic metadata")
		return
	}

	healed, err := o.healer.Heal(ctx, schemas.ImageMetaSchema, completion.Content)
	if err != nil {
		return
	}

	var result imageMetaResult
	if err := json.Unmarshal([]byte(healed.JSON), &result); err != nil {
		return
	}
	job.ImageMetas = result.Images
}
