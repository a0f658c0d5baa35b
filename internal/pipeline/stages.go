package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/llm"
	"github.com/jonathan/pressroom/internal/prompts"
	"github.com/jonathan/pressroom/internal/research"
	"github.com/jonathan/pressroom/internal/schemas"
	"github.com/jonathan/pressroom/internal/types"
)

// runResearch gathers sources and summarizes them into a digest. Best effort:
// any failure degrades to generating without research context and is never
// job-fatal.
func (o *Orchestrator) runResearch(ctx context.Context, job *types.GenerationJob) {
	var sources []research.Source
	if o.researcher != nil {
		var err error
		sources, err = o.researcher.GatherSources(ctx, job.Topic, research.DefaultMaxSources)
		if err != nil {
			o.log.WithFields(logrus.Fields{
				"job_id": job.ID,
				"error":  err.Error(),
			}).Warn("source gathering failed")
			sources = nil
		}
	}

	key := "digest_unsourced"
	data := map[string]string{
		"Topic":      job.Topic.Name,
		"MainPhrase": job.Topic.MainPhrase,
	}
	if len(sources) > 0 {
		key = "digest"
		data["Sources"] = research.FormatSources(sources)
	}

	template, err := prompts.Get("research.json", key)
	if err != nil {
		job.AddWarning("research stage skipped")
		return
	}

	completion, err := llm.RunChain(ctx, o.chains.Research,
		func(ctx context.Context, model string) (*llm.Completion, error) {
			return o.client.Complete(ctx, model, prompts.Format(template, data))
		})
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"job_id": job.ID,
			"error":  err.Error(),
		}).Warn("research digest failed, proceeding without it")
		job.AddWarning("research stage skipped")
		return
	}
	job.Research = completion.Content
}

// runOutline produces the structured article plan. Terminal on failure.
func (o *Orchestrator) runOutline(ctx context.Context, job *types.GenerationJob) error {
	key := "longform"
	if job.ContentType == types.ContentTypeShortform {
		key = "shortform"
	}
	template, err := prompts.Get("outline.json", key)
	if err != nil {
		return &GenerationError{Stage: types.StageOutlining, Reason: "outline prompt unavailable", Cause: err}
	}

	prompt := prompts.Format(template, map[string]string{
		"Topic":            job.Topic.Name,
		"MainPhrase":       job.Topic.MainPhrase,
		"SecondaryPhrases": strings.Join(job.Topic.SecondaryPhrases, ", "),
		"TargetWords":      strconv.Itoa(job.Slot.TargetWords),
		"Research":         job.Research,
	})

	completion, err := llm.RunChain(ctx, o.chains.Outline,
		func(ctx context.Context, model string) (*llm.Completion, error) {
			return o.client.CompleteJSON(ctx, model, prompt)
		})
	if err != nil {
		return &GenerationError{Stage: types.StageOutlining, Reason: "outline generation failed", Cause: err}
	}

	healed, err := o.healer.Heal(ctx, schemas.OutlineSchema, completion.Content)
	if err != nil {
		return &GenerationError{Stage: types.StageOutlining, Reason: "outline was unrecoverably malformed", Cause: err}
	}

	var outline types.Outline
	if err := json.Unmarshal([]byte(healed.JSON), &outline); err != nil {
		return &GenerationError{Stage: types.StageOutlining, Reason: "outline was unrecoverably malformed", Cause: err}
	}
	job.Outline = &outline
	return nil
}

// runExpand writes each planned section and assembles the markdown draft,
// inserting image placeholder markers after the leading sections. Terminal on
// failure.
func (o *Orchestrator) runExpand(ctx context.Context, job *types.GenerationJob) error {
	template, err := prompts.Get("expand.json", "section")
	if err != nil {
		return &GenerationError{Stage: types.StageExpanding, Reason: "expand prompt unavailable", Cause: err}
	}

	outline := job.Outline
	sectionWords := job.Slot.TargetWords
	if n := len(outline.Sections); n > 0 {
		sectionWords = job.Slot.TargetWords / n
	}
	phrases := append([]string{job.Topic.MainPhrase}, job.Topic.SecondaryPhrases...)

	var sb strings.Builder
	sb.WriteString("# " + outline.Title + "\n\n")

	for i, section := range outline.Sections {
		prompt := prompts.Format(template, map[string]string{
			"Title":        outline.Title,
			"Heading":      section.Heading,
			"Points":       "- " + strings.Join(section.Points, "\n- "),
			"Research":     job.Research,
			"Phrases":      strings.Join(phrases, ", "),
			"SectionWords": strconv.Itoa(sectionWords),
		})

		completion, err := llm.RunChain(ctx, o.chains.Expand,
			func(ctx context.Context, model string) (*llm.Completion, error) {
				return o.client.Complete(ctx, model, prompt)
			})
		if err != nil {
			return &GenerationError{Stage: types.StageExpanding, Reason: "section writing failed", Cause: err}
		}

		sb.WriteString("## " + section.Heading + "\n\n")
		sb.WriteString(strings.TrimSpace(completion.Content) + "\n\n")
		if i < job.Slot.ImageCount {
			sb.WriteString(ImageMarker(i+1) + "\n\n")
		}
	}

	if len(outline.FAQ) > 0 {
		sb.WriteString("## FAQ\n\n")
		for _, entry := range outline.FAQ {
			sb.WriteString("### " + entry.Question + "\n\n")
			sb.WriteString(entry.Answer + "\n\n")
		}
	}

	job.Draft = strings.TrimSpace(sb.String())
	return nil
}

// critiqueResult mirrors the critique schema.
type critiqueResult struct {
	RevisedBody string   `json:"revised_body"`
	IssuesFixed []string `json:"issues_fixed"`
}

// runCritique performs the single critique-and-rewrite pass for mid-scoring
// drafts. Terminal on failure.
func (o *Orchestrator) runCritique(ctx context.Context, job *types.GenerationJob) error {
	template, err := prompts.Get("critique.json", "revise")
	if err != nil {
		return &GenerationError{Stage: types.StageCritiquing, Reason: "critique prompt unavailable", Cause: err}
	}

	prompt := prompts.Format(template, map[string]string{
		"Title":      job.Outline.Title,
		"MainPhrase": job.Topic.MainPhrase,
		"Draft":      job.Draft,
	})

	completion, err := llm.RunChain(ctx, o.chains.Critique,
		func(ctx context.Context, model string) (*llm.Completion, error) {
			return o.client.CompleteJSON(ctx, model, prompt)
		})
	if err != nil {
		return &GenerationError{Stage: types.StageCritiquing, Reason: "critique pass failed", Cause: err}
	}

	healed, err := o.healer.Heal(ctx, schemas.CritiqueSchema, completion.Content)
	if err != nil {
		return &GenerationError{Stage: types.StageCritiquing, Reason: "critique output was unrecoverably malformed", Cause: err}
	}

	var result critiqueResult
	if err := json.Unmarshal([]byte(healed.JSON), &result); err != nil {
		return &GenerationError{Stage: types.StageCritiquing, Reason: "critique output was unrecoverably malformed", Cause: err}
	}

	job.Draft = result.RevisedBody
	job.Critique = strings.Join(result.IssuesFixed, "; ")
	return nil
}

// ImageMarker is the placeholder the expand stage writes and the reconcile
// stage substitutes.
func ImageMarker(n int) string {
	return fmt.Sprintf("[[image-%d]]", n)
}
