// Package healing turns malformed model output into schema-valid JSON.
// It escalates through cheap fixes first: a direct parse, then deterministic
// syntactic repair, then a single model repair call on the cheapest chain.
// If all three fail the artifact is unrecoverable and the stage fails.
package healing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/llm"
	"github.com/jonathan/pressroom/internal/prompts"
	"github.com/jonathan/pressroom/internal/schemas"
)

// RepairExhaustedError is terminal: the artifact could not be made valid by
// any repair step.
type RepairExhaustedError struct {
	SchemaName string
	LastErr    error
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("repair exhausted for %s artifact: %v", e.SchemaName, e.LastErr)
}

func (e *RepairExhaustedError) Unwrap() error {
	return e.LastErr
}

// Result is a healed artifact plus the cost of healing it. TokensIn and
// TokensOut are zero when no model call was needed.
type Result struct {
	JSON      string
	Repaired  bool
	ModelUsed string
	TokensIn  int
	TokensOut int
	CostUSD   float64
}

// Healer validates model output against embedded schemas and repairs it when
// invalid.
type Healer struct {
	client llm.Client
	chain  []string
	log    *logrus.Logger
}

// NewHealer creates a Healer using chain for the single model repair attempt.
func NewHealer(client llm.Client, chain []string, log *logrus.Logger) *Healer {
	return &Healer{client: client, chain: chain, log: log}
}

// Heal returns schema-valid JSON derived from raw, or a *RepairExhaustedError
// if no repair step produced a valid document.
func (h *Healer) Heal(ctx context.Context, schemaName, raw string) (*Result, error) {
	// Step 1: the output may already be valid.
	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemaName, cleaned); err == nil {
		return &Result{JSON: cleaned}, nil
	}

	// Step 2: deterministic syntactic repair.
	repaired := SyntacticRepair(raw)
	if err := schemas.Validate(schemaName, repaired); err == nil {
		h.log.WithField("schema", schemaName).Debug("artifact recovered by syntactic repair")
		return &Result{JSON: repaired, Repaired: true}, nil
	}

	// Step 3: one model repair pass. The repair chain holds only cheap
	// models so a doomed artifact fails fast and cheap.
	lastErr := schemas.Validate(schemaName, repaired)
	result, err := h.modelRepair(ctx, schemaName, raw, lastErr)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"schema": schemaName,
			"error":  err.Error(),
		}).Warn("model repair failed")
		return nil, &RepairExhaustedError{SchemaName: schemaName, LastErr: err}
	}

	if err := schemas.Validate(schemaName, result.JSON); err != nil {
		return nil, &RepairExhaustedError{SchemaName: schemaName, LastErr: err}
	}

	h.log.WithFields(logrus.Fields{
		"schema": schemaName,
		"model":  result.ModelUsed,
	}).Info("artifact recovered by model repair")
	return result, nil
}

func (h *Healer) modelRepair(ctx context.Context, schemaName, raw string, validationErr error) (*Result, error) {
	template, err := prompts.Get("repair.json", "fix_json")
	if err != nil {
		return nil, err
	}
	prompt := prompts.Format(template, map[string]string{
		"Output": raw,
		"Error":  validationErr.Error(),
	})

	completion, err := llm.RunChain(ctx, h.chain,
		func(ctx context.Context, model string) (*llm.Completion, error) {
			return h.client.CompleteJSON(ctx, model, prompt)
		})
	if err != nil {
		return nil, err
	}

	return &Result{
		JSON:      completion.Content,
		Repaired:  true,
		ModelUsed: completion.ModelUsed,
		TokensIn:  completion.TokensIn,
		TokensOut: completion.TokensOut,
		CostUSD:   completion.CostUSD,
	}, nil
}
