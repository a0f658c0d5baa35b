// Package quality scores generated content programmatically, with no model
// calls. A weighted blend of coverage, readability, structure, naturalness,
// and depth sub-scores produces a 0-100 total, which maps to a verdict:
// publish, critique first, publish with warning, or block.
package quality

import (
	"math"

	"github.com/jonathan/pressroom/internal/types"
)

// Sub-score weights. They sum to 1.
const (
	weightCoverage    = 0.25
	weightReadability = 0.20
	weightStructure   = 0.20
	weightNaturalness = 0.20
	weightDepth       = 0.15
)

// Verdict thresholds on the 0-100 total.
const (
	PassThreshold     = 80
	CritiqueThreshold = 60
	WarnThreshold     = 40
)

// Score evaluates content against its topic and slot targets.
func Score(content string, topic types.TopicCluster, slot *types.ContentSlot) *types.QualityScore {
	doc := parseDocument(content)

	breakdown := types.QualityBreakdown{
		Coverage:    scoreCoverage(doc, topic),
		Readability: scoreReadability(doc),
		Structure:   scoreStructure(doc, slot),
		Naturalness: scoreNaturalness(doc),
		Depth:       scoreDepth(doc, slot),
	}

	total := int(math.Round(
		breakdown.Coverage*weightCoverage +
			breakdown.Readability*weightReadability +
			breakdown.Structure*weightStructure +
			breakdown.Naturalness*weightNaturalness +
			breakdown.Depth*weightDepth))
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	verdict := VerdictFor(total)
	return &types.QualityScore{
		Total:     total,
		Breakdown: breakdown,
		Verdict:   verdict,
		Passed:    verdict != types.VerdictBlock,
	}
}

// VerdictFor maps a total score to a verdict. Boundaries are inclusive on the
// lower side: exactly 80 passes, exactly 60 gets a critique pass, exactly 40
// publishes with a warning, 39 and below blocks.
func VerdictFor(total int) types.QualityVerdict {
	switch {
	case total >= PassThreshold:
		return types.VerdictPass
	case total >= CritiqueThreshold:
		return types.VerdictCritique
	case total >= WarnThreshold:
		return types.VerdictWarn
	default:
		return types.VerdictBlock
	}
}
