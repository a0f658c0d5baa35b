package types

// QualityVerdict is the quality gate's decision for a scored document.
type QualityVerdict string

// Quality verdicts. Scores >= 80 pass outright, 60-79 get one critique pass,
// 40-59 pass with a warning, below 40 is a hard block.
const (
	VerdictPass     QualityVerdict = "pass"
	VerdictCritique QualityVerdict = "critique"
	VerdictWarn     QualityVerdict = "warn"
	VerdictBlock    QualityVerdict = "block"
)

// QualityBreakdown holds the weighted sub-scores behind a total.
type QualityBreakdown struct {
	Coverage    float64 `json:"coverage"`
	Readability float64 `json:"readability"`
	Structure   float64 `json:"structure"`
	Naturalness float64 `json:"naturalness"`
	Depth       float64 `json:"depth"`
}

// QualityScore is the programmatic quality assessment of generated content.
type QualityScore struct {
	Total     int              `json:"total"` // 0-100
	Breakdown QualityBreakdown `json:"breakdown"`
	Verdict   QualityVerdict   `json:"verdict"`
	Passed    bool             `json:"passed"`
}
