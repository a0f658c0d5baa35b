// Package llm provides the model-provider abstraction used by the generation
// pipeline: a client interface, per-stage fallback chains, and retryable
// error classification.
package llm

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI provider (future)
	ProviderOpenAI Provider = "openai"
)

// Chains holds the ordered model-fallback chain for each pipeline stage.
// On a retryable failure the caller advances to the next model; exhausting a
// chain is a terminal failure for that stage.
type Chains struct {
	Research []string
	Outline  []string
	Expand   []string
	Critique []string
	Repair   []string
	Image    []string
}

// DefaultGeminiChains returns the default Gemini fallback chains. Cheap
// models front the simple stages; the expand stage leads with the strongest
// model.
func DefaultGeminiChains() *Chains {
	return &Chains{
		Research: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"},
		Outline:  []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.5-flash-lite"},
		Expand:   []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
		Critique: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"},
		Repair:   []string{"gemini-2.5-flash-lite"},
		Image:    []string{"gemini-2.0-flash-exp", "gemini-2.5-flash-image"},
	}
}

// modelPricing holds USD cost per million tokens, input and output.
type modelPricing struct {
	inPerM  float64
	outPerM float64
}

var pricing = map[string]modelPricing{
	"gemini-2.5-pro":        {inPerM: 1.25, outPerM: 10.0},
	"gemini-2.5-flash":      {inPerM: 0.30, outPerM: 2.50},
	"gemini-2.5-flash-lite": {inPerM: 0.10, outPerM: 0.40},
}

// estimateCost returns the USD cost of a completion, zero for unknown models.
func estimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(tokensIn)/1e6*p.inPerM + float64(tokensOut)/1e6*p.outPerM
}
