package llmcore

// Pricing contains chat pricing per million tokens (USD).
// Fields are zero when the price is unknown, for example for local models.
type Pricing struct {
	InputPerMillion  float64 `json:"inputPerMillion" yaml:"inputPerMillion"`
	OutputPerMillion float64 `json:"outputPerMillion" yaml:"outputPerMillion"`
}

// Known returns true if any price is set.
func (p Pricing) Known() bool {
	return p.InputPerMillion > 0 || p.OutputPerMillion > 0
}

// Estimate returns the cost in USD of the given token counts.
func (p Pricing) Estimate(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1_000_000*p.InputPerMillion +
		float64(completionTokens)/1_000_000*p.OutputPerMillion
}
