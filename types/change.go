package types

// ChangeVerdict is the dual-source deforestation decision for an AOI.
// IsDeforested is true only when the radar and the vegetation-index delta
// both cross their thresholds in the decreasing direction; a single-source
// signal can raise Confidence but never flips the verdict on its own.
type ChangeVerdict struct {
	IsDeforested bool    `json:"isDeforested"`
	RadarDeltaDB float64 `json:"radarDeltaDb"`
	NDVIDelta    float64 `json:"ndviDelta"`
	Confidence   float64 `json:"confidence"`

	CurrentWindow  DateRange `json:"currentWindow"`
	BaselineWindow DateRange `json:"baselineWindow"`

	// Trace records both threshold comparisons for narrative generation.
	Trace []RuleOutcome `json:"trace"`
}
