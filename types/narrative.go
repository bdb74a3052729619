package types

// EvidenceItem is one entry of a narrative's evidence list. Every entry is
// backed by a trace outcome: the source signal, the measured value and the
// threshold it was compared to.
type EvidenceItem struct {
	Indicator string  `json:"indicator"`
	Source    Signal  `json:"source"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Finding   string  `json:"finding"`
}

// Narrative is the structured, evidence-cited explanation of a decision.
type Narrative struct {
	Title           string         `json:"title"`
	ConfidenceLabel string         `json:"confidence"`
	Summary         string         `json:"summary"`
	Evidence        []EvidenceItem `json:"evidence"`
}
