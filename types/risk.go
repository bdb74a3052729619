package types

// RiskLevel is the discrete outcome of risk fusion.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Signal names the sensing modality an evidence value came from.
type Signal string

const (
	SignalRadar    Signal = "radar"
	SignalOptical  Signal = "optical"
	SignalForecast Signal = "forecast"
)

// VulnerabilityIndex is the historical flood-vulnerability score for an AOI.
// Value is bounded to [0, 1]; SubPeriodsUsed is how many complete weekly
// composites produced it. An index below the data minimum is never emitted,
// the analyzer fails with InsufficientData instead.
type VulnerabilityIndex struct {
	Value          float64   `json:"value"`
	SubPeriodsUsed int       `json:"subPeriodsUsed"`
	Range          DateRange `json:"range"`
}

// ForecastFeatures is the opaque forecast vector consumed by risk fusion.
type ForecastFeatures struct {
	PrecipitationSum7dMM float64 `json:"precipitationSum7dMm"`
	MaxWindKMH           float64 `json:"maxWindKmh"`
	TemperatureTrendC    float64 `json:"temperatureTrendC"`
}

// RuleOutcome records one rule evaluation: the evidence value it saw, the
// threshold it compared against, and whether it fired. Every evaluated rule
// is recorded regardless of outcome so the trace fully explains the level.
type RuleOutcome struct {
	RuleID    string  `json:"ruleId"`
	Source    Signal  `json:"source"`
	Evidence  float64 `json:"evidence"`
	Threshold float64 `json:"threshold"`
	Fired     bool    `json:"fired"`
}

// RiskAssessment is the fusion engine's decision plus its ordered trace.
// The trace is the sole input to narrative generation and must reproduce
// the identical level when replayed with identical evidence.
type RiskAssessment struct {
	Level             RiskLevel     `json:"level"`
	ContributingRules []RuleOutcome `json:"contributingRules"`
}
