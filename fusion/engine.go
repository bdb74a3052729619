// Package fusion folds the historical vulnerability index and the forecast
// features into a discrete risk level through an ordered rule ladder.
package fusion

import (
	"go-terrawatch/config"
	"go-terrawatch/types"
)

// Rule ids in evaluation order. The order is part of the contract: the
// trace replays deterministically and the narrative cites rules in this
// sequence.
const (
	RuleVulnerabilityHigh     = "vulnerability_high"
	RuleStormPrecipitation    = "storm_precipitation"
	RuleVulnerabilityElevated = "vulnerability_elevated"
	RuleModeratePrecipitation = "moderate_precipitation"
	RuleDamagingWind          = "damaging_wind"
)

// evidence is the fixed struct every rule predicate reads from.
type evidence struct {
	vulnerability float64
	precip7d      float64
	maxWind       float64
}

// rule is one pure predicate over the evidence struct. threshold is the
// lower cutoff recorded in the trace; ceiling, when positive, turns the
// rule into a band so the elevated rules yield to their high counterparts.
type rule struct {
	id        string
	source    types.Signal
	threshold float64
	ceiling   float64
	value     func(evidence) float64
}

func (r rule) fires(v float64) bool {
	if v <= r.threshold {
		return false
	}
	return r.ceiling == 0 || v <= r.ceiling
}

// Engine evaluates the rule ladder. Side-effect free and deterministic;
// identical inputs always reproduce the identical assessment.
type Engine struct {
	rules []rule
	cfg   config.FusionConfig
}

func NewEngine(cfg config.FusionConfig) *Engine {
	return &Engine{
		cfg: cfg,
		rules: []rule{
			{RuleVulnerabilityHigh, types.SignalRadar, cfg.VulnerabilityHigh, 0, func(e evidence) float64 { return e.vulnerability }},
			{RuleStormPrecipitation, types.SignalForecast, cfg.StormPrecipMM, 0, func(e evidence) float64 { return e.precip7d }},
			{RuleVulnerabilityElevated, types.SignalRadar, cfg.VulnerabilityElevated, cfg.VulnerabilityHigh, func(e evidence) float64 { return e.vulnerability }},
			{RuleModeratePrecipitation, types.SignalForecast, cfg.ModeratePrecipMM, cfg.StormPrecipMM, func(e evidence) float64 { return e.precip7d }},
			{RuleDamagingWind, types.SignalForecast, cfg.DamagingWindKMH, 0, func(e evidence) float64 { return e.maxWind }},
		},
	}
}

// Evaluate runs every rule in order and records each outcome in the trace
// whether or not it fired; the full trace, not just the label, is the
// output contract.
//
// Level: High when the high-vulnerability and storm-precipitation rules
// both fire; Medium when any single rule fires; Low otherwise. Combinations
// that could read as either resolve to the higher level.
func (e *Engine) Evaluate(index types.VulnerabilityIndex, features types.ForecastFeatures) types.RiskAssessment {
	ev := evidence{
		vulnerability: index.Value,
		precip7d:      features.PrecipitationSum7dMM,
		maxWind:       features.MaxWindKMH,
	}

	trace := make([]types.RuleOutcome, 0, len(e.rules))
	fired := make(map[string]bool, len(e.rules))
	for _, r := range e.rules {
		v := r.value(ev)
		f := r.fires(v)
		fired[r.id] = f
		trace = append(trace, types.RuleOutcome{
			RuleID:    r.id,
			Source:    r.source,
			Evidence:  v,
			Threshold: r.threshold,
			Fired:     f,
		})
	}

	level := types.RiskLow
	switch {
	case fired[RuleVulnerabilityHigh] && fired[RuleStormPrecipitation]:
		level = types.RiskHigh
	case fired[RuleVulnerabilityHigh] || fired[RuleStormPrecipitation] ||
		fired[RuleVulnerabilityElevated] || fired[RuleModeratePrecipitation] ||
		fired[RuleDamagingWind]:
		level = types.RiskMedium
	}

	return types.RiskAssessment{Level: level, ContributingRules: trace}
}
