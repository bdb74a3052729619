// Package narrative renders fusion decisions and change verdicts as
// structured, evidence-cited explanations. It is purely a templating
// transform over the already-computed trace; nothing is recomputed here.
package narrative

import (
	"fmt"
	"strings"

	"go-terrawatch/deforestation"
	"go-terrawatch/fusion"
	"go-terrawatch/types"
)

const (
	floodTitle  = "Flood Risk Outlook"
	changeTitle = "Deforestation 'Then vs Now' Analysis"
)

// indicator names per rule id, used as the human label of evidence entries.
var indicators = map[string]string{
	fusion.RuleVulnerabilityHigh:     "Historical vulnerability (SAR)",
	fusion.RuleVulnerabilityElevated: "Historical vulnerability (SAR)",
	fusion.RuleStormPrecipitation:    "Forecast precipitation (7 days)",
	fusion.RuleModeratePrecipitation: "Forecast precipitation (7 days)",
	fusion.RuleDamagingWind:          "Forecast peak wind",
	deforestation.RuleRadarDecline:   "SAR backscatter decline",
	deforestation.RuleNDVIDecline:    "NDVI decline",
}

// FromRisk renders a flood risk assessment. Every sentence of the summary
// is backed by a fired rule in the trace; rules that did not fire still
// appear in the evidence list so the reader sees what was ruled out.
func FromRisk(assessment types.RiskAssessment) types.Narrative {
	var firedFindings []string
	evidence := make([]types.EvidenceItem, 0, len(assessment.ContributingRules))
	for _, r := range assessment.ContributingRules {
		evidence = append(evidence, evidenceFromOutcome(r))
		if r.Fired {
			firedFindings = append(firedFindings, findingText(r))
		}
	}

	summary := fmt.Sprintf("The flood risk for the coming days is assessed as %s.", strings.ToUpper(string(assessment.Level)))
	if len(firedFindings) > 0 {
		summary += " " + strings.Join(firedFindings, " ")
	} else {
		summary += " No evaluated signal crossed its threshold."
	}

	return types.Narrative{
		Title:           floodTitle,
		ConfidenceLabel: riskConfidence(assessment),
		Summary:         summary,
		Evidence:        evidence,
	}
}

// FromChange renders a deforestation verdict from its trace.
func FromChange(verdict types.ChangeVerdict) types.Narrative {
	evidence := make([]types.EvidenceItem, 0, len(verdict.Trace))
	for _, r := range verdict.Trace {
		evidence = append(evidence, evidenceFromOutcome(r))
	}

	period := fmt.Sprintf("between %s and %s versus the same window one year earlier",
		verdict.CurrentWindow.Start.Format("2006-01-02"),
		verdict.CurrentWindow.End.Format("2006-01-02"))

	var summary string
	if verdict.IsDeforested {
		summary = fmt.Sprintf(
			"Deforestation detected %s: backscatter dropped %.2f dB and NDVI dropped %.2f, both past their thresholds.",
			period, verdict.RadarDeltaDB, verdict.NDVIDelta)
	} else {
		summary = fmt.Sprintf(
			"No deforestation detected %s: the radar and vegetation-index signals did not both cross their thresholds.",
			period)
	}

	return types.Narrative{
		Title:           changeTitle,
		ConfidenceLabel: confidenceLabel(verdict.Confidence),
		Summary:         summary,
		Evidence:        evidence,
	}
}

func evidenceFromOutcome(r types.RuleOutcome) types.EvidenceItem {
	indicator := indicators[r.RuleID]
	if indicator == "" {
		indicator = r.RuleID
	}
	return types.EvidenceItem{
		Indicator: indicator,
		Source:    r.Source,
		Value:     r.Evidence,
		Threshold: r.Threshold,
		Finding:   findingText(r),
	}
}

func findingText(r types.RuleOutcome) string {
	verb := "stayed at or below"
	if r.Fired {
		verb = "exceeded"
	}
	return fmt.Sprintf("%s signal: measured %.2f %s the %.2f threshold (rule %s).",
		sourceLabel(r.Source), r.Evidence, verb, r.Threshold, r.RuleID)
}

func sourceLabel(s types.Signal) string {
	switch s {
	case types.SignalRadar:
		return "Radar"
	case types.SignalOptical:
		return "Optical"
	case types.SignalForecast:
		return "Forecast"
	default:
		return string(s)
	}
}

// riskConfidence labels how unambiguous the decision was: full agreement of
// the two primary signals (or no signal at all) reads high, a mixed picture
// reads medium.
func riskConfidence(a types.RiskAssessment) string {
	fired := 0
	for _, r := range a.ContributingRules {
		if r.Fired {
			fired++
		}
	}
	switch {
	case a.Level == types.RiskHigh, fired == 0:
		return "high"
	default:
		return "medium"
	}
}

func confidenceLabel(c float64) string {
	switch {
	case c >= 0.75:
		return "high"
	case c >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
