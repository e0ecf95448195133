package analysis

import (
	"fmt"

	"quality-dashboard/internal/dataset"
)

type standardInfo struct {
	icon  string
	label string
	focus string
}

var standardInfos = map[string]standardInfo{
	WHO:              {"🌍", "WHO Patient Safety", "patient safety goals"},
	JointCommission:  {"🏅", "Joint Commission", "accreditation readiness"},
	KEMKES:           {"🇮🇩", "KEMKES Accreditation", "national hospital accreditation"},
	ISQua:            {"🎯", "ISQua Quality", "patient-centred quality"},
	HealthcareIT:     {"💻", "Healthcare IT", "digital health adoption"},
	ModernHealthcare: {"📈", "Modern Healthcare", "cost-effective, high-value care"},
}

// complianceInsight bands a score as >=90 excellent, >=85 strong, >=80 good,
// otherwise below threshold.
func complianceInsight(standard string, score float64) string {
	info := standardInfos[standard]
	switch {
	case score >= 90:
		return fmt.Sprintf("%s %s: excellent compliance at %.1f%%, exceeding benchmarks for %s.", info.icon, info.label, score, info.focus)
	case score >= 85:
		return fmt.Sprintf("%s %s: strong compliance at %.1f%%, %s practices are well established.", info.icon, info.label, score, info.focus)
	case score >= 80:
		return fmt.Sprintf("%s %s: good compliance at %.1f%%, targeted work on %s would lift the score.", info.icon, info.label, score, info.focus)
	default:
		return fmt.Sprintf("⚠️ %s: %.1f%% is below the 80%% threshold, %s needs an improvement plan.", info.label, score, info.focus)
	}
}

func sentimentInsight(positive, negative float64) string {
	switch {
	case positive >= 70:
		return fmt.Sprintf("😊 Patient sentiment is very positive: %.1f%% of feedback is favourable.", positive)
	case positive >= 60:
		return fmt.Sprintf("🙂 Patient sentiment is mostly positive at %.1f%%.", positive)
	case negative >= 30:
		return fmt.Sprintf("😟 Patient sentiment needs attention: %.1f%% of feedback is negative, investigate recurring complaints.", negative)
	default:
		return fmt.Sprintf("😐 Patient sentiment is mixed: %.1f%% positive, %.1f%% negative.", positive, negative)
	}
}

// qualityRule emits high when the value is at or above highAt, low when it is
// below lowAt, and nothing in between. For inverted rules (lower is better)
// high fires below highAt and low fires above lowAt.
type qualityRule struct {
	column   dataset.Column
	metric   string
	highAt   float64
	lowAt    float64
	inverted bool
	high     string
	low      string
}

var qualityRules = []qualityRule{
	{
		column: dataset.InfectionControl, metric: "avg_infection_control",
		highAt: 95, lowAt: 90,
		high: "🦠 Infection control is outstanding at %.1f%%.",
		low:  "🦠 Infection control at %.1f%% is below the 90%% target.",
	},
	{
		column: dataset.MedicationSafety, metric: "avg_medication_safety",
		highAt: 95, lowAt: 85,
		high: "💊 Medication safety is excellent at %.1f%%.",
		low:  "💊 Medication safety at %.1f%% needs attention.",
	},
	{
		column: dataset.TechnologyIntegration, metric: "avg_technology_integration",
		highAt: 90, lowAt: 80,
		high: "💻 Technology integration is advanced at %.1f%%.",
		low:  "💻 Technology integration at %.1f%% lags digital health benchmarks.",
	},
	{
		column: dataset.OperationalEfficiency, metric: "avg_operational_efficiency",
		highAt: 85, lowAt: 75,
		high: "⚙️ Operational efficiency is high at %.1f%%.",
		low:  "⚙️ Operational efficiency at %.1f%% suggests workflow bottlenecks.",
	},
	{
		column: dataset.Readmission30Day, metric: "readmission_rate",
		highAt: 10, lowAt: 15, inverted: true,
		high: "🏥 30-day readmission rate is low at %.1f%%.",
		low:  "🏥 30-day readmission rate is high at %.1f%%, strengthen discharge planning.",
	},
}

func (r qualityRule) insight(v float64) (string, bool) {
	if r.inverted {
		switch {
		case v < r.highAt:
			return fmt.Sprintf(r.high, v), true
		case v > r.lowAt:
			return fmt.Sprintf(r.low, v), true
		}
		return "", false
	}
	switch {
	case v >= r.highAt:
		return fmt.Sprintf(r.high, v), true
	case v < r.lowAt:
		return fmt.Sprintf(r.low, v), true
	}
	return "", false
}

// buildInsights orders six compliance sentences, then one sentiment sentence,
// then the quality sentences. Quality rules whose column is absent are skipped.
func buildInsights(t *dataset.Table, compliance, metrics, sentiments map[string]float64, hasSentiment bool) []string {
	insights := make([]string, 0, len(Standards)+1+len(qualityRules))

	for _, s := range Standards {
		score, ok := compliance[s]
		if !ok {
			continue
		}
		insights = append(insights, complianceInsight(s, score))
	}

	if hasSentiment {
		insights = append(insights, sentimentInsight(sentiments[sentimentKeyPositive], sentiments[sentimentKeyNegative]))
	}

	for _, rule := range qualityRules {
		if !t.Has(rule.column) {
			continue
		}
		if _, ok := t.Mean(rule.column); !ok {
			continue
		}
		if line, ok := rule.insight(metrics[rule.metric]); ok {
			insights = append(insights, line)
		}
	}
	return insights
}
