package analysis

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"quality-dashboard/internal/dataset"
	"quality-dashboard/internal/sentiment"
)

const (
	sentimentKeyPositive = "positive"
	sentimentKeyNegative = "negative"
)

// Summary holds dataset totals and means. Fields are zero when their column
// is absent.
type Summary struct {
	TotalPatients   int     `json:"total_patients"`
	AvgAge          float64 `json:"avg_age"`
	Departments     int     `json:"departments"`
	TotalCost       float64 `json:"total_cost"`
	AvgCost         float64 `json:"avg_cost"`
	AvgLengthOfStay float64 `json:"avg_length_of_stay"`
}

// Result is one full analysis of a dataset.
type Result struct {
	Summary                 Summary            `json:"summary"`
	ComprehensiveCompliance map[string]float64 `json:"comprehensive_compliance"`
	Metrics                 map[string]float64 `json:"metrics"`
	SentimentAnalysis       map[string]float64 `json:"sentiment_analysis"`
	Insights                []string           `json:"insights"`
}

// metricColumns maps metric keys to their source columns, in report order.
var metricColumns = []struct {
	key    string
	column dataset.Column
	scale  float64
}{
	{"avg_hcahps", dataset.HCAHPSOverall, 1},
	{"avg_safety", dataset.SafetyScore, 1},
	{"avg_communication", dataset.CommunicationScore, 1},
	{"avg_pain_management", dataset.PainManagement, 1},
	{"avg_infection_control", dataset.InfectionControl, 1},
	{"avg_medication_safety", dataset.MedicationSafety, 1},
	{"avg_technology_integration", dataset.TechnologyIntegration, 1},
	{"avg_operational_efficiency", dataset.OperationalEfficiency, 1},
	{"readmission_rate", dataset.Readmission30Day, 100},
	{"avg_joint_commission", dataset.JointCommissionScore, 1},
	{"avg_isqua", dataset.ISQuaQualityIndex, 1},
	{"avg_healthcare_it", dataset.HealthcareITScore, 1},
	{"avg_modern_healthcare", dataset.ModernHealthcareScore, 1},
}

// MetricKeys lists the metric names in report order.
func MetricKeys() []string {
	keys := make([]string, len(metricColumns))
	for i, m := range metricColumns {
		keys[i] = m.key
	}
	return keys
}

// Analyzer turns an encounter table into a Result.
type Analyzer struct {
	labeler dataset.Labeler
	logger  *zap.Logger
}

// NewAnalyzer creates an analyzer. A nil labeler uses the default sentiment
// classifier; a nil logger discards logs.
func NewAnalyzer(labeler dataset.Labeler, logger *zap.Logger) *Analyzer {
	if labeler == nil {
		labeler = sentiment.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{labeler: labeler, logger: logger}
}

// Empty returns the result for a dataset with no rows.
func Empty() Result {
	return Result{
		ComprehensiveCompliance: map[string]float64{},
		Metrics:                 map[string]float64{},
		SentimentAnalysis:       map[string]float64{},
		Insights:                []string{},
	}
}

// Failed returns the minimal result reported when analysis breaks.
func Failed(totalPatients int, cause any) Result {
	res := Empty()
	res.Summary.TotalPatients = totalPatients
	res.Insights = []string{fmt.Sprintf("❌ Analysis error: %v", cause)}
	return res
}

// Annotate returns a copy of t whose Sentiment column is derived from
// Patient_Feedback. Tables that already carry Sentiment, or carry no
// feedback, are returned as copies unchanged.
func (a *Analyzer) Annotate(t *dataset.Table) *dataset.Table {
	if t.Has(dataset.Sentiment) || !t.Has(dataset.PatientFeedback) {
		return t.Clone()
	}
	out := t.WithColumn(dataset.Sentiment)
	for i := range out.Rows {
		out.Rows[i].Sentiment = a.labeler.Label(out.Rows[i].PatientFeedback)
	}
	return out
}

// Analyze computes the summary, compliance scores, metric averages, sentiment
// distribution and insights for t. It never panics; failures produce the
// Failed shell. Compliance is scored on t as given, so the ISQua sentiment
// term only counts when the input carries a Sentiment column. An input
// Sentiment column is also the source of the distribution; labels are
// derived from feedback only when it is absent.
func (a *Analyzer) Analyze(t *dataset.Table) (res Result) {
	total := t.Len()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analysis failed", zap.Any("panic", r), zap.Int("rows", total))
			res = Failed(total, r)
		}
	}()

	if total == 0 {
		return Empty()
	}

	res = Result{
		Summary:                 summarize(t),
		ComprehensiveCompliance: Compliance(t),
		Metrics:                 averages(t),
	}

	labeled := a.Annotate(t)
	labels := labeled.Texts(dataset.Sentiment)
	hasSentiment := labels != nil
	res.SentimentAnalysis = sentimentShares(labels)

	res.Insights = buildInsights(t, res.ComprehensiveCompliance, res.Metrics, res.SentimentAnalysis, hasSentiment)

	a.logger.Debug("analysis complete",
		zap.Int("rows", total),
		zap.Int("columns", len(t.Columns)),
		zap.Int("insights", len(res.Insights)),
	)
	return res
}

func summarize(t *dataset.Table) Summary {
	s := Summary{TotalPatients: t.Len()}
	if v, ok := t.Mean(dataset.Age); ok {
		s.AvgAge = round(v, 1)
	}
	s.Departments = t.Distinct(dataset.Department)
	if v, ok := t.Sum(dataset.TotalCost); ok {
		s.TotalCost = round(v, 2)
	}
	if v, ok := t.Mean(dataset.TotalCost); ok {
		s.AvgCost = round(v, 2)
	}
	if v, ok := t.Mean(dataset.LengthOfStay); ok {
		s.AvgLengthOfStay = round(v, 1)
	}
	return s
}

func averages(t *dataset.Table) map[string]float64 {
	metrics := make(map[string]float64, len(metricColumns))
	for _, m := range metricColumns {
		v, ok := t.Mean(m.column)
		if !ok {
			metrics[m.key] = 0
			continue
		}
		metrics[m.key] = round(v*m.scale, 2)
	}
	return metrics
}

func sentimentShares(labels []string) map[string]float64 {
	dist := sentiment.Distribution(labels)
	out := make(map[string]float64, len(dist))
	for label, pct := range dist {
		out[strings.ToLower(label)] = pct
	}
	return out
}
