package analysis

import (
	"math"

	"quality-dashboard/internal/dataset"
)

// Standard keys of the comprehensive compliance map
const (
	WHO              = "WHO"
	JointCommission  = "Joint_Commission"
	KEMKES           = "KEMKES"
	ISQua            = "ISQua"
	HealthcareIT     = "Healthcare_IT"
	ModernHealthcare = "Modern_Healthcare"
)

// Standards lists the compliance keys in report order.
var Standards = []string{WHO, JointCommission, KEMKES, ISQua, HealthcareIT, ModernHealthcare}

// DefaultCompliance holds the score reported when none of a standard's
// inputs are present.
var DefaultCompliance = map[string]float64{
	WHO:              87.0,
	JointCommission:  84.0,
	KEMKES:           80.0,
	ISQua:            82.0,
	HealthcareIT:     85.0,
	ModernHealthcare: 83.0,
}

const (
	// costScale converts mean Total_Cost into penalty points.
	costScale = 1000.0
	// costPenaltyCap bounds the cost penalty.
	costPenaltyCap = 50.0
)

// Defaults returns a fresh copy of DefaultCompliance.
func Defaults() map[string]float64 {
	out := make(map[string]float64, len(DefaultCompliance))
	for k, v := range DefaultCompliance {
		out[k] = v
	}
	return out
}

// Compliance scores the table against the six standards. Each score is the
// mean of whichever of its inputs are present, clamped to [0, 100] and
// rounded to one decimal. It never mutates t and falls back to Defaults on
// any failure.
func Compliance(t *dataset.Table) (scores map[string]float64) {
	defer func() {
		if r := recover(); r != nil {
			scores = Defaults()
		}
	}()

	safety, hasSafety := t.Mean(dataset.SafetyScore)
	comm, hasComm := t.Mean(dataset.CommunicationScore)
	hcahps, hasHCAHPS := t.Mean(dataset.HCAHPSOverall)
	pain, hasPain := t.Mean(dataset.PainManagement)
	readmit, hasReadmit := t.Mean(dataset.Readmission30Day)
	cost, hasCost := t.Mean(dataset.TotalCost)
	positive, hasSentiment := t.Share(dataset.Sentiment, "Positive")

	var terms termSet

	scores = make(map[string]float64, len(Standards))

	terms.reset()
	terms.add(safety, hasSafety)
	terms.add(hcahps*10, hasHCAHPS)
	terms.add(comm, hasComm)
	scores[WHO] = terms.score(WHO)

	terms.reset()
	terms.add(safety, hasSafety)
	terms.add(pain, hasPain)
	terms.add(100-readmit*100, hasReadmit)
	scores[JointCommission] = terms.score(JointCommission)

	scores[KEMKES] = kemkesScore(t)

	terms.reset()
	terms.add(hcahps*10, hasHCAHPS)
	terms.add(comm, hasComm)
	terms.add(positive, hasSentiment)
	scores[ISQua] = terms.score(ISQua)

	terms.reset()
	terms.add(comm, hasComm)
	terms.add(safety, hasSafety)
	scores[HealthcareIT] = terms.score(HealthcareIT)

	terms.reset()
	terms.add(100-math.Min(cost/costScale, costPenaltyCap), hasCost)
	terms.add(hcahps*10, hasHCAHPS)
	scores[ModernHealthcare] = terms.score(ModernHealthcare)

	return scores
}

// kemkesScore is 0.7*pct(A) + 0.3*pct(B) + 60, which exceeds 100 once A
// ratings pass roughly 57%; the result is clamped like every other score.
func kemkesScore(t *dataset.Table) float64 {
	pctA, ok := t.Share(dataset.KEMKESRating, "A")
	if !ok {
		return DefaultCompliance[KEMKES]
	}
	pctB, _ := t.Share(dataset.KEMKESRating, "B")
	return finalize(0.7*pctA + 0.3*pctB + 60)
}

type termSet struct {
	sum float64
	n   int
}

func (s *termSet) reset() { s.sum, s.n = 0, 0 }

func (s *termSet) add(v float64, ok bool) {
	if !ok || math.IsNaN(v) {
		return
	}
	s.sum += v
	s.n++
}

func (s *termSet) score(standard string) float64 {
	if s.n == 0 {
		return DefaultCompliance[standard]
	}
	return finalize(s.sum / float64(s.n))
}

func finalize(v float64) float64 {
	return round(math.Max(0, math.Min(100, v)), 1)
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
