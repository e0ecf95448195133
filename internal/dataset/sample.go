package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	// SampleSize is the number of rows in a generated demo dataset.
	SampleSize = 350
	// SampleSeed is the fixed seed used by the demo mode.
	SampleSeed uint64 = 42
)

// Labeler assigns a sentiment label to free-text feedback.
type Labeler interface {
	Label(text string) string
}

// Departments and conditions sampled uniformly.
var (
	Departments = []string{
		"Cardiology", "Emergency", "Internal Medicine", "Neurology", "Obstetrics",
		"Oncology", "Orthopedics", "Pediatrics", "Surgery",
	}
	Conditions = []string{
		"Hypertension", "Diabetes", "Pneumonia", "Heart Failure", "COPD",
		"Stroke", "Fracture", "Sepsis", "Appendicitis",
	}
)

// FeedbackPool holds the sentences sampled as patient feedback.
var FeedbackPool = []string{
	"Excellent care and very professional staff throughout my stay.",
	"The nurses were friendly and attentive to all my needs.",
	"Doctors explained everything clearly, great communication.",
	"Outstanding service, I felt safe and well looked after.",
	"Wonderful experience, the team was compassionate and supportive.",
	"Quick admission and efficient discharge process.",
	"Helpful reception staff, the process was standard.",
	"Waiting time in the emergency room was too long.",
	"Staff seemed rude and the room was noisy at night.",
	"Poor communication about my medication schedule.",
	"The food was cold and the bathroom was dirty.",
	"Discharge was delayed and the instructions were confusing.",
	"Billing felt expensive for the services I received.",
	"Average stay, nothing special to report.",
	"Care was adequate, though follow-up information was limited.",
	"The facility is modern but the parking situation needs work.",
	"Good doctors but the wait for tests was long.",
	"Kind nurses, although the ward was crowded.",
}

type weighted struct {
	values  []string
	weights []float64
}

var (
	genderDist    = weighted{[]string{"Male", "Female"}, []float64{0.48, 0.52}}
	whoDist       = weighted{[]string{"Compliant", "Partially Compliant", "Non-Compliant"}, []float64{0.75, 0.20, 0.05}}
	kemkesDist    = weighted{[]string{"A", "B", "C"}, []float64{0.65, 0.30, 0.05}}
	readmitChance = 0.12
)

// metricSpec is the normal distribution a quality metric is drawn from.
type metricSpec struct {
	col   Column
	mean  float64
	sigma float64
}

// metricSpecs are drawn in this order for every row; values are clipped to
// ColumnBounds.
var metricSpecs = []metricSpec{
	{HCAHPSOverall, 8.2, 1.1},
	{SafetyScore, 92, 5},
	{CommunicationScore, 88, 6},
	{PainManagement, 85, 7},
	{InfectionControl, 94, 4},
	{MedicationSafety, 93, 4.5},
	{TechnologyIntegration, 86, 7},
	{OperationalEfficiency, 82, 8},
	{JointCommissionScore, 89, 5},
	{ISQuaQualityIndex, 87, 6},
	{HealthcareITScore, 84, 7},
	{ModernHealthcareScore, 85, 6},
}

const (
	ageMean   = 65.0
	ageSigma  = 16.0
	costMu    = 9.1
	costSigma = 0.6
	stayMean  = 4.3
)

// GenerateSample builds the demo dataset with the fixed seed.
func GenerateSample(labeler Labeler) *Table {
	return Generate(SampleSeed, SampleSize, labeler)
}

// Generate builds n synthetic encounters from a seeded stream. The same seed
// and n always produce the same table. When labeler is non-nil the Sentiment
// column is filled from the feedback text.
func Generate(seed uint64, n int, labeler Labeler) *Table {
	rng := rand.New(rand.NewPCG(seed, seed))

	rows := make([]Encounter, 0, n)
	for i := 0; i < n; i++ {
		e := NewEncounter()
		e.PatientID = fmt.Sprintf("P%04d", i+1)
		e.Age = math.Round(truncatedNormal(rng, ageMean, ageSigma, ColumnBounds[Age]))
		e.Gender = genderDist.pick(rng)
		e.Department = Departments[rng.IntN(len(Departments))]
		e.PrimaryCondition = Conditions[rng.IntN(len(Conditions))]
		e.LengthOfStay = round(ColumnBounds[LengthOfStay].Clip(rng.ExpFloat64()*stayMean), 1)
		e.TotalCost = round(math.Exp(costMu+costSigma*rng.NormFloat64()), 2)

		for _, m := range metricSpecs {
			v := ColumnBounds[m.col].Clip(m.mean + m.sigma*rng.NormFloat64())
			e.SetNumber(m.col, round(v, 1))
		}

		e.Readmission30Day = 0
		if rng.Float64() < readmitChance {
			e.Readmission30Day = 1
		}
		e.PatientFeedback = FeedbackPool[rng.IntN(len(FeedbackPool))]
		e.WHOCompliance = whoDist.pick(rng)
		e.KEMKESRating = kemkesDist.pick(rng)
		if labeler != nil {
			e.Sentiment = labeler.Label(e.PatientFeedback)
		}
		rows = append(rows, e)
	}

	cols := make([]Column, 0, len(AllColumns))
	for _, c := range AllColumns {
		if c == Sentiment && labeler == nil {
			continue
		}
		cols = append(cols, c)
	}
	t := NewTable(cols, rows)
	t.Source = "sample"
	return t
}

// truncatedNormal redraws until the value falls inside b.
func truncatedNormal(rng *rand.Rand, mean, sigma float64, b Bounds) float64 {
	for {
		v := mean + sigma*rng.NormFloat64()
		if v >= b.Min && v <= b.Max {
			return v
		}
	}
}

func (w weighted) pick(rng *rand.Rand) string {
	r := rng.Float64()
	acc := 0.0
	for i, p := range w.weights {
		acc += p
		if r < acc {
			return w.values[i]
		}
	}
	return w.values[len(w.values)-1]
}
