package dataset

import "math"

// Column names one attribute of an encounter row. The string values match
// the spreadsheet headers the dashboard accepts.
type Column string

const (
	PatientID             Column = "Patient_ID"
	Age                   Column = "Age"
	Gender                Column = "Gender"
	Department            Column = "Department"
	PrimaryCondition      Column = "Primary_Condition"
	LengthOfStay          Column = "Length_of_Stay"
	TotalCost             Column = "Total_Cost"
	HCAHPSOverall         Column = "HCAHPS_Overall"
	SafetyScore           Column = "Safety_Score"
	CommunicationScore    Column = "Communication_Score"
	PainManagement        Column = "Pain_Management"
	InfectionControl      Column = "Infection_Control"
	MedicationSafety      Column = "Medication_Safety"
	TechnologyIntegration Column = "Technology_Integration"
	OperationalEfficiency Column = "Operational_Efficiency"
	JointCommissionScore  Column = "Joint_Commission_Score"
	ISQuaQualityIndex     Column = "ISQua_Quality_Index"
	HealthcareITScore     Column = "Healthcare_IT_Score"
	ModernHealthcareScore Column = "Modern_Healthcare_Score"
	Readmission30Day      Column = "Readmission_30_Day"
	PatientFeedback       Column = "Patient_Feedback"
	WHOCompliance         Column = "WHO_Compliance"
	KEMKESRating          Column = "KEMKES_Rating"
	Sentiment             Column = "Sentiment"
)

// AllColumns lists every known column in canonical order.
var AllColumns = []Column{
	PatientID, Age, Gender, Department, PrimaryCondition, LengthOfStay, TotalCost,
	HCAHPSOverall, SafetyScore, CommunicationScore, PainManagement, InfectionControl,
	MedicationSafety, TechnologyIntegration, OperationalEfficiency, JointCommissionScore,
	ISQuaQualityIndex, HealthcareITScore, ModernHealthcareScore, Readmission30Day,
	PatientFeedback, WHOCompliance, KEMKESRating, Sentiment,
}

// Bounds is the closed range a numeric column is clipped to.
type Bounds struct {
	Min float64
	Max float64
}

// Clip returns v limited to the range. NaN passes through.
func (b Bounds) Clip(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// ColumnBounds holds the clip range of every numeric column. Total_Cost has
// no upper bound; non-positive costs are treated as missing.
var ColumnBounds = map[Column]Bounds{
	Age:                   {18, 95},
	LengthOfStay:          {1, 25},
	TotalCost:             {0, math.Inf(1)},
	HCAHPSOverall:         {1, 10},
	SafetyScore:           {70, 100},
	CommunicationScore:    {65, 100},
	PainManagement:        {60, 100},
	InfectionControl:      {80, 100},
	MedicationSafety:      {75, 100},
	TechnologyIntegration: {60, 100},
	OperationalEfficiency: {55, 100},
	JointCommissionScore:  {70, 100},
	ISQuaQualityIndex:     {65, 100},
	HealthcareITScore:     {60, 100},
	ModernHealthcareScore: {65, 100},
	Readmission30Day:      {0, 1},
}

// IsNumeric reports whether col holds numbers.
func IsNumeric(col Column) bool {
	_, ok := ColumnBounds[col]
	return ok
}

// Encounter is one patient encounter. Numeric fields hold NaN when the source
// cell was empty or unparsable; text fields hold "".
type Encounter struct {
	PatientID        string
	Age              float64
	Gender           string
	Department       string
	PrimaryCondition string
	LengthOfStay     float64
	TotalCost        float64
	HCAHPSOverall    float64

	SafetyScore           float64
	CommunicationScore    float64
	PainManagement        float64
	InfectionControl      float64
	MedicationSafety      float64
	TechnologyIntegration float64
	OperationalEfficiency float64
	JointCommissionScore  float64
	ISQuaQualityIndex     float64
	HealthcareITScore     float64
	ModernHealthcareScore float64

	// Readmission30Day is 0 or 1.
	Readmission30Day float64
	PatientFeedback  string
	WHOCompliance    string
	KEMKESRating     string
	Sentiment        string
}

// NewEncounter returns an encounter with every numeric field missing.
func NewEncounter() Encounter {
	var e Encounter
	for col := range ColumnBounds {
		*e.numberField(col) = math.NaN()
	}
	return e
}

// Number returns the value of a numeric column, NaN for text columns.
func (e *Encounter) Number(col Column) float64 {
	if f := e.numberField(col); f != nil {
		return *f
	}
	return math.NaN()
}

// SetNumber sets a numeric column; it is a no-op for text columns.
func (e *Encounter) SetNumber(col Column, v float64) {
	if f := e.numberField(col); f != nil {
		*f = v
	}
}

// Text returns the value of a text column, "" for numeric columns.
func (e *Encounter) Text(col Column) string {
	if f := e.textField(col); f != nil {
		return *f
	}
	return ""
}

// SetText sets a text column; it is a no-op for numeric columns.
func (e *Encounter) SetText(col Column, v string) {
	if f := e.textField(col); f != nil {
		*f = v
	}
}

func (e *Encounter) numberField(col Column) *float64 {
	switch col {
	case Age:
		return &e.Age
	case LengthOfStay:
		return &e.LengthOfStay
	case TotalCost:
		return &e.TotalCost
	case HCAHPSOverall:
		return &e.HCAHPSOverall
	case SafetyScore:
		return &e.SafetyScore
	case CommunicationScore:
		return &e.CommunicationScore
	case PainManagement:
		return &e.PainManagement
	case InfectionControl:
		return &e.InfectionControl
	case MedicationSafety:
		return &e.MedicationSafety
	case TechnologyIntegration:
		return &e.TechnologyIntegration
	case OperationalEfficiency:
		return &e.OperationalEfficiency
	case JointCommissionScore:
		return &e.JointCommissionScore
	case ISQuaQualityIndex:
		return &e.ISQuaQualityIndex
	case HealthcareITScore:
		return &e.HealthcareITScore
	case ModernHealthcareScore:
		return &e.ModernHealthcareScore
	case Readmission30Day:
		return &e.Readmission30Day
	}
	return nil
}

func (e *Encounter) textField(col Column) *string {
	switch col {
	case PatientID:
		return &e.PatientID
	case Gender:
		return &e.Gender
	case Department:
		return &e.Department
	case PrimaryCondition:
		return &e.PrimaryCondition
	case PatientFeedback:
		return &e.PatientFeedback
	case WHOCompliance:
		return &e.WHOCompliance
	case KEMKESRating:
		return &e.KEMKESRating
	case Sentiment:
		return &e.Sentiment
	}
	return nil
}
