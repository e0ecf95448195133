package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quality-dashboard/internal/dataset"
	"quality-dashboard/internal/sentiment"
)

func mustTable(t *testing.T, header []string, rows ...[]string) *dataset.Table {
	t.Helper()
	table, err := dataset.FromRecords(header, rows)
	require.NoError(t, err)
	return table
}

func TestComplianceFallsBackToDefaults(t *testing.T) {
	table := mustTable(t, []string{"Age"}, []string{"40"})

	scores := Compliance(table)

	assert.Equal(t, map[string]float64{
		WHO:              87.0,
		JointCommission:  84.0,
		KEMKES:           80.0,
		ISQua:            82.0,
		HealthcareIT:     85.0,
		ModernHealthcare: 83.0,
	}, scores)
}

func TestComplianceFormulas(t *testing.T) {
	table := mustTable(t,
		[]string{"Safety_Score", "Communication_Score", "HCAHPS_Overall", "Readmission_30_Day", "Total_Cost", "KEMKES_Rating"},
		[]string{"90", "80", "8.5", "0", "20000", "A"},
		[]string{"90", "80", "8.5", "1", "20000", "C"},
	)

	scores := Compliance(table)

	assert.Equal(t, 85.0, scores[WHO])
	assert.Equal(t, 70.0, scores[JointCommission])
	assert.Equal(t, 95.0, scores[KEMKES])
	assert.Equal(t, 82.5, scores[ISQua])
	assert.Equal(t, 85.0, scores[HealthcareIT])
	assert.Equal(t, 82.5, scores[ModernHealthcare])
}

func TestComplianceUsesSentimentColumnForISQua(t *testing.T) {
	table := mustTable(t,
		[]string{"Communication_Score", "Sentiment"},
		[]string{"80", "Positive"},
		[]string{"80", "Negative"},
	)

	// (80 + 50) / 2
	assert.Equal(t, 65.0, Compliance(table)[ISQua])
}

func TestComplianceCostPenaltyIsCapped(t *testing.T) {
	table := mustTable(t, []string{"Total_Cost"}, []string{"900000"})
	assert.Equal(t, 50.0, Compliance(table)[ModernHealthcare])
}

func TestKEMKESAllAIsClampedTo100(t *testing.T) {
	table := mustTable(t, []string{"KEMKES_Rating"}, []string{"A"}, []string{"A"}, []string{"a"})

	// 0.7*100 + 0.3*0 + 60 = 130 before clamping
	assert.Equal(t, 100.0, Compliance(table)[KEMKES])
}

func TestComplianceStaysInRangeOnSample(t *testing.T) {
	table := dataset.GenerateSample(sentiment.Default())
	scores := Compliance(table)

	require.Len(t, scores, len(Standards))
	for _, s := range Standards {
		assert.GreaterOrEqual(t, scores[s], 0.0, s)
		assert.LessOrEqual(t, scores[s], 100.0, s)
	}
}

func TestComplianceDoesNotMutateInput(t *testing.T) {
	table := mustTable(t, []string{"Safety_Score", "Patient_Feedback"}, []string{"91", "great staff"})
	before := table.Clone()

	Compliance(table)

	assert.Equal(t, before.Columns, table.Columns)
	assert.Equal(t, before.Records(0), table.Records(0))
}

func TestComplianceOnNilTableReturnsDefaults(t *testing.T) {
	assert.Equal(t, Defaults(), Compliance(nil))
}

func TestDefaultsIsACopy(t *testing.T) {
	d := Defaults()
	d[WHO] = 1
	assert.Equal(t, 87.0, DefaultCompliance[WHO])
}
