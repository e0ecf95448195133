package analysis

import (
	"fmt"
	"math"
	"sort"

	"quality-dashboard/internal/dataset"
)

// DefaultCorrelationTarget is the metric other columns are compared with
// when the caller names none.
const DefaultCorrelationTarget = dataset.HCAHPSOverall

// Correlation relates one numeric column to the target column.
type Correlation struct {
	Column1        string  `json:"column1"`
	Column2        string  `json:"column2"`
	Pearson        float64 `json:"pearson"`
	Spearman       float64 `json:"spearman"`
	Pairs          int     `json:"pairs"`
	Interpretation string  `json:"interpretation"`
}

// Correlations compares target with every other present numeric column,
// using rows where both cells are present. Results are ordered by absolute
// Pearson coefficient, strongest first.
func Correlations(t *dataset.Table, target dataset.Column) ([]Correlation, error) {
	if !dataset.IsNumeric(target) {
		return nil, fmt.Errorf("%s is not a numeric column", target)
	}
	if !t.Has(target) {
		return nil, fmt.Errorf("column %s is not in the dataset", target)
	}

	out := []Correlation{}
	for _, col := range t.Columns {
		if col == target || !dataset.IsNumeric(col) {
			continue
		}
		x, y := pairedValues(t, target, col)
		if len(x) < 2 {
			continue
		}
		p := pearsonCorrelation(x, y)
		out = append(out, Correlation{
			Column1:        string(target),
			Column2:        string(col),
			Pearson:        round(p, 3),
			Spearman:       round(spearmanCorrelation(x, y), 3),
			Pairs:          len(x),
			Interpretation: interpret(p),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Pearson) > math.Abs(out[j].Pearson)
	})
	return out, nil
}

func pairedValues(t *dataset.Table, a, b dataset.Column) (x, y []float64) {
	for i := range t.Rows {
		va, vb := t.Rows[i].Number(a), t.Rows[i].Number(b)
		if math.IsNaN(va) || math.IsNaN(vb) {
			continue
		}
		x = append(x, va)
		y = append(y, vb)
	}
	return x, y
}

func interpret(corr float64) string {
	switch {
	case corr > 0.7:
		return "Strong positive"
	case corr < -0.7:
		return "Strong negative"
	case corr > 0.3:
		return "Moderate positive"
	case corr < -0.3:
		return "Moderate negative"
	}
	return "Weak/None"
}

func pearsonCorrelation(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}

	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	num := n*sumXY - sumX*sumY
	den := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))

	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// spearmanCorrelation is Pearson over ranks; ties share their average rank.
func spearmanCorrelation(x, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return pearsonCorrelation(computeRanks(x), computeRanks(y))
}

func computeRanks(vals []float64) []float64 {
	n := len(vals)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return vals[idx[i]] < vals[idx[j]] })

	ranks := make([]float64, n)
	for start := 0; start < n; {
		end := start + 1
		for end < n && vals[idx[end]] == vals[idx[start]] {
			end++
		}
		avg := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			ranks[idx[k]] = avg
		}
		start = end
	}
	return ranks
}
